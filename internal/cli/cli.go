// Package cli implements the poolparty command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the poolparty command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "poolparty",
		Short: "Run workloads on a fixed-size worker pool.",
		Long: `Run workloads on a fixed-size worker pool.

For example:
  poolparty run --threads 4 --tasks 50 --task-delay 5ms
  poolparty run --metrics-addr :9100 --log-format json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", `Log level ("debug", "info", "warn", "error")`)
	root.PersistentFlags().String("log-format", "console", `Log format ("console", "json")`)

	root.AddCommand(newRunCommand())
	root.AddCommand(newVersionCommand(version))
	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the poolparty version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
