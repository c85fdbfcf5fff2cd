package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	poolparty "github.com/Swind/go-pool-party"
	"github.com/Swind/go-pool-party/internal/config"
	"github.com/Swind/go-pool-party/internal/logging"
	promexporter "github.com/Swind/go-pool-party/observability/prometheus"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enqueue a batch of sleeping tasks, shut down and wait for the pool to drain.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			path, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(v, path)
			if err != nil {
				return err
			}
			return runBatch(cmd, cfg)
		},
	}

	cmd.Flags().IntP("threads", "t", 4, "Number of worker threads")
	cmd.Flags().IntP("tasks", "n", 50, "Number of tasks to enqueue")
	cmd.Flags().Duration("task-delay", 5*time.Millisecond, "How long each task sleeps")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().String("namespace", "poolparty", "Prometheus metric namespace")
	return cmd
}

func runBatch(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	restore := zap.ReplaceGlobals(logger)
	defer restore()

	reg := prom.NewRegistry()
	exporter, err := promexporter.NewMetricsExporter(cfg.Namespace, reg, promexporter.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}
	poller, err := promexporter.NewSnapshotPoller(cfg.Namespace, reg, time.Second)
	if err != nil {
		return fmt.Errorf("failed to create snapshot poller: %w", err)
	}

	pool, err := poolparty.New(cfg.Threads,
		poolparty.WithZapLogger(logger),
		poolparty.WithMetrics(exporter),
	)
	if err != nil {
		return err
	}
	poller.AddPool(pool.ID(), pool)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	poller.Start(ctx)

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			pool.Close()
			poller.Stop()
			return err
		}
		defer stop()
	}

	start := time.Now()
	var executed atomic.Int64
	for i := 0; i < cfg.Tasks; i++ {
		if _, err := pool.Enqueue(func() {
			time.Sleep(cfg.TaskDelay)
			executed.Add(1)
		}); err != nil {
			pool.Close()
			poller.Stop()
			return fmt.Errorf("failed to enqueue task %d: %w", i, err)
		}
	}
	pool.Shutdown()
	pool.Close()
	poller.Stop()

	stats := pool.Stats()
	logger.Info("run finished",
		zap.String("pool", stats.ID),
		zap.Int("workers", stats.Workers),
		zap.Int64("completed", stats.Completed),
		zap.Int64("panicked", stats.Panicked),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "executed %d of %d tasks on %d workers\n", executed.Load(), cfg.Tasks, stats.Workers)
	return nil
}

// serveMetrics exposes reg on addr until the returned stop func is called.
func serveMetrics(addr string, reg *prom.Registry, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}, nil
}
