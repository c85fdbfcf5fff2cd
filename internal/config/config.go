// Package config loads the poolparty CLI configuration.
//
// Values are resolved in this order, later sources winning:
//
//	┌──────────────┬──────────────────────────────────────────┐
//	│ Source       │ Example                                  │
//	├──────────────┼──────────────────────────────────────────┤
//	│ struct tags  │ `default:"4"` applied by creasty/defaults │
//	│ config file  │ threads: 8                               │
//	│ environment  │ POOLPARTY_THREADS=8                      │
//	│ CLI flags    │ --threads 8                              │
//	└──────────────┴──────────────────────────────────────────┘
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POOLPARTY"

// Config holds the settings of a poolparty run.
type Config struct {
	Threads     int           `mapstructure:"threads" default:"4"`
	Tasks       int           `mapstructure:"tasks" default:"50"`
	TaskDelay   time.Duration `mapstructure:"task-delay" default:"5ms"`
	LogLevel    string        `mapstructure:"log-level" default:"info"`
	LogFormat   string        `mapstructure:"log-format" default:"console"`
	MetricsAddr string        `mapstructure:"metrics-addr"`
	Namespace   string        `mapstructure:"namespace" default:"poolparty"`
}

// Default returns a Config with every default applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}
	return cfg, nil
}

// Load resolves the configuration through v. Flags bound to v before the call
// take precedence over environment variables, which take precedence over the
// file at path. An empty path skips the file.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	v.SetDefault("threads", cfg.Threads)
	v.SetDefault("tasks", cfg.Tasks)
	v.SetDefault("task-delay", cfg.TaskDelay)
	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("log-format", cfg.LogFormat)
	v.SetDefault("metrics-addr", cfg.MetricsAddr)
	v.SetDefault("namespace", cfg.Namespace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("invalid threads %d: must be at least 1", c.Threads)
	}
	if c.Tasks < 0 {
		return fmt.Errorf("invalid tasks %d: must not be negative", c.Tasks)
	}
	if c.TaskDelay < 0 {
		return fmt.Errorf("invalid task-delay %s: must not be negative", c.TaskDelay)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level %q: %w", c.LogLevel, err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q: must be 'console' or 'json'", c.LogFormat)
	}
	if c.Namespace == "" {
		return errors.New("namespace is empty")
	}
	return nil
}
