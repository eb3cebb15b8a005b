// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. STATUSINFO_SERVER_PORT.
const EnvPrefix = "STATUSINFO"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Hub     HubConfig     `mapstructure:"hub"`
	Sinks   SinksConfig   `mapstructure:"sinks"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

// ServerConfig controls the HTTP inspection server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Addr renders the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HubConfig sizes the progress hub buffers and flush cadence.
type HubConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	SinkTimeout    time.Duration `mapstructure:"sink_timeout"`
}

// SinksConfig enables individual progress sinks.
type SinksConfig struct {
	Log        bool `mapstructure:"log"`
	Prometheus bool `mapstructure:"prometheus"`
	Tracing    bool `mapstructure:"tracing"`
}

// DemoConfig shapes the synthetic workload.
type DemoConfig struct {
	Workers    int           `mapstructure:"workers"`
	Jobs       int           `mapstructure:"jobs"`
	Steps      int           `mapstructure:"steps"`
	Fanout     int           `mapstructure:"fanout"`
	StepDelay  time.Duration `mapstructure:"step_delay"`
	QueueDepth int           `mapstructure:"queue_depth"`
	// JobsPerSecond paces each worker; 0 means unpaced.
	JobsPerSecond float64 `mapstructure:"jobs_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the configuration used when no file or environment is set.
func Default() Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults always validate; reaching this means setDefaults is broken.
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("hub.buffer_size", 4096)
	v.SetDefault("hub.max_batch_events", 1000)
	v.SetDefault("hub.max_batch_wait", 500*time.Millisecond)
	v.SetDefault("hub.sink_timeout", 10*time.Second)
	v.SetDefault("sinks.log", true)
	v.SetDefault("sinks.prometheus", true)
	v.SetDefault("sinks.tracing", false)
	v.SetDefault("demo.workers", 4)
	v.SetDefault("demo.jobs", 16)
	v.SetDefault("demo.steps", 10)
	v.SetDefault("demo.fanout", 2)
	v.SetDefault("demo.step_delay", 50*time.Millisecond)
	v.SetDefault("demo.queue_depth", 64)
	v.SetDefault("demo.jobs_per_second", 0)
	v.SetDefault("demo.burst", 1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Hub.BufferSize <= 0 {
		return fmt.Errorf("hub.buffer_size must be > 0")
	}
	if c.Hub.MaxBatchEvents <= 0 {
		return fmt.Errorf("hub.max_batch_events must be > 0")
	}
	if c.Demo.Workers <= 0 {
		return fmt.Errorf("demo.workers must be > 0")
	}
	if c.Demo.Steps < 0 {
		return fmt.Errorf("demo.steps must be >= 0")
	}
	if c.Demo.Fanout < 0 {
		return fmt.Errorf("demo.fanout must be >= 0")
	}
	if c.Demo.QueueDepth <= 0 {
		return fmt.Errorf("demo.queue_depth must be > 0")
	}
	if c.Demo.JobsPerSecond < 0 {
		return fmt.Errorf("demo.jobs_per_second must be >= 0")
	}
	return nil
}
