package atlas

import (
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// worldConfig holds the configuration for a World instance.
// Configuration can be set via environment variables with the specified defaults.
type worldConfig struct {
	// Namespace groups metrics and logs of this world instance.
	Namespace string `env:"ATLAS_NAMESPACE" envDefault:"world"`

	// TickRate is the number of ticks per second.
	TickRate float64 `env:"ATLAS_TICK_RATE" envDefault:"1"`

	// Workers caps how many systems run concurrently within a wave.
	// Zero means one worker per CPU.
	Workers int `env:"ATLAS_WORKERS" envDefault:"0"`

	// StatsdAddress is the address of a statsd agent. Empty disables metrics.
	StatsdAddress string `env:"ATLAS_STATSD_ADDRESS"`

	// TraceEnabled turns on tracing via the trace agent.
	TraceEnabled bool `env:"ATLAS_TRACE_ENABLED" envDefault:"false"`

	// ProfilerEnabled turns on continuous CPU and heap profiling.
	ProfilerEnabled bool `env:"ATLAS_PROFILER_ENABLED" envDefault:"false"`

	// Log level configuration ("debug", "info", "warn", "error").
	LogLevel string `env:"ATLAS_LOG_LEVEL" envDefault:"info"`

	// LogPretty switches log output from JSON to human-readable console logs.
	LogPretty bool `env:"ATLAS_LOG_PRETTY" envDefault:"false"`
}

// loadWorldConfig loads the world configuration from environment variables.
func loadWorldConfig() (worldConfig, error) {
	cfg := worldConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse world config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *worldConfig) validate() error {
	if cfg.Namespace == "" {
		return eris.New("namespace cannot be empty")
	}
	if cfg.TickRate <= 0 {
		return eris.New("tick rate must be positive")
	}
	if cfg.Workers < 0 {
		return eris.New("workers cannot be negative")
	}
	_, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", cfg.LogLevel)
	}
	return nil
}

// workerCount resolves the configured worker cap to a concrete count.
func (cfg *worldConfig) workerCount() int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}
