package config

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/wippyai/quickjs-bridge/engine"
	"github.com/wippyai/quickjs-bridge/errors"
	"github.com/wippyai/quickjs-bridge/runtime"
)

// EnvPrefix prefixes every environment override, e.g. QJSB_ENGINE_MODE.
const EnvPrefix = "QJSB"

// Config holds the command-line runner's settings.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Guest   GuestConfig   `yaml:"guest"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig selects the guest module and how it is run.
type EngineConfig struct {
	Wasm             string `yaml:"wasm"`
	Mode             string `yaml:"mode"`
	CacheDir         string `yaml:"cache_dir" split_words:"true"`
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" split_words:"true"`
	MaxSteps         int    `yaml:"max_steps" split_words:"true"`
}

// GuestConfig holds host resources exposed to the guest.
type GuestConfig struct {
	// Timezone is an IANA zone name. Empty uses the local zone.
	Timezone string `yaml:"timezone"`
	// Output forwards guest stdout and stderr to the process.
	Output bool `yaml:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Mode:     "full",
			MaxSteps: 10000,
		},
		Guest: GuestConfig{
			Output: true,
		},
		Log: LogConfig{
			Level:    "warn",
			Encoding: "console",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Load applies the defaults, then the YAML file at path when path is not
// empty, then QJSB_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse config file "+path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "read environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be checked while decoding.
func (c *Config) Validate() error {
	if _, err := runtime.ParseMode(c.Engine.Mode); err != nil {
		return err
	}
	if c.Engine.MaxSteps < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "max_steps must not be negative")
	}
	if _, err := c.Guest.Location(); err != nil {
		return err
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

// EngineOptions converts the engine section for runtime.Options.
func (c *Config) EngineOptions() *engine.Config {
	return &engine.Config{
		CacheDir:           c.Engine.CacheDir,
		MemoryLimitPages:   c.Engine.MemoryLimitPages,
		CloseOnContextDone: true,
	}
}

// Location resolves the configured zone.
func (g GuestConfig) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "unknown timezone "+g.Timezone)
	}
	return loc, nil
}
