// Package config provides configuration loading and access for bot clients.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every knob a bot client reads at startup.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Broker    BrokerConfig    `yaml:"broker"`
	Session   SessionConfig   `yaml:"session"`
	Arena     ArenaConfig     `yaml:"arena"`
	Loop      LoopConfig      `yaml:"loop"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// APIConfig locates the session bootstrap HTTP server.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BrokerConfig locates the message bus bridge.
type BrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SessionConfig selects the session to join.
type SessionConfig struct {
	ID int `yaml:"id"`
}

// ArenaConfig holds the arena geometry.
type ArenaConfig struct {
	Radius float64 `yaml:"radius"`
}

// LoopConfig tunes the game loop rates.
type LoopConfig struct {
	FPS          float64 `yaml:"fps"`
	TPS          float64 `yaml:"tps"`
	MaxDeltaTime float64 `yaml:"max_delta_time"`
}

// TelemetryConfig controls loop timing output. An empty dir disables it.
type TelemetryConfig struct {
	Dir string `yaml:"dir"`
}

// DerivedConfig holds values computed from the loaded configuration.
type DerivedConfig struct {
	FrameTime  float64 // 1/fps
	FixedDelta float64 // 1/tps
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Loop.FPS > 0 {
		c.Derived.FrameTime = 1 / c.Loop.FPS
	}
	if c.Loop.TPS > 0 {
		c.Derived.FixedDelta = 1 / c.Loop.TPS
	}
}
