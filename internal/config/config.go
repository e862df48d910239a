// Package config loads the transport's own tunables — never the
// user-facing plugin-path/recent-project state a DAW's configuration
// manager owns, which stays external to this package entirely.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/remoteplugin/fifo"
	"github.com/ardnew/remoteplugin/pkg"
)

// Config holds every knob the transport exposes. Fields absent from the
// YAML file keep Defaults' values in Load, so a partial YAML file (or none
// at all) is always valid.
type Config struct {
	// FIFOCapacity is the byte capacity of each control FIFO's ring buffer.
	FIFOCapacity int `yaml:"fifo_capacity"`

	// PollInterval is how long a full/empty FIFO read or write backs off
	// before retrying.
	PollInterval time.Duration `yaml:"poll_interval"`

	// BusyInterval is how often WaitForReply(busy=true) services its
	// caller-supplied poll callback while waiting for a reply.
	BusyInterval time.Duration `yaml:"busy_interval"`

	// LogLevel is one of logrus's level names: "debug", "info", "warn",
	// "error".
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the configuration used when no file is given and no
// flag overrides anything.
func Defaults() Config {
	return Config{
		FIFOCapacity: 4000,
		PollInterval: 50 * time.Microsecond,
		BusyInterval: 50 * time.Millisecond,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads a YAML file at path and overlays it onto Defaults. An empty
// path returns Defaults unchanged — a config file is optional.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// Unmarshal into a copy of the defaults so that fields absent from the
	// file keep their default values instead of being zeroed.
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	pkg.LogDebug(pkg.ComponentHost, "configuration loaded", "path", path,
		"fifo_capacity", cfg.FIFOCapacity, "log_level", cfg.LogLevel)

	return cfg, nil
}

// FIFOOptions adapts the loaded FIFOCapacity/PollInterval into the
// fifo.Options a FIFO pair is constructed or attached with.
func (c Config) FIFOOptions() fifo.Options {
	return fifo.Options{Capacity: int32(c.FIFOCapacity), PollInterval: c.PollInterval}
}

// LogLevelValue parses LogLevel into a logrus.Level, falling back to Info
// on anything unrecognized rather than erroring — a malformed config value
// should degrade, not crash a real-time audio process at startup.
func (c Config) LogLevelValue() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
