package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.FIFOCapacity != 4000 {
		t.Errorf("FIFOCapacity = %d, want 4000", d.FIFOCapacity)
	}
	if d.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", d.LogLevel)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("Load(\"\") = %+v, want Defaults()", cfg)
	}
}

func TestLoadPartialYAMLKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("fifo_capacity: 8000\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FIFOCapacity != 8000 {
		t.Errorf("FIFOCapacity = %d, want 8000", cfg.FIFOCapacity)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
	if cfg.BusyInterval != 50*time.Millisecond {
		t.Errorf("BusyInterval = %v, want default 50ms", cfg.BusyInterval)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load of missing file should fail")
	}
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("fifo_capacity: [this is not an int\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load of malformed YAML should fail")
	}
}

func TestLogLevelValueFallsBackToInfo(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "not-a-level"
	if got := cfg.LogLevelValue(); got != logrus.InfoLevel {
		t.Errorf("LogLevelValue = %v, want InfoLevel", got)
	}
}

func TestLogLevelValueParsesKnownLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "debug"
	if got := cfg.LogLevelValue(); got != logrus.DebugLevel {
		t.Errorf("LogLevelValue = %v, want DebugLevel", got)
	}
}
