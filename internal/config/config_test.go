package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"firestige.xyz/meshmon/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
meshmon:
  log:
    level: "debug"
    format: "json"
  monitor:
    group: "224.0.0.69"
    port: 4403
    interface: "eth0"
    read_timeout: "250ms"
  capture:
    dir: "/tmp/captures"
  pipeline:
    workers: 4
  keyring:
    channels:
      - name: "Hiking"
        psk: "AQ=="
  output:
    verbose: true
    timezone: "UTC"
  metrics:
    enabled: true
    listen: "127.0.0.1:9464"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected log format json, got %s", cfg.Log.Format)
	}
	if cfg.Monitor.Interface != "eth0" {
		t.Errorf("Expected interface eth0, got %s", cfg.Monitor.Interface)
	}
	if cfg.Monitor.ReadTimeout != 250*time.Millisecond {
		t.Errorf("Expected read timeout 250ms, got %v", cfg.Monitor.ReadTimeout)
	}
	if cfg.Capture.Dir != "/tmp/captures" {
		t.Errorf("Expected capture dir /tmp/captures, got %s", cfg.Capture.Dir)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Pipeline.Workers)
	}
	if len(cfg.Keyring.Channels) != 1 || cfg.Keyring.Channels[0].Name != "Hiking" {
		t.Fatalf("Expected one channel named Hiking, got %v", cfg.Keyring.Channels)
	}
	key, err := cfg.Keyring.Channels[0].Key()
	if err != nil || len(key) != 1 || key[0] != 1 {
		t.Errorf("Expected 1-byte key 0x01, got %v (%v)", key, err)
	}
	if !cfg.Output.Verbose {
		t.Error("Expected verbose output")
	}
	loc, err := cfg.Output.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Expected UTC location, got %v (%v)", loc, err)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Listen != "127.0.0.1:9464" {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}

	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Monitor.Group != DefaultGroup || cfg.Monitor.Port != DefaultPort {
		t.Errorf("Unexpected intake defaults: %s:%d", cfg.Monitor.Group, cfg.Monitor.Port)
	}
	if cfg.Monitor.ReadTimeout != time.Second {
		t.Errorf("Expected 1s read timeout, got %v", cfg.Monitor.ReadTimeout)
	}
	if cfg.Pipeline.BufferSize != 1024 {
		t.Errorf("Expected buffer size 1024, got %d", cfg.Pipeline.BufferSize)
	}
	if !cfg.Keyring.Variants {
		t.Error("Expected key variants enabled by default")
	}
	if cfg.Capture.Dir != "" {
		t.Errorf("Expected capture disabled by default, got %q", cfg.Capture.Dir)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MESHMON_LOG_LEVEL", "warning")
	t.Setenv("MESHMON_MONITOR_PORT", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.Log.Level)
	}
	if cfg.Monitor.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", cfg.Monitor.Port)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid log level", "meshmon:\n  log:\n    level: \"verbose\"\n"},
		{"invalid log format", "meshmon:\n  log:\n    format: \"xml\"\n"},
		{"unicast group", "meshmon:\n  monitor:\n    group: \"10.0.0.1\"\n"},
		{"port out of range", "meshmon:\n  monitor:\n    port: 70000\n"},
		{"negative workers", "meshmon:\n  pipeline:\n    workers: -1\n"},
		{"bad psk", "meshmon:\n  keyring:\n    channels:\n      - name: \"x\"\n        psk: \"!!!\"\n"},
		{"unnamed channel", "meshmon:\n  keyring:\n    channels:\n      - psk: \"AQ==\"\n"},
		{"kafka without brokers", "meshmon:\n  reporters:\n    kafka:\n      enabled: true\n"},
		{"unknown timezone", "meshmon:\n  output:\n    timezone: \"Mars/Olympus\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
