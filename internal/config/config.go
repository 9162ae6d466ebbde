// Package config handles global configuration loading using viper.
package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/meshmon/internal/core"
)

// GlobalConfig represents the top-level global static configuration.
// Maps to the `meshmon:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Replay    ReplayConfig    `mapstructure:"replay"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Keyring   KeyringConfig   `mapstructure:"keyring"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Reporters ReportersConfig `mapstructure:"reporters"`
}

// ─── Live Intake ───

// MonitorConfig configures the UDP multicast intake.
type MonitorConfig struct {
	Group       string        `mapstructure:"group"`
	Port        int           `mapstructure:"port"`
	Interface   string        `mapstructure:"interface"` // Empty = system default
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	ReadBuffer  int           `mapstructure:"read_buffer"`
}

// ─── Capture & Replay ───

// CaptureConfig configures the TSV capture writer.
type CaptureConfig struct {
	Dir  string `mapstructure:"dir"`  // Empty = capture disabled
	Sync bool   `mapstructure:"sync"` // fsync after every line
}

// ReplayConfig configures offline replay.
type ReplayConfig struct {
	Port int `mapstructure:"port"` // UDP port filter for pcap input
}

// ─── Pipeline ───

// PipelineConfig configures the decode worker pool.
type PipelineConfig struct {
	Workers    int `mapstructure:"workers"`     // 0 = auto (NumCPU)
	BufferSize int `mapstructure:"buffer_size"` // intake channel capacity
}

// ─── Key Ring ───

// KeyringConfig configures additional channel keys.
type KeyringConfig struct {
	ChannelsFile string          `mapstructure:"channels_file"`
	Channels     []ChannelConfig `mapstructure:"channels"`
	Variants     bool            `mapstructure:"variants"`
}

// ChannelConfig is a named channel with a base64 PSK, as found in channel URLs.
type ChannelConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	PSK  string `mapstructure:"psk" yaml:"psk"`
}

// Key decodes the base64 PSK.
func (c ChannelConfig) Key() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.PSK)
	if err != nil {
		return nil, fmt.Errorf("channel %q: invalid psk: %w", c.Name, err)
	}
	return key, nil
}

// ─── Output ───

// OutputConfig controls packet rendering.
type OutputConfig struct {
	Verbose  bool   `mapstructure:"verbose"`
	Timezone string `mapstructure:"timezone"` // IANA name, "Local" or "UTC"
}

// Location resolves the configured timezone.
func (o OutputConfig) Location() (*time.Location, error) {
	if o.Timezone == "" || o.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(o.Timezone)
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Reporters ───

// ReportersConfig holds the optional downstream reporters.
type ReportersConfig struct {
	Kafka KafkaReporterConfig `mapstructure:"kafka"`
	NATS  NATSReporterConfig  `mapstructure:"nats"`
}

// KafkaReporterConfig configures the Kafka JSON reporter.
type KafkaReporterConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	Compression  string        `mapstructure:"compression"` // none | gzip | snappy | lz4 | zstd
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// NATSReporterConfig configures the NATS JSON reporter.
type NATSReporterConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `meshmon: ...`.
type configRoot struct {
	Meshmon GlobalConfig `mapstructure:"meshmon"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to environment overrides.
// The YAML file uses `meshmon:` as root key; env vars use the MESHMON_ prefix
// (e.g., MESHMON_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `meshmon.` key prefix maps to `MESHMON_` in env vars via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Meshmon

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfigInvalid, err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "meshmon." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("meshmon.log.level", "info")
	v.SetDefault("meshmon.log.format", "text")
	v.SetDefault("meshmon.log.outputs.file.enabled", false)
	v.SetDefault("meshmon.log.outputs.file.path", "meshmon.log")
	v.SetDefault("meshmon.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("meshmon.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("meshmon.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("meshmon.log.outputs.file.rotation.compress", true)

	// Intake defaults
	v.SetDefault("meshmon.monitor.group", DefaultGroup)
	v.SetDefault("meshmon.monitor.port", DefaultPort)
	v.SetDefault("meshmon.monitor.read_timeout", "1s")
	v.SetDefault("meshmon.monitor.read_buffer", 4096)
	v.SetDefault("meshmon.replay.port", DefaultPort)

	// Pipeline defaults
	v.SetDefault("meshmon.pipeline.workers", 0)
	v.SetDefault("meshmon.pipeline.buffer_size", 1024)

	// Key ring defaults
	v.SetDefault("meshmon.keyring.variants", true)

	// Output defaults
	v.SetDefault("meshmon.output.verbose", false)
	v.SetDefault("meshmon.output.timezone", "Local")

	// Metrics defaults
	v.SetDefault("meshmon.metrics.enabled", false)
	v.SetDefault("meshmon.metrics.listen", ":9464")
	v.SetDefault("meshmon.metrics.path", "/metrics")

	// Reporter defaults
	v.SetDefault("meshmon.reporters.kafka.topic", "meshmon-packets")
	v.SetDefault("meshmon.reporters.kafka.compression", "snappy")
	v.SetDefault("meshmon.reporters.kafka.batch_size", 100)
	v.SetDefault("meshmon.reporters.kafka.batch_timeout", "100ms")
	v.SetDefault("meshmon.reporters.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("meshmon.reporters.nats.subject", "meshmon.packets")
}

// Protocol defaults for the mesh multicast group.
const (
	DefaultGroup = "224.0.0.69"
	DefaultPort  = 4403
)

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	// ── Intake validation ──
	if ip := net.ParseIP(cfg.Monitor.Group); ip == nil || !ip.IsMulticast() || ip.To4() == nil {
		return fmt.Errorf("invalid monitor.group: %q (must be an IPv4 multicast address)", cfg.Monitor.Group)
	}
	if cfg.Monitor.Port <= 0 || cfg.Monitor.Port > 65535 {
		return fmt.Errorf("invalid monitor.port: %d", cfg.Monitor.Port)
	}
	if cfg.Monitor.ReadTimeout <= 0 {
		cfg.Monitor.ReadTimeout = time.Second
	}
	if cfg.Monitor.ReadBuffer < 512 {
		cfg.Monitor.ReadBuffer = 512
	}
	if cfg.Replay.Port < 0 || cfg.Replay.Port > 65535 {
		return fmt.Errorf("invalid replay.port: %d", cfg.Replay.Port)
	}

	// ── Pipeline ──
	if cfg.Pipeline.Workers < 0 {
		return fmt.Errorf("invalid pipeline.workers: %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.BufferSize <= 0 {
		cfg.Pipeline.BufferSize = 1024
	}

	// ── Key ring ──
	for _, ch := range cfg.Keyring.Channels {
		if ch.Name == "" {
			return fmt.Errorf("keyring.channels: channel name is required")
		}
		if _, err := ch.Key(); err != nil {
			return err
		}
	}

	// ── Output ──
	if _, err := cfg.Output.Location(); err != nil {
		return fmt.Errorf("invalid output.timezone: %w", err)
	}

	// ── Reporters ──
	if cfg.Reporters.Kafka.Enabled {
		if len(cfg.Reporters.Kafka.Brokers) == 0 {
			return fmt.Errorf("reporters.kafka.brokers is required when reporters.kafka.enabled=true")
		}
		if cfg.Reporters.Kafka.Topic == "" {
			return fmt.Errorf("reporters.kafka.topic is required when reporters.kafka.enabled=true")
		}
	}
	if cfg.Reporters.NATS.Enabled && cfg.Reporters.NATS.URL == "" {
		return fmt.Errorf("reporters.nats.url is required when reporters.nats.enabled=true")
	}

	return nil
}
