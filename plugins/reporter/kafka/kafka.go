// Package kafka implements Kafka reporter plugin.
// Publishes packet documents to Kafka as JSON with batching and compression.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/meshmon/internal/format"
	"firestige.xyz/meshmon/pkg/plugin"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
	defaultCompression  = "snappy"
	defaultMaxAttempts  = 3
)

// messageWriter is the part of *kafka.Writer the reporter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReporter sends packet documents to Kafka.
type KafkaReporter struct {
	name   string
	writer messageWriter
	config Config

	// Statistics
	reportedCount atomic.Uint64
	errorCount    atomic.Uint64
}

// Config represents Kafka reporter configuration.
type Config struct {
	Brokers      []string      `json:"brokers"`       // required
	Topic        string        `json:"topic"`         // required
	BatchSize    int           `json:"batch_size"`    // optional, default 100
	BatchTimeout time.Duration `json:"batch_timeout"` // optional, default 100ms
	Compression  string        `json:"compression"`   // optional: none|gzip|snappy|lz4|zstd, default snappy
	MaxAttempts  int           `json:"max_attempts"`  // optional, default 3
}

// NewKafkaReporter creates a new Kafka reporter.
func NewKafkaReporter() plugin.Reporter {
	return &KafkaReporter{
		name: "kafka",
	}
}

// Name returns the plugin name.
func (r *KafkaReporter) Name() string {
	return r.name
}

// Init initializes the reporter with configuration.
func (r *KafkaReporter) Init(config map[string]any) error {
	if config == nil {
		return fmt.Errorf("kafka reporter requires configuration")
	}

	// Parse configuration
	cfg := Config{
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Compression:  defaultCompression,
		MaxAttempts:  defaultMaxAttempts,
	}

	// Required: brokers
	switch brokers := config["brokers"].(type) {
	case []string:
		cfg.Brokers = append([]string(nil), brokers...)
	case []any:
		cfg.Brokers = make([]string, len(brokers))
		for i, b := range brokers {
			broker, ok := b.(string)
			if !ok {
				return fmt.Errorf("invalid broker type at index %d", i)
			}
			cfg.Brokers[i] = broker
		}
	}
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("brokers is required")
	}

	// Required: topic
	if topic, ok := config["topic"].(string); ok && topic != "" {
		cfg.Topic = topic
	} else {
		return fmt.Errorf("topic is required")
	}

	// Optional: batch_size
	switch batchSize := config["batch_size"].(type) {
	case int:
		cfg.BatchSize = batchSize
	case float64:
		cfg.BatchSize = int(batchSize)
	}

	// Optional: batch_timeout (can be string or duration)
	switch batchTimeout := config["batch_timeout"].(type) {
	case time.Duration:
		cfg.BatchTimeout = batchTimeout
	case string:
		timeout, err := time.ParseDuration(batchTimeout)
		if err != nil {
			return fmt.Errorf("invalid batch_timeout: %w", err)
		}
		cfg.BatchTimeout = timeout
	}

	// Optional: compression
	if compression, ok := config["compression"].(string); ok {
		cfg.Compression = compression
	}

	// Optional: max_attempts
	switch maxAttempts := config["max_attempts"].(type) {
	case int:
		cfg.MaxAttempts = maxAttempts
	case float64:
		cfg.MaxAttempts = int(maxAttempts)
	}

	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return err
	}

	r.config = cfg
	r.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // packets from one node stay on one partition
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		Compression:  codec,
	}

	return nil
}

func compressionCodec(name string) (compress.Compression, error) {
	switch name {
	case "none", "":
		return compress.None, nil
	case "gzip":
		return compress.Gzip, nil
	case "snappy":
		return compress.Snappy, nil
	case "lz4":
		return compress.Lz4, nil
	case "zstd":
		return compress.Zstd, nil
	}
	return compress.None, fmt.Errorf("invalid compression type: %s", name)
}

// Start starts the reporter.
func (r *KafkaReporter) Start(ctx context.Context) error {
	slog.Info("kafka reporter started",
		"brokers", r.config.Brokers,
		"topic", r.config.Topic,
		"batch_size", r.config.BatchSize,
		"batch_timeout", r.config.BatchTimeout,
		"compression", r.config.Compression,
	)
	return nil
}

// Stop stops the reporter.
func (r *KafkaReporter) Stop(ctx context.Context) error {
	if r.writer != nil {
		// Flush any pending messages
		if err := r.writer.Close(); err != nil {
			slog.Error("error closing kafka writer", "error", err)
			return err
		}
	}

	slog.Info("kafka reporter stopped",
		"total_reported", r.reportedCount.Load(),
		"total_errors", r.errorCount.Load(),
	)
	return nil
}

// Report sends a packet document to Kafka.
func (r *KafkaReporter) Report(ctx context.Context, rec *format.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}

	msg, err := newMessage(rec)
	if err != nil {
		r.errorCount.Add(1)
		return err
	}

	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.errorCount.Add(1)
		return fmt.Errorf("kafka write failed: %w", err)
	}

	r.reportedCount.Add(1)
	return nil
}

// newMessage keys the message by sender node and tags it with the port and
// decryption outcome.
func newMessage(rec *format.Record) (kafka.Message, error) {
	doc := format.NewDocument(rec)
	value, err := json.Marshal(doc)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("serialize record failed: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(doc.From),
		Value: value,
		Time:  rec.Packet.Timestamp,
	}
	if doc.Port != nil {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "port", Value: []byte(strconv.FormatUint(uint64(*doc.Port), 10))})
	}
	if doc.Decryption != nil {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "decryption", Value: []byte(doc.Decryption.Status)})
	}
	return msg, nil
}

// Flush forces any pending messages to be sent.
func (r *KafkaReporter) Flush(ctx context.Context) error {
	// Writes are synchronous; WriteMessages returns once the batch is acknowledged.
	return nil
}
