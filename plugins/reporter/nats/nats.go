// Package nats implements the NATS reporter plugin.
// Publishes packet documents as JSON on a subject per application port.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"firestige.xyz/meshmon/internal/format"
	"firestige.xyz/meshmon/internal/payload"
	"firestige.xyz/meshmon/pkg/plugin"
)

const (
	defaultURL     = nats.DefaultURL
	defaultSubject = "meshmon.packets"
)

// publisher is the part of *nats.Conn the reporter uses.
type publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSReporter publishes packet documents to NATS.
type NATSReporter struct {
	name    string
	url     string
	subject string
	conn    publisher

	reportedCount atomic.Uint64
	errorCount    atomic.Uint64
}

// NewNATSReporter creates a new NATS reporter.
func NewNATSReporter() plugin.Reporter {
	return &NATSReporter{
		name:    "nats",
		url:     defaultURL,
		subject: defaultSubject,
	}
}

// Name returns the plugin name.
func (r *NATSReporter) Name() string {
	return r.name
}

// Init initializes the reporter with configuration.
func (r *NATSReporter) Init(config map[string]any) error {
	if url, ok := config["url"].(string); ok && url != "" {
		r.url = url
	}
	if subject, ok := config["subject"].(string); ok && subject != "" {
		r.subject = subject
	}
	if strings.ContainsAny(r.subject, " *>") || strings.HasSuffix(r.subject, ".") {
		return fmt.Errorf("invalid subject %q", r.subject)
	}
	return nil
}

// Start connects to the server.
func (r *NATSReporter) Start(ctx context.Context) error {
	nc, err := nats.Connect(r.url, nats.Name("meshmon"))
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", r.url, err)
	}
	r.conn = nc
	slog.Info("nats reporter started", "url", r.url, "subject", r.subject)
	return nil
}

// Stop drains and closes the connection.
func (r *NATSReporter) Stop(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Drain()
	slog.Info("nats reporter stopped",
		"total_reported", r.reportedCount.Load(),
		"total_errors", r.errorCount.Load(),
	)
	return err
}

// Report publishes one packet document.
func (r *NATSReporter) Report(ctx context.Context, rec *format.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		r.errorCount.Add(1)
		return fmt.Errorf("serialize record failed: %w", err)
	}
	if err := r.conn.Publish(Subject(r.subject, rec), data); err != nil {
		r.errorCount.Add(1)
		return fmt.Errorf("nats publish failed: %w", err)
	}

	r.reportedCount.Add(1)
	return nil
}

// Subject returns the subject a record is published on: base followed by
// the lower-case port name, "encrypted" when no key matched, or
// "malformed" when the envelope could not be decoded.
func Subject(base string, rec *format.Record) string {
	switch {
	case rec.Envelope == nil:
		return base + ".malformed"
	case rec.Data == nil:
		return base + ".encrypted"
	}
	return base + "." + strings.ToLower(payload.Port(rec.Data.PortNum).String())
}

// Flush waits for the server to acknowledge everything published so far.
func (r *NATSReporter) Flush(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	return r.conn.FlushWithContext(ctx)
}
