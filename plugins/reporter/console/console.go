// Package console implements the console reporter.
// Writes every packet to stdout in the simple or verbose layout, or as
// one JSON document per line.
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"firestige.xyz/meshmon/internal/format"
	"firestige.xyz/meshmon/pkg/plugin"
)

// ConsoleReporter prints packets for a human reader.
type ConsoleReporter struct {
	name      string
	format    string // "text" or "json"
	formatter *format.Formatter
	out       *bufio.Writer

	reportedCount atomic.Uint64
}

// Config represents console reporter configuration.
type Config struct {
	Format   string         `json:"format"`  // "json" or "text", default "text"
	Verbose  bool           `json:"verbose"` // text only
	Location *time.Location `json:"-"`       // timestamp zone, default Local
	Writer   io.Writer      `json:"-"`       // default os.Stdout
}

// NewConsoleReporter creates a new console reporter.
func NewConsoleReporter() plugin.Reporter {
	return &ConsoleReporter{
		name:   "console",
		format: "text", // default
	}
}

// Name returns the plugin name.
func (r *ConsoleReporter) Name() string {
	return r.name
}

// Init initializes the reporter with configuration.
func (r *ConsoleReporter) Init(config map[string]any) error {
	cfg := Config{Format: "text", Location: time.Local, Writer: os.Stdout}

	if config != nil {
		if f, ok := config["format"].(string); ok {
			if f != "json" && f != "text" {
				return fmt.Errorf("invalid format %q, must be json or text", f)
			}
			cfg.Format = f
		}
		if v, ok := config["verbose"].(bool); ok {
			cfg.Verbose = v
		}
		if loc, ok := config["location"].(*time.Location); ok && loc != nil {
			cfg.Location = loc
		}
		if w, ok := config["writer"].(io.Writer); ok && w != nil {
			cfg.Writer = w
		}
	}

	r.format = cfg.Format
	r.formatter = format.NewFormatter(cfg.Verbose, cfg.Location)
	r.out = bufio.NewWriter(cfg.Writer)
	return nil
}

// Start starts the reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	slog.Info("console reporter started", "format", r.format, "verbose", r.formatter.Verbose())
	return nil
}

// Stop stops the reporter.
func (r *ConsoleReporter) Stop(ctx context.Context) error {
	count := r.reportedCount.Load()
	slog.Info("console reporter stopped", "total_reported", count)
	return r.out.Flush()
}

// Report writes one packet. Output is flushed per packet so a live
// monitor shows it immediately.
func (r *ConsoleReporter) Report(ctx context.Context, rec *format.Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}

	r.reportedCount.Add(1)

	if r.format == "json" {
		if err := r.reportJSON(rec); err != nil {
			return err
		}
	} else if err := r.formatter.Write(r.out, rec); err != nil {
		return err
	}
	return r.out.Flush()
}

// reportJSON outputs the record as one JSON line.
func (r *ConsoleReporter) reportJSON(rec *format.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}
	data = append(data, '\n')
	_, err = r.out.Write(data)
	return err
}

// Flush flushes buffered output.
func (r *ConsoleReporter) Flush(ctx context.Context) error {
	return r.out.Flush()
}
