// Package daemon implements the monitor and replay session lifecycle.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"firestige.xyz/meshmon/internal/capture"
	"firestige.xyz/meshmon/internal/config"
	"firestige.xyz/meshmon/internal/keyring"
	"firestige.xyz/meshmon/internal/metrics"
	"firestige.xyz/meshmon/internal/pipeline"
	"firestige.xyz/meshmon/pkg/plugin"
	_ "firestige.xyz/meshmon/plugins" // register built-in plugins
)

// Mode selects where packets come from.
type Mode int

const (
	ModeMonitor Mode = iota // live multicast intake
	ModeReplay              // capture file, directory, pcap or stdin
)

func (m Mode) String() string {
	if m == ModeReplay {
		return "replay"
	}
	return "monitor"
}

// Options are the per-invocation settings that do not live in the
// configuration file.
type Options struct {
	Mode       Mode
	ReplayPath string    // replay only; "" or "-" reads stdin
	Stdin      io.Reader // default os.Stdin
	Stdout     io.Writer // packet stream and statistics, default os.Stdout
}

// Daemon manages one monitor or replay session.
type Daemon struct {
	// Configuration
	config *config.GlobalConfig
	opts   Options

	// Core components
	ring          *keyring.Ring
	stats         *pipeline.Stats
	capturer      plugin.Capturer
	reporters     []plugin.Reporter
	recorder      *capture.Writer // nil if capture disabled
	metricsServer *metrics.Server // nil if metrics disabled

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	sigChan chan os.Signal
}

// New creates a new Daemon instance.
func New(cfg *config.GlobalConfig, opts Options) *Daemon {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	d := &Daemon{
		config: cfg,
		opts:   opts,
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Start acquires every resource the session needs. Any failure here is
// fatal and leaves nothing running.
func (d *Daemon) Start() (err error) {
	slog.Info("starting meshmon", "mode", d.opts.Mode)

	defer func() {
		if err != nil {
			d.Stop()
		}
	}()

	// 1. Key ring
	d.ring, err = BuildKeyring(d.config.Keyring)
	if err != nil {
		return fmt.Errorf("failed to build key ring: %w", err)
	}
	d.stats = pipeline.NewStats()

	// 2. Capturer
	if err := d.initCapturer(); err != nil {
		return err
	}

	// 3. Capture writer (live only)
	if d.opts.Mode == ModeMonitor && d.config.Capture.Dir != "" {
		d.recorder, err = capture.NewWriter(d.config.Capture.Dir, d.config.Capture.Sync)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		slog.Info("capturing packets", "dir", d.config.Capture.Dir)
	}

	// 4. Reporters
	if err := d.initReporters(); err != nil {
		return err
	}

	// 5. Metrics server
	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	slog.Info("meshmon started",
		"capturer", d.capturer.Name(),
		"reporters", len(d.reporters),
		"keys", len(d.ring.Named())+len(d.ring.Variants()),
	)
	return nil
}

// Run processes packets until the source is exhausted or a shutdown
// signal arrives, then releases resources and prints the final
// statistics. Start must have succeeded.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-d.sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	p := pipeline.NewBuilder().
		WithCapturer(d.capturer).
		WithKeyring(d.ring).
		WithReporters(d.reporters...).
		WithWorkers(d.config.Pipeline.Workers).
		WithBufferSize(d.config.Pipeline.BufferSize).
		WithStats(d.stats)
	if d.recorder != nil {
		p = p.WithRecorder(d.recorder)
	}

	runErr := p.Build().Run(d.ctx)

	d.Stop()
	if err := d.stats.Report(d.opts.Stdout); err != nil {
		slog.Error("failed to write statistics", "error", err)
	}
	return runErr
}

// Shutdown requests a graceful stop of a running session.
func (d *Daemon) Shutdown() {
	d.cancel()
}

// Stats returns the session statistics.
func (d *Daemon) Stats() *pipeline.Stats {
	return d.stats
}

// Stop releases everything Start acquired. It is safe to call more than
// once.
func (d *Daemon) Stop() {
	d.cancel()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 1. Reporters
	for _, r := range d.reporters {
		if err := r.Stop(stopCtx); err != nil {
			slog.Error("error stopping reporter", "reporter", r.Name(), "error", err)
		}
	}
	d.reporters = nil

	// 2. Capturer
	if d.capturer != nil {
		if err := d.capturer.Stop(stopCtx); err != nil {
			slog.Error("error stopping capturer", "error", err)
		}
	}

	// 3. Capture writer
	if d.recorder != nil {
		if err := d.recorder.Close(); err != nil {
			slog.Error("error closing capture file", "error", err)
		}
		slog.Info("capture closed", "lines", d.recorder.Lines())
		d.recorder = nil
	}

	// 4. Metrics server
	if d.metricsServer != nil {
		if err := d.metricsServer.Stop(stopCtx); err != nil {
			slog.Error("error stopping metrics server", "error", err)
		}
		d.metricsServer = nil
	}

	// 5. Unregister signal handler to prevent goroutine leak
	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}
}

// initCapturer picks and initializes the intake plugin.
func (d *Daemon) initCapturer() error {
	name, cfg := d.capturerConfig()
	factory, err := plugin.GetCapturerFactory(name)
	if err != nil {
		return err
	}

	c := factory()
	if err := c.Init(cfg); err != nil {
		return fmt.Errorf("failed to init capturer %s: %w", name, err)
	}
	if err := c.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start capturer %s: %w", name, err)
	}
	d.capturer = c
	return nil
}

func (d *Daemon) capturerConfig() (string, map[string]any) {
	if d.opts.Mode == ModeMonitor {
		m := d.config.Monitor
		return "multicast", map[string]any{
			"group":        m.Group,
			"port":         m.Port,
			"interface":    m.Interface,
			"read_timeout": m.ReadTimeout,
			"read_buffer":  m.ReadBuffer,
		}
	}

	path := d.opts.ReplayPath
	if IsPcapPath(path) {
		return "pcap", map[string]any{
			"path": path,
			"port": d.config.Replay.Port,
		}
	}
	return "replay", map[string]any{
		"path":  path,
		"stdin": d.opts.Stdin,
	}
}

// IsPcapPath reports whether a replay argument names a pcap or pcapng file.
func IsPcapPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".pcap") || strings.HasSuffix(lower, ".pcapng")
}

// initReporters creates the console reporter and any enabled downstream
// reporters.
func (d *Daemon) initReporters() error {
	loc, err := d.config.Output.Location()
	if err != nil {
		return err
	}

	type entry struct {
		name string
		cfg  map[string]any
	}
	entries := []entry{{"console", map[string]any{
		"verbose":  d.config.Output.Verbose,
		"location": loc,
		"writer":   d.opts.Stdout,
	}}}

	if k := d.config.Reporters.Kafka; k.Enabled {
		entries = append(entries, entry{"kafka", map[string]any{
			"brokers":       k.Brokers,
			"topic":         k.Topic,
			"batch_size":    k.BatchSize,
			"batch_timeout": k.BatchTimeout,
			"compression":   k.Compression,
		}})
	}
	if n := d.config.Reporters.NATS; n.Enabled {
		entries = append(entries, entry{"nats", map[string]any{
			"url":     n.URL,
			"subject": n.Subject,
		}})
	}

	for _, e := range entries {
		factory, err := plugin.GetReporterFactory(e.name)
		if err != nil {
			return err
		}
		r := factory()
		if err := r.Init(e.cfg); err != nil {
			return fmt.Errorf("failed to init reporter %s: %w", e.name, err)
		}
		if err := r.Start(d.ctx); err != nil {
			return fmt.Errorf("failed to start reporter %s: %w", e.name, err)
		}
		d.reporters = append(d.reporters, r)
	}
	return nil
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		slog.Debug("metrics server disabled")
		return nil
	}

	stats := d.stats
	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path, func() any {
		return stats.Snapshot()
	})
	if err := d.metricsServer.Start(d.ctx); err != nil {
		d.metricsServer = nil
		return err
	}
	return nil
}
