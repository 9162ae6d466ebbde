// Package pipeline implements the packet processing pipeline engine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/format"
	"firestige.xyz/meshmon/internal/metrics"
	"firestige.xyz/meshmon/pkg/plugin"
)

// flushTimeout bounds the final reporter flush after the intake stops.
const flushTimeout = 5 * time.Second

// Recorder persists every inbound datagram before it is processed.
type Recorder interface {
	Write(p core.RawPacket) error
}

// Pipeline drives packets from one capturer through a pool of workers and
// emits the results in arrival order.
type Pipeline struct {
	capturer   plugin.Capturer
	processor  *Processor
	recorder   Recorder
	reporters  []plugin.Reporter
	workers    int
	bufferSize int
	stats      *Stats

	ran atomic.Bool
}

// Config contains pipeline configuration.
type Config struct {
	Capturer   plugin.Capturer
	Processor  *Processor
	Recorder   Recorder // nil disables capture
	Reporters  []plugin.Reporter
	Workers    int // 0 = runtime.NumCPU()
	BufferSize int // queue depth between stages
	Stats      *Stats
}

// job is one packet travelling through the pool. done is closed by the
// worker once rec is set.
type job struct {
	seq  uint64
	raw  core.RawPacket
	rec  *format.Record
	done chan struct{}
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Stats == nil {
		cfg.Stats = NewStats()
	}

	return &Pipeline{
		capturer:   cfg.Capturer,
		processor:  cfg.Processor,
		recorder:   cfg.Recorder,
		reporters:  cfg.Reporters,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		stats:      cfg.Stats,
	}
}

// Stats returns the session statistics.
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Run processes packets until the capturer finishes or ctx is cancelled.
// Packets already accepted when ctx is cancelled are still emitted. A
// capturer error is returned only when it was not caused by cancellation.
// A pipeline runs once.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.ran.CompareAndSwap(false, true) {
		return core.ErrPipelineStopped
	}
	slog.Info("pipeline starting", "capturer", p.capturer.Name(), "workers", p.workers)

	rawCh := make(chan core.RawPacket, p.bufferSize)
	work := make(chan *job, p.bufferSize)
	order := make(chan *job, p.bufferSize)

	var wg sync.WaitGroup
	var captureErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(rawCh)
		captureErr = p.capturer.Capture(ctx, rawCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.intakeLoop(rawCh, work, order)
	}()

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workLoop(work)
		}()
	}

	// Reporters must see the tail of the stream even during shutdown.
	p.emitLoop(context.WithoutCancel(ctx), order)
	wg.Wait()

	p.flush(context.WithoutCancel(ctx))

	if skipped := p.capturer.Stats().LinesSkipped; skipped > 0 {
		p.stats.AddSkippedLines(skipped)
		metrics.SkippedLinesTotal.Add(float64(skipped))
	}

	slog.Info("pipeline stopped", "capturer", p.capturer.Name(), "packets", p.stats.Snapshot().Packets)

	if captureErr != nil && ctx.Err() == nil {
		return fmt.Errorf("capture failed: %w", captureErr)
	}
	return nil
}

// intakeLoop numbers packets, records them and hands them to the pool.
func (p *Pipeline) intakeLoop(rawCh <-chan core.RawPacket, work, order chan<- *job) {
	defer close(work)
	defer close(order)

	var seq uint64
	for raw := range rawCh {
		seq++
		if p.recorder != nil {
			if err := p.recorder.Write(raw); err != nil {
				slog.Error("capture write failed", "seq", seq, "error", err)
				p.stats.AddCaptureError()
				metrics.CaptureErrorsTotal.Inc()
			}
		}

		j := &job{seq: seq, raw: raw, done: make(chan struct{})}
		work <- j
		order <- j
	}
}

func (p *Pipeline) workLoop(work <-chan *job) {
	for j := range work {
		rec := p.processor.Process(j.raw)
		rec.Seq = j.seq
		j.rec = rec
		close(j.done)
	}
}

// emitLoop waits for each job in arrival order and publishes it.
func (p *Pipeline) emitLoop(ctx context.Context, order <-chan *job) {
	for j := range order {
		<-j.done
		rec := j.rec

		p.stats.Observe(rec)
		metrics.Observe(rec)
		if rec.DecodeErr != nil {
			slog.Debug("envelope decode failed", "seq", rec.Seq, "error", rec.DecodeErr)
		}

		for _, reporter := range p.reporters {
			if err := reporter.Report(ctx, rec); err != nil {
				p.stats.AddReporterError()
				metrics.ReporterErrorsTotal.WithLabelValues(reporter.Name()).Inc()
				slog.Error("reporter failed", "reporter", reporter.Name(), "seq", rec.Seq, "error", err)
			}
		}
	}
}

func (p *Pipeline) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	for _, reporter := range p.reporters {
		if err := reporter.Flush(ctx); err != nil {
			slog.Error("reporter flush failed", "reporter", reporter.Name(), "error", err)
		}
	}
}
