package pipeline

import (
	"fmt"
	"io"
	"sync"
	"time"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/format"
)

// Stats holds the running counters of one monitor or replay session.
// Updates and snapshots take the same lock, so a snapshot never mixes
// counts from different packets.
type Stats struct {
	mu      sync.Mutex
	start   time.Time
	now     func() time.Time
	packets uint64
	bytes   uint64

	plaintext    uint64
	decrypted    uint64
	undecrypted  uint64
	pki          uint64
	decodeErrors uint64

	skippedLines   uint64
	captureErrors  uint64
	reporterErrors uint64
}

// NewStats starts a session clock at the current time.
func NewStats() *Stats {
	return newStatsWithClock(time.Now)
}

func newStatsWithClock(now func() time.Time) *Stats {
	return &Stats{start: now(), now: now}
}

// Observe counts one emitted record.
func (s *Stats) Observe(rec *format.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.packets++
	s.bytes += uint64(len(rec.Packet.Data))

	if rec.Envelope == nil {
		s.decodeErrors++
		return
	}
	switch rec.Decryption.Status {
	case core.DecryptNotAttempted:
		s.plaintext++
	case core.DecryptSucceeded:
		s.decrypted++
	case core.DecryptExhausted:
		s.undecrypted++
	case core.DecryptSkippedPKI:
		s.pki++
	}
}

// AddSkippedLines records malformed capture lines dropped by a replay.
func (s *Stats) AddSkippedLines(n uint64) {
	s.mu.Lock()
	s.skippedLines += n
	s.mu.Unlock()
}

// AddCaptureError records a failed capture write.
func (s *Stats) AddCaptureError() {
	s.mu.Lock()
	s.captureErrors++
	s.mu.Unlock()
}

// AddReporterError records a failed reporter call.
func (s *Stats) AddReporterError() {
	s.mu.Lock()
	s.reporterErrors++
	s.mu.Unlock()
}

// Snapshot is a consistent copy of the counters.
type Snapshot struct {
	Runtime        time.Duration `json:"-"`
	RuntimeSeconds float64       `json:"runtime_seconds"`
	Packets        uint64        `json:"packets"`
	Bytes          uint64        `json:"bytes"`
	PacketsPerSec  float64       `json:"packets_per_sec"`
	BytesPerSec    float64       `json:"bytes_per_sec"`

	Plaintext    uint64 `json:"plaintext"`
	Decrypted    uint64 `json:"decrypted"`
	Undecrypted  uint64 `json:"undecrypted"`
	PKI          uint64 `json:"pki"`
	DecodeErrors uint64 `json:"decode_errors"`

	SkippedLines   uint64 `json:"skipped_lines"`
	CaptureErrors  uint64 `json:"capture_errors"`
	ReporterErrors uint64 `json:"reporter_errors"`
}

// Snapshot returns the counters and rates at this instant.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.now().Sub(s.start)
	snap := Snapshot{
		Runtime:        elapsed,
		RuntimeSeconds: elapsed.Seconds(),
		Packets:        s.packets,
		Bytes:          s.bytes,
		Plaintext:      s.plaintext,
		Decrypted:      s.decrypted,
		Undecrypted:    s.undecrypted,
		PKI:            s.pki,
		DecodeErrors:   s.decodeErrors,
		SkippedLines:   s.skippedLines,
		CaptureErrors:  s.captureErrors,
		ReporterErrors: s.reporterErrors,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		snap.PacketsPerSec = float64(s.packets) / secs
		snap.BytesPerSec = float64(s.bytes) / secs
	}
	return snap
}

// Report writes the end-of-session statistics block. Nothing is written
// when no time has elapsed.
func (s *Stats) Report(w io.Writer) error {
	snap := s.Snapshot()
	if snap.Runtime <= 0 {
		return nil
	}

	p := &reportWriter{w: w}
	p.printf("\n%s\n", format.Separator)
	p.printf("STATISTICS\n")
	p.printf("Runtime: %.1f seconds\n", snap.RuntimeSeconds)
	p.printf("Total packets: %d\n", snap.Packets)
	p.printf("Total bytes: %d\n", snap.Bytes)
	p.printf("Rate: %.2f packets/sec, %.1f bytes/sec\n", snap.PacketsPerSec, snap.BytesPerSec)
	p.printf("Plaintext: %d | Decrypted: %d | Undecrypted: %d | PKI: %d\n",
		snap.Plaintext, snap.Decrypted, snap.Undecrypted, snap.PKI)
	if snap.DecodeErrors > 0 {
		p.printf("Decode errors: %d\n", snap.DecodeErrors)
	}
	if snap.SkippedLines > 0 {
		p.printf("Skipped lines: %d\n", snap.SkippedLines)
	}
	if snap.CaptureErrors > 0 {
		p.printf("Capture write errors: %d\n", snap.CaptureErrors)
	}
	if snap.ReporterErrors > 0 {
		p.printf("Reporter errors: %d\n", snap.ReporterErrors)
	}
	p.printf("%s\n", format.Separator)
	return p.err
}

type reportWriter struct {
	w   io.Writer
	err error
}

func (p *reportWriter) printf(layout string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, layout, args...)
}
