// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/format"
	"firestige.xyz/meshmon/internal/payload"
)

var (
	// PacketsTotal counts packets by how far decoding got
	PacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshmon_packets_total",
			Help: "Total number of packets processed, by outcome",
		},
		[]string{"outcome"}, // plaintext | decrypted | undecrypted | pki | malformed
	)

	// BytesTotal counts raw datagram bytes
	BytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshmon_bytes_total",
			Help: "Total number of raw packet bytes processed",
		},
	)

	// PortPacketsTotal counts decoded packets per application port
	PortPacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshmon_port_packets_total",
			Help: "Total number of decoded packets per application port",
		},
		[]string{"port"},
	)

	// DecryptKeysTotal counts successful decryptions per key
	DecryptKeysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshmon_decrypt_key_hits_total",
			Help: "Total number of successful decryptions per key label",
		},
		[]string{"key"},
	)

	// DecryptAttempts measures how many keys were tried per encrypted packet
	DecryptAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshmon_decrypt_attempts",
			Help:    "Number of candidate keys tried per encrypted packet",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1, 2, 4, ..., 512
		},
	)

	// CaptureErrorsTotal counts failed capture file writes
	CaptureErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshmon_capture_errors_total",
			Help: "Total number of capture lines that could not be written",
		},
	)

	// ReporterErrorsTotal counts reporter errors by name
	ReporterErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshmon_reporter_errors_total",
			Help: "Total number of reporter errors",
		},
		[]string{"reporter"},
	)

	// SkippedLinesTotal counts malformed capture lines skipped on replay
	SkippedLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meshmon_replay_skipped_lines_total",
			Help: "Total number of malformed capture lines skipped during replay",
		},
	)
)

// Outcome classifies a record for the packets counter.
func Outcome(rec *format.Record) string {
	switch {
	case rec.Envelope == nil:
		return "malformed"
	case rec.Decryption.Status == core.DecryptSucceeded:
		return "decrypted"
	case rec.Decryption.Status == core.DecryptSkippedPKI:
		return "pki"
	case rec.Decryption.Status == core.DecryptExhausted:
		return "undecrypted"
	}
	return "plaintext"
}

// Observe records one emitted packet.
func Observe(rec *format.Record) {
	PacketsTotal.WithLabelValues(Outcome(rec)).Inc()
	BytesTotal.Add(float64(len(rec.Packet.Data)))

	if rec.Encrypted() && rec.Decryption.Tried > 0 {
		DecryptAttempts.Observe(float64(rec.Decryption.Tried))
	}
	if rec.Decrypted() {
		DecryptKeysTotal.WithLabelValues(rec.Decryption.KeyLabel).Inc()
	}
	if rec.Data != nil {
		PortPacketsTotal.WithLabelValues(payload.Port(rec.Data.PortNum).String()).Inc()
	}
}
