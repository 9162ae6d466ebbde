package plugin

import (
	"context"

	"firestige.xyz/meshmon/internal/core"
)

// Capturer produces raw packets, live or from a recording. Capture blocks
// until ctx is cancelled or the source is exhausted; it never closes
// output.
type Capturer interface {
	Plugin
	Capture(ctx context.Context, output chan<- core.RawPacket) error
	Stats() CaptureStats
}

// CaptureStats represents capture statistics.
type CaptureStats struct {
	PacketsReceived uint64
	PacketsDropped  uint64 // oversized or unreadable datagrams
	LinesSkipped    uint64 // malformed capture lines (replay only)
}
