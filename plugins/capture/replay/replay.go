// Package replay implements the capture-file replay plugin.
package replay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"firestige.xyz/meshmon/internal/capture"
	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/pkg/plugin"
)

const pluginName = "replay"

// Capturer re-injects recorded packets from a capture file, a directory of
// daily files, or a stream. Packets carry their recorded timestamp and no
// source address.
type Capturer struct {
	name  string
	path  string
	stdin io.Reader
	paths []string

	packetsReceived atomic.Uint64
	linesSkipped    atomic.Uint64
}

// NewCapturer creates a new replay capturer instance.
func NewCapturer() plugin.Capturer {
	return &Capturer{
		name:  pluginName,
		stdin: os.Stdin,
	}
}

// Name returns the plugin name.
func (c *Capturer) Name() string {
	return c.name
}

// Init resolves the replay source. Recognized keys: "path" (file,
// directory, "-" or empty for stdin) and "stdin" (an io.Reader replacing
// os.Stdin). A missing path is reported here so startup fails early.
func (c *Capturer) Init(cfg map[string]any) error {
	if path, ok := cfg["path"].(string); ok {
		c.path = path
	}
	if r, ok := cfg["stdin"].(io.Reader); ok {
		c.stdin = r
	}

	paths, err := capture.ResolvePaths(c.path)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	c.paths = paths
	return nil
}

// Start starts the capturer.
func (c *Capturer) Start(ctx context.Context) error {
	return nil
}

// Stop stops the capturer. Capture ends on its own at end of input.
func (c *Capturer) Stop(ctx context.Context) error {
	return nil
}

// Capture sends every valid record in order and returns at end of input.
// Sends block, so no record is dropped.
func (c *Capturer) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	if len(c.paths) > 1 {
		slog.Info("replaying capture directory", "path", c.path, "files", len(c.paths))
	}
	for _, path := range c.paths {
		if err := c.replayPath(ctx, path, output); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if len(c.paths) == 1 {
				return err
			}
			// One unreadable file does not end a directory replay.
			slog.Error("replay failed", "path", path, "error", err)
		}
	}
	return nil
}

func (c *Capturer) replayPath(ctx context.Context, path string, output chan<- core.RawPacket) error {
	var in io.Reader
	name := path
	if path == capture.Stdin {
		in, name = c.stdin, "stdin"
		slog.Info("reading packets from stdin")
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		defer f.Close()
		in = f
		slog.Info("replaying capture file", "path", filepath.Base(path))
	}

	r := capture.NewReader(in, name)
	defer func() {
		c.linesSkipped.Add(uint64(r.Skipped()))
	}()

	for r.Next() {
		rec := r.Record()
		select {
		case output <- core.RawPacket{Data: rec.Data, Timestamp: rec.Timestamp}:
			c.packetsReceived.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("replay: read %s: %w", name, err)
	}
	return nil
}

// Stats returns capture statistics.
func (c *Capturer) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{
		PacketsReceived: c.packetsReceived.Load(),
		LinesSkipped:    c.linesSkipped.Load(),
	}
}
