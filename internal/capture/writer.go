// Package capture persists raw packets as tab separated lines and reads
// them back for replay.
//
// A capture line is "<unix seconds with microsecond fraction>\t<hex>\n".
// The writer keeps one file per UTC day, named YYYY-MM-DD.tsv.
package capture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"firestige.xyz/meshmon/internal/core"
)

// FileName returns the capture file name for the UTC day containing t.
func FileName(t time.Time) string {
	return t.UTC().Format(time.DateOnly) + ".tsv"
}

// FormatLine renders one capture line, newline included.
func FormatLine(ts time.Time, data []byte) string {
	return fmt.Sprintf("%d.%06d\t%x\n", ts.Unix(), ts.Nanosecond()/1000, data)
}

// Writer appends packets to daily capture files. It is safe for concurrent
// use.
type Writer struct {
	dir  string
	sync bool

	mu    sync.Mutex
	day   string
	file  *os.File
	lines uint64
}

// NewWriter creates dir if needed and opens the file for the current UTC
// day, so an unwritable capture target fails here rather than on the first
// packet. Later files are picked by packet timestamp.
func NewWriter(dir string, syncWrites bool) (*Writer, error) {
	return newWriterAt(dir, syncWrites, time.Now())
}

func newWriterAt(dir string, syncWrites bool, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	w := &Writer{dir: dir, sync: syncWrites}
	if err := w.rotate(now); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends one packet. The line is handed to the OS before Write
// returns.
func (w *Writer) Write(p core.RawPacket) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotate(p.Timestamp); err != nil {
		return err
	}
	if _, err := w.file.WriteString(FormatLine(p.Timestamp, p.Data)); err != nil {
		return fmt.Errorf("write capture line: %w", err)
	}
	if w.sync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("sync capture file: %w", err)
		}
	}
	w.lines++
	return nil
}

// rotate makes sure the file for ts's UTC day is open.
func (w *Writer) rotate(ts time.Time) error {
	day := FileName(ts)
	if w.file != nil && day == w.day {
		return nil
	}

	path := filepath.Join(w.dir, day)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open capture file: %w", err)
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			slog.Warn("failed to close capture file", "path", w.file.Name(), "error", err)
		}
		slog.Info("capture file rotated", "path", path)
	} else {
		slog.Info("capturing packets", "path", path)
	}
	w.file, w.day = f, day
	return nil
}

// Path returns the file currently written, or "" once closed.
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ""
	}
	return w.file.Name()
}

// Lines returns the number of lines written.
func (w *Writer) Lines() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Close closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
