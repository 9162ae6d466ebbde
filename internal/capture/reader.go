package capture

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"firestige.xyz/meshmon/internal/core"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

const maxLineSize = 1 << 20

// Record is one parsed capture line.
type Record struct {
	Timestamp time.Time
	Data      []byte
}

// ParseLine parses a capture line without its newline. The line is split
// on the first tab.
func ParseLine(line string) (Record, error) {
	ts, data, ok := strings.Cut(strings.TrimSpace(line), "\t")
	if !ok {
		return Record{}, fmt.Errorf("%w: missing tab separator", core.ErrMalformedCaptureLine)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return Record{}, fmt.Errorf("%w: bad timestamp %q", core.ErrMalformedCaptureLine, ts)
	}
	b, err := hex.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", core.ErrMalformedCaptureLine, err)
	}
	return Record{Timestamp: floatTime(secs), Data: b}, nil
}

// floatTime converts fractional unix seconds, rounded to the microsecond.
func floatTime(secs float64) time.Time {
	whole := math.Floor(secs)
	micros := math.Round((secs - whole) * 1e6)
	return time.Unix(int64(whole), int64(micros)*int64(time.Microsecond))
}

// Reader iterates the records of one capture stream. Empty lines are
// ignored; malformed lines are logged, counted and skipped.
//
//	r := capture.NewReader(f, path)
//	for r.Next() {
//		rec := r.Record()
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	sc      *bufio.Scanner
	name    string
	line    int
	rec     Record
	skipped int
}

// NewReader reads capture lines from r. name is used in log messages.
func NewReader(r io.Reader, name string) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc, name: name}
}

// Next advances to the next valid record.
func (r *Reader) Next() bool {
	for r.sc.Scan() {
		r.line++
		text := r.sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := ParseLine(text)
		if err != nil {
			r.skipped++
			slog.Warn("skipping malformed capture line", "path", r.name, "line", r.line, "error", err)
			continue
		}
		r.rec = rec
		return true
	}
	return false
}

// Record returns the record read by the last successful Next.
func (r *Reader) Record() Record { return r.rec }

// Skipped returns the number of malformed lines seen so far.
func (r *Reader) Skipped() int { return r.skipped }

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.sc.Err() }

// ResolvePaths expands a replay argument: a capture file, a directory of
// .tsv files (in name order), or Stdin.
func ResolvePaths(path string) ([]string, error) {
	if path == "" || path == Stdin {
		return []string{Stdin}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.tsv"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .tsv files found in %s", path)
	}
	sort.Strings(files)
	return files, nil
}
