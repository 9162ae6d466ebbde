package capture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/meshmon/internal/core"
)

func TestFormatLine(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	assert.Equal(t, "1700000000.123456\t0d6c63664e\n", FormatLine(ts, []byte{0x0d, 0x6c, 0x63, 0x66, 0x4e}))
	assert.Equal(t, "1700000000.000000\t\n", FormatLine(time.Unix(1700000000, 0), nil))
}

func TestFileNameUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2024, 6, 11, 5, 0, 0, 0, loc) // 2024-06-10 19:00 UTC
	assert.Equal(t, "2024-06-10.tsv", FileName(ts))
}

func TestParseLine(t *testing.T) {
	rec, err := ParseLine("1700000000.25\tdeadBEEF")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, rec.Data)
	assert.Equal(t, int64(1700000000), rec.Timestamp.Unix())
	assert.Equal(t, 250000000, rec.Timestamp.Nanosecond())

	tests := []struct {
		name string
		line string
	}{
		{"no tab", "1700000000.0 deadbeef"},
		{"bad timestamp", "yesterday\tdeadbeef"},
		{"nan timestamp", "NaN\tdeadbeef"},
		{"odd hex", "1700000000.0\tdea"},
		{"not hex", "1700000000.0\tzz"},
		{"extra column", "1700000000.0\tdead\tbeef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			assert.ErrorIs(t, err, core.ErrMalformedCaptureLine)
		})
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	input := "garbage line\n\n1700000000.5\t0801\n"
	r := NewReader(strings.NewReader(input), "test")

	require.True(t, r.Next())
	assert.Equal(t, []byte{0x08, 0x01}, r.Record().Data)
	assert.False(t, r.Next())
	assert.NoError(t, r.Err())
	assert.Equal(t, 1, r.Skipped())
}

func TestReaderHandlesCRLF(t *testing.T) {
	r := NewReader(strings.NewReader("1700000000.5\t0801\r\n"), "test")
	require.True(t, r.Next())
	assert.Equal(t, []byte{0x08, 0x01}, r.Record().Data)
	assert.Zero(t, r.Skipped())
}

func TestWriterRoundTripAndRotation(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2024, 6, 10, 23, 59, 59, 987654000, time.UTC)
	w, err := newWriterAt(dir, true, day1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-06-10.tsv"), w.Path())

	day2 := day1.Add(2 * time.Second)
	packets := []core.RawPacket{
		{Data: []byte{0x0d, 0x6c, 0x63, 0x66, 0x4e}, Timestamp: day1},
		{Data: []byte{}, Timestamp: day1.Add(time.Millisecond)},
		{Data: []byte{0xff, 0x00, 0x7f}, Timestamp: day2},
	}
	for _, p := range packets {
		require.NoError(t, w.Write(p))
	}
	assert.Equal(t, filepath.Join(dir, "2024-06-11.tsv"), w.Path())
	assert.Equal(t, uint64(3), w.Lines())
	require.NoError(t, w.Close())

	paths, err := ResolvePaths(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "2024-06-10.tsv"),
		filepath.Join(dir, "2024-06-11.tsv"),
	}, paths)

	var got []Record
	for _, path := range paths {
		f, err := os.Open(path)
		require.NoError(t, err)
		r := NewReader(f, path)
		for r.Next() {
			got = append(got, r.Record())
		}
		require.NoError(t, r.Err())
		assert.Zero(t, r.Skipped())
		f.Close()
	}

	require.Len(t, got, len(packets))
	for i, p := range packets {
		assert.Equal(t, len(p.Data), len(got[i].Data))
		if len(p.Data) > 0 {
			assert.Equal(t, p.Data, got[i].Data)
		}
		assert.WithinDuration(t, p.Timestamp, got[i].Timestamp, time.Microsecond)
	}
}

func TestWriterAppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(dir, FileName(ts))
	require.NoError(t, os.WriteFile(path, []byte("1718020800.000000\t01\n"), 0o644))

	w, err := newWriterAt(dir, false, ts)
	require.NoError(t, err)
	require.NoError(t, w.Write(core.RawPacket{Data: []byte{0x02}, Timestamp: ts}))
	require.NoError(t, w.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1718020800.000000\t01\n1718020800.000000\t02\n", string(b))
}

func TestNewWriterOpensTodaysFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, false)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, filepath.Join(dir, FileName(time.Now())), w.Path())
	_, err = os.Stat(w.Path())
	assert.NoError(t, err)
}

func TestNewWriterFailsOnUnopenableDayFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileName(now)), 0o755))

	w, err := newWriterAt(dir, false, now)
	assert.Nil(t, w)
	assert.ErrorContains(t, err, "open capture file")
}

func TestResolvePaths(t *testing.T) {
	paths, err := ResolvePaths(Stdin)
	require.NoError(t, err)
	assert.Equal(t, []string{Stdin}, paths)

	dir := t.TempDir()
	_, err = ResolvePaths(dir)
	assert.Error(t, err, "empty directory")

	file := filepath.Join(dir, "capture.tsv")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	paths, err = ResolvePaths(file)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)

	paths, err = ResolvePaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, paths)

	_, err = ResolvePaths(filepath.Join(dir, "missing.tsv"))
	assert.Error(t, err)
}
