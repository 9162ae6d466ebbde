package format

import (
	"fmt"
	"strings"
)

const bytesPerLine = 16

// HexDump renders b as offset, hex and ASCII columns, 16 bytes per row.
// Bytes outside the printable ASCII range show as '.'.
func HexDump(b []byte) string {
	var sb strings.Builder
	for off := 0; off < len(b); off += bytesPerLine {
		chunk := b[off:min(off+bytesPerLine, len(b))]

		hexPart := make([]string, len(chunk))
		ascii := make([]byte, len(chunk))
		for i, c := range chunk {
			hexPart[i] = fmt.Sprintf("%02x", c)
			if c >= 32 && c <= 126 {
				ascii[i] = c
			} else {
				ascii[i] = '.'
			}
		}

		if off > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "  %04x: %-*s |%s|", off, bytesPerLine*3-1, strings.Join(hexPart, " "), ascii)
	}
	return sb.String()
}

// hexPreview renders at most 20 bytes of b, marking truncation with "...".
func hexPreview(b []byte) string {
	const max = 20
	if len(b) > max {
		return fmt.Sprintf("%x...", b[:max])
	}
	return fmt.Sprintf("%x", b)
}
