package payload

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/meshmon/internal/core/wire"
)

// layout maps the field numbers a message decoder understands to their wire
// types. Fields outside the layout, or encoded with a different wire type,
// are skipped.
type layout map[protowire.Number]protowire.Type

// scan walks b and calls fn for each field matching l. A read error aborts
// the walk: the message boundary is lost at that point.
func scan(b []byte, l layout, fn func(f wire.Field)) error {
	r := wire.NewReader(b)
	for !r.Done() {
		f, err := r.Next()
		if err != nil {
			return err
		}
		if typ, ok := l[f.Num]; ok && typ == f.Type {
			fn(f)
		}
	}
	return nil
}

// repeatedFixed32 collects a repeated fixed32 field that may arrive packed
// (one bytes field) or unpacked (one fixed32 field per element).
func repeatedFixed32(dst []uint32, f wire.Field) ([]uint32, error) {
	if f.Type == wire.Fixed32Type {
		return append(dst, f.Uint32()), nil
	}
	vs, err := wire.Fixed32s(f.Bytes)
	return append(dst, vs...), err
}

// repeatedInt32 is repeatedFixed32 for varint-encoded int32 elements.
func repeatedInt32(dst []int32, f wire.Field) ([]int32, error) {
	if f.Type == wire.VarintType {
		return append(dst, f.Int32()), nil
	}
	vs, err := wire.Varints(f.Bytes)
	for _, v := range vs {
		dst = append(dst, int32(v))
	}
	return dst, err
}

// formatUnix renders a firmware timestamp in UTC followed by its raw value.
func formatUnix(ts uint32) string {
	return fmt.Sprintf("%s UTC (%d)", time.Unix(int64(ts), 0).UTC().Format(time.DateTime), ts)
}

// formatCoord renders a coordinate with the shortest exact representation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
