// Package wire reads the protobuf wire format field by field.
//
// Mesh packets are protobuf messages, but the monitor decodes them without
// generated types so that unknown, truncated or mistyped fields can be
// skipped individually instead of failing the whole message. The Reader is
// a cursor over a byte slice: every successful read advances it, a failed
// read leaves it where it was and returns ErrTruncatedInput or
// ErrVarintOverflow.
package wire

import (
	"errors"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/meshmon/internal/core"
)

// Wire types understood by the reader. Groups (3, 4) are not used by the
// mesh protocol and are rejected.
const (
	VarintType  = protowire.VarintType
	Fixed32Type = protowire.Fixed32Type
	Fixed64Type = protowire.Fixed64Type
	BytesType   = protowire.BytesType
)

// Reader is a cursor over an encoded message.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Done reports whether the whole buffer has been consumed.
func (r *Reader) Done() bool { return r.off >= len(r.buf) }

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Varint reads one base-128 varint of at most 10 bytes.
func (r *Reader) Varint() (uint64, error) {
	v, n := protowire.ConsumeVarint(r.buf[r.off:])
	if n < 0 {
		return 0, consumeError(n)
	}
	r.off += n
	return v, nil
}

// Fixed32 reads a little-endian 32-bit value.
func (r *Reader) Fixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(r.buf[r.off:])
	if n < 0 {
		return 0, consumeError(n)
	}
	r.off += n
	return v, nil
}

// Fixed64 reads a little-endian 64-bit value.
func (r *Reader) Fixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(r.buf[r.off:])
	if n < 0 {
		return 0, consumeError(n)
	}
	r.off += n
	return v, nil
}

// Bytes reads a length-delimited sub-sequence. The result aliases the
// underlying buffer.
func (r *Reader) Bytes() ([]byte, error) {
	v, n := protowire.ConsumeBytes(r.buf[r.off:])
	if n < 0 {
		return nil, consumeError(n)
	}
	r.off += n
	return v, nil
}

// Tag reads a field key and splits it into field number and wire type.
func (r *Reader) Tag() (protowire.Number, protowire.Type, error) {
	start := r.off
	v, err := r.Varint()
	if err != nil {
		return 0, 0, err
	}
	num, typ := protowire.DecodeTag(v)
	if num < protowire.MinValidNumber || num > protowire.MaxValidNumber {
		r.off = start
		return 0, 0, core.ErrInvalidFieldNumber
	}
	return num, typ, nil
}

// Field is one decoded key/value pair. Only the member matching Type is set.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64 // VarintType
	Fixed  uint64 // Fixed32Type, Fixed64Type
	Bytes  []byte // BytesType
}

// Next reads the next field, whatever its number. Errors are wrapped in a
// *core.FieldError carrying the field number when one could be read. On
// error the cursor is left at the start of the field.
func (r *Reader) Next() (Field, error) {
	start := r.off
	num, typ, err := r.Tag()
	if err != nil {
		return Field{}, err
	}

	f := Field{Num: num, Type: typ}
	switch typ {
	case VarintType:
		f.Varint, err = r.Varint()
	case Fixed32Type:
		var v uint32
		v, err = r.Fixed32()
		f.Fixed = uint64(v)
	case Fixed64Type:
		f.Fixed, err = r.Fixed64()
	case BytesType:
		f.Bytes, err = r.Bytes()
	default:
		err = core.ErrUnsupportedWireType
	}
	if err != nil {
		r.off = start
		return Field{}, &core.FieldError{Field: int32(num), Err: err}
	}
	return f, nil
}

// Expect returns a *core.FieldError when the field was not encoded with the
// wire type t.
func (f Field) Expect(t protowire.Type) error {
	if f.Type != t {
		return &core.FieldError{Field: int32(f.Num), Err: core.ErrWireTypeMismatch}
	}
	return nil
}

// Uint32 returns the field value truncated to 32 bits.
func (f Field) Uint32() uint32 {
	if f.Type == VarintType {
		return uint32(f.Varint)
	}
	return uint32(f.Fixed)
}

// Int32 interprets the value as a protobuf int32. Negative int32 values are
// sign-extended to 64 bits on the wire, so truncation restores them.
func (f Field) Int32() int32 {
	if f.Type == VarintType {
		return int32(f.Varint)
	}
	return int32(uint32(f.Fixed))
}

// Float32 interprets a fixed32 value as an IEEE-754 float.
func (f Field) Float32() float32 {
	return math.Float32frombits(uint32(f.Fixed))
}

// Bool interprets a varint as a boolean.
func (f Field) Bool() bool {
	return f.Varint != 0
}

// Fixed32s decodes a packed repeated fixed32 field.
func Fixed32s(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, core.ErrTruncatedInput
	}
	r := NewReader(b)
	out := make([]uint32, 0, len(b)/4)
	for !r.Done() {
		v, err := r.Fixed32()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Varints decodes a packed repeated varint field.
func Varints(b []byte) ([]uint64, error) {
	r := NewReader(b)
	var out []uint64
	for !r.Done() {
		v, err := r.Varint()
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// consumeError maps a negative protowire length to a sentinel error.
func consumeError(n int) error {
	if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
		return core.ErrTruncatedInput
	}
	return core.ErrVarintOverflow
}
