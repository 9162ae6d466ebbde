package decoder

import (
	"encoding/hex"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/meshmon/internal/core"
)

// field is one pre-encoded envelope field used to assemble fixtures.
type field struct {
	num protowire.Number
	typ protowire.Type
	val uint64
	b   []byte
}

func (f field) append(dst []byte) []byte {
	dst = protowire.AppendTag(dst, f.num, f.typ)
	switch f.typ {
	case protowire.VarintType:
		return protowire.AppendVarint(dst, f.val)
	case protowire.Fixed32Type:
		return protowire.AppendFixed32(dst, uint32(f.val))
	case protowire.Fixed64Type:
		return protowire.AppendFixed64(dst, f.val)
	default:
		return protowire.AppendBytes(dst, f.b)
	}
}

func encode(fields ...field) []byte {
	var b []byte
	for _, f := range fields {
		b = f.append(b)
	}
	return b
}

func negVarint(v int32) uint64 {
	return uint64(int64(v))
}

func fullEnvelopeFields() []field {
	return []field{
		{num: fieldFrom, typ: protowire.Fixed32Type, val: 0x4e66636c},
		{num: fieldTo, typ: protowire.Fixed32Type, val: 0xffffffff},
		{num: fieldChannel, typ: protowire.VarintType, val: 8},
		{num: fieldEncrypted, typ: protowire.BytesType, b: []byte{0xaa, 0xbb, 0xcc}},
		{num: fieldID, typ: protowire.Fixed32Type, val: 0x1a2b3c4d},
		{num: fieldRxTime, typ: protowire.Fixed32Type, val: 1718000000},
		{num: fieldRxSNR, typ: protowire.Fixed32Type, val: uint64(math.Float32bits(6.25))},
		{num: fieldHopLimit, typ: protowire.VarintType, val: 2},
		{num: fieldWantAck, typ: protowire.VarintType, val: 1},
		{num: fieldPriority, typ: protowire.VarintType, val: 70},
		{num: fieldRxRSSI, typ: protowire.VarintType, val: negVarint(-72)},
		{num: fieldViaMQTT, typ: protowire.VarintType, val: 1},
		{num: fieldHopStart, typ: protowire.VarintType, val: 3},
	}
}

func assertFullEnvelope(t *testing.T, env *core.Envelope, skip protowire.Number) {
	t.Helper()
	check := func(num protowire.Number, fn func()) {
		if num != skip {
			fn()
		}
	}
	check(fieldFrom, func() { assert.Equal(t, core.NodeID(0x4e66636c), env.From) })
	check(fieldTo, func() { assert.Equal(t, core.Broadcast, env.To) })
	check(fieldChannel, func() { assert.Equal(t, uint8(8), env.ChannelHash()) })
	check(fieldEncrypted, func() {
		assert.Equal(t, core.PayloadEncrypted, env.Kind)
		assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, env.Encrypted)
	})
	check(fieldID, func() { assert.Equal(t, uint32(0x1a2b3c4d), env.ID) })
	check(fieldRxTime, func() { assert.Equal(t, uint32(1718000000), env.RxTime) })
	check(fieldRxSNR, func() { assert.Equal(t, float32(6.25), env.RxSNR) })
	check(fieldHopLimit, func() { assert.Equal(t, uint32(2), env.HopLimit) })
	check(fieldWantAck, func() { assert.True(t, env.WantAck) })
	check(fieldPriority, func() { assert.Equal(t, core.PriorityReliable, env.Priority) })
	check(fieldRxRSSI, func() { assert.Equal(t, int32(-72), env.RxRSSI) })
	check(fieldViaMQTT, func() { assert.True(t, env.ViaMQTT) })
	check(fieldHopStart, func() { assert.Equal(t, uint32(3), env.HopStart) })
}

func TestDecodeEnvelopePlaintextText(t *testing.T) {
	raw, err := hex.DecodeString(
		"0d6c63664e" + "15ffffffff" + "1800" + "354d3c2b1a" +
			"2219" + "0801" + "1213" + hex.EncodeToString([]byte("Hello mesh network!")) + "1801")
	require.NoError(t, err)

	env, err := DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Empty(t, env.FieldErrors)
	assert.Equal(t, core.NodeID(0x4e66636c), env.From)
	assert.True(t, env.To.IsBroadcast())
	assert.Equal(t, uint8(0), env.ChannelHash())
	assert.Equal(t, uint32(0x1a2b3c4d), env.ID)
	assert.Equal(t, core.PayloadDecoded, env.Kind)

	plain, ok := env.Plaintext()
	require.True(t, ok)
	data, err := DecodeData(plain)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), data.PortNum)
	assert.Equal(t, "Hello mesh network!", string(data.Payload))
	assert.True(t, data.WantResponse)
}

func TestDecodeEnvelopeAllFields(t *testing.T) {
	env, err := DecodeEnvelope(encode(fullEnvelopeFields()...))
	require.NoError(t, err)
	assert.Empty(t, env.FieldErrors)
	assertFullEnvelope(t, env, 0)
}

func TestDecodeEnvelopeWrongWireTypeSkipsOneField(t *testing.T) {
	base := fullEnvelopeFields()
	for i := range base {
		f := base[i]
		t.Run(fmt.Sprintf("field_%d", f.num), func(t *testing.T) {
			fields := append([]field(nil), base...)
			if f.typ == protowire.VarintType {
				fields[i] = field{num: f.num, typ: protowire.Fixed32Type, val: 1}
			} else {
				fields[i] = field{num: f.num, typ: protowire.VarintType, val: 1}
			}

			env, err := DecodeEnvelope(encode(fields...))
			require.NoError(t, err)
			require.Len(t, env.FieldErrors, 1)
			assert.ErrorIs(t, env.FieldErrors[0], core.ErrWireTypeMismatch)
			assertFullEnvelope(t, env, f.num)
		})
	}
}

func TestDecodeEnvelopeTruncatedFieldKeepsOthers(t *testing.T) {
	base := fullEnvelopeFields()
	for i := range base {
		f := base[i]
		t.Run(fmt.Sprintf("field_%d", f.num), func(t *testing.T) {
			var others []field
			others = append(others, base[:i]...)
			others = append(others, base[i+1:]...)

			// The damaged field arrives last with its value cut short.
			b := encode(others...)
			full := f.append(nil)
			tag := protowire.AppendTag(nil, f.num, f.typ)
			cut := len(tag) + 1
			if f.typ == protowire.VarintType {
				// force a dangling continuation byte
				b = append(b, tag...)
				b = append(b, 0x80)
			} else {
				b = append(b, full[:cut]...)
			}

			env, err := DecodeEnvelope(b)
			require.NoError(t, err)
			require.Len(t, env.FieldErrors, 1)
			assert.ErrorIs(t, env.FieldErrors[0], core.ErrTruncatedInput)
			assertFullEnvelope(t, env, f.num)
		})
	}
}

func TestDecodeEnvelopeSkipsUnknownFields(t *testing.T) {
	b := encode(
		field{num: fieldFrom, typ: protowire.Fixed32Type, val: 0x01020304},
		field{num: 13, typ: protowire.VarintType, val: 1},
		field{num: 99, typ: protowire.BytesType, b: []byte("future")},
		field{num: 120, typ: protowire.Fixed64Type, val: 7},
		field{num: fieldTo, typ: protowire.Fixed32Type, val: 0x05060708},
	)
	env, err := DecodeEnvelope(b)
	require.NoError(t, err)
	assert.Empty(t, env.FieldErrors)
	assert.Equal(t, core.NodeID(0x01020304), env.From)
	assert.Equal(t, core.NodeID(0x05060708), env.To)
	assert.Equal(t, core.PayloadNone, env.Kind)
}

func TestDecodeEnvelopeLastPayloadWins(t *testing.T) {
	b := encode(
		field{num: fieldDecoded, typ: protowire.BytesType, b: []byte{0x08, 0x01}},
		field{num: fieldEncrypted, typ: protowire.BytesType, b: []byte{0x01, 0x02}},
	)
	env, err := DecodeEnvelope(b)
	require.NoError(t, err)
	assert.Equal(t, core.PayloadEncrypted, env.Kind)
	assert.Nil(t, env.Decoded)
	assert.Equal(t, []byte{0x01, 0x02}, env.Encrypted)
}

func TestDecodeEnvelopePKIFields(t *testing.T) {
	key := make([]byte, 32)
	b := encode(
		field{num: fieldFrom, typ: protowire.Fixed32Type, val: 1},
		field{num: fieldEncrypted, typ: protowire.BytesType, b: []byte{1, 2, 3, 4}},
		field{num: fieldPublicKey, typ: protowire.BytesType, b: key},
		field{num: fieldPKIEncrypted, typ: protowire.VarintType, val: 1},
		field{num: fieldNextHop, typ: protowire.VarintType, val: 0x6c},
		field{num: fieldRelayNode, typ: protowire.VarintType, val: 0x4d},
	)
	env, err := DecodeEnvelope(b)
	require.NoError(t, err)
	assert.True(t, env.PKIEncrypted)
	assert.Len(t, env.PublicKey, 32)
	assert.Equal(t, uint32(0x6c), env.NextHop)
	assert.Equal(t, uint32(0x4d), env.RelayNode)
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"group wire type", []byte{0x63, 0x66, 0x4e}},
		{"field zero", []byte{0x00, 0x00, 0x00}},
		{"only unknown fields", encode(field{num: 50, typ: protowire.VarintType, val: 1})},
		{"truncated first field", []byte{0x0d, 0x6c, 0x63}},
		{"varint tag on fixed32 from, then group", []byte{
			0x08, 0x6c, 0x63, 0x66, 0x4e, 0x10, 0xff, 0xff, 0xff, 0xff, 0x0f, 0x18, 0x00,
			0x20, 0x4d, 0x3c, 0x2b, 0x1a, 0x32, 0x0a, 0x1e, 0x0a, 0x12, 0x48, 0x65, 0x6c,
			0x6c, 0x6f, 0x20, 0x6d, 0x65, 0x73, 0x68, 0x20, 0x6e, 0x65, 0x74, 0x77, 0x6f,
			0x72, 0x6b, 0x21, 0x10, 0x01, 0x18, 0x01,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope(tt.in)
			require.NotNil(t, env)
			assert.ErrorIs(t, err, core.ErrMalformedEnvelope)
		})
	}
}

func TestDecodeEnvelopeNeverPanics(t *testing.T) {
	valid := encode(fullEnvelopeFields()...)
	for cut := 0; cut <= len(valid); cut++ {
		assert.NotPanics(t, func() { _, _ = DecodeEnvelope(valid[:cut]) })
	}
	for i := range valid {
		mutated := append([]byte(nil), valid...)
		mutated[i] ^= 0xff
		assert.NotPanics(t, func() { _, _ = DecodeEnvelope(mutated) })
	}
}
