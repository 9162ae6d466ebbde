// Package decoder turns raw mesh packet bytes into core.Envelope and
// core.Data values.
//
// Decoding is field-tolerant: unknown fields are skipped, a field carried
// with an unexpected wire type is skipped and recorded, and a truncated
// field stops decoding while keeping everything read before it.
package decoder

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

// MeshPacket field numbers.
const (
	fieldFrom         = 1
	fieldTo           = 2
	fieldChannel      = 3
	fieldDecoded      = 4
	fieldEncrypted    = 5
	fieldID           = 6
	fieldRxTime       = 7
	fieldRxSNR        = 8
	fieldHopLimit     = 9
	fieldWantAck      = 10
	fieldPriority     = 11
	fieldRxRSSI       = 12
	fieldViaMQTT      = 14
	fieldHopStart     = 15
	fieldPublicKey    = 16
	fieldPKIEncrypted = 17
	fieldNextHop      = 18
	fieldRelayNode    = 19
)

// DecodeEnvelope parses the outer mesh packet. The returned envelope is
// never nil. The error is non-nil only when no known field could be
// recovered; partial failures are listed in Envelope.FieldErrors.
func DecodeEnvelope(b []byte) (*core.Envelope, error) {
	env := &core.Envelope{}
	r := wire.NewReader(b)
	recovered := 0

	for !r.Done() {
		f, err := r.Next()
		if err != nil {
			// Nothing after a broken key or length can be trusted.
			env.FieldErrors = append(env.FieldErrors, err)
			break
		}
		known, err := applyEnvelopeField(env, f)
		if err != nil {
			env.FieldErrors = append(env.FieldErrors, err)
			continue
		}
		if known {
			recovered++
		}
	}

	if recovered == 0 {
		if len(env.FieldErrors) > 0 {
			return env, fmt.Errorf("%w: %w", core.ErrMalformedEnvelope, env.FieldErrors[0])
		}
		return env, fmt.Errorf("%w: no known fields in %d bytes", core.ErrMalformedEnvelope, len(b))
	}
	return env, nil
}

// applyEnvelopeField stores f in env. It reports whether the field number
// is part of the envelope layout.
func applyEnvelopeField(env *core.Envelope, f wire.Field) (bool, error) {
	want, ok := envelopeLayout[f.Num]
	if !ok {
		return false, nil
	}
	if err := f.Expect(want); err != nil {
		return true, err
	}

	switch f.Num {
	case fieldFrom:
		env.From = core.NodeID(f.Uint32())
	case fieldTo:
		env.To = core.NodeID(f.Uint32())
	case fieldChannel:
		env.Channel = f.Uint32()
	case fieldDecoded:
		env.Kind = core.PayloadDecoded
		env.Decoded = f.Bytes
		env.Encrypted = nil
	case fieldEncrypted:
		env.Kind = core.PayloadEncrypted
		env.Encrypted = f.Bytes
		env.Decoded = nil
	case fieldID:
		env.ID = f.Uint32()
	case fieldRxTime:
		env.RxTime = f.Uint32()
	case fieldRxSNR:
		env.RxSNR = f.Float32()
	case fieldHopLimit:
		env.HopLimit = f.Uint32()
	case fieldWantAck:
		env.WantAck = f.Bool()
	case fieldPriority:
		env.Priority = core.Priority(f.Uint32())
	case fieldRxRSSI:
		env.RxRSSI = f.Int32()
	case fieldViaMQTT:
		env.ViaMQTT = f.Bool()
	case fieldHopStart:
		env.HopStart = f.Uint32()
	case fieldPublicKey:
		env.PublicKey = f.Bytes
	case fieldPKIEncrypted:
		env.PKIEncrypted = f.Bool()
	case fieldNextHop:
		env.NextHop = f.Uint32()
	case fieldRelayNode:
		env.RelayNode = f.Uint32()
	}
	return true, nil
}

var envelopeLayout = map[protowire.Number]protowire.Type{
	fieldFrom:         wire.Fixed32Type,
	fieldTo:           wire.Fixed32Type,
	fieldChannel:      wire.VarintType,
	fieldDecoded:      wire.BytesType,
	fieldEncrypted:    wire.BytesType,
	fieldID:           wire.Fixed32Type,
	fieldRxTime:       wire.Fixed32Type,
	fieldRxSNR:        wire.Fixed32Type,
	fieldHopLimit:     wire.VarintType,
	fieldWantAck:      wire.VarintType,
	fieldPriority:     wire.VarintType,
	fieldRxRSSI:       wire.VarintType,
	fieldViaMQTT:      wire.VarintType,
	fieldHopStart:     wire.VarintType,
	fieldPublicKey:    wire.BytesType,
	fieldPKIEncrypted: wire.VarintType,
	fieldNextHop:      wire.VarintType,
	fieldRelayNode:    wire.VarintType,
}
