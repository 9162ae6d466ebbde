package decoder

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

// Data field numbers.
const (
	dataPortNum      = 1
	dataPayload      = 2
	dataWantResponse = 3
	dataDest         = 4
	dataSource       = 5
	dataRequestID    = 6
	dataReplyID      = 7
	dataEmoji        = 8
	dataBitfield     = 9
)

// MaxPortNum is the highest application port the firmware assigns.
const MaxPortNum = 511

// maxDataField bounds the field numbers ValidateData skips without knowing
// them. Data fields added by newer firmware stay below it.
const maxDataField = 63

var dataLayout = map[protowire.Number]protowire.Type{
	dataPortNum:      wire.VarintType,
	dataPayload:      wire.BytesType,
	dataWantResponse: wire.VarintType,
	dataDest:         wire.Fixed32Type,
	dataSource:       wire.Fixed32Type,
	dataRequestID:    wire.Fixed32Type,
	dataReplyID:      wire.Fixed32Type,
	dataEmoji:        wire.Fixed32Type,
	dataBitfield:     wire.VarintType,
}

// DecodeData parses a plaintext Data message with the same tolerance as
// DecodeEnvelope. The returned error joins every skipped field.
func DecodeData(b []byte) (core.Data, error) {
	var d core.Data
	var errs []error
	r := wire.NewReader(b)
	for !r.Done() {
		f, err := r.Next()
		if err != nil {
			errs = append(errs, err)
			break
		}
		want, ok := dataLayout[f.Num]
		if !ok {
			continue
		}
		if err := f.Expect(want); err != nil {
			errs = append(errs, err)
			continue
		}
		applyDataField(&d, f)
	}
	return d, errors.Join(errs...)
}

// ValidateData decodes b and accepts it only when it is a structurally
// sound Data message: non-empty, fully consumed, opening with a port number
// in the assigned range, with known fields correctly typed and unknown
// field numbers below maxDataField.
// It is the acceptance test for trial decryption, so it must reject
// random bytes with high probability.
func ValidateData(b []byte) (core.Data, error) {
	var d core.Data
	if len(b) == 0 {
		return d, fmt.Errorf("%w: empty", core.ErrInvalidData)
	}

	r := wire.NewReader(b)
	first := true
	for !r.Done() {
		f, err := r.Next()
		if err != nil {
			return d, fmt.Errorf("%w: %w", core.ErrInvalidData, err)
		}
		if first && f.Num != dataPortNum {
			return d, fmt.Errorf("%w: first field is %d, not portnum", core.ErrInvalidData, f.Num)
		}
		want, ok := dataLayout[f.Num]
		if !ok {
			if f.Num > maxDataField {
				return d, fmt.Errorf("%w: field number %d out of range", core.ErrInvalidData, f.Num)
			}
			continue
		}
		if err := f.Expect(want); err != nil {
			return d, fmt.Errorf("%w: %w", core.ErrInvalidData, err)
		}
		if f.Num == dataPortNum && (f.Varint == 0 || f.Varint > MaxPortNum) {
			return d, fmt.Errorf("%w: port %d out of range", core.ErrInvalidData, f.Varint)
		}
		first = false
		applyDataField(&d, f)
	}
	return d, nil
}

func applyDataField(d *core.Data, f wire.Field) {
	switch f.Num {
	case dataPortNum:
		d.PortNum = f.Uint32()
	case dataPayload:
		d.Payload = f.Bytes
	case dataWantResponse:
		d.WantResponse = f.Bool()
	case dataDest:
		d.Dest = f.Uint32()
	case dataSource:
		d.Source = f.Uint32()
	case dataRequestID:
		d.RequestID = f.Uint32()
	case dataReplyID:
		d.ReplyID = f.Uint32()
	case dataEmoji:
		d.Emoji = f.Uint32()
	case dataBitfield:
		d.Bitfield = f.Uint32()
	}
}
