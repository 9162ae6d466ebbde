// Package core defines core data structures with zero external dependencies.
package core

import (
	"net/netip"
	"time"
)

// RawPacket is one datagram as it arrived, before any decoding.
type RawPacket struct {
	Data      []byte         // UDP payload
	Timestamp time.Time      // Arrival time (capture time on replay)
	Source    netip.AddrPort // Sender address; zero value on TSV replay
}

// PayloadKind says which branch of the envelope payload was present.
type PayloadKind uint8

const (
	PayloadNone      PayloadKind = iota // neither field present
	PayloadDecoded                      // plaintext Data message
	PayloadEncrypted                    // opaque ciphertext
)

// Envelope is the decoded outer mesh packet.
type Envelope struct {
	From     NodeID
	To       NodeID
	Channel  uint32 // channel hash for encrypted packets, index otherwise
	ID       uint32
	RxTime   uint32
	RxSNR    float32
	RxRSSI   int32
	HopLimit uint32
	HopStart uint32 // 0 when the sending firmware does not report it
	WantAck  bool
	Priority Priority
	ViaMQTT  bool

	PublicKey    []byte
	PKIEncrypted bool
	NextHop      uint32
	RelayNode    uint32

	Kind      PayloadKind
	Decoded   []byte // serialized Data message when Kind == PayloadDecoded
	Encrypted []byte // ciphertext when Kind == PayloadEncrypted

	// FieldErrors lists fields that were skipped during decoding.
	FieldErrors []error
}

// ChannelHash returns the low 8 bits of the channel field.
func (e *Envelope) ChannelHash() uint8 {
	return uint8(e.Channel)
}

// Plaintext reports the bytes of the Data message carried in the clear.
// An envelope without any payload field is treated as an empty plaintext.
func (e *Envelope) Plaintext() ([]byte, bool) {
	switch e.Kind {
	case PayloadDecoded, PayloadNone:
		return e.Decoded, true
	case PayloadEncrypted:
		if len(e.Encrypted) == 0 {
			return nil, true
		}
	}
	return nil, false
}

// HopsUsed returns how many hops the packet has travelled, when the
// original hop budget is known.
func (e *Envelope) HopsUsed() (uint32, bool) {
	if e.HopStart == 0 || e.HopLimit > e.HopStart {
		return 0, false
	}
	return e.HopStart - e.HopLimit, true
}

// Data is the application-level message carried inside an envelope.
type Data struct {
	PortNum      uint32
	Payload      []byte
	WantResponse bool
	Dest         uint32
	Source       uint32
	RequestID    uint32
	ReplyID      uint32
	Emoji        uint32
	Bitfield     uint32
}

// DecryptStatus is the outcome of a trial decryption.
type DecryptStatus uint8

const (
	DecryptNotAttempted DecryptStatus = iota // payload was plaintext
	DecryptSucceeded
	DecryptExhausted
	DecryptSkippedPKI // public-key encrypted, no channel key applies
)

// DecryptionResult is the immutable outcome of a trial decryption.
type DecryptionResult struct {
	Status    DecryptStatus
	KeyLabel  string // label of the key that worked
	Attempt   int    // 1-based position of that key in the candidate list
	Tried     int    // number of keys attempted
	Plaintext []byte
}

// Err maps a failed result to its sentinel error.
func (r DecryptionResult) Err() error {
	switch r.Status {
	case DecryptExhausted:
		return ErrDecryptionExhausted
	case DecryptSkippedPKI:
		return ErrPKIEncrypted
	}
	return nil
}
