// Package format renders classified packets as text and JSON.
package format

import (
	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/payload"
)

// Record is everything the pipeline learned about one packet. It is built
// once by a worker and only read afterwards.
type Record struct {
	Seq    uint64
	Packet core.RawPacket

	Envelope  *core.Envelope // nil when the envelope could not be decoded
	DecodeErr error

	Decryption core.DecryptionResult

	// Data is set when plaintext was available, either in the clear or
	// after a successful decryption.
	Data    *core.Data
	DataErr error
	Payload payload.Payload
}

// Encrypted reports whether the packet arrived encrypted.
func (r *Record) Encrypted() bool {
	return r.Decryption.Status != core.DecryptNotAttempted
}

// Decrypted reports whether a channel key recovered the plaintext.
func (r *Record) Decrypted() bool {
	return r.Decryption.Status == core.DecryptSucceeded
}
