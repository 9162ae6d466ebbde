// Package decrypt runs trial decryption of encrypted envelopes against the
// key ring.
package decrypt

import (
	"crypto/cipher"
	"encoding/binary"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/decoder"
	"firestige.xyz/meshmon/internal/keyring"
)

// NonceSize is the AES-CTR initial counter block size.
const NonceSize = 16

// Nonce derives the per-packet counter block: the packet id as a
// little-endian 64-bit value followed by the sender node number as a
// little-endian 64-bit value.
func Nonce(packetID uint32, from core.NodeID) [NonceSize]byte {
	var n [NonceSize]byte
	binary.LittleEndian.PutUint64(n[0:8], uint64(packetID))
	binary.LittleEndian.PutUint64(n[8:16], uint64(from))
	return n
}

// XORKeyStream applies AES-CTR with the packet nonce to src. The same call
// encrypts and decrypts.
func XORKeyStream(block cipher.Block, packetID uint32, from core.NodeID, src []byte) []byte {
	dst := make([]byte, len(src))
	xorInto(dst, block, packetID, from, src)
	return dst
}

func xorInto(dst []byte, block cipher.Block, packetID uint32, from core.NodeID, src []byte) {
	nonce := Nonce(packetID, from)
	cipher.NewCTR(block, nonce[:]).XORKeyStream(dst, src)
}

// Decryptor tries the key ring candidates for a packet until one produces
// a valid Data message. It holds no mutable state and is safe for
// concurrent use.
type Decryptor struct {
	ring *keyring.Ring
}

// New creates a Decryptor over ring.
func New(ring *keyring.Ring) *Decryptor {
	return &Decryptor{ring: ring}
}

// Attempt decrypts env when it carries ciphertext. The first candidate
// whose output passes decoder.ValidateData wins; there is no retry.
func (d *Decryptor) Attempt(env *core.Envelope) core.DecryptionResult {
	if _, plain := env.Plaintext(); plain {
		return core.DecryptionResult{Status: core.DecryptNotAttempted}
	}
	if env.PKIEncrypted {
		return core.DecryptionResult{Status: core.DecryptSkippedPKI}
	}

	candidates := d.ring.Candidates(env.ChannelHash())
	buf := make([]byte, len(env.Encrypted))
	for i, k := range candidates {
		xorInto(buf, k.Block(), env.ID, env.From, env.Encrypted)
		if _, err := decoder.ValidateData(buf); err != nil {
			continue
		}
		return core.DecryptionResult{
			Status:    core.DecryptSucceeded,
			KeyLabel:  k.Label,
			Attempt:   i + 1,
			Tried:     i + 1,
			Plaintext: buf,
		}
	}

	return core.DecryptionResult{Status: core.DecryptExhausted, Tried: len(candidates)}
}
