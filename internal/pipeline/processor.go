package pipeline

import (
	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/decoder"
	"firestige.xyz/meshmon/internal/decrypt"
	"firestige.xyz/meshmon/internal/format"
	"firestige.xyz/meshmon/internal/keyring"
	"firestige.xyz/meshmon/internal/payload"
)

// Processor turns one raw datagram into a Record. It holds no mutable
// state, so a single Processor is shared by all workers.
type Processor struct {
	decryptor *decrypt.Decryptor
}

// NewProcessor creates a Processor that decrypts with ring.
func NewProcessor(ring *keyring.Ring) *Processor {
	return &Processor{decryptor: decrypt.New(ring)}
}

// Process decodes, decrypts and classifies raw. Failures are recorded on
// the returned Record and never abort processing.
func (p *Processor) Process(raw core.RawPacket) *format.Record {
	rec := &format.Record{Packet: raw}

	env, err := decoder.DecodeEnvelope(raw.Data)
	if err != nil {
		rec.DecodeErr = err
		return rec
	}
	rec.Envelope = env

	plaintext, ok := env.Plaintext()
	if !ok {
		rec.Decryption = p.decryptor.Attempt(env)
		if !rec.Decrypted() {
			return rec
		}
		plaintext = rec.Decryption.Plaintext
	}

	data, err := decoder.DecodeData(plaintext)
	rec.Data = &data
	rec.DataErr = err
	rec.Payload = payload.Decode(data, env)
	return rec
}
