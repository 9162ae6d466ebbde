package format

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/payload"
)

// Document is the JSON form of a record published to reporters.
type Document struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Size      int       `json:"size"`
	Raw       string    `json:"raw"`

	From     string  `json:"from,omitempty"`
	To       string  `json:"to,omitempty"`
	Channel  uint32  `json:"channel"`
	ID       uint32  `json:"id"`
	HopLimit uint32  `json:"hop_limit,omitempty"`
	HopStart uint32  `json:"hop_start,omitempty"`
	RSSI     int32   `json:"rssi,omitempty"`
	SNR      float32 `json:"snr,omitempty"`
	WantAck  bool    `json:"want_ack,omitempty"`
	Priority string  `json:"priority,omitempty"`
	ViaMQTT  bool    `json:"via_mqtt,omitempty"`

	Encrypted  bool                `json:"encrypted"`
	Decryption *DecryptionDocument `json:"decryption,omitempty"`

	Port     *uint32         `json:"port,omitempty"`
	PortName string          `json:"port_name,omitempty"`
	Fields   []payload.Field `json:"fields,omitempty"`

	Error string `json:"error,omitempty"`
}

// DecryptionDocument summarizes a trial decryption.
type DecryptionDocument struct {
	Status  string `json:"status"`
	Key     string `json:"key,omitempty"`
	Attempt int    `json:"attempt,omitempty"`
	Tried   int    `json:"tried"`
}

var decryptStatusNames = map[core.DecryptStatus]string{
	core.DecryptNotAttempted: "not_attempted",
	core.DecryptSucceeded:    "succeeded",
	core.DecryptExhausted:    "exhausted",
	core.DecryptSkippedPKI:   "skipped_pki",
}

// NewDocument flattens a record for serialization.
func NewDocument(r *Record) *Document {
	doc := &Document{
		Seq:       r.Seq,
		Timestamp: r.Packet.Timestamp.UTC(),
		Size:      len(r.Packet.Data),
		Raw:       hex.EncodeToString(r.Packet.Data),
	}
	if r.Packet.Source.IsValid() {
		doc.Source = r.Packet.Source.String()
	}
	if r.DecodeErr != nil {
		doc.Error = r.DecodeErr.Error()
	}

	env := r.Envelope
	if env == nil {
		return doc
	}
	doc.From = env.From.String()
	doc.To = env.To.String()
	doc.Channel = env.Channel
	doc.ID = env.ID
	doc.HopLimit = env.HopLimit
	doc.HopStart = env.HopStart
	doc.RSSI = env.RxRSSI
	doc.SNR = env.RxSNR
	doc.WantAck = env.WantAck
	doc.ViaMQTT = env.ViaMQTT
	if env.Priority != core.PriorityUnset {
		doc.Priority = env.Priority.String()
	}

	if r.Encrypted() {
		doc.Encrypted = true
		doc.Decryption = &DecryptionDocument{
			Status:  decryptStatusNames[r.Decryption.Status],
			Key:     r.Decryption.KeyLabel,
			Attempt: r.Decryption.Attempt,
			Tried:   r.Decryption.Tried,
		}
	}

	if r.Data != nil {
		port := r.Data.PortNum
		doc.Port = &port
		doc.PortName = payload.Port(port).String()
		doc.Fields = payloadFields(r)[1:]
	}
	return doc
}

// MarshalJSON encodes the record as a Document.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewDocument(r))
}
