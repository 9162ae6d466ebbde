package format

import (
	"fmt"
	"io"
	"strings"
	"time"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/payload"
)

// Separator frames every packet and the statistics report.
var Separator = strings.Repeat("=", 80)

const timestampLayout = "2006-01-02 15:04:05.000"

// Formatter renders records in simple or verbose text form. It holds no
// mutable state and is safe for concurrent use.
type Formatter struct {
	verbose bool
	loc     *time.Location
}

// NewFormatter returns a Formatter rendering times in loc (time.Local when
// nil).
func NewFormatter(verbose bool, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{verbose: verbose, loc: loc}
}

// Verbose reports the rendering mode.
func (f *Formatter) Verbose() bool { return f.verbose }

// Format renders one record, terminated by a blank line.
func (f *Formatter) Format(r *Record) string {
	var b strings.Builder
	f.Write(&b, r)
	return b.String()
}

// Write renders one record to w.
func (f *Formatter) Write(w io.Writer, r *Record) error {
	p := &printer{w: w}
	if f.verbose || r.Envelope == nil {
		if !f.verbose {
			p.line("Error parsing packet, showing verbose output: %v", r.DecodeErr)
		}
		f.writeVerbose(p, r)
	} else {
		f.writeSimple(p, r)
	}
	return p.err
}

func (f *Formatter) header(p *printer, r *Record) {
	p.line("%s", Separator)
	p.line("Packet #%d - %s", r.Seq, r.Packet.Timestamp.In(f.loc).Format(timestampLayout))
}

func (f *Formatter) writeSimple(p *printer, r *Record) {
	env := r.Envelope
	f.header(p, r)
	p.line("From: %s → To: %s", env.From, destination(env.To, "Broadcast"))

	parts := []string{fmt.Sprintf("Channel: %d", env.Channel)}
	if used, ok := env.HopsUsed(); ok && env.HopLimit > 0 {
		parts = append(parts, fmt.Sprintf("Hops: %d of %d", used, env.HopStart))
	} else if env.HopLimit > 0 {
		parts = append(parts, fmt.Sprintf("Hops: %d remaining", env.HopLimit))
	}
	var signal []string
	if env.RxRSSI != 0 {
		signal = append(signal, FormatRSSI(env.RxRSSI))
	}
	if env.RxSNR != 0 {
		signal = append(signal, "SNR "+FormatSNR(env.RxSNR))
	}
	if len(signal) > 0 {
		parts = append(parts, "Signal: "+strings.Join(signal, ", "))
	}
	p.line("%s", strings.Join(parts, " | "))

	p.line("")
	if r.Data == nil {
		p.line("ENCRYPTED: Encrypted Payload")
		p.line("  Status: %s", failureSummary(r))
	} else {
		port := payload.Port(r.Data.PortNum)
		p.line("%s: %s", port, payload.Description(port))
		p.fields("  ", payloadFields(r)[1:]) // port is already in the heading
	}
	p.line("")
}

func (f *Formatter) writeVerbose(p *printer, r *Record) {
	f.header(p, r)
	if r.Packet.Source.IsValid() {
		p.line("Source: %s", r.Packet.Source)
	} else {
		p.line("Source: replay")
	}
	p.line("Size: %d bytes", len(r.Packet.Data))

	if env := r.Envelope; env == nil {
		p.line("")
		p.line("Error parsing MeshPacket: %v", r.DecodeErr)
	} else {
		f.writeEnvelope(p, env)
		if !r.Encrypted() {
			p.line("")
			p.line("  DECODED PAYLOAD:")
			p.fields("    ", payloadFields(r))
		} else {
			f.writeDecryption(p, r)
		}
	}

	p.line("")
	p.line("RAW PACKET DATA:")
	if len(r.Packet.Data) > 0 {
		p.line("%s", HexDump(r.Packet.Data))
	}
	p.line("")
}

func (f *Formatter) writeEnvelope(p *printer, env *core.Envelope) {
	p.line("")
	p.line("DECODED MESHPACKET:")
	p.line("  From Node: %s", env.From)
	p.line("  To: %s", destination(env.To, "Broadcast (all nodes)"))
	p.line("  Channel Hash: %d", env.Channel)
	p.line("  Packet ID: 0x%08x", env.ID)
	if env.RxTime != 0 {
		p.line("  Received Time: %s (%d)", time.Unix(int64(env.RxTime), 0).In(f.loc).Format(time.DateTime), env.RxTime)
	}
	if env.RxSNR != 0 {
		p.line("  SNR: %s", FormatSNR(env.RxSNR))
	}
	if env.HopLimit != 0 {
		p.line("  Hop Limit: %d hops remaining", env.HopLimit)
	}
	if env.WantAck {
		p.line("  Wants ACK: Yes")
	}
	if env.Priority != core.PriorityUnset {
		p.line("  Priority: %s (%d)", env.Priority, uint32(env.Priority))
	}
	if env.RxRSSI != 0 {
		p.line("  RSSI: %s", FormatRSSI(env.RxRSSI))
	}
	if env.HopStart != 0 {
		p.line("  Started with: %d hops", env.HopStart)
	}
	if env.ViaMQTT {
		p.line("  Via MQTT: Yes")
	}
	if env.NextHop != 0 {
		p.line("  Next Hop: 0x%02x", env.NextHop)
	}
	if env.RelayNode != 0 {
		p.line("  Relay Node: 0x%02x", env.RelayNode)
	}
	for _, err := range env.FieldErrors {
		p.line("  Skipped: %v", err)
	}
}

func (f *Formatter) writeDecryption(p *printer, r *Record) {
	env := r.Envelope
	res := r.Decryption

	p.line("")
	p.line("  ENCRYPTED PAYLOAD:")
	p.line("    Size: %d bytes", len(env.Encrypted))
	p.line("    Data: %s", hexPreview(env.Encrypted))

	p.line("")
	p.line("  DECRYPTION ATTEMPT:")
	switch res.Status {
	case core.DecryptSucceeded:
		p.line("    Status: Success (using %s)", res.KeyLabel)
		p.line("    Key: %d of %d candidates", res.Attempt, res.Tried)
		p.line("    Decrypted Data (%d bytes):", len(res.Plaintext))
		if len(res.Plaintext) > 0 {
			p.line("%s", HexDump(res.Plaintext))
		}
		p.line("    Decoded Message:")
		p.fields("      ", payloadFields(r))
	case core.DecryptSkippedPKI:
		p.line("    Status: %s", failureSummary(r))
	default:
		p.line("    Status: %s", failureSummary(r))
		p.line("    Debug: Packet ID=0x%08x, From=0x%08x", env.ID, uint32(env.From))
		p.line("    Debug: Channel Hash=%d, Payload Size=%d", env.ChannelHash(), len(env.Encrypted))
		p.line("    Debug: First few bytes of encrypted data: %x", env.Encrypted[:min(8, len(env.Encrypted))])
	}
}

// failureSummary explains why no plaintext is available.
func failureSummary(r *Record) string {
	switch r.Decryption.Status {
	case core.DecryptSkippedPKI:
		return "Skipped, packet uses PKI encryption (requires the recipient's private key)"
	case core.DecryptExhausted:
		hash := uint8(0)
		if r.Envelope != nil {
			hash = r.Envelope.ChannelHash()
		}
		return fmt.Sprintf("All decryption attempts failed for channel hash %d (tried %d keys)", hash, r.Decryption.Tried)
	}
	return "Unable to decrypt"
}

// payloadFields lists the port, the decoded payload fields and the
// Data-level routing fields.
func payloadFields(r *Record) []payload.Field {
	d := r.Data
	if d == nil {
		return nil
	}
	fields := []payload.Field{{Key: "Port", Value: fmt.Sprintf("%s (%d)", payload.Port(d.PortNum), d.PortNum)}}
	if r.Payload != nil {
		fields = append(fields, r.Payload.Fields()...)
	}
	if d.WantResponse {
		fields = append(fields, payload.Field{Key: "Wants Response", Value: "Yes"})
	}
	if d.Dest != 0 {
		fields = append(fields, payload.Field{Key: "Destination", Value: core.NodeID(d.Dest).String()})
	}
	if d.Source != 0 {
		fields = append(fields, payload.Field{Key: "Source", Value: core.NodeID(d.Source).String()})
	}
	if d.RequestID != 0 {
		fields = append(fields, payload.Field{Key: "Request ID", Value: fmt.Sprintf("0x%08x", d.RequestID)})
	}
	if d.ReplyID != 0 {
		fields = append(fields, payload.Field{Key: "Reply ID", Value: fmt.Sprintf("0x%08x", d.ReplyID)})
	}
	if r.DataErr != nil {
		fields = append(fields, payload.Field{Key: "Decode Warning", Value: r.DataErr.Error()})
	}
	return fields
}

func destination(to core.NodeID, broadcast string) string {
	if to.IsBroadcast() {
		return broadcast
	}
	return to.String()
}

// printer remembers the first write error so rendering code can stay
// linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) fields(indent string, fields []payload.Field) {
	for _, f := range fields {
		p.line("%s%s: %s", indent, f.Key, f.Value)
	}
}
