// Package payload decodes the application message carried in a Data
// message. Each port has its own binary layout; Decode dispatches on the
// port number through a fixed table and falls back to Unclassified for
// ports without a decoder or payloads that do not parse.
package payload

import (
	"fmt"
	"strings"

	"firestige.xyz/meshmon/internal/core"
)

// Field is one rendered key/value pair of a decoded payload.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Payload is a decoded application message.
type Payload interface {
	// Port is the application port the message arrived on.
	Port() Port
	// Fields lists the rendered key fields in display order.
	Fields() []Field
}

type decodeFunc func(data core.Data, env *core.Envelope) (Payload, error)

var decoders map[Port]decodeFunc

func init() {
	decoders = map[Port]decodeFunc{
		PortText:            decodeText,
		PortDetectionSensor: decodeText,
		PortAlert:           decodeText,
		PortRangeTest:       decodeText,
		PortPosition:        decodePosition,
		PortNodeInfo:        decodeNodeInfo,
		PortRouting:         decodeRouting,
		PortAdmin:           decodeAdmin,
		PortTelemetry:       decodeTelemetry,
		PortTraceroute:      decodeTraceroute,
		PortNeighborInfo:    decodeNeighborInfo,
	}
}

// Decode classifies the payload of data. env supplies the packet endpoints
// for route rendering and may be nil. It never fails: unknown ports and
// undecodable payloads come back as *Unclassified.
func Decode(data core.Data, env *core.Envelope) Payload {
	port := Port(data.PortNum)
	dec, ok := decoders[port]
	if !ok {
		return &Unclassified{port: port, Size: len(data.Payload)}
	}
	p, err := dec(data, env)
	if err != nil {
		return &Unclassified{port: port, Size: len(data.Payload), Raw: data.Payload, Err: err}
	}
	return p
}

// Supported reports whether port has a dedicated decoder.
func Supported(port Port) bool {
	_, ok := decoders[port]
	return ok
}

// Unclassified is the fallback for ports without a decoder and for
// payloads that failed to decode.
type Unclassified struct {
	port Port
	Size int
	Raw  []byte
	Err  error
}

func (u *Unclassified) Port() Port { return u.port }

func (u *Unclassified) Fields() []Field {
	fields := []Field{{"Payload", fmt.Sprintf("unclassified payload, %d bytes", u.Size)}}
	if u.Err != nil {
		fields = append(fields,
			Field{"Payload Data", previewHex(u.Raw)},
			Field{"Parse Error", u.Err.Error()})
	}
	return fields
}

// Description returns the human title for a port, e.g. "Text Message".
func Description(port Port) string {
	if d, ok := portDescriptions[port]; ok {
		return d
	}
	name := strings.TrimSuffix(port.String(), "_APP")
	words := strings.Split(strings.ToLower(name), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var portDescriptions = map[Port]string{
	PortText:         "Text Message",
	PortNodeInfo:     "Node Information Update",
	PortPosition:     "Position Update",
	PortTelemetry:    "Telemetry Data",
	PortTraceroute:   "Network Traceroute",
	PortRouting:      "Routing Control",
	PortAdmin:        "Administration",
	PortNeighborInfo: "Neighbor Discovery",
}

// previewHex renders at most 20 bytes of b as hex.
func previewHex(b []byte) string {
	const max = 20
	if len(b) > max {
		return fmt.Sprintf("bytes(%d): %x...", len(b), b[:max])
	}
	return fmt.Sprintf("bytes(%d): %x", len(b), b)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
