package payload

import (
	"fmt"
	"unicode/utf8"

	"firestige.xyz/meshmon/internal/core"
)

// Text is a UTF-8 message. Range test and detection sensor ports carry the
// same layout.
type Text struct {
	port         Port
	Message      string
	WantResponse bool
}

func decodeText(data core.Data, _ *core.Envelope) (Payload, error) {
	if !utf8.Valid(data.Payload) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", core.ErrInvalidData)
	}
	return &Text{
		port:         Port(data.PortNum),
		Message:      string(data.Payload),
		WantResponse: data.WantResponse,
	}, nil
}

func (t *Text) Port() Port { return t.port }

func (t *Text) Fields() []Field {
	return []Field{{"Message Text", fmt.Sprintf("%q", t.Message)}}
}
