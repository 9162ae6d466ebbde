package payload

import (
	"fmt"

	"firestige.xyz/meshmon/internal/core"
)

// Admin records only that an administration message was seen. Its contents
// are session-keyed and not decoded.
type Admin struct {
	Size int
}

func decodeAdmin(data core.Data, _ *core.Envelope) (Payload, error) {
	return &Admin{Size: len(data.Payload)}, nil
}

func (a *Admin) Port() Port { return PortAdmin }

func (a *Admin) Fields() []Field {
	return []Field{{"Admin Message", fmt.Sprintf("%d bytes", a.Size)}}
}
