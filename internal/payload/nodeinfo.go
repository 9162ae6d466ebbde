package payload

import (
	"fmt"
	"strings"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

var userLayout = layout{
	1: wire.BytesType,  // id
	2: wire.BytesType,  // long_name
	3: wire.BytesType,  // short_name
	4: wire.BytesType,  // macaddr
	5: wire.VarintType, // hw_model
	6: wire.VarintType, // is_licensed
	7: wire.VarintType, // role
	8: wire.BytesType,  // public_key
}

// NodeInfo is a node's self description.
type NodeInfo struct {
	ID           string
	LongName     string
	ShortName    string
	MAC          []byte
	HWModel      uint32
	IsLicensed   bool
	Role         uint32
	PublicKey    []byte
	WantResponse bool
}

func decodeNodeInfo(data core.Data, _ *core.Envelope) (Payload, error) {
	n := &NodeInfo{WantResponse: data.WantResponse}
	err := scan(data.Payload, userLayout, func(f wire.Field) {
		switch f.Num {
		case 1:
			n.ID = string(f.Bytes)
		case 2:
			n.LongName = string(f.Bytes)
		case 3:
			n.ShortName = string(f.Bytes)
		case 4:
			n.MAC = f.Bytes
		case 5:
			n.HWModel = f.Uint32()
		case 6:
			n.IsLicensed = f.Bool()
		case 7:
			n.Role = f.Uint32()
		case 8:
			n.PublicKey = f.Bytes
		}
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (n *NodeInfo) Port() Port { return PortNodeInfo }

// MACString renders the MAC address as colon separated hex.
func (n *NodeInfo) MACString() string {
	parts := make([]string, len(n.MAC))
	for i, b := range n.MAC {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

func (n *NodeInfo) Fields() []Field {
	fields := []Field{
		{"Node ID", n.ID},
		{"Long Name", n.LongName},
		{"Short Name", n.ShortName},
	}
	if len(n.MAC) > 0 {
		fields = append(fields, Field{"MAC Address", n.MACString()})
	}
	if n.HWModel != 0 {
		fields = append(fields, Field{"Hardware", fmt.Sprintf("%s (%d)", HardwareModelName(n.HWModel), n.HWModel)})
	}
	if n.Role != 0 {
		fields = append(fields, Field{"Role", RoleName(n.Role)})
	}
	if n.IsLicensed {
		fields = append(fields, Field{"Licensed", "Yes"})
	}
	if len(n.PublicKey) > 0 {
		fields = append(fields, Field{"Public Key", fmt.Sprintf("%d bytes", len(n.PublicKey))})
	}
	return fields
}
