package payload

import (
	"fmt"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

var (
	neighborInfoLayout = layout{
		1: wire.VarintType, // node_id
		2: wire.VarintType, // last_sent_by_id
		3: wire.VarintType, // node_broadcast_interval_secs
		4: wire.BytesType,  // neighbors
	}
	neighborLayout = layout{
		1: wire.VarintType,  // node_id
		2: wire.Fixed32Type, // snr
		3: wire.Fixed32Type, // last_rx_time
		4: wire.VarintType,  // node_broadcast_interval_secs
	}
)

// Neighbor is one directly heard node.
type Neighbor struct {
	NodeID     core.NodeID
	SNR        float32
	LastRxTime uint32
	Interval   uint32
}

// NeighborInfo lists the nodes a sender hears directly.
type NeighborInfo struct {
	NodeID       core.NodeID
	LastSentByID core.NodeID
	Interval     uint32
	Neighbors    []Neighbor
}

func decodeNeighborInfo(data core.Data, _ *core.Envelope) (Payload, error) {
	ni := &NeighborInfo{}
	var inner error
	err := scan(data.Payload, neighborInfoLayout, func(f wire.Field) {
		switch f.Num {
		case 1:
			ni.NodeID = core.NodeID(f.Uint32())
		case 2:
			ni.LastSentByID = core.NodeID(f.Uint32())
		case 3:
			ni.Interval = f.Uint32()
		case 4:
			var nb Neighbor
			if err := scan(f.Bytes, neighborLayout, func(f wire.Field) {
				switch f.Num {
				case 1:
					nb.NodeID = core.NodeID(f.Uint32())
				case 2:
					nb.SNR = f.Float32()
				case 3:
					nb.LastRxTime = f.Uint32()
				case 4:
					nb.Interval = f.Uint32()
				}
			}); err != nil {
				inner = err
				return
			}
			ni.Neighbors = append(ni.Neighbors, nb)
		}
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return nil, err
	}
	return ni, nil
}

func (n *NeighborInfo) Port() Port { return PortNeighborInfo }

func (n *NeighborInfo) Fields() []Field {
	fields := []Field{{"Node", n.NodeID.String()}}
	if n.LastSentByID != 0 {
		fields = append(fields, Field{"Last Sent By", n.LastSentByID.String()})
	}
	if n.Interval != 0 {
		fields = append(fields, Field{"Broadcast Interval", fmt.Sprintf("%ds", n.Interval)})
	}
	fields = append(fields, Field{"Neighbors", fmt.Sprintf("%d", len(n.Neighbors))})
	for i, nb := range n.Neighbors {
		fields = append(fields, Field{
			fmt.Sprintf("Neighbor %d", i+1),
			fmt.Sprintf("%s (SNR %.1f dB)", nb.NodeID, nb.SNR),
		})
	}
	return fields
}
