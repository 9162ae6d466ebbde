package payload

import (
	"fmt"
	"strings"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

// SNRUnknown marks a hop whose SNR was not measured.
const SNRUnknown = -128

const (
	rdRoute      = 1
	rdSNRTowards = 2
	rdRouteBack  = 3
	rdSNRBack    = 4
)

// RouteDiscovery is the hop list carried by traceroute packets. SNR values
// are in quarter-dB steps, one per hop received.
type RouteDiscovery struct {
	Route      []uint32
	SNRTowards []int32
	RouteBack  []uint32
	SNRBack    []int32
}

func decodeRouteDiscovery(b []byte) (*RouteDiscovery, error) {
	rd := &RouteDiscovery{}
	r := wire.NewReader(b)
	for !r.Done() {
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case f.Num == rdRoute && (f.Type == wire.Fixed32Type || f.Type == wire.BytesType):
			rd.Route, err = repeatedFixed32(rd.Route, f)
		case f.Num == rdRouteBack && (f.Type == wire.Fixed32Type || f.Type == wire.BytesType):
			rd.RouteBack, err = repeatedFixed32(rd.RouteBack, f)
		case f.Num == rdSNRTowards && (f.Type == wire.VarintType || f.Type == wire.BytesType):
			rd.SNRTowards, err = repeatedInt32(rd.SNRTowards, f)
		case f.Num == rdSNRBack && (f.Type == wire.VarintType || f.Type == wire.BytesType):
			rd.SNRBack, err = repeatedInt32(rd.SNRBack, f)
		}
		if err != nil {
			return nil, &core.FieldError{Field: int32(f.Num), Err: err}
		}
	}
	return rd, nil
}

// RenderRoute renders origin → hops → destination. Each node after the
// origin carries the SNR at which it received the packet; a missing entry
// or SNRUnknown renders as "?".
func RenderRoute(origin core.NodeID, hops []uint32, dest core.NodeID, snrs []int32) string {
	nodes := make([]core.NodeID, 0, len(hops)+2)
	nodes = append(nodes, origin)
	for _, h := range hops {
		nodes = append(nodes, core.NodeID(h))
	}
	nodes = append(nodes, dest)

	var sb strings.Builder
	sb.WriteString(nodes[0].String())
	for i, n := range nodes[1:] {
		sb.WriteString(" → ")
		sb.WriteString(n.String())
		sb.WriteString(" (")
		sb.WriteString(formatSNR(snrs, i))
		sb.WriteString(")")
	}
	return sb.String()
}

func formatSNR(snrs []int32, i int) string {
	if i >= len(snrs) || snrs[i] == SNRUnknown {
		return "? dB"
	}
	return fmt.Sprintf("%.1f dB", float64(snrs[i])/4)
}

// Traceroute is a route discovery request or reply.
type Traceroute struct {
	RouteDiscovery
	Reply bool
	// Endpoints of the forward path: the requester and the target.
	Origin core.NodeID
	Target core.NodeID
}

func decodeTraceroute(data core.Data, env *core.Envelope) (Payload, error) {
	rd, err := decodeRouteDiscovery(data.Payload)
	if err != nil {
		return nil, err
	}
	t := &Traceroute{RouteDiscovery: *rd, Reply: data.RequestID != 0}
	if env != nil {
		// A reply travels from the target back to the requester.
		t.Origin, t.Target = env.From, env.To
		if t.Reply {
			t.Origin, t.Target = env.To, env.From
		}
	}
	return t, nil
}

func (t *Traceroute) Port() Port { return PortTraceroute }

// ForwardPath renders the path towards the target.
func (t *Traceroute) ForwardPath() string {
	return RenderRoute(t.Origin, t.Route, t.Target, t.SNRTowards)
}

// ReturnPath renders the path from the target back to the requester. It is
// only meaningful for replies.
func (t *Traceroute) ReturnPath() string {
	return RenderRoute(t.Target, t.RouteBack, t.Origin, t.SNRBack)
}

func (t *Traceroute) Fields() []Field {
	kind := "Request"
	if t.Reply {
		kind = "Reply"
	}
	fields := []Field{
		{"Traceroute", kind},
		{"Route Path", t.ForwardPath()},
		{"Hop Count", fmt.Sprintf("%d nodes", len(t.Route))},
	}
	if t.Reply && (len(t.RouteBack) > 0 || len(t.SNRBack) > 0) {
		fields = append(fields, Field{"Return Path", t.ReturnPath()})
	}
	return fields
}
