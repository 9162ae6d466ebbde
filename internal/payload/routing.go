package payload

import (
	"fmt"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

// RoutingKind is the populated branch of a routing message.
type RoutingKind uint8

const (
	RoutingAck RoutingKind = iota // no branch set
	RoutingRequest
	RoutingReply
	RoutingError
)

const (
	routingRequest = 1
	routingReply   = 2
	routingError   = 3
)

var routingLayout = layout{
	routingRequest: wire.BytesType,
	routingReply:   wire.BytesType,
	routingError:   wire.VarintType,
}

var routingErrorNames = map[uint32]string{
	0:  "NONE",
	1:  "NO_ROUTE",
	2:  "GOT_NAK",
	3:  "TIMEOUT",
	4:  "NO_INTERFACE",
	5:  "MAX_RETRANSMIT",
	6:  "NO_CHANNEL",
	7:  "TOO_LARGE",
	8:  "NO_RESPONSE",
	9:  "DUTY_CYCLE_LIMIT",
	32: "BAD_REQUEST",
	33: "NOT_AUTHORIZED",
	34: "PKI_FAILED",
	35: "PKI_UNKNOWN_PUBKEY",
	36: "ADMIN_BAD_SESSION_KEY",
	37: "ADMIN_PUBLIC_KEY_UNAUTHORIZED",
}

// RoutingErrorName maps a routing error code to its name.
func RoutingErrorName(code uint32) string {
	if name, ok := routingErrorNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

// Routing is an acknowledgement, an error report or a route discovery
// exchange.
type Routing struct {
	Kind        RoutingKind
	ErrorReason uint32
	Route       *RouteDiscovery
	Size        int
}

func decodeRouting(data core.Data, _ *core.Envelope) (Payload, error) {
	rt := &Routing{Size: len(data.Payload)}
	var inner error
	err := scan(data.Payload, routingLayout, func(f wire.Field) {
		rt.Route = nil
		switch f.Num {
		case routingRequest, routingReply:
			rt.Kind = RoutingRequest
			if f.Num == routingReply {
				rt.Kind = RoutingReply
			}
			rt.Route, inner = decodeRouteDiscovery(f.Bytes)
		case routingError:
			rt.Kind = RoutingError
			rt.ErrorReason = f.Uint32()
		}
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *Routing) Port() Port { return PortRouting }

func (r *Routing) Fields() []Field {
	switch r.Kind {
	case RoutingError:
		fields := []Field{{"Routing Type", "Error Report"}, {"Error Reason", RoutingErrorName(r.ErrorReason)}}
		if r.ErrorReason == 0 {
			fields[0].Value = "Status Report"
			fields = append(fields, Field{"Status", "Success/ACK"})
		}
		return fields
	case RoutingRequest, RoutingReply:
		kind := "Route Request"
		if r.Kind == RoutingReply {
			kind = "Route Reply"
		}
		fields := []Field{{"Routing Type", kind}}
		if len(r.Route.Route) > 0 {
			fields = append(fields, Field{"Route", formatNodeList(r.Route.Route)})
		}
		if len(r.Route.RouteBack) > 0 {
			fields = append(fields, Field{"Return Route", formatNodeList(r.Route.RouteBack)})
		}
		return fields
	}
	return []Field{{"Routing Type", "Acknowledgement"}, {"Status", "Message acknowledged"}}
}

func formatNodeList(ids []uint32) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += " → "
		}
		s += core.NodeID(id).String()
	}
	return s
}
