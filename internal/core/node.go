package core

import "fmt"

// NodeID is a 32-bit mesh node number.
type NodeID uint32

// Broadcast is the all-ones destination address.
const Broadcast NodeID = 0xffffffff

// String renders the node in the conventional "!xxxxxxxx" form.
func (n NodeID) String() string {
	return fmt.Sprintf("!%08x", uint32(n))
}

// IsBroadcast reports whether n is the broadcast address.
func (n NodeID) IsBroadcast() bool {
	return n == Broadcast
}

// Priority is the envelope transmit priority.
type Priority uint32

const (
	PriorityUnset      Priority = 0
	PriorityMin        Priority = 1
	PriorityBackground Priority = 10
	PriorityDefault    Priority = 64
	PriorityReliable   Priority = 70
	PriorityResponse   Priority = 80
	PriorityHigh       Priority = 100
	PriorityAlert      Priority = 110
	PriorityAck        Priority = 120
	PriorityMax        Priority = 127
)

var priorityNames = map[Priority]string{
	PriorityUnset:      "UNSET",
	PriorityMin:        "MIN",
	PriorityBackground: "BACKGROUND",
	PriorityDefault:    "DEFAULT",
	PriorityReliable:   "RELIABLE",
	PriorityResponse:   "RESPONSE",
	PriorityHigh:       "HIGH",
	PriorityAlert:      "ALERT",
	PriorityAck:        "ACK",
	PriorityMax:        "MAX",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint32(p))
}
