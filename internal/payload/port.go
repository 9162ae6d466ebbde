package payload

import "fmt"

// Port is an application port number.
type Port uint32

const (
	PortUnknown         Port = 0
	PortText            Port = 1
	PortRemoteHardware  Port = 2
	PortPosition        Port = 3
	PortNodeInfo        Port = 4
	PortRouting         Port = 5
	PortAdmin           Port = 6
	PortTextCompressed  Port = 7
	PortWaypoint        Port = 8
	PortAudio           Port = 9
	PortDetectionSensor Port = 10
	PortAlert           Port = 11
	PortKeyVerification Port = 12
	PortReply           Port = 32
	PortIPTunnel        Port = 33
	PortPaxcounter      Port = 34
	PortSerial          Port = 64
	PortStoreForward    Port = 65
	PortRangeTest       Port = 66
	PortTelemetry       Port = 67
	PortZPS             Port = 68
	PortSimulator       Port = 69
	PortTraceroute      Port = 70
	PortNeighborInfo    Port = 71
	PortATAKPlugin      Port = 72
	PortMapReport       Port = 73
	PortPowerStress     Port = 74
	PortReticulumTunnel Port = 76
	PortCayenne         Port = 77
	PortPrivate         Port = 256
	PortATAKForwarder   Port = 257
	PortMax             Port = 511
)

var portNames = map[Port]string{
	PortUnknown:         "UNKNOWN_APP",
	PortText:            "TEXT_MESSAGE_APP",
	PortRemoteHardware:  "REMOTE_HARDWARE_APP",
	PortPosition:        "POSITION_APP",
	PortNodeInfo:        "NODEINFO_APP",
	PortRouting:         "ROUTING_APP",
	PortAdmin:           "ADMIN_APP",
	PortTextCompressed:  "TEXT_MESSAGE_COMPRESSED_APP",
	PortWaypoint:        "WAYPOINT_APP",
	PortAudio:           "AUDIO_APP",
	PortDetectionSensor: "DETECTION_SENSOR_APP",
	PortAlert:           "ALERT_APP",
	PortKeyVerification: "KEY_VERIFICATION_APP",
	PortReply:           "REPLY_APP",
	PortIPTunnel:        "IP_TUNNEL_APP",
	PortPaxcounter:      "PAXCOUNTER_APP",
	PortSerial:          "SERIAL_APP",
	PortStoreForward:    "STORE_FORWARD_APP",
	PortRangeTest:       "RANGE_TEST_APP",
	PortTelemetry:       "TELEMETRY_APP",
	PortZPS:             "ZPS_APP",
	PortSimulator:       "SIMULATOR_APP",
	PortTraceroute:      "TRACEROUTE_APP",
	PortNeighborInfo:    "NEIGHBORINFO_APP",
	PortATAKPlugin:      "ATAK_PLUGIN",
	PortMapReport:       "MAP_REPORT_APP",
	PortPowerStress:     "POWERSTRESS_APP",
	PortReticulumTunnel: "RETICULUM_TUNNEL_APP",
	PortCayenne:         "CAYENNE_APP",
	PortPrivate:         "PRIVATE_APP",
	PortATAKForwarder:   "ATAK_FORWARDER",
	PortMax:             "MAX",
}

func (p Port) String() string {
	if name, ok := portNames[p]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_PORT_%d", uint32(p))
}

// Known reports whether the port number is assigned.
func (p Port) Known() bool {
	_, ok := portNames[p]
	return ok
}
