package payload

import (
	"fmt"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

const (
	posLatitude      = 1
	posLongitude     = 2
	posAltitude      = 3
	posTime          = 4
	posTimestamp     = 7
	posGroundSpeed   = 15
	posSatsInView    = 19
	posPrecisionBits = 23
)

var positionLayout = layout{
	posLatitude:      wire.Fixed32Type,
	posLongitude:     wire.Fixed32Type,
	posAltitude:      wire.VarintType,
	posTime:          wire.Fixed32Type,
	posTimestamp:     wire.Fixed32Type,
	posGroundSpeed:   wire.VarintType,
	posSatsInView:    wire.VarintType,
	posPrecisionBits: wire.VarintType,
}

// Position is a location report. Coordinates are in 1e-7 degrees.
type Position struct {
	LatitudeI     int32
	LongitudeI    int32
	HasLatitude   bool
	HasLongitude  bool
	Altitude      int32
	Time          uint32
	Timestamp     uint32
	GroundSpeed   uint32
	SatsInView    uint32
	PrecisionBits uint32
}

func decodePosition(data core.Data, _ *core.Envelope) (Payload, error) {
	p := &Position{}
	err := scan(data.Payload, positionLayout, func(f wire.Field) {
		switch f.Num {
		case posLatitude:
			p.LatitudeI, p.HasLatitude = f.Int32(), true
		case posLongitude:
			p.LongitudeI, p.HasLongitude = f.Int32(), true
		case posAltitude:
			p.Altitude = f.Int32()
		case posTime:
			p.Time = f.Uint32()
		case posTimestamp:
			p.Timestamp = f.Uint32()
		case posGroundSpeed:
			p.GroundSpeed = f.Uint32()
		case posSatsInView:
			p.SatsInView = f.Uint32()
		case posPrecisionBits:
			p.PrecisionBits = f.Uint32()
		}
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Position) Port() Port { return PortPosition }

// HasFix reports whether both coordinates are present.
func (p *Position) HasFix() bool {
	return p.HasLatitude && p.HasLongitude
}

// Latitude returns the latitude in degrees.
func (p *Position) Latitude() float64 { return float64(p.LatitudeI) * 1e-7 }

// Longitude returns the longitude in degrees.
func (p *Position) Longitude() float64 { return float64(p.LongitudeI) * 1e-7 }

// MapsLink returns a map URL for the fix, or "" without one.
func (p *Position) MapsLink() string {
	if !p.HasFix() {
		return ""
	}
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s", formatCoord(p.Latitude()), formatCoord(p.Longitude()))
}

func (p *Position) Fields() []Field {
	var fields []Field
	if p.HasFix() {
		fields = append(fields,
			Field{"Location", fmt.Sprintf("%.6f, %.6f", p.Latitude(), p.Longitude())},
			Field{"Maps Link", p.MapsLink()})
	} else {
		fields = append(fields, Field{"Location", "no fix"})
	}
	if p.Altitude != 0 {
		fields = append(fields, Field{"Altitude", fmt.Sprintf("%dm", p.Altitude)})
	}
	if p.GroundSpeed != 0 {
		fields = append(fields, Field{"Speed", fmt.Sprintf("%d km/h", p.GroundSpeed)})
	}
	if p.SatsInView != 0 {
		fields = append(fields, Field{"Satellites", fmt.Sprintf("%d", p.SatsInView)})
	}
	if p.PrecisionBits != 0 {
		fields = append(fields, Field{"Precision", fmt.Sprintf("%d bits", p.PrecisionBits)})
	}
	if p.Time != 0 {
		fields = append(fields, Field{"Fix Time", formatUnix(p.Time)})
	}
	return fields
}
