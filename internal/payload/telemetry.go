package payload

import (
	"fmt"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/core/wire"
)

// Telemetry oneof field numbers.
const (
	telTime        = 1
	telDevice      = 2
	telEnvironment = 3
	telAirQuality  = 4
	telPower       = 5
)

var telemetryLayout = layout{
	telTime:        wire.Fixed32Type,
	telDevice:      wire.BytesType,
	telEnvironment: wire.BytesType,
	telAirQuality:  wire.BytesType,
	telPower:       wire.BytesType,
}

// Telemetry is a metrics report. At most one variant is set; the last one
// on the wire wins.
type Telemetry struct {
	Time        uint32
	Device      *DeviceMetrics
	Environment *EnvironmentMetrics
	AirQuality  *AirQualityMetrics
	Power       *PowerMetrics
	Size        int
}

type DeviceMetrics struct {
	BatteryLevel       uint32
	Voltage            float32
	ChannelUtilization float32
	AirUtilTx          float32
	UptimeSeconds      uint32
}

type EnvironmentMetrics struct {
	Temperature        float32
	RelativeHumidity   float32
	BarometricPressure float32
	GasResistance      float32
	Voltage            float32
	Current            float32
}

type AirQualityMetrics struct {
	PM10Standard  uint32
	PM25Standard  uint32
	PM100Standard uint32
}

type PowerMetrics struct {
	Ch1Voltage float32
	Ch1Current float32
	Ch2Voltage float32
	Ch2Current float32
}

var (
	deviceLayout = layout{
		1: wire.VarintType, 2: wire.Fixed32Type, 3: wire.Fixed32Type,
		4: wire.Fixed32Type, 5: wire.VarintType,
	}
	environmentLayout = layout{
		1: wire.Fixed32Type, 2: wire.Fixed32Type, 3: wire.Fixed32Type,
		4: wire.Fixed32Type, 5: wire.Fixed32Type, 6: wire.Fixed32Type,
	}
	airQualityLayout = layout{1: wire.VarintType, 2: wire.VarintType, 3: wire.VarintType}
	powerLayout      = layout{1: wire.Fixed32Type, 2: wire.Fixed32Type, 3: wire.Fixed32Type, 4: wire.Fixed32Type}
)

func decodeTelemetry(data core.Data, _ *core.Envelope) (Payload, error) {
	t := &Telemetry{Size: len(data.Payload)}
	var inner error
	err := scan(data.Payload, telemetryLayout, func(f wire.Field) {
		if f.Num == telTime {
			t.Time = f.Uint32()
			return
		}
		t.Device, t.Environment, t.AirQuality, t.Power = nil, nil, nil, nil
		switch f.Num {
		case telDevice:
			m := &DeviceMetrics{}
			inner = scan(f.Bytes, deviceLayout, func(f wire.Field) {
				switch f.Num {
				case 1:
					m.BatteryLevel = f.Uint32()
				case 2:
					m.Voltage = f.Float32()
				case 3:
					m.ChannelUtilization = f.Float32()
				case 4:
					m.AirUtilTx = f.Float32()
				case 5:
					m.UptimeSeconds = f.Uint32()
				}
			})
			t.Device = m
		case telEnvironment:
			m := &EnvironmentMetrics{}
			inner = scan(f.Bytes, environmentLayout, func(f wire.Field) {
				switch f.Num {
				case 1:
					m.Temperature = f.Float32()
				case 2:
					m.RelativeHumidity = f.Float32()
				case 3:
					m.BarometricPressure = f.Float32()
				case 4:
					m.GasResistance = f.Float32()
				case 5:
					m.Voltage = f.Float32()
				case 6:
					m.Current = f.Float32()
				}
			})
			t.Environment = m
		case telAirQuality:
			m := &AirQualityMetrics{}
			inner = scan(f.Bytes, airQualityLayout, func(f wire.Field) {
				switch f.Num {
				case 1:
					m.PM10Standard = f.Uint32()
				case 2:
					m.PM25Standard = f.Uint32()
				case 3:
					m.PM100Standard = f.Uint32()
				}
			})
			t.AirQuality = m
		case telPower:
			m := &PowerMetrics{}
			inner = scan(f.Bytes, powerLayout, func(f wire.Field) {
				switch f.Num {
				case 1:
					m.Ch1Voltage = f.Float32()
				case 2:
					m.Ch1Current = f.Float32()
				case 3:
					m.Ch2Voltage = f.Float32()
				case 4:
					m.Ch2Current = f.Float32()
				}
			})
			t.Power = m
		}
	})
	if err == nil {
		err = inner
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Telemetry) Port() Port { return PortTelemetry }

// Variant names the metrics block that was present.
func (t *Telemetry) Variant() string {
	switch {
	case t.Device != nil:
		return "Device Metrics"
	case t.Environment != nil:
		return "Environment Metrics"
	case t.AirQuality != nil:
		return "Air Quality Metrics"
	case t.Power != nil:
		return "Power Metrics"
	}
	return "None"
}

func (t *Telemetry) Fields() []Field {
	fields := []Field{{"Telemetry Type", t.Variant()}}
	add := func(ok bool, key, format string, v any) {
		if ok {
			fields = append(fields, Field{key, fmt.Sprintf(format, v)})
		}
	}

	if m := t.Device; m != nil {
		add(m.BatteryLevel > 0, "Battery", "%d%%", m.BatteryLevel)
		add(m.Voltage > 0, "Voltage", "%.2fV", m.Voltage)
		add(m.ChannelUtilization > 0, "Channel Util", "%.1f%%", m.ChannelUtilization)
		add(m.AirUtilTx > 0, "Air Util TX", "%.1f%%", m.AirUtilTx)
		if m.UptimeSeconds > 0 {
			fields = append(fields, Field{"Uptime", formatUptime(m.UptimeSeconds)})
		}
	}
	if m := t.Environment; m != nil {
		add(m.Temperature != 0, "Temperature", "%.1f°C", m.Temperature)
		add(m.RelativeHumidity > 0, "Humidity", "%.1f%%", m.RelativeHumidity)
		add(m.BarometricPressure > 0, "Pressure", "%.1f hPa", m.BarometricPressure)
		add(m.GasResistance > 0, "Gas Resistance", "%.0f Ω", m.GasResistance)
		add(m.Voltage > 0, "Voltage", "%.2fV", m.Voltage)
		add(m.Current != 0, "Current", "%.2fA", m.Current)
	}
	if m := t.AirQuality; m != nil {
		add(m.PM10Standard > 0, "PM1.0", "%d μg/m³", m.PM10Standard)
		add(m.PM25Standard > 0, "PM2.5", "%d μg/m³", m.PM25Standard)
		add(m.PM100Standard > 0, "PM10", "%d μg/m³", m.PM100Standard)
	}
	if m := t.Power; m != nil {
		add(m.Ch1Voltage > 0, "CH1 Voltage", "%.2fV", m.Ch1Voltage)
		add(m.Ch1Current > 0, "CH1 Current", "%.2fA", m.Ch1Current)
		add(m.Ch2Voltage > 0, "CH2 Voltage", "%.2fV", m.Ch2Voltage)
		add(m.Ch2Current > 0, "CH2 Current", "%.2fA", m.Ch2Current)
	}

	if t.Time > 0 {
		fields = append(fields, Field{"Telemetry Time", formatUnix(t.Time)})
	}
	fields = append(fields, Field{"Telemetry Size", fmt.Sprintf("%d bytes", t.Size)})
	return fields
}

func formatUptime(seconds uint32) string {
	hours := float64(seconds) / 3600
	if hours < 24 {
		return fmt.Sprintf("%.1f hours", hours)
	}
	return fmt.Sprintf("%.1f days", hours/24)
}
