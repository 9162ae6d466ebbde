package format

import "fmt"

// RSSIQuality buckets a received signal strength in dBm.
func RSSIQuality(rssi int32) string {
	switch {
	case rssi >= -50:
		return "Excellent"
	case rssi >= -60:
		return "Very Good"
	case rssi >= -70:
		return "Good"
	case rssi >= -80:
		return "Fair"
	case rssi >= -90:
		return "Poor"
	default:
		return "Very Poor"
	}
}

// SNRQuality buckets a signal-to-noise ratio in dB.
func SNRQuality(snr float32) string {
	switch {
	case snr >= 10:
		return "Excellent"
	case snr >= 5:
		return "Good"
	case snr >= 0:
		return "Fair"
	case snr >= -5:
		return "Poor"
	default:
		return "Very Poor"
	}
}

// FormatRSSI renders e.g. "-72 dBm (Fair)".
func FormatRSSI(rssi int32) string {
	return fmt.Sprintf("%d dBm (%s)", rssi, RSSIQuality(rssi))
}

// FormatSNR renders e.g. "6.5 dB (Good)".
func FormatSNR(snr float32) string {
	return fmt.Sprintf("%.1f dB (%s)", snr, SNRQuality(snr))
}
