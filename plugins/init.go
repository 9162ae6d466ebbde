// Package plugins registers all built-in plugins.
package plugins

import (
	"firestige.xyz/meshmon/pkg/plugin"
	"firestige.xyz/meshmon/plugins/capture/multicast"
	"firestige.xyz/meshmon/plugins/capture/pcapfile"
	"firestige.xyz/meshmon/plugins/capture/replay"
	"firestige.xyz/meshmon/plugins/reporter/console"
	"firestige.xyz/meshmon/plugins/reporter/kafka"
	"firestige.xyz/meshmon/plugins/reporter/nats"
)

func init() {
	// Register capture plugins
	plugin.RegisterCapturer("multicast", multicast.NewCapturer)
	plugin.RegisterCapturer("replay", replay.NewCapturer)
	plugin.RegisterCapturer("pcap", pcapfile.NewCapturer)

	// Register reporter plugins
	plugin.RegisterReporter("console", console.NewConsoleReporter)
	plugin.RegisterReporter("kafka", kafka.NewKafkaReporter)
	plugin.RegisterReporter("nats", nats.NewNATSReporter)
}
