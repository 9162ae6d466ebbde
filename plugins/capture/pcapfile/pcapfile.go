// Package pcapfile implements the pcap/pcapng replay capture plugin.
package pcapfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/pkg/plugin"
)

const (
	pluginName  = "pcap"
	defaultPort = 4403
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Config represents pcap replay configuration.
type Config struct {
	Path string `json:"path"` // required
	Port int    `json:"port"` // optional UDP port filter, 0 = any, default 4403
}

// Capturer extracts mesh datagrams from the UDP frames of a pcap or
// pcapng recording.
type Capturer struct {
	name   string
	config Config

	// Statistics (atomic counters)
	packetsReceived atomic.Uint64
	packetsFiltered atomic.Uint64
}

// NewCapturer creates a new pcap replay capturer instance.
func NewCapturer() plugin.Capturer {
	return &Capturer{
		name: pluginName,
	}
}

// Name returns the plugin name.
func (c *Capturer) Name() string {
	return c.name
}

// Init initializes the capturer with configuration.
func (c *Capturer) Init(cfg map[string]any) error {
	c.config = Config{Port: defaultPort}

	if path, ok := cfg["path"].(string); ok && path != "" {
		c.config.Path = path
	} else {
		return fmt.Errorf("pcap: path is required")
	}
	switch port := cfg["port"].(type) {
	case int:
		c.config.Port = port
	case float64:
		c.config.Port = int(port)
	}
	if c.config.Port < 0 || c.config.Port > 65535 {
		return fmt.Errorf("pcap: invalid port %d", c.config.Port)
	}
	if _, err := os.Stat(c.config.Path); err != nil {
		return fmt.Errorf("pcap: %w", err)
	}
	return nil
}

// Start starts the capturer.
func (c *Capturer) Start(ctx context.Context) error {
	return nil
}

// Stop stops the capturer.
func (c *Capturer) Stop(ctx context.Context) error {
	return nil
}

// Capture sends the UDP payload of every matching frame and returns at
// end of file.
func (c *Capturer) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	f, err := os.Open(c.config.Path)
	if err != nil {
		return fmt.Errorf("pcap: %w", err)
	}
	defer f.Close()

	source, err := newPacketSource(bufio.NewReader(f))
	if err != nil {
		return fmt.Errorf("pcap: %s: %w", c.config.Path, err)
	}

	slog.Info("replaying pcap file", "path", c.config.Path, "port", c.config.Port)

	for {
		pkt, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// Truncated trailing record; nothing after it can be framed.
			slog.Warn("pcap read stopped", "path", c.config.Path, "error", err)
			return nil
		}

		raw, ok := c.extract(pkt)
		if !ok {
			c.packetsFiltered.Add(1)
			continue
		}
		select {
		case output <- raw:
			c.packetsReceived.Add(1)
		case <-ctx.Done():
			return nil
		}
	}
}

// newPacketSource picks the pcapng or classic pcap reader from the file
// magic.
func newPacketSource(r *bufio.Reader) (*gopacket.PacketSource, error) {
	magic, err := r.Peek(4)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		return gopacket.NewPacketSource(ng, ng.LinkType()), nil
	}
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, err
	}
	return gopacket.NewPacketSource(pr, pr.LinkType()), nil
}

func (c *Capturer) extract(pkt gopacket.Packet) (core.RawPacket, bool) {
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return core.RawPacket{}, false
	}
	udp := udpLayer.(*layers.UDP)
	if c.config.Port != 0 && int(udp.DstPort) != c.config.Port {
		return core.RawPacket{}, false
	}

	raw := core.RawPacket{
		Data:      append([]byte(nil), udp.Payload...),
		Timestamp: pkt.Metadata().Timestamp,
	}
	if nl := pkt.NetworkLayer(); nl != nil {
		if addr, ok := netip.AddrFromSlice(nl.NetworkFlow().Src().Raw()); ok {
			raw.Source = netip.AddrPortFrom(addr.Unmap(), uint16(udp.SrcPort))
		}
	}
	return raw, true
}

// Stats returns capture statistics. Frames that are not UDP datagrams for
// the configured port count as dropped.
func (c *Capturer) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{
		PacketsReceived: c.packetsReceived.Load(),
		PacketsDropped:  c.packetsFiltered.Load(),
	}
}
