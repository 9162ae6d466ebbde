package pcapfile

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/meshmon/internal/core"
)

func udpFrame(t *testing.T, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x01, 0x00, 0x5e, 0x00, 0x00, 0x45},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		SrcIP:    net.IP{192, 168, 1, 20},
		DstIP:    net.IP{224, 0, 0, 69},
		Version:  4,
		TTL:      1,
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{SrcPort: 4403, DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func writePcap(t *testing.T, frames [][]byte, ts time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mesh.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for _, frame := range frames {
		ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(frame), Length: len(frame)}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return path
}

func writePcapng(t *testing.T, frames [][]byte, ts time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mesh.pcapng")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for _, frame := range frames {
		ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(frame), Length: len(frame)}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	require.NoError(t, w.Flush())
	return path
}

func run(t *testing.T, cfg map[string]any) ([]core.RawPacket, *Capturer) {
	t.Helper()
	c := NewCapturer().(*Capturer)
	require.NoError(t, c.Init(cfg))

	output := make(chan core.RawPacket, 16)
	require.NoError(t, c.Capture(context.Background(), output))
	close(output)

	var packets []core.RawPacket
	for p := range output {
		packets = append(packets, p)
	}
	return packets, c
}

func TestCapturePcapFiltersPort(t *testing.T) {
	ts := time.Unix(1704067200, 0)
	path := writePcap(t, [][]byte{
		udpFrame(t, 4403, []byte{0x0d, 0x01}),
		udpFrame(t, 53, []byte{0xff}),
		udpFrame(t, 4403, []byte{0x0d, 0x02}),
	}, ts)

	packets, c := run(t, map[string]any{"path": path})

	require.Len(t, packets, 2)
	assert.Equal(t, []byte{0x0d, 0x01}, packets[0].Data)
	assert.Equal(t, []byte{0x0d, 0x02}, packets[1].Data)
	assert.True(t, packets[0].Timestamp.Equal(ts))
	assert.Equal(t, "192.168.1.20:4403", packets[0].Source.String())

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.PacketsReceived)
	assert.Equal(t, uint64(1), stats.PacketsDropped)
}

func TestCapturePcapAnyPort(t *testing.T) {
	path := writePcap(t, [][]byte{
		udpFrame(t, 4403, []byte{0x01}),
		udpFrame(t, 53, []byte{0x02}),
	}, time.Unix(1704067200, 0))

	packets, _ := run(t, map[string]any{"path": path, "port": 0})
	assert.Len(t, packets, 2)
}

func TestCapturePcapng(t *testing.T) {
	path := writePcapng(t, [][]byte{udpFrame(t, 4403, []byte{0xaa, 0xbb})}, time.Unix(1704067200, 0))

	packets, _ := run(t, map[string]any{"path": path})
	require.Len(t, packets, 1)
	assert.Equal(t, []byte{0xaa, 0xbb}, packets[0].Data)
}

func TestInitRequiresPath(t *testing.T) {
	assert.Error(t, NewCapturer().Init(map[string]any{}))
	assert.Error(t, NewCapturer().Init(map[string]any{"path": filepath.Join(t.TempDir(), "none.pcap")}))
}

func TestCaptureRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pcap")
	require.NoError(t, os.WriteFile(path, []byte("this is not a capture"), 0644))

	c := NewCapturer()
	require.NoError(t, c.Init(map[string]any{"path": path}))
	assert.Error(t, c.Capture(context.Background(), make(chan core.RawPacket, 1)))
}
