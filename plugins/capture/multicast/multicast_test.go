package multicast

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/ipv4"

	"firestige.xyz/meshmon/internal/core"
)

func TestInitDefaults(t *testing.T) {
	c := NewCapturer().(*Capturer)
	require.NoError(t, c.Init(map[string]any{}))

	assert.Equal(t, "multicast", c.Name())
	assert.Equal(t, defaultGroup, c.config.Group)
	assert.Equal(t, defaultPort, c.config.Port)
	assert.Equal(t, time.Second, c.config.ReadTimeout)
	assert.True(t, c.group.Equal(net.IPv4(224, 0, 0, 69)))
}

func TestInitOverrides(t *testing.T) {
	c := NewCapturer().(*Capturer)
	require.NoError(t, c.Init(map[string]any{
		"group":        "239.1.2.3",
		"port":         float64(5000),
		"interface":    "eth0",
		"read_timeout": "250ms",
		"read_buffer":  2048,
	}))

	assert.Equal(t, "239.1.2.3", c.config.Group)
	assert.Equal(t, 5000, c.config.Port)
	assert.Equal(t, "eth0", c.config.Interface)
	assert.Equal(t, 250*time.Millisecond, c.config.ReadTimeout)
	assert.Equal(t, 2048, c.config.ReadBuffer)
}

func TestInitRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"unicast group", map[string]any{"group": "10.0.0.1"}},
		{"ipv6 group", map[string]any{"group": "ff02::1"}},
		{"port", map[string]any{"port": 70000}},
		{"timeout", map[string]any{"read_timeout": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewCapturer().Init(tt.cfg))
		})
	}
}

func TestReadLoopDeliversDatagrams(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	conn := ipv4.NewPacketConn(pc)
	defer conn.Close()

	c := NewCapturer().(*Capturer)
	require.NoError(t, c.Init(map[string]any{"read_timeout": "20ms"}))

	ctx, cancel := context.WithCancel(context.Background())
	output := make(chan core.RawPacket, 4)
	done := make(chan error, 1)
	go func() { done <- c.readLoop(ctx, conn, output) }()

	sender, err := net.Dial("udp4", pc.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()
	_, err = sender.Write([]byte{0x0d, 0x6c, 0x63, 0x66, 0x4e})
	require.NoError(t, err)

	select {
	case raw := <-output:
		assert.Equal(t, []byte{0x0d, 0x6c, 0x63, 0x66, 0x4e}, raw.Data)
		assert.True(t, raw.Source.IsValid())
		assert.False(t, raw.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no datagram received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
	assert.Equal(t, uint64(1), c.Stats().PacketsReceived)
}

func TestReadLoopDropsWhenOutputFull(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	conn := ipv4.NewPacketConn(pc)
	defer conn.Close()

	c := NewCapturer().(*Capturer)
	require.NoError(t, c.Init(map[string]any{"read_timeout": "20ms"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	output := make(chan core.RawPacket) // never read
	go c.readLoop(ctx, conn, output)

	sender, err := net.Dial("udp4", pc.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()
	_, err = sender.Write([]byte{1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Stats().PacketsDropped == 1
	}, 2*time.Second, 10*time.Millisecond)
}
