// Package multicast implements the live UDP multicast capture plugin.
package multicast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/pkg/plugin"
)

const (
	pluginName = "multicast"

	// Default configuration values
	defaultGroup       = "224.0.0.69"
	defaultPort        = 4403
	defaultReadTimeout = time.Second
	defaultReadBuffer  = 4096
)

// Config represents multicast-specific configuration.
type Config struct {
	Group       string        `json:"group"`        // optional, default 224.0.0.69
	Port        int           `json:"port"`         // optional, default 4403
	Interface   string        `json:"interface"`    // optional, system default when empty
	ReadTimeout time.Duration `json:"read_timeout"` // optional, default 1s
	ReadBuffer  int           `json:"read_buffer"`  // optional, largest datagram accepted
}

// packetConn is the subset of *ipv4.PacketConn used by the read loop.
type packetConn interface {
	SetReadDeadline(t time.Time) error
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	Close() error
}

// Capturer joins the mesh multicast group and emits every datagram.
type Capturer struct {
	name   string
	config Config
	group  net.IP

	mu     sync.Mutex
	cancel context.CancelFunc

	// Statistics (atomic counters)
	packetsReceived atomic.Uint64
	packetsDropped  atomic.Uint64
}

// NewCapturer creates a new multicast capturer instance.
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
	c.config = Config{
		Group:       defaultGroup,
		Port:        defaultPort,
		ReadTimeout: defaultReadTimeout,
		ReadBuffer:  defaultReadBuffer,
	}

	if group, ok := cfg["group"].(string); ok && group != "" {
		c.config.Group = group
	}
	if port, ok := intValue(cfg["port"]); ok {
		c.config.Port = port
	}
	if iface, ok := cfg["interface"].(string); ok {
		c.config.Interface = iface
	}
	if buf, ok := intValue(cfg["read_buffer"]); ok && buf > 0 {
		c.config.ReadBuffer = buf
	}
	switch v := cfg["read_timeout"].(type) {
	case time.Duration:
		c.config.ReadTimeout = v
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("multicast: invalid read_timeout: %w", err)
		}
		c.config.ReadTimeout = d
	}

	ip := net.ParseIP(c.config.Group)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return fmt.Errorf("multicast: group %q is not an IPv4 multicast address", c.config.Group)
	}
	c.group = ip.To4()
	if c.config.Port <= 0 || c.config.Port > 65535 {
		return fmt.Errorf("multicast: invalid port %d", c.config.Port)
	}
	if c.config.ReadTimeout <= 0 {
		c.config.ReadTimeout = defaultReadTimeout
	}

	slog.Debug("multicast initialized",
		"group", c.config.Group,
		"port", c.config.Port,
		"interface", c.config.Interface,
		"read_timeout", c.config.ReadTimeout)

	return nil
}

// Start is a no-op; the socket is opened by Capture.
func (c *Capturer) Start(ctx context.Context) error {
	return nil
}

// Stop stops the capturer by cancelling the running Capture. The socket
// is owned and closed by Capture itself.
func (c *Capturer) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Capture binds the group port, joins the group and reads until ctx is
// cancelled. A bind or join failure is returned immediately.
func (c *Capturer) Capture(ctx context.Context, output chan<- core.RawPacket) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	conn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	slog.Info("multicast capture started", "group", c.config.Group, "port", c.config.Port)
	err = c.readLoop(ctx, conn, output)
	slog.Info("multicast capture stopped", "group", c.config.Group, "received", c.packetsReceived.Load())
	return err
}

func (c *Capturer) open(ctx context.Context) (*ipv4.PacketConn, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(c.config.Port))
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("multicast: bind %s: %w", addr, err)
	}

	var ifi *net.Interface
	if c.config.Interface != "" {
		ifi, err = net.InterfaceByName(c.config.Interface)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("multicast: interface %q: %w", c.config.Interface, err)
		}
	}

	p := ipv4.NewPacketConn(pc)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: c.group}); err != nil {
		p.Close()
		return nil, fmt.Errorf("multicast: join %s: %w", c.config.Group, err)
	}
	if err := p.SetControlMessage(ipv4.FlagDst, true); err != nil {
		// Not every platform reports the destination; filtering is then skipped.
		slog.Debug("multicast: destination control messages unavailable", "error", err)
	}
	return p, nil
}

// readLoop polls conn with the configured read timeout so cancellation is
// noticed within one timeout period.
func (c *Capturer) readLoop(ctx context.Context, conn packetConn, output chan<- core.RawPacket) error {
	buf := make([]byte, c.config.ReadBuffer)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
			return fmt.Errorf("multicast: set read deadline: %w", err)
		}
		n, cm, src, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("multicast: read: %w", err)
		}

		// The port is shared with unicast traffic and other groups.
		if cm != nil && cm.Dst != nil && cm.Dst.IsMulticast() && !cm.Dst.Equal(c.group) {
			continue
		}

		c.packetsReceived.Add(1)
		raw := core.RawPacket{
			Data:      append([]byte(nil), buf[:n]...),
			Timestamp: time.Now(),
		}
		if ua, ok := src.(*net.UDPAddr); ok {
			raw.Source = ua.AddrPort()
		}

		// Non-blocking send: prefer drop over blocking the read loop.
		select {
		case output <- raw:
		case <-ctx.Done():
			return nil
		default:
			c.packetsDropped.Add(1)
			slog.Debug("output channel full, dropping packet", "group", c.config.Group)
		}
	}
}

// Stats returns capture statistics.
func (c *Capturer) Stats() plugin.CaptureStats {
	return plugin.CaptureStats{
		PacketsReceived: c.packetsReceived.Load(),
		PacketsDropped:  c.packetsDropped.Load(),
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
