package daemon

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"firestige.xyz/meshmon/internal/config"
	"firestige.xyz/meshmon/internal/keyring"
)

func helloPacket() []byte {
	var data []byte
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, 1)
	data = protowire.AppendTag(data, 2, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte("Hello mesh network!"))
	data = protowire.AppendTag(data, 3, protowire.VarintType)
	data = protowire.AppendVarint(data, 1)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0x4e66636c)
	b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0xffffffff)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

func loadDefaults(t *testing.T) *config.GlobalConfig {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	return cfg
}

func TestDaemon_ReplayIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	capturePath := filepath.Join(tmpDir, "2024-01-01.tsv")
	content := "garbage line\n" + fmt.Sprintf("1704067200.250000\t%s\n", hex.EncodeToString(helloPacket()))
	if err := os.WriteFile(capturePath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write capture file: %v", err)
	}

	var stdout bytes.Buffer
	d := New(loadDefaults(t), Options{Mode: ModeReplay, ReplayPath: capturePath, Stdout: &stdout})

	if err := d.Start(); err != nil {
		t.Fatalf("failed to start daemon: %v", err)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- d.Run()
	}()

	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("daemon.Run() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish within timeout")
	}

	out := stdout.String()
	for _, want := range []string{
		"From: !4e66636c",
		"Hello mesh network!",
		"STATISTICS",
		"Total packets: 1\n",
		"Skipped lines: 1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	snap := d.Stats().Snapshot()
	if snap.Packets != 1 || snap.Plaintext != 1 {
		t.Errorf("unexpected statistics: %+v", snap)
	}
}

func TestDaemon_ReplayStdin(t *testing.T) {
	in := strings.NewReader(fmt.Sprintf("1.5\t%s\n", hex.EncodeToString(helloPacket())))
	var stdout bytes.Buffer

	cfg := loadDefaults(t)
	cfg.Output.Verbose = true
	d := New(cfg, Options{Mode: ModeReplay, ReplayPath: "-", Stdin: in, Stdout: &stdout})
	if err := d.Start(); err != nil {
		t.Fatalf("failed to start daemon: %v", err)
	}
	if err := d.Run(); err != nil {
		t.Fatalf("daemon.Run() returned error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Source: replay") {
		t.Errorf("verbose output missing replay source:\n%s", out)
	}
	if !strings.Contains(out, "RAW PACKET DATA:") {
		t.Errorf("verbose output missing hex dump:\n%s", out)
	}
}

func TestDaemon_StartFailsOnMissingReplayPath(t *testing.T) {
	d := New(loadDefaults(t), Options{Mode: ModeReplay, ReplayPath: filepath.Join(t.TempDir(), "missing.tsv")})
	if err := d.Start(); err == nil {
		t.Fatal("expected start to fail for a missing capture file")
	}
}

func TestDaemon_StartFailsOnBadCaptureDir(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := loadDefaults(t)
	cfg.Capture.Dir = filepath.Join(blocker, "captures")
	d := New(cfg, Options{Mode: ModeMonitor})
	if err := d.Start(); err == nil {
		d.Stop()
		t.Fatal("expected start to fail when the capture dir cannot be created")
	}
}

func TestDaemon_StartFailsOnUnwritableCaptureFile(t *testing.T) {
	captureDir := t.TempDir()
	dayFile := filepath.Join(captureDir, time.Now().UTC().Format(time.DateOnly)+".tsv")
	if err := os.Mkdir(dayFile, 0755); err != nil {
		t.Fatal(err)
	}

	cfg := loadDefaults(t)
	cfg.Capture.Dir = captureDir
	d := New(cfg, Options{Mode: ModeMonitor})
	err := d.Start()
	if err == nil {
		d.Stop()
		t.Fatal("expected start to fail when today's capture file cannot be opened")
	}
	if !strings.Contains(err.Error(), "open capture file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCapturerSelection(t *testing.T) {
	tests := []struct {
		mode Mode
		path string
		want string
	}{
		{ModeMonitor, "", "multicast"},
		{ModeReplay, "", "replay"},
		{ModeReplay, "captures/", "replay"},
		{ModeReplay, "mesh.pcap", "pcap"},
		{ModeReplay, "MESH.PCAPNG", "pcap"},
	}
	for _, tt := range tests {
		d := New(loadDefaults(t), Options{Mode: tt.mode, ReplayPath: tt.path})
		if got, _ := d.capturerConfig(); got != tt.want {
			t.Errorf("capturer for %v %q = %s, want %s", tt.mode, tt.path, got, tt.want)
		}
	}
}

func TestBuildKeyring(t *testing.T) {
	ring, err := BuildKeyring(config.KeyringConfig{
		Channels: []config.ChannelConfig{{Name: "Hiking", PSK: "AQ=="}},
		Variants: false,
	})
	if err != nil {
		t.Fatalf("BuildKeyring failed: %v", err)
	}
	if got, want := len(ring.Named()), len(keyring.DefaultChannels())+1; got != want {
		t.Errorf("named keys = %d, want %d", got, want)
	}
	if len(ring.Variants()) != 0 {
		t.Errorf("expected no variants, got %d", len(ring.Variants()))
	}

	channelsFile := filepath.Join(t.TempDir(), "channels.yml")
	if err := os.WriteFile(channelsFile, []byte("channels:\n  - name: Base\n    psk: AQ==\n"), 0644); err != nil {
		t.Fatal(err)
	}
	ring, err = BuildKeyring(config.KeyringConfig{ChannelsFile: channelsFile, Variants: true})
	if err != nil {
		t.Fatalf("BuildKeyring with file failed: %v", err)
	}
	if len(ring.Variants()) != 256 {
		t.Errorf("variants = %d, want 256", len(ring.Variants()))
	}

	if _, err := BuildKeyring(config.KeyringConfig{ChannelsFile: filepath.Join(t.TempDir(), "none.yml")}); err == nil {
		t.Error("expected error for missing channels file")
	}
}
