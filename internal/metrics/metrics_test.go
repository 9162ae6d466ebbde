package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/meshmon/internal/core"
	"firestige.xyz/meshmon/internal/format"
)

func TestOutcome(t *testing.T) {
	env := &core.Envelope{}
	tests := []struct {
		name string
		rec  *format.Record
		want string
	}{
		{"malformed", &format.Record{}, "malformed"},
		{"plaintext", &format.Record{Envelope: env}, "plaintext"},
		{"decrypted", &format.Record{Envelope: env, Decryption: core.DecryptionResult{Status: core.DecryptSucceeded}}, "decrypted"},
		{"exhausted", &format.Record{Envelope: env, Decryption: core.DecryptionResult{Status: core.DecryptExhausted}}, "undecrypted"},
		{"pki", &format.Record{Envelope: env, Decryption: core.DecryptionResult{Status: core.DecryptSkippedPKI}}, "pki"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.rec))
		})
	}
}

func TestObserve(t *testing.T) {
	decrypted := PacketsTotal.WithLabelValues("decrypted")
	before := testutil.ToFloat64(decrypted)
	keyBefore := testutil.ToFloat64(DecryptKeysTotal.WithLabelValues("test key"))
	portBefore := testutil.ToFloat64(PortPacketsTotal.WithLabelValues("TEXT_MESSAGE_APP"))

	Observe(&format.Record{
		Packet:     core.RawPacket{Data: make([]byte, 10)},
		Envelope:   &core.Envelope{},
		Decryption: core.DecryptionResult{Status: core.DecryptSucceeded, KeyLabel: "test key", Attempt: 1, Tried: 1},
		Data:       &core.Data{PortNum: 1},
	})

	assert.Equal(t, before+1, testutil.ToFloat64(decrypted))
	assert.Equal(t, keyBefore+1, testutil.ToFloat64(DecryptKeysTotal.WithLabelValues("test key")))
	assert.Equal(t, portBefore+1, testutil.ToFloat64(PortPacketsTotal.WithLabelValues("TEXT_MESSAGE_APP")))
}

func TestServerRoutes(t *testing.T) {
	s := NewServer("127.0.0.1:0", "", func() any {
		return map[string]uint64{"packets": 3}
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	var stats map[string]uint64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, uint64(3), stats["packets"])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	resp, err = http.Post(ts.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", "/metrics", nil)
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop(context.Background()))
}
