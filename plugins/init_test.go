package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/meshmon/pkg/plugin"
)

func TestBuiltinsRegistered(t *testing.T) {
	assert.Equal(t, []string{"multicast", "pcap", "replay"}, plugin.ListCapturers())
	assert.Equal(t, []string{"console", "kafka", "nats"}, plugin.ListReporters())

	for _, name := range plugin.ListCapturers() {
		factory, err := plugin.GetCapturerFactory(name)
		require.NoError(t, err)
		assert.Equal(t, name, factory().Name())
	}
	for _, name := range plugin.ListReporters() {
		factory, err := plugin.GetReporterFactory(name)
		require.NoError(t, err)
		assert.Equal(t, name, factory().Name())
	}
}
