package pipeline

import (
	"firestige.xyz/meshmon/internal/keyring"
	"firestige.xyz/meshmon/pkg/plugin"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			BufferSize: 1024, // default
		},
	}
}

// WithCapturer sets the packet capturer.
func (b *Builder) WithCapturer(c plugin.Capturer) *Builder {
	b.config.Capturer = c
	return b
}

// WithKeyring sets the key ring used for trial decryption.
func (b *Builder) WithKeyring(ring *keyring.Ring) *Builder {
	b.config.Processor = NewProcessor(ring)
	return b
}

// WithRecorder enables capture of every inbound datagram.
func (b *Builder) WithRecorder(r Recorder) *Builder {
	b.config.Recorder = r
	return b
}

// WithReporters sets the reporter chain.
func (b *Builder) WithReporters(reporters ...plugin.Reporter) *Builder {
	b.config.Reporters = reporters
	return b
}

// WithWorkers sets the decode worker count.
func (b *Builder) WithWorkers(n int) *Builder {
	b.config.Workers = n
	return b
}

// WithBufferSize sets the queue depth between stages.
func (b *Builder) WithBufferSize(size int) *Builder {
	b.config.BufferSize = size
	return b
}

// WithStats shares a statistics object with the caller.
func (b *Builder) WithStats(s *Stats) *Builder {
	b.config.Stats = s
	return b
}

// Build creates the pipeline. The default key ring is used when none was
// given.
func (b *Builder) Build() *Pipeline {
	if b.config.Processor == nil {
		b.config.Processor = NewProcessor(keyring.Default())
	}
	return New(b.config)
}
