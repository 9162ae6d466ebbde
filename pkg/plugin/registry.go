package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/meshmon/internal/core"
)

// CapturerFactory creates a new Capturer instance.
type CapturerFactory func() Capturer

// ReporterFactory creates a new Reporter instance.
type ReporterFactory func() Reporter

// registry is a named factory table. Plugins register from init(), so
// registration mistakes panic.
type registry[F any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]F
}

func newRegistry[F any](kind string) *registry[F] {
	return &registry[F]{kind: kind, factories: make(map[string]F)}
}

func (r *registry[F]) register(name string, factory F, isNil bool) {
	if name == "" {
		panic(fmt.Sprintf("plugin: %s name must not be empty", r.kind))
	}
	if isNil {
		panic(fmt.Sprintf("plugin: nil %s factory for %q", r.kind, name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("plugin: %s %q registered twice", r.kind, name))
	}
	r.factories[name] = factory
}

func (r *registry[F]) get(name string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s %q", core.ErrPluginNotFound, r.kind, name)
	}
	return f, nil
}

func (r *registry[F]) list() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset removes every registration. Tests only.
func (r *registry[F]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]F)
}

var (
	capturerReg = newRegistry[CapturerFactory]("capturer")
	reporterReg = newRegistry[ReporterFactory]("reporter")
)

// RegisterCapturer registers a capturer factory under name.
func RegisterCapturer(name string, factory CapturerFactory) {
	capturerReg.register(name, factory, factory == nil)
}

// GetCapturerFactory looks up a capturer factory.
func GetCapturerFactory(name string) (CapturerFactory, error) {
	return capturerReg.get(name)
}

// ListCapturers returns the registered capturer names, sorted.
func ListCapturers() []string { return capturerReg.list() }

// RegisterReporter registers a reporter factory under name.
func RegisterReporter(name string, factory ReporterFactory) {
	reporterReg.register(name, factory, factory == nil)
}

// GetReporterFactory looks up a reporter factory.
func GetReporterFactory(name string) (ReporterFactory, error) {
	return reporterReg.get(name)
}

// ListReporters returns the registered reporter names, sorted.
func ListReporters() []string { return reporterReg.list() }
