// Package runtime selects the Python execution backend by name.
package runtime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/WinMir22/pokolenie-python/internal/ports"
)

// Backend names understood by the registry.
const (
	BackendProcess = "process"
	BackendDocker  = "docker"
)

// Factory constructs a runner for one backend. It is only invoked when the
// backend is opened, so unused backends never touch their dependencies.
type Factory func() (ports.PythonRunner, error)

// Registry maps backend names to runner factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a backend. Registering the same name twice is an error.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("runtime backend missing name")
	}
	if factory == nil {
		return fmt.Errorf("runtime backend %q has nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("duplicate runtime backend %q", name)
	}
	r.factories[name] = factory
	return nil
}

// Open constructs the runner registered under name.
func (r *Registry) Open(name string) (ports.PythonRunner, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown runtime backend %q (available: %v)", name, r.Backends())
	}

	runner, err := factory()
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", name, err)
	}
	return runner, nil
}

// Backends lists the registered backend names in sorted order.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
