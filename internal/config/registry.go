package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/voicenav/pkg/dom"
)

// ErrBackendNotRegistered is returned by [Registry.Create] when no factory has
// been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: backend not registered")

// BackendFactory opens a page backend from its configuration.
type BackendFactory func(ctx context.Context, cfg BrowserConfig) (dom.Backend, error)

// Registry maps backend names to their factories. It is safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	backends map[BackendName]BackendFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{backends: make(map[BackendName]BackendFactory)}
}

// Register registers factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) Register(name BackendName, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = factory
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []BackendName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]BackendName, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Create opens the backend selected by cfg.Backend, defaulting to
// [BackendRod]. Returns [ErrBackendNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) Create(ctx context.Context, cfg BrowserConfig) (dom.Backend, error) {
	name := cfg.Backend
	if name == "" {
		name = BackendRod
	}
	r.mu.RLock()
	factory, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, name)
	}
	b, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: open backend %q: %w", name, err)
	}
	return b, nil
}
