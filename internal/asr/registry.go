package asr

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownProvider indicates a provider name with no registered
// factory.
var ErrUnknownProvider = errors.New("unknown provider")

// Factory constructs a configured adapter instance.
type Factory func() (Adapter, error)

// Registry maps provider names to adapter factories. Provider selection
// is a configuration-time choice: the caller registers the factories its
// config enables and builds exactly one adapter per session owner.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given provider name. Registering the
// same name twice is an error.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds an adapter for the named provider.
func (r *Registry) New(name string) (Adapter, error) {
	r.mu.RLock()
	f, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownProvider, name, r.Names())
	}
	return f()
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
