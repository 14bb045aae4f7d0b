// Package registry maps stable function keys to the handlers the engine
// dispatches to. Tasks persist only the key, never the code, so a process
// must register its handlers before the engine starts polling.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler executes one task invocation. The raw arguments are whatever blob
// the caller serialized at registration time; the returned value is
// serialized into the result store for result bearing tasks.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Registry holds the key to handler mapping.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a key. Registering the same key twice is a
// programming error and rejected.
func (r *Registry) Register(key string, h Handler) error {
	if key == "" {
		return fmt.Errorf("empty function key")
	}
	if h == nil {
		return fmt.Errorf("nil handler for key %q", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[key]; ok {
		return fmt.Errorf("key %q already registered", key)
	}
	r.handlers[key] = h
	return nil
}

// Lookup resolves a key into its handler.
func (r *Registry) Lookup(key string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[key]
	if !ok {
		return nil, fmt.Errorf("key %q is not registered", key)
	}
	return h, nil
}

// Registered reports whether a key has a handler bound to it.
func (r *Registry) Registered(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[key]
	return ok
}
