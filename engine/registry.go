package engine

import (
	"context"
	"sync"

	"github.com/nodegraft/durableflow/durableerr"
)

// Handler is a registered bytes-to-bytes function a workflow body invokes
// through Context.Call. Handlers see already-decoded request bytes and
// return already-encoded response bytes; the Codec used to get there lives
// at the workflow-body call site, not in the registry (spec §9).
type Handler func(ctx context.Context, request []byte) ([]byte, error)

// Registry is the function registry of spec §4.4: "register(name, handler)
// installs a bytes → bytes handler keyed by name." It is safe for
// concurrent Register and Call.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs handler under name, replacing any existing handler with
// that name.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Call invokes the handler registered under name, or returns
// durableerr.ErrHandlerNotFound if none was registered.
func (r *Registry) Call(ctx context.Context, name string, request []byte) ([]byte, error) {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, durableerr.ErrHandlerNotFound
	}
	return handler(ctx, request)
}
