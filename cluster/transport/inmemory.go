package transport

import (
	"context"
	"fmt"
	"sync"
)

// InMemory is a Transport that dispatches directly to registered handlers
// within the same process, for deterministic tests of gossip and remote
// execution without a real network.
type InMemory struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewInMemory returns an empty InMemory transport. Multiple components in
// the same test can share one instance to simulate a cluster of nodes, each
// Serve-ing under its own address.
func NewInMemory() *InMemory {
	return &InMemory{handlers: make(map[string]Handler)}
}

// Serve registers handler under address, replacing any prior registration.
func (t *InMemory) Serve(address string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[address] = handler
	return nil
}

// Send dispatches msg directly to the handler registered at address.
func (t *InMemory) Send(ctx context.Context, address string, msg Message) (Message, error) {
	t.mu.RLock()
	handler, ok := t.handlers[address]
	t.mu.RUnlock()
	if !ok {
		return Message{}, fmt.Errorf("transport: no handler registered at %q", address)
	}
	return handler(ctx, msg)
}

// Close removes every registered handler.
func (t *InMemory) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = make(map[string]Handler)
	return nil
}
