package emit

import (
	"context"
	"sync"
)

// BufferedEmitter stores events in memory, organized by WorkflowID, for
// tests and history queries. Grounded on the teacher's BufferedEmitter
// (graph/emit/buffered.go), which organizes by RunID the same way.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // workflowID -> events; "" holds cluster-level events
}

// NewBufferedEmitter returns an Emitter that keeps every event in memory.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.WorkflowID] = append(b.events[event.WorkflowID], event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range events {
		b.events[e.WorkflowID] = append(b.events[e.WorkflowID], e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns a copy of every event recorded for workflowID, in
// emission order.
func (b *BufferedEmitter) History(workflowID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[workflowID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// Clear removes buffered events for workflowID, or every event if
// workflowID is empty.
func (b *BufferedEmitter) Clear(workflowID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if workflowID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, workflowID)
}
