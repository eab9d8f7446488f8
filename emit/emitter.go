package emit

import "context"

// Emitter receives observability events from the runtime and cluster
// layers. Implementations must be non-blocking and safe for concurrent use
// — the same contract as the teacher's graph/emit.Emitter, since the
// reasons (don't slow down the caller, don't crash on backend failure)
// don't change when the events describe workflows instead of graph nodes.
type Emitter interface {
	// Emit sends a single event. Must not block or panic.
	Emit(event Event)

	// EmitBatch sends multiple events in submission order.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all buffered events are delivered or ctx expires.
	Flush(ctx context.Context) error
}
