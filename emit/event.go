// Package emit provides pluggable observability for the durable workflow
// runtime, adapted from the teacher's graph/emit package: the same Emitter
// capability interface, retargeted from per-node graph execution events to
// per-workflow journal, gossip, and ring events.
package emit

// Event is an observability event emitted by the runtime or cluster layer.
type Event struct {
	// WorkflowID identifies the workflow execution this event concerns.
	// Empty for cluster-level events (gossip, ring rebuilds).
	WorkflowID string

	// Sequence is the journal sequence number this event concerns. Events
	// that do not correspond to a journal entry (such as the engine's
	// execution start/end events) leave it 0.
	Sequence int64

	// Kind is a short machine-readable event category, e.g.
	// "journal_append", "journal_complete", "gossip_suspect", "ring_rebuild".
	Kind string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	Meta map[string]interface{}
}
