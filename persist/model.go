// Package persist provides typed facades over the embedded store: the
// journal, per-workflow state, workflow metadata, and durable timers
// (spec §4.3 "Node Storage"). Every facade speaks in store.Store bytes;
// typed payloads pass through the codec supplied at the call site.
package persist

import "time"

// JournalKind enumerates the externally observable operations spec §3.1
// recognizes.
type JournalKind string

const (
	KindCall           JournalKind = "Call"
	KindSideEffect     JournalKind = "SideEffect"
	KindStateSet       JournalKind = "StateSet"
	KindStateDelete    JournalKind = "StateDelete"
	KindTimerScheduled JournalKind = "TimerScheduled"
	KindTimerFired     JournalKind = "TimerFired"
	KindSignalReceived JournalKind = "SignalReceived"
)

// JournalEntry records one externally observable operation of a workflow
// execution (spec §3.1).
type JournalEntry struct {
	WorkflowID    string      `json:"workflow_id"`
	Sequence      uint64      `json:"sequence_number"`
	Kind          JournalKind `json:"kind"`
	Name          string      `json:"name"`
	InputPayload  []byte      `json:"input_payload,omitempty"`
	OutputPayload []byte      `json:"output_payload,omitempty"`
	Completed     bool        `json:"completed"`
}

// Status is a workflow's lifecycle state (spec §3.2).
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// WorkflowMeta is the durable metadata record for one workflow execution
// (spec §3.2).
type WorkflowMeta struct {
	WorkflowID   string    `json:"workflow_id"`
	WorkflowType string    `json:"workflow_type"`
	InputPayload []byte    `json:"input_payload,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Error        string    `json:"error,omitempty"`
	Output       []byte    `json:"output,omitempty"`
}

// Timer is a durable, fire-time-indexed timer (spec §3.4).
type Timer struct {
	TimerID    string `json:"timer_id"`
	WorkflowID string `json:"workflow_id"`
	Sequence   uint64 `json:"sequence_number"`
	FireTimeMs int64  `json:"fire_time_ms"`
}
