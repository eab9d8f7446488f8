package emit

import (
	"context"
	"testing"
)

func TestMultiEmitterFansOutToEveryEmitter(t *testing.T) {
	a := NewBufferedEmitter()
	b := NewBufferedEmitter()
	m := NewMultiEmitter(a, b)

	m.Emit(Event{WorkflowID: "wf-1", Msg: "journal_append"})

	if got := len(a.History("wf-1")); got != 1 {
		t.Fatalf("a history = %d, want 1", got)
	}
	if got := len(b.History("wf-1")); got != 1 {
		t.Fatalf("b history = %d, want 1", got)
	}
}

func TestMultiEmitterEmitBatchAndFlush(t *testing.T) {
	a := NewBufferedEmitter()
	b := NewBufferedEmitter()
	m := NewMultiEmitter(a, b)

	events := []Event{{WorkflowID: "wf-1", Msg: "x"}, {WorkflowID: "wf-1", Msg: "y"}}
	if err := m.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if got := len(a.History("wf-1")); got != 2 {
		t.Fatalf("a history = %d, want 2", got)
	}
	if err := m.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
