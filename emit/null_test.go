package emit

import (
	"context"
	"testing"
)

func TestNullEmitterDiscardsEverything(t *testing.T) {
	n := NewNullEmitter()
	n.Emit(Event{WorkflowID: "wf-1"})
	if err := n.EmitBatch(context.Background(), []Event{{WorkflowID: "wf-1"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := n.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
