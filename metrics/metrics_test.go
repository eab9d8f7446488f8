package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordWorkflowLatencyObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordWorkflowLatency("order", "completed", 42*time.Millisecond)

	count := testutil.CollectAndCount(reg, "durableflow_workflow_duration_ms")
	if count == 0 {
		t.Fatalf("expected workflow_duration_ms to have been observed")
	}
}

func TestIncrementReplaysAndNonDeterministic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementReplays("order")
	m.IncrementReplays("order")
	m.IncrementNonDeterministic("order")

	if got := testutil.ToFloat64(m.replaysTotal.WithLabelValues("order")); got != 2 {
		t.Fatalf("replaysTotal = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.nonDeterministic.WithLabelValues("order")); got != 1 {
		t.Fatalf("nonDeterministic = %v, want 1", got)
	}
}

func TestDisableSuppressesRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Disable()

	m.IncrementRingChurn()
	if got := testutil.ToFloat64(m.ringChurnTotal); got != 0 {
		t.Fatalf("ringChurnTotal = %v, want 0 while disabled", got)
	}

	m.Enable()
	m.IncrementRingChurn()
	if got := testutil.ToFloat64(m.ringChurnTotal); got != 1 {
		t.Fatalf("ringChurnTotal = %v, want 1 after Enable", got)
	}
}

func TestGaugesSetDirectly(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.UpdateInflightWorkflows(3)
	m.UpdateQueueDepth(7)

	if got := testutil.ToFloat64(m.inflightWorkflows); got != 3 {
		t.Fatalf("inflightWorkflows = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.queueDepth); got != 7 {
		t.Fatalf("queueDepth = %v, want 7", got)
	}
}
