package remote

import (
	"context"
	"testing"
	"time"

	"github.com/nodegraft/durableflow/cluster/membership"
	"github.com/nodegraft/durableflow/cluster/ring"
	"github.com/nodegraft/durableflow/cluster/transport"
	"github.com/nodegraft/durableflow/emit"
	"github.com/nodegraft/durableflow/engine"
	"github.com/nodegraft/durableflow/persist"
	"github.com/nodegraft/durableflow/store"
)

type testNode struct {
	self     membership.NodeInfo
	engine   *engine.Engine
	executor *Executor
}

// newTestCluster wires two nodes sharing one InMemory transport, one
// Membership table (both nodes present, both Alive) and one Ring built from
// that membership, so Owner(key) route deterministically to whichever of
// "node-a"/"node-b" the ring assigns.
func newTestCluster(t *testing.T) (nodeA, nodeB testNode) {
	t.Helper()
	tr := transport.NewInMemory()

	selfA := membership.NodeInfo{NodeID: "node-a", Address: "node-a", State: membership.Alive}
	selfB := membership.NodeInfo{NodeID: "node-b", Address: "node-b", State: membership.Alive}

	mA := membership.New(selfA)
	mA.Update(selfB)
	rA := ring.New(8)
	rA.Rebuild(mA.All())

	mB := membership.New(selfB)
	mB.Update(selfA)
	rB := ring.New(8)
	rB.Rebuild(mB.All())

	makeEngine := func() *engine.Engine {
		kv := store.NewMemStore()
		journal := persist.NewJournal(kv)
		state := persist.NewState(kv)
		workflows := persist.NewWorkflow(kv)
		timers := persist.NewTimerStore(kv)
		registry := engine.NewRegistry()
		return engine.New(journal, state, workflows, timers, registry, emit.NewNullEmitter(), nil)
	}

	engA := makeEngine()
	engB := makeEngine()

	xA := New(selfA, rA, mA, tr, engA, 2*time.Second)
	xB := New(selfB, rB, mB, tr, engB, 2*time.Second)
	if err := xA.Serve(); err != nil {
		t.Fatalf("Serve node-a: %v", err)
	}
	if err := xB.Serve(); err != nil {
		t.Fatalf("Serve node-b: %v", err)
	}

	return testNode{self: selfA, engine: engA, executor: xA}, testNode{self: selfB, engine: engB, executor: xB}
}

// ownerOf finds which of the two test nodes currently owns key according to
// its own ring view (both rings were built from the same membership, so they
// agree), to let tests assert "submitted via the non-owner, executed on the
// owner" without hardcoding which physical node wins for a given key.
func ownerOf(t *testing.T, nodeA, nodeB testNode, key string) (owner, other testNode) {
	t.Helper()
	id, ok := nodeA.executor.ring.Owner(key)
	if !ok {
		t.Fatalf("ring is empty")
	}
	if id == nodeA.self.NodeID {
		return nodeA, nodeB
	}
	return nodeB, nodeA
}

func TestSubmitWorkflowRoutesToOwnerAndRunsThere(t *testing.T) {
	nodeA, nodeB := newTestCluster(t)
	owner, other := ownerOf(t, nodeA, nodeB, "wf-1")

	body := func(ctx *engine.Context, input []byte) ([]byte, error) {
		return []byte("ran"), nil
	}
	nodeA.engine.RegisterWorkflow("echo", body)
	nodeB.engine.RegisterWorkflow("echo", body)

	out, err := other.executor.SubmitWorkflow(context.Background(), "echo", "wf-1", nil)
	if err != nil {
		t.Fatalf("SubmitWorkflow via non-owner: %v", err)
	}
	if string(out) != "ran" {
		t.Fatalf("output = %q, want %q", out, "ran")
	}

	meta, err := owner.engine.Status(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("owner does not have the workflow record: %v", err)
	}
	if meta.Status != persist.StatusCompleted {
		t.Fatalf("owner status = %v, want Completed", meta.Status)
	}

	if _, err := other.engine.Status(context.Background(), "wf-1"); err == nil {
		t.Fatalf("expected the non-owner node to have no local record of wf-1")
	}
}

func TestGetStatusRoutesToOwner(t *testing.T) {
	nodeA, nodeB := newTestCluster(t)
	owner, other := ownerOf(t, nodeA, nodeB, "wf-2")

	owner.engine.RegisterWorkflow("echo", func(ctx *engine.Context, input []byte) ([]byte, error) {
		return []byte("done"), nil
	})
	other.engine.RegisterWorkflow("echo", func(ctx *engine.Context, input []byte) ([]byte, error) {
		return []byte("done"), nil
	})

	if _, err := owner.executor.SubmitWorkflow(context.Background(), "echo", "wf-2", nil); err != nil {
		t.Fatalf("SubmitWorkflow: %v", err)
	}

	status, output, err := other.executor.GetStatus(context.Background(), "wf-2")
	if err != nil {
		t.Fatalf("GetStatus via non-owner: %v", err)
	}
	if status != persist.StatusCompleted || string(output) != "done" {
		t.Fatalf("GetStatus = (%v, %q)", status, output)
	}
}

func TestCancelWorkflowRoutesToOwner(t *testing.T) {
	nodeA, nodeB := newTestCluster(t)
	owner, other := ownerOf(t, nodeA, nodeB, "wf-3")
	ctx := context.Background()

	blocker := func(ctx *engine.Context, input []byte) ([]byte, error) {
		return ctx.AwaitSignal("never_comes")
	}
	owner.engine.RegisterWorkflow("blocks_forever", blocker)
	other.engine.RegisterWorkflow("blocks_forever", blocker)

	go func() { _, _ = owner.executor.SubmitWorkflow(context.Background(), "blocks_forever", "wf-3", nil) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if status, _, err := owner.executor.GetStatus(ctx, "wf-3"); err == nil && status == persist.StatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for wf-3 to start running")
		}
		time.Sleep(time.Millisecond)
	}

	if err := other.executor.CancelWorkflow(ctx, "wf-3"); err != nil {
		t.Fatalf("CancelWorkflow via non-owner: %v", err)
	}

	status, _, err := owner.executor.GetStatus(ctx, "wf-3")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status != persist.StatusCancelled {
		t.Fatalf("status = %v, want Cancelled", status)
	}
}

func TestCallFunctionRoutesToOwner(t *testing.T) {
	nodeA, nodeB := newTestCluster(t)
	owner, other := ownerOf(t, nodeA, nodeB, "routing-key")

	owner.engine.Registry().Register("greet", func(ctx context.Context, request []byte) ([]byte, error) {
		return append([]byte("hello, "), request...), nil
	})

	out, err := other.executor.CallFunction(context.Background(), "routing-key", "greet", []byte("world"))
	if err != nil {
		t.Fatalf("CallFunction via non-owner: %v", err)
	}
	if string(out) != "hello, world" {
		t.Fatalf("output = %q", out)
	}
}
