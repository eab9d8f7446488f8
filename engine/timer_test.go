package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/emit"
	"github.com/nodegraft/durableflow/persist"
	"github.com/nodegraft/durableflow/store"
)

func TestSleepFiresViaTimerSweeper(t *testing.T) {
	kv := store.NewMemStore()
	journal := persist.NewJournal(kv)
	state := persist.NewState(kv)
	workflows := persist.NewWorkflow(kv)
	timers := persist.NewTimerStore(kv)
	registry := NewRegistry()

	e := New(journal, state, workflows, timers, registry, emit.NewNullEmitter(), nil, WithTimerPollInterval(10*time.Millisecond))
	e.RegisterWorkflow("napper", func(ctx *Context, input []byte) ([]byte, error) {
		if err := ctx.Sleep(20 * time.Millisecond); err != nil {
			return nil, err
		}
		return []byte("woke"), nil
	})

	sweepCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := e.StartTimerSweeper(sweepCtx)
	defer stop()

	out, err := e.Submit(context.Background(), "napper", "wf-1", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if string(out) != "woke" {
		t.Fatalf("output = %q, want %q", out, "woke")
	}
}

func TestScheduleTimerReplaysWithoutWaiting(t *testing.T) {
	kv := store.NewMemStore()
	journal := persist.NewJournal(kv)
	state := persist.NewState(kv)
	workflows := persist.NewWorkflow(kv)
	timers := persist.NewTimerStore(kv)

	registry1 := NewRegistry()
	engine1 := New(journal, state, workflows, timers, registry1, emit.NewNullEmitter(), nil, WithTimerPollInterval(5*time.Millisecond))
	engine1.RegisterWorkflow("napper", func(ctx *Context, input []byte) ([]byte, error) {
		if err := ctx.Sleep(5 * time.Millisecond); err != nil {
			return nil, err
		}
		// A storage-classified error leaves the workflow Running, as a
		// crash would, so the Resume below re-executes it.
		return nil, fmt.Errorf("simulated crash after waking: %w", durableerr.ErrStorageError)
	})
	sweepCtx, cancel := context.WithCancel(context.Background())
	stop := engine1.StartTimerSweeper(sweepCtx)
	if _, err := engine1.Submit(context.Background(), "napper", "wf-1", nil); err == nil {
		t.Fatalf("expected first execution to fail")
	}
	stop()
	cancel()

	// A brand new Engine replaying the same journal must return immediately
	// without creating or waiting on a new timer: TimerScheduled and
	// TimerFired are both already completed entries, so this Sleep call
	// matches them both in replay mode and never touches c.wake.
	registry2 := NewRegistry()
	engine2 := New(journal, state, workflows, timers, registry2, emit.NewNullEmitter(), nil)
	engine2.RegisterWorkflow("napper", func(ctx *Context, input []byte) ([]byte, error) {
		if err := ctx.Sleep(5 * time.Millisecond); err != nil {
			return nil, err
		}
		return []byte("first"), nil
	})

	out, err := engine2.Resume(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if string(out) != "first" {
		t.Fatalf("output = %q, want %q", out, "first")
	}
}
