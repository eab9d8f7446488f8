package engine

import (
	"context"
	"fmt"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/metrics"
	"github.com/nodegraft/durableflow/persist"
)

// Context is the journal cursor a workflow body executes against: a replay
// position into the entries already durable, plus a live-append tail once
// that position runs out (spec §4.4, §9 "context as effect handle"). The
// same Context value serves both replay mode and live mode; callers never
// need to know which mode they are in.
type Context struct {
	stdctx       context.Context
	workflowID   string
	workflowType string

	journal  *persist.Journal
	state    *persist.State
	timers   *persist.TimerStore
	registry *Registry
	metrics  *metrics.Metrics // may be nil if no metrics collector is configured

	entries []persist.JournalEntry // durable log as of execute() start
	cursor  int                    // index of the next entry to match against
	nextSeq uint64                 // next sequence number to assign once entries is exhausted

	sleepCalls int // count of Sleep calls so far this execution, for deterministic auto-naming

	wake <-chan wakeSignal // delivers timer-fired / signal-received notifications from the owning Engine
}

// wakeSignal is what the Engine delivers to a blocked Context to let it
// durably record an asynchronous event (a timer firing, a signal arriving)
// under the workflow's own execution thread, preserving the "at most one
// thread touches a workflow's journal" invariant.
type wakeSignal struct {
	kind    persist.JournalKind
	name    string
	payload []byte
}

// WorkflowID returns the id of the workflow this Context executes.
func (c *Context) WorkflowID() string { return c.workflowID }

// nextEntry matches the operation (kind, name) against the durable log at
// the current cursor position, or appends a fresh uncompleted entry once the
// log is exhausted. It returns the matched or newly-appended entry and
// whether it was freshly appended (meaning no effect has run for it yet).
func (c *Context) nextEntry(kind persist.JournalKind, name string, input []byte) (persist.JournalEntry, bool, error) {
	if c.cursor < len(c.entries) {
		candidate := c.entries[c.cursor]
		if candidate.Kind != kind || candidate.Name != name {
			if c.metrics != nil {
				c.metrics.IncrementNonDeterministic(c.workflowType)
			}
			return persist.JournalEntry{}, false, durableerr.NewWorkflowError(
				durableerr.KindNonDeterministic, c.workflowID,
				fmt.Sprintf("replay expected %s %q at sequence %d, workflow body reached %s %q",
					candidate.Kind, candidate.Name, candidate.Sequence, kind, name),
				durableerr.ErrNonDeterministicReplay,
			)
		}
		c.cursor++
		if c.metrics != nil {
			c.metrics.IncrementReplays(c.workflowType)
		}
		return candidate, false, nil
	}

	seq := c.nextSeq
	c.nextSeq++
	entry := persist.JournalEntry{
		WorkflowID:   c.workflowID,
		Sequence:     seq,
		Kind:         kind,
		Name:         name,
		InputPayload: input,
	}
	if err := c.journal.Append(c.stdctx, entry); err != nil {
		return persist.JournalEntry{}, false, fmt.Errorf("engine: journal append: %w", err)
	}
	return entry, true, nil
}

func (c *Context) complete(seq uint64, output []byte) error {
	if err := c.journal.Complete(c.stdctx, c.workflowID, seq, output); err != nil {
		return fmt.Errorf("engine: journal complete: %w", err)
	}
	return nil
}

// Call invokes the handler registered under name with request, journaling
// the invocation so replay returns the recorded response without invoking
// the handler again.
func (c *Context) Call(name string, request []byte) ([]byte, error) {
	entry, fresh, err := c.nextEntry(persist.KindCall, name, request)
	if err != nil {
		return nil, err
	}
	if !fresh && entry.Completed {
		return entry.OutputPayload, nil
	}
	output, err := c.registry.Call(c.stdctx, name, request)
	if err != nil {
		return nil, err
	}
	if err := c.complete(entry.Sequence, output); err != nil {
		return nil, err
	}
	return output, nil
}

// SideEffect runs thunk exactly once across every execution of this
// workflow: the first execution to reach name runs thunk and journals its
// result, every later replay returns the journaled result without running
// thunk again.
func (c *Context) SideEffect(name string, thunk func() ([]byte, error)) ([]byte, error) {
	entry, fresh, err := c.nextEntry(persist.KindSideEffect, name, nil)
	if err != nil {
		return nil, err
	}
	if !fresh && entry.Completed {
		return entry.OutputPayload, nil
	}
	output, err := thunk()
	if err != nil {
		return nil, err
	}
	if err := c.complete(entry.Sequence, output); err != nil {
		return nil, err
	}
	return output, nil
}

// SetState durably sets key to value, both in the per-workflow state store
// and the journal. During replay of a completed entry the write is skipped:
// state.Set already ran the first time this sequence number was live.
func (c *Context) SetState(key string, value []byte) error {
	entry, fresh, err := c.nextEntry(persist.KindStateSet, key, value)
	if err != nil {
		return err
	}
	if !fresh && entry.Completed {
		return nil
	}
	if err := c.state.Set(c.stdctx, c.workflowID, key, value); err != nil {
		return err
	}
	return c.complete(entry.Sequence, nil)
}

// DeleteState durably removes key.
func (c *Context) DeleteState(key string) error {
	entry, fresh, err := c.nextEntry(persist.KindStateDelete, key, nil)
	if err != nil {
		return err
	}
	if !fresh && entry.Completed {
		return nil
	}
	if err := c.state.Delete(c.stdctx, c.workflowID, key); err != nil {
		return err
	}
	return c.complete(entry.Sequence, nil)
}

// GetState reads the current value of key. Unlike the other operations this
// is not itself journaled: every prior SetState/DeleteState that could have
// affected key has already been journaled and replayed by the time the
// workflow body reaches a GetState call, so the state store's current value
// is already deterministic given the journal prefix replayed so far.
func (c *Context) GetState(key string) ([]byte, error) {
	value, err := c.state.Get(c.stdctx, c.workflowID, key)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// AwaitSignal blocks until a signal named name is delivered to this workflow
// via Engine.Signal, returning its payload. Journaled as SignalReceived so
// replay returns the recorded payload without waiting again.
func (c *Context) AwaitSignal(name string) ([]byte, error) {
	entry, fresh, err := c.nextEntry(persist.KindSignalReceived, name, nil)
	if err != nil {
		return nil, err
	}
	if !fresh && entry.Completed {
		return entry.OutputPayload, nil
	}

	select {
	case signal := <-c.wake:
		if signal.kind != persist.KindSignalReceived || signal.name != name {
			return nil, durableerr.NewWorkflowError(durableerr.KindNonDeterministic, c.workflowID,
				fmt.Sprintf("woke for %s %q while awaiting signal %q", signal.kind, signal.name, name),
				durableerr.ErrNonDeterministicReplay)
		}
		if err := c.complete(entry.Sequence, signal.payload); err != nil {
			return nil, err
		}
		return signal.payload, nil
	case <-c.stdctx.Done():
		return nil, durableerr.ErrCancelled
	}
}
