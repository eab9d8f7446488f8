package engine

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/persist"
)

// ScheduleTimer journals the intent to wake at fireAt under name, durably
// schedules the timer, and blocks until it fires (or replay finds it
// already fired). Two journal entries are involved, TimerScheduled and
// TimerFired, matching spec §3.1's kind enumeration.
func (c *Context) ScheduleTimer(name string, fireAt time.Time) error {
	scheduled, fresh, err := c.nextEntry(persist.KindTimerScheduled, name, encodeFireTime(fireAt))
	if err != nil {
		return err
	}
	if fresh || !scheduled.Completed {
		timerID := fmt.Sprintf("%s:%d", c.workflowID, scheduled.Sequence)
		timer := persist.Timer{
			TimerID:    timerID,
			WorkflowID: c.workflowID,
			Sequence:   scheduled.Sequence,
			FireTimeMs: fireAt.UnixMilli(),
		}
		if err := c.timers.Schedule(c.stdctx, timer); err != nil {
			return err
		}
		if err := c.complete(scheduled.Sequence, nil); err != nil {
			return err
		}
	}

	fired, freshFired, err := c.nextEntry(persist.KindTimerFired, name, nil)
	if err != nil {
		return err
	}
	if !freshFired {
		return nil // already replayed as fired
	}

	select {
	case signal := <-c.wake:
		if signal.kind != persist.KindTimerFired || signal.name != name {
			return durableerr.NewWorkflowError(durableerr.KindNonDeterministic, c.workflowID,
				fmt.Sprintf("woke for %s %q while awaiting timer %q", signal.kind, signal.name, name),
				durableerr.ErrNonDeterministicReplay)
		}
		return c.complete(fired.Sequence, nil)
	case <-c.stdctx.Done():
		return durableerr.ErrCancelled
	}
}

// Sleep blocks the workflow body until duration has elapsed, implemented as
// an auto-named durable timer (spec §4.4 "sleep(duration)"). The name is
// derived from a per-execution call counter rather than the journal
// sequence number, so it comes out identical on replay and on the original
// live run regardless of how much of the journal has already been replayed.
func (c *Context) Sleep(duration time.Duration) error {
	name := fmt.Sprintf("sleep@%d", c.sleepCalls)
	c.sleepCalls++
	return c.ScheduleTimer(name, time.Now().Add(duration))
}

func encodeFireTime(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixMilli()))
	return buf
}
