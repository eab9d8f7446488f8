package engine

import (
	"context"
	"time"

	"github.com/nodegraft/durableflow/persist"
)

// StartTimerSweeper launches a background goroutine that polls for due
// timers and wakes their owning workflows, resolving spec.md's open
// question of how timers get fired: a single bounded sweeper rather than a
// goroutine per timer, so the number of background goroutines stays
// constant regardless of how many timers are outstanding. Call the returned
// stop function to shut it down.
func (e *Engine) StartTimerSweeper(ctx context.Context) (stop func()) {
	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(e.cfg.timerPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				e.sweepOnceNow(ctx)
			}
		}
	}()
	return func() { close(stopCh) }
}

func (e *Engine) sweepOnceNow(ctx context.Context) {
	now := time.Now().UnixMilli()
	ready, err := e.timers.FindReady(ctx, now, e.cfg.timerBatchSize)
	if err != nil {
		e.emitter.Emit(emitErrorEvent("timer_sweep_failed", err))
		return
	}
	for _, timer := range ready {
		e.fireTimer(ctx, timer)
	}
}

func (e *Engine) fireTimer(ctx context.Context, timer persist.Timer) {
	entry, err := e.journal.Get(ctx, timer.WorkflowID, timer.Sequence)
	if err != nil {
		return
	}
	signal := wakeSignal{kind: persist.KindTimerFired, name: entry.Name}
	if e.send(timer.WorkflowID, signal) {
		_ = e.timers.Cancel(ctx, timer.FireTimeMs, timer.TimerID)
		return
	}
	// Nobody is actively blocked waiting (the owning execution is not
	// currently running on this node, likely after a restart). Leave the
	// timer in place and spawn a Resume: once its fresh Context registers a
	// waker, the next sweep tick will find the timer still ready and
	// deliver it successfully.
	go func() {
		_, _ = e.Resume(context.Background(), timer.WorkflowID)
	}()
}
