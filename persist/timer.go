package persist

import (
	"context"

	"github.com/nodegraft/durableflow/store"
)

// TimerStore is the typed facade over durable timers (spec §3.4, §4.3
// "Timer"). Timers are keyed by fire time so "find every timer due by now"
// is a single ascending prefix scan.
type TimerStore struct {
	kv store.Store
}

// NewTimerStore wraps kv with the timer facade.
func NewTimerStore(kv store.Store) *TimerStore {
	return &TimerStore{kv: kv}
}

// Schedule durably records timer, indexed under its fire time.
func (t *TimerStore) Schedule(ctx context.Context, timer Timer) error {
	data, err := timerCodec.Encode(timer)
	if err != nil {
		return storageErr("timer schedule", err)
	}
	key := store.TimerKey(timer.FireTimeMs, timer.TimerID)
	if err := t.kv.Put(ctx, key, data); err != nil {
		return storageErr("timer schedule", err)
	}
	return nil
}

// Cancel removes the timer with the given fire time and id. Cancelling an
// already-fired or unknown timer is not an error.
func (t *TimerStore) Cancel(ctx context.Context, fireTimeMs int64, timerID string) error {
	key := store.TimerKey(fireTimeMs, timerID)
	if err := t.kv.Delete(ctx, key); err != nil {
		return storageErr("timer cancel", err)
	}
	return nil
}

// FindReady returns up to limit timers whose fire time is <= nowMs, in
// ascending fire-time order.
func (t *TimerStore) FindReady(ctx context.Context, nowMs int64, limit int) ([]Timer, error) {
	iter, err := t.kv.ScanRange(ctx, store.TimerPrefix(), store.TimerUpperBound(nowMs))
	if err != nil {
		return nil, storageErr("timer find_ready", err)
	}
	defer iter.Close()

	var timers []Timer
	for iter.Next() {
		if limit > 0 && len(timers) >= limit {
			break
		}
		timer, err := timerCodec.Decode(iter.Entry().Value)
		if err != nil {
			return nil, storageErr("timer find_ready", err)
		}
		timers = append(timers, timer)
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr("timer find_ready", err)
	}
	return timers, nil
}

var timerCodec = JSONCodec[Timer]{}
