package persist

import (
	"context"
	"strings"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/store"
)

// State is the typed facade over a workflow's per-workflow key/value state
// (spec §3.3, §4.3 "State"). Values are opaque bytes; callers decode them
// with a Codec[T] at the call site.
type State struct {
	kv store.Store
}

// NewState wraps kv with the state facade.
func NewState(kv store.Store) *State {
	return &State{kv: kv}
}

// Get returns the raw bytes stored at (workflowID, key), or
// durableerr.ErrNotFound.
func (s *State) Get(ctx context.Context, workflowID, key string) ([]byte, error) {
	data, err := s.kv.Get(ctx, store.StateKey(workflowID, key))
	if err == store.ErrNotFound {
		return nil, durableerr.ErrNotFound
	} else if err != nil {
		return nil, storageErr("state get", err)
	}
	return data, nil
}

// Set durably upserts (workflowID, key) to value.
func (s *State) Set(ctx context.Context, workflowID, key string, value []byte) error {
	if err := s.kv.Put(ctx, store.StateKey(workflowID, key), value); err != nil {
		return storageErr("state set", err)
	}
	return nil
}

// Delete removes (workflowID, key). Deleting an absent key is not an error.
func (s *State) Delete(ctx context.Context, workflowID, key string) error {
	if err := s.kv.Delete(ctx, store.StateKey(workflowID, key)); err != nil {
		return storageErr("state delete", err)
	}
	return nil
}

// Keys returns every user key currently set for workflowID.
func (s *State) Keys(ctx context.Context, workflowID string) ([]string, error) {
	prefix := store.StatePrefix(workflowID)
	iter, err := s.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, storageErr("state keys", err)
	}
	defer iter.Close()

	var keys []string
	for iter.Next() {
		key := string(iter.Entry().Key)
		keys = append(keys, strings.TrimPrefix(key, string(prefix)))
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr("state keys", err)
	}
	return keys, nil
}
