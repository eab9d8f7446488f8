package persist

import (
	"context"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/store"
)

// Workflow is the typed facade over workflow metadata and its status index
// (spec §3.2, §3.5, §4.3 "Workflow").
type Workflow struct {
	kv store.Store
}

// NewWorkflow wraps kv with the workflow facade.
func NewWorkflow(kv store.Store) *Workflow {
	return &Workflow{kv: kv}
}

// Create inserts meta if no record for meta.WorkflowID exists yet. It
// returns false without error if one already does: duplicate-insert is
// idempotent and non-destructive (spec §4.3).
func (w *Workflow) Create(ctx context.Context, meta WorkflowMeta) (bool, error) {
	key := store.WorkflowKey(meta.WorkflowID)
	if _, err := w.kv.Get(ctx, key); err == nil {
		return false, nil
	} else if err != store.ErrNotFound {
		return false, storageErr("workflow create", err)
	}

	data, err := metaCodec.Encode(meta)
	if err != nil {
		return false, storageErr("workflow create", err)
	}
	ops := []store.Op{
		store.Put(key, data),
		store.Put(store.StatusIndexKey(string(meta.Status), meta.WorkflowID), nil),
	}
	if err := w.kv.Batch(ctx, ops); err != nil {
		return false, storageErr("workflow create", err)
	}
	return true, nil
}

// Get returns the metadata record for id, or durableerr.ErrNotFound.
func (w *Workflow) Get(ctx context.Context, id string) (WorkflowMeta, error) {
	data, err := w.kv.Get(ctx, store.WorkflowKey(id))
	if err == store.ErrNotFound {
		return WorkflowMeta{}, durableerr.ErrNotFound
	} else if err != nil {
		return WorkflowMeta{}, storageErr("workflow get", err)
	}
	return metaCodec.Decode(data)
}

// Update rewrites meta's record. If the status changed since the previous
// record, the status index is rewritten atomically alongside the metadata
// write: the old-status entry is removed and the new-status entry is added
// in the same batch (spec §4.3 invariant).
func (w *Workflow) Update(ctx context.Context, meta WorkflowMeta) error {
	key := store.WorkflowKey(meta.WorkflowID)
	existing, err := w.kv.Get(ctx, key)
	if err == store.ErrNotFound {
		return durableerr.ErrNotFound
	} else if err != nil {
		return storageErr("workflow update", err)
	}
	prev, err := metaCodec.Decode(existing)
	if err != nil {
		return storageErr("workflow update", err)
	}

	data, err := metaCodec.Encode(meta)
	if err != nil {
		return storageErr("workflow update", err)
	}

	ops := []store.Op{store.Put(key, data)}
	if prev.Status != meta.Status {
		ops = append(ops,
			store.Delete(store.StatusIndexKey(string(prev.Status), meta.WorkflowID)),
			store.Put(store.StatusIndexKey(string(meta.Status), meta.WorkflowID), nil),
		)
	}
	if err := w.kv.Batch(ctx, ops); err != nil {
		return storageErr("workflow update", err)
	}
	return nil
}

// FindByStatus returns up to limit workflow ids currently indexed under
// status, in ascending workflow_id order. limit <= 0 means unbounded.
func (w *Workflow) FindByStatus(ctx context.Context, status Status, limit int) ([]string, error) {
	prefix := store.StatusIndexPrefix(string(status))
	iter, err := w.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, storageErr("workflow find_by_status", err)
	}
	defer iter.Close()

	var ids []string
	for iter.Next() {
		if limit > 0 && len(ids) >= limit {
			break
		}
		key := string(iter.Entry().Key)
		ids = append(ids, key[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr("workflow find_by_status", err)
	}
	return ids, nil
}

var metaCodec = JSONCodec[WorkflowMeta]{}
