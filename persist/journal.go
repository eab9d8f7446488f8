package persist

import (
	"context"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/store"
)

// Journal is the typed facade over a workflow's append-only operation log
// (spec §4.3 "Journal"). Entries are keyed j:{workflow_id}:{sequence_number}
// so a prefix scan returns them in ascending sequence order.
type Journal struct {
	kv store.Store
}

// NewJournal wraps kv with the journal facade.
func NewJournal(kv store.Store) *Journal {
	return &Journal{kv: kv}
}

// Append writes a new, uncompleted entry at entry.Sequence. It rejects a
// sequence number that already has an entry for this workflow, since
// sequence numbers are assigned once, in control-flow order (spec §3.1
// invariant).
func (j *Journal) Append(ctx context.Context, entry JournalEntry) error {
	key := store.JournalKey(entry.WorkflowID, entry.Sequence)
	if _, err := j.kv.Get(ctx, key); err == nil {
		return durableerr.ErrDuplicateSequence
	} else if err != store.ErrNotFound {
		return storageErr("journal append", err)
	}
	entry.Completed = false
	data, err := encodeEntry(entry)
	if err != nil {
		return storageErr("journal append", err)
	}
	if err := j.kv.Put(ctx, key, data); err != nil {
		return storageErr("journal append", err)
	}
	return nil
}

// Complete updates the entry at (workflowID, seq) with its output and marks
// it completed. The entry must already exist.
func (j *Journal) Complete(ctx context.Context, workflowID string, seq uint64, output []byte) error {
	key := store.JournalKey(workflowID, seq)
	data, err := j.kv.Get(ctx, key)
	if err == store.ErrNotFound {
		return durableerr.ErrNotFound
	} else if err != nil {
		return storageErr("journal complete", err)
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return storageErr("journal complete", err)
	}
	entry.OutputPayload = output
	entry.Completed = true
	data, err = encodeEntry(entry)
	if err != nil {
		return storageErr("journal complete", err)
	}
	if err := j.kv.Put(ctx, key, data); err != nil {
		return storageErr("journal complete", err)
	}
	return nil
}

// Get returns the entry at (workflowID, seq), or durableerr.ErrNotFound.
func (j *Journal) Get(ctx context.Context, workflowID string, seq uint64) (JournalEntry, error) {
	data, err := j.kv.Get(ctx, store.JournalKey(workflowID, seq))
	if err == store.ErrNotFound {
		return JournalEntry{}, durableerr.ErrNotFound
	} else if err != nil {
		return JournalEntry{}, storageErr("journal get", err)
	}
	return decodeEntry(data)
}

// GetAll returns every entry for workflowID in ascending sequence order.
func (j *Journal) GetAll(ctx context.Context, workflowID string) ([]JournalEntry, error) {
	iter, err := j.kv.Scan(ctx, store.JournalPrefix(workflowID))
	if err != nil {
		return nil, storageErr("journal get_all", err)
	}
	defer iter.Close()

	var entries []JournalEntry
	for iter.Next() {
		entry, err := decodeEntry(iter.Entry().Value)
		if err != nil {
			return nil, storageErr("journal get_all", err)
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr("journal get_all", err)
	}
	return entries, nil
}

func encodeEntry(entry JournalEntry) ([]byte, error) {
	return jsonCodec.Encode(entry)
}

func decodeEntry(data []byte) (JournalEntry, error) {
	return jsonCodec.Decode(data)
}

var jsonCodec = JSONCodec[JournalEntry]{}
