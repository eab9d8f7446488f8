package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store backed by a sorted slice of entries,
// grounded on the teacher's RWMutex-guarded-map pattern (graph/store/memory.go)
// but reshaped for ordered byte keys instead of per-run maps: the slice
// itself is the ordering, since Go maps do not guarantee iteration order.
//
// MemStore is used for unit tests and the conformance suite; production
// deployments use SQLiteStore (see sqlite.go).
type MemStore struct {
	mu     sync.RWMutex
	keys   [][]byte
	values [][]byte
	closed bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// search returns the index of the first key >= target, and whether keys[idx] == target.
func (m *MemStore) search(target []byte) (int, bool) {
	idx := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], target) >= 0
	})
	if idx < len(m.keys) && bytes.Equal(m.keys[idx], target) {
		return idx, true
	}
	return idx, false
}

func (m *MemStore) Get(_ context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	idx, ok := m.search(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(m.values[idx]))
	copy(out, m.values[idx])
	return out, nil
}

func (m *MemStore) Put(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.putLocked(key, value)
	return nil
}

func (m *MemStore) putLocked(key, value []byte) {
	idx, ok := m.search(key)
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	if ok {
		m.values[idx] = v
		return
	}
	m.keys = append(m.keys, nil)
	copy(m.keys[idx+1:], m.keys[idx:])
	m.keys[idx] = k

	m.values = append(m.values, nil)
	copy(m.values[idx+1:], m.values[idx:])
	m.values[idx] = v
}

func (m *MemStore) Delete(_ context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.deleteLocked(key)
	return nil
}

func (m *MemStore) deleteLocked(key []byte) {
	idx, ok := m.search(key)
	if !ok {
		return
	}
	m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
	m.values = append(m.values[:idx], m.values[idx+1:]...)
}

func (m *MemStore) Scan(ctx context.Context, prefix []byte) (Iterator, error) {
	end := PrefixEnd(prefix)
	return m.ScanRange(ctx, prefix, end)
}

func (m *MemStore) ScanRange(_ context.Context, start, end []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	lo := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], start) >= 0
	})
	hi := len(m.keys)
	if end != nil {
		hi = sort.Search(len(m.keys), func(i int) bool {
			return bytes.Compare(m.keys[i], end) >= 0
		})
	}

	entries := make([]Entry, 0, hi-lo)
	for i := lo; i < hi; i++ {
		entries = append(entries, Entry{
			Key:   append([]byte(nil), m.keys[i]...),
			Value: append([]byte(nil), m.values[i]...),
		})
	}
	return &sliceIterator{entries: entries, pos: -1}, nil
}

func (m *MemStore) Batch(_ context.Context, ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	// All-or-nothing is trivial here: the store is held under a single
	// write lock for the whole batch, so no partial state is ever visible
	// to a concurrent reader.
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			m.putLocked(op.Key, op.Value)
		case OpDelete:
			m.deleteLocked(op.Key)
		}
	}
	return nil
}

func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type sliceIterator struct {
	entries []Entry
	pos     int
}

func (it *sliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.entries)
}

func (it *sliceIterator) Entry() Entry {
	return it.entries[it.pos]
}

func (it *sliceIterator) Err() error { return nil }

func (it *sliceIterator) Close() error { return nil }
