// Package ring implements the consistent hash ring that maps each workflow
// id to an owner node (spec §3.7, §4.x "Hash Ring & Routing").
package ring

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/nodegraft/durableflow/cluster/membership"
	"github.com/nodegraft/durableflow/metrics"
)

type entry struct {
	hash   uint64
	nodeID string
}

// Ring is a consistent hash ring with virtual nodes. Safe for concurrent
// use: Rebuild replaces the entire entry set atomically under a lock, and
// Owner reads it under the same lock.
type Ring struct {
	mu             sync.RWMutex
	virtualPerNode int
	entries        []entry // sorted ascending by hash
	metrics        *metrics.Metrics
}

// SetMetrics attaches a metrics collector; Rebuild will report ring churn
// through it. Optional -- a Ring with no metrics attached behaves exactly as
// before.
func (r *Ring) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// New creates an empty Ring with virtualPerNode virtual nodes per member
// (spec §3.7: v in [0, virtual_nodes_per_node)).
func New(virtualPerNode int) *Ring {
	if virtualPerNode <= 0 {
		virtualPerNode = 1
	}
	return &Ring{virtualPerNode: virtualPerNode}
}

// Rebuild replaces the ring's entries with the virtual nodes of every given
// non-Dead node given, sorted by hash. Called whenever membership changes;
// Dead nodes are skipped here, and WatchMembership additionally passes only
// Alive nodes, so Suspect ones are excluded on that path too.
func (r *Ring) Rebuild(nodes []membership.NodeInfo) {
	entries := make([]entry, 0, len(nodes)*r.virtualPerNode)
	for _, n := range nodes {
		if n.State == membership.Dead {
			continue
		}
		for v := 0; v < r.virtualPerNode; v++ {
			entries = append(entries, entry{hash: hash64(fmt.Sprintf("%s/%d", n.NodeID, v)), nodeID: n.NodeID})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].hash < entries[j].hash })

	r.mu.Lock()
	r.entries = entries
	m := r.metrics
	r.mu.Unlock()

	if m != nil {
		m.IncrementRingChurn()
	}
}

// Owner returns the node id owning key: the first virtual node at or after
// hash(key) walking clockwise, wrapping to the first entry if key's hash is
// past every virtual node. Returns false if the ring is empty.
func (r *Ring) Owner(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return "", false
	}
	h := hash64(key)
	idx := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].hash >= h })
	if idx == len(r.entries) {
		idx = 0
	}
	return r.entries[idx].nodeID, true
}

// Size returns the number of virtual node entries currently in the ring.
func (r *Ring) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// WatchMembership rebuilds ring on every membership change observed through
// m.Subscribe, implementing the observer-channel relationship between
// membership and ring spec §9 calls for (rather than a direct back-link
// from Membership into Ring). Only Alive nodes hold virtual nodes on the
// ring: a node marked Dead is removed from routing immediately on the next
// rebuild rather than continuing to own keys forever. It runs until stop is
// closed.
func WatchMembership(r *Ring, m *membership.Membership, stop <-chan struct{}) {
	r.Rebuild(m.Alive())
	changes := m.Subscribe()
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-changes:
				r.Rebuild(m.Alive())
			}
		}
	}()
}
