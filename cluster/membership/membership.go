// Package membership is the in-memory registry of node states, kept
// eventually consistent by gossip (spec §3.6, §4.x "Membership").
package membership

import (
	"sync"
	"time"
)

// State is a node's failure-detector state.
type State string

const (
	Alive   State = "Alive"
	Suspect State = "Suspect"
	Dead    State = "Dead"
)

// rank orders states so merge() can pick the "more severe, or more recent"
// one when two updates disagree: Dead beats Suspect beats Alive at the same
// incarnation.
var rank = map[State]int{Alive: 0, Suspect: 1, Dead: 2}

// NodeInfo is one node's membership record (spec §3.6).
type NodeInfo struct {
	NodeID        string
	Address       string
	State         State
	Incarnation   uint64
	LastHeartbeat time.Time
}

// Membership is the local, eventually-consistent view of cluster state.
// Safe for concurrent use. Other components (the hash ring) observe changes
// through Subscribe rather than holding a reference back into Membership,
// avoiding a cyclic dependency between membership and ring (spec §9).
type Membership struct {
	mu     sync.RWMutex
	selfID string
	nodes  map[string]NodeInfo

	obsMu     sync.Mutex
	observers []chan struct{}
}

// New creates a Membership seeded with self as the local node, marked Alive
// at whatever incarnation self carries.
func New(self NodeInfo) *Membership {
	self.State = Alive
	self.LastHeartbeat = time.Now()
	return &Membership{
		selfID: self.NodeID,
		nodes:  map[string]NodeInfo{self.NodeID: self},
	}
}

// Self returns the local node's current record.
func (m *Membership) Self() NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[m.selfID]
}

// All returns every known node, in no particular order.
func (m *Membership) All() []NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NodeInfo, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	return out
}

// Alive returns every node currently believed Alive.
func (m *Membership) Alive() []NodeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NodeInfo, 0, len(m.nodes))
	for _, n := range m.nodes {
		if n.State == Alive {
			out = append(out, n)
		}
	}
	return out
}

// Get returns the record for nodeID, if known.
func (m *Membership) Get(nodeID string) (NodeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[nodeID]
	return n, ok
}

// Update merges an incoming record using SWIM's standard rule: higher
// incarnation always wins; at equal incarnation, the more severe state
// wins (Dead > Suspect > Alive). It returns true if the merge changed the
// local view, in which case every Subscribe channel is notified.
func (m *Membership) Update(incoming NodeInfo) bool {
	m.mu.Lock()
	current, known := m.nodes[incoming.NodeID]
	changed := false
	switch {
	case !known:
		m.nodes[incoming.NodeID] = incoming
		changed = true
	case incoming.Incarnation > current.Incarnation:
		m.nodes[incoming.NodeID] = incoming
		changed = true
	case incoming.Incarnation == current.Incarnation && rank[incoming.State] > rank[current.State]:
		m.nodes[incoming.NodeID] = incoming
		changed = true
	}
	m.mu.Unlock()

	if changed {
		m.notify()
	}
	return changed
}

// RefuteSuspicion bumps the local node's incarnation and marks it Alive,
// the self-refutation mechanism spec §3.6 requires when a node learns
// others suspect it while it is in fact still up.
func (m *Membership) RefuteSuspicion() NodeInfo {
	m.mu.Lock()
	self := m.nodes[m.selfID]
	self.Incarnation++
	self.State = Alive
	self.LastHeartbeat = time.Now()
	m.nodes[m.selfID] = self
	m.mu.Unlock()
	m.notify()
	return self
}

// Subscribe returns a channel that receives a value every time Update
// changes the membership view. The channel is buffered (capacity 1) and
// coalesces bursts of changes into a single pending notification, so a slow
// subscriber never blocks Update.
func (m *Membership) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.obsMu.Lock()
	m.observers = append(m.observers, ch)
	m.obsMu.Unlock()
	return ch
}

func (m *Membership) notify() {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	for _, ch := range m.observers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
