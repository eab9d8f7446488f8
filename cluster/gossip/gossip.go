// Package gossip implements SWIM-style failure detection and membership
// dissemination: random probing, indirect probing through relays, and
// suspicion timeouts before marking a node Dead (spec §4.x "Gossip
// Protocol").
package gossip

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nodegraft/durableflow/cluster/membership"
	"github.com/nodegraft/durableflow/cluster/transport"
	"github.com/nodegraft/durableflow/metrics"
)

const (
	kindPing    = "gossip.ping"
	kindPingReq = "gossip.ping_req"
	kindAck     = "gossip.ack"
	kindNack    = "gossip.nack"
	kindJoin    = "gossip.join"

	// indirectRelays is how many peers a failed direct probe asks to relay
	// a ping on our behalf before declaring suspicion (SWIM's k parameter).
	indirectRelays = 3
)

// IsGossipKind reports whether kind is one this package's Handle answers,
// for multiplexing several handlers behind one transport address.
func IsGossipKind(kind string) bool {
	switch kind {
	case kindPing, kindPingReq, kindAck, kindNack, kindJoin:
		return true
	default:
		return false
	}
}

type envelope struct {
	From   membership.NodeInfo `json:"from"`
	Target membership.NodeInfo `json:"target,omitempty"`
}

// Gossip runs the probe/suspect/dead state machine over a Membership table
// and an abstract Transport.
type Gossip struct {
	self           membership.NodeInfo
	membership     *membership.Membership
	transport      transport.Transport
	probeInterval  time.Duration
	probeTimeout   time.Duration
	suspectTimeout time.Duration

	suspectMu     sync.Mutex
	suspectTimers map[string]*time.Timer

	metrics *metrics.Metrics
	stop    chan struct{}
}

// SetMetrics attaches a metrics collector; probeOnce will report probe
// latency through it. Optional -- a Gossip with no metrics attached behaves
// exactly as before.
func (g *Gossip) SetMetrics(m *metrics.Metrics) { g.metrics = m }

// New constructs a Gossip instance. probeInterval governs how often a
// random peer is probed; probeTimeout bounds a single ping's round trip;
// suspectTimeout is how long a Suspect node has to refute before being
// marked Dead.
func New(self membership.NodeInfo, m *membership.Membership, tr transport.Transport, probeInterval, probeTimeout, suspectTimeout time.Duration) *Gossip {
	return &Gossip{
		self:           self,
		membership:     m,
		transport:      tr,
		probeInterval:  probeInterval,
		probeTimeout:   probeTimeout,
		suspectTimeout: suspectTimeout,
		suspectTimers:  make(map[string]*time.Timer),
		stop:           make(chan struct{}),
	}
}

// Serve registers this node's message handler with the transport. Call
// before Run. Only suitable when Gossip is the sole consumer of the
// transport's address; a node that also runs a remote.Executor on the same
// address should instead multiplex Handle and remote.Executor.Handle behind
// one transport.Serve call (see cmd/durableflowd).
func (g *Gossip) Serve() error {
	return g.transport.Serve(g.self.Address, g.Handle)
}

// Run starts the probe loop; it blocks until Stop is called.
func (g *Gossip) Run(ctx context.Context) {
	ticker := time.NewTicker(g.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stop:
			return
		case <-ticker.C:
			g.probeOnce(ctx)
		}
	}
}

// Stop ends the probe loop started by Run.
func (g *Gossip) Stop() { close(g.stop) }

// Join contacts seedAddress and merges its reported membership record,
// bootstrapping this node into the cluster.
func (g *Gossip) Join(ctx context.Context, seedAddress string) error {
	payload, err := json.Marshal(envelope{From: g.membership.Self()})
	if err != nil {
		return fmt.Errorf("gossip: join: %w", err)
	}
	resp, err := g.transport.Send(ctx, seedAddress, transport.Message{Kind: kindJoin, Payload: payload})
	if err != nil {
		return fmt.Errorf("gossip: join: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(resp.Payload, &env); err != nil {
		return fmt.Errorf("gossip: join: decode ack: %w", err)
	}
	g.membership.Update(env.From)
	return nil
}

// Handle dispatches one incoming gossip message. Exported so a node that
// serves more than one cluster protocol on a single address can multiplex it
// alongside other handlers by message kind.
func (g *Gossip) Handle(ctx context.Context, msg transport.Message) (transport.Message, error) {
	switch msg.Kind {
	case kindJoin, kindPing:
		var env envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return transport.Message{}, fmt.Errorf("gossip: decode %s: %w", msg.Kind, err)
		}
		g.mergeAndRefute(env.From)
		return g.ackMessage()

	case kindPingReq:
		var env envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return transport.Message{}, fmt.Errorf("gossip: decode ping_req: %w", err)
		}
		g.mergeAndRefute(env.From)

		pingPayload, err := json.Marshal(envelope{From: g.membership.Self()})
		if err != nil {
			return transport.Message{}, err
		}
		relayCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
		defer cancel()
		resp, err := g.transport.Send(relayCtx, env.Target.Address, transport.Message{Kind: kindPing, Payload: pingPayload})
		if err != nil {
			return transport.Message{Kind: kindNack}, nil
		}
		var ack envelope
		if err := json.Unmarshal(resp.Payload, &ack); err == nil {
			g.membership.Update(ack.From)
		}
		return g.ackMessage()

	default:
		return transport.Message{}, fmt.Errorf("gossip: unknown message kind %q", msg.Kind)
	}
}

// mergeAndRefute merges an incoming record, and if it reports this node as
// Suspect or Dead, bumps this node's own incarnation and rebroadcasts Alive
// (spec §3.6 self-refutation) instead of accepting the false suspicion.
func (g *Gossip) mergeAndRefute(incoming membership.NodeInfo) {
	if incoming.NodeID == g.self.NodeID && incoming.State != membership.Alive {
		g.membership.RefuteSuspicion()
		return
	}
	g.membership.Update(incoming)
}

func (g *Gossip) ackMessage() (transport.Message, error) {
	payload, err := json.Marshal(envelope{From: g.membership.Self()})
	if err != nil {
		return transport.Message{}, err
	}
	return transport.Message{Kind: kindAck, Payload: payload}, nil
}

func (g *Gossip) probeOnce(ctx context.Context) {
	candidates := g.probeCandidates()
	if len(candidates) == 0 {
		return
	}
	target := candidates[rand.Intn(len(candidates))]
	start := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()
	if g.pingDirect(probeCtx, target) {
		g.recordProbeLatency("direct", start)
		g.clearSuspicion(target.NodeID)
		return
	}
	if g.pingIndirect(ctx, target, candidates) {
		g.recordProbeLatency("indirect", start)
		g.clearSuspicion(target.NodeID)
		return
	}
	g.recordProbeLatency("timeout", start)
	g.suspect(target)
}

func (g *Gossip) recordProbeLatency(result string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordGossipProbeLatency(result, time.Since(start))
	}
}

func (g *Gossip) probeCandidates() []membership.NodeInfo {
	var out []membership.NodeInfo
	for _, n := range g.membership.Alive() {
		if n.NodeID != g.self.NodeID {
			out = append(out, n)
		}
	}
	return out
}

func (g *Gossip) pingDirect(ctx context.Context, target membership.NodeInfo) bool {
	payload, err := json.Marshal(envelope{From: g.membership.Self()})
	if err != nil {
		return false
	}
	resp, err := g.transport.Send(ctx, target.Address, transport.Message{Kind: kindPing, Payload: payload})
	if err != nil {
		return false
	}
	var env envelope
	if err := json.Unmarshal(resp.Payload, &env); err == nil {
		g.membership.Update(env.From)
	}
	return true
}

func (g *Gossip) pingIndirect(ctx context.Context, target membership.NodeInfo, candidates []membership.NodeInfo) bool {
	relays := pickRelays(candidates, target.NodeID, indirectRelays)
	if len(relays) == 0 {
		return false
	}

	results := make(chan bool, len(relays))
	for _, relay := range relays {
		go func(relay membership.NodeInfo) {
			payload, err := json.Marshal(envelope{From: g.membership.Self(), Target: target})
			if err != nil {
				results <- false
				return
			}
			relayCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
			defer cancel()
			resp, err := g.transport.Send(relayCtx, relay.Address, transport.Message{Kind: kindPingReq, Payload: payload})
			results <- err == nil && resp.Kind == kindAck
		}(relay)
	}

	for range relays {
		if <-results {
			return true
		}
	}
	return false
}

func pickRelays(candidates []membership.NodeInfo, excludeID string, n int) []membership.NodeInfo {
	var pool []membership.NodeInfo
	for _, c := range candidates {
		if c.NodeID != excludeID {
			pool = append(pool, c)
		}
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

func (g *Gossip) suspect(target membership.NodeInfo) {
	target.State = membership.Suspect
	if !g.membership.Update(target) {
		return
	}

	g.suspectMu.Lock()
	defer g.suspectMu.Unlock()
	if _, exists := g.suspectTimers[target.NodeID]; exists {
		return
	}
	g.suspectTimers[target.NodeID] = time.AfterFunc(g.suspectTimeout, func() {
		current, ok := g.membership.Get(target.NodeID)
		if ok && current.State == membership.Suspect {
			current.State = membership.Dead
			g.membership.Update(current)
		}
		g.suspectMu.Lock()
		delete(g.suspectTimers, target.NodeID)
		g.suspectMu.Unlock()
	})
}

func (g *Gossip) clearSuspicion(nodeID string) {
	g.suspectMu.Lock()
	defer g.suspectMu.Unlock()
	if timer, ok := g.suspectTimers[nodeID]; ok {
		timer.Stop()
		delete(g.suspectTimers, nodeID)
	}
}
