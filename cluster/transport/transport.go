// Package transport is the abstract RPC boundary the gossip protocol and
// the remote executor both send through, so production code talks HTTP
// while tests talk to an in-process fake (spec §4.x "Remote Executor",
// out-of-scope wire framing per spec.md §1 — only the Go-level interface is
// specified).
package transport

import "context"

// Message is an opaque envelope: Kind selects how the receiving Handler
// interprets Payload, mirroring how the teacher's HTTPTool (graph/tool/
// http.go) treats request/response bodies as opaque bytes it does not
// itself interpret.
type Message struct {
	Kind    string
	Payload []byte
}

// Handler processes an incoming Message and returns a response Message.
type Handler func(ctx context.Context, msg Message) (Message, error)

// Transport sends a Message to a node at address and returns its response,
// or serves incoming messages to handler. Implementations: InMemory (tests)
// and HTTPTransport (production).
type Transport interface {
	Send(ctx context.Context, address string, msg Message) (Message, error)
	Serve(address string, handler Handler) error
	Close() error
}
