// Package remote is the Remote Executor: it routes workflow operations to
// whichever cluster node owns the workflow id on the hash ring, executing
// locally when this node is the owner and forwarding over Transport
// otherwise (spec §3.7/§4.x "Hash Ring & Routing" combined with the node
// runtime's submit/resume/cancel/call operations).
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodegraft/durableflow/cluster/membership"
	"github.com/nodegraft/durableflow/cluster/ring"
	"github.com/nodegraft/durableflow/cluster/transport"
	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/engine"
	"github.com/nodegraft/durableflow/persist"
)

const (
	kindSubmitWorkflow = "remote.submit_workflow"
	kindGetStatus      = "remote.get_status"
	kindCancelWorkflow = "remote.cancel_workflow"
	kindCallFunction   = "remote.call_function"

	// DefaultRPCTimeout bounds a single forwarded operation (spec's
	// rpc_timeout default).
	DefaultRPCTimeout = 5 * time.Second
)

type submitRequest struct {
	WorkflowType string `json:"workflow_type"`
	WorkflowID   string `json:"workflow_id"`
	Input        []byte `json:"input"`
}

type statusRequest struct {
	WorkflowID string `json:"workflow_id"`
}

type statusResponse struct {
	Status persist.Status `json:"status"`
	Output []byte         `json:"output"`
	Error  string         `json:"error"`
}

type cancelRequest struct {
	WorkflowID string `json:"workflow_id"`
}

type callRequest struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Request []byte `json:"request"`
}

type outcome struct {
	Output []byte `json:"output"`
	Error  string `json:"error"`
}

// Executor dispatches the four cluster-wide workflow operations to their
// owning node, resolved fresh on every call via the hash ring (so a
// rebalance between the routing decision and delivery is simply routed to
// whichever node currently owns the key -- a retry picks up the new owner).
type Executor struct {
	self       membership.NodeInfo
	ring       *ring.Ring
	membership *membership.Membership
	transport  transport.Transport
	engine     *engine.Engine
	rpcTimeout time.Duration
}

// New constructs an Executor. rpcTimeout of zero uses DefaultRPCTimeout.
func New(self membership.NodeInfo, r *ring.Ring, m *membership.Membership, tr transport.Transport, eng *engine.Engine, rpcTimeout time.Duration) *Executor {
	if rpcTimeout <= 0 {
		rpcTimeout = DefaultRPCTimeout
	}
	return &Executor{self: self, ring: r, membership: m, transport: tr, engine: eng, rpcTimeout: rpcTimeout}
}

// Serve registers this node's RPC handler with the transport. Call before
// routing any operation. Only suitable when Executor is the sole consumer of
// the transport's address; a node that also runs gossip on the same address
// should instead multiplex Handle and gossip.Gossip.Handle behind one
// transport.Serve call (see cmd/durableflowd).
func (x *Executor) Serve() error {
	return x.transport.Serve(x.self.Address, x.Handle)
}

// IsRemoteKind reports whether kind is one this package's Handle answers,
// for multiplexing several handlers behind one transport address.
func IsRemoteKind(kind string) bool {
	switch kind {
	case kindSubmitWorkflow, kindGetStatus, kindCancelWorkflow, kindCallFunction:
		return true
	default:
		return false
	}
}

// SubmitWorkflow routes to workflowID's owner and submits it there.
func (x *Executor) SubmitWorkflow(ctx context.Context, workflowType, workflowID string, input []byte) ([]byte, error) {
	req, err := json.Marshal(submitRequest{WorkflowType: workflowType, WorkflowID: workflowID, Input: input})
	if err != nil {
		return nil, fmt.Errorf("remote: submit_workflow: %w", err)
	}
	resp, err := x.dispatch(ctx, workflowID, kindSubmitWorkflow, req, func(ctx context.Context) ([]byte, error) {
		output, err := x.engine.Submit(ctx, workflowType, workflowID, input)
		if err != nil {
			return nil, err
		}
		return json.Marshal(outcome{Output: output})
	})
	if err != nil {
		return nil, err
	}
	var out outcome
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("remote: submit_workflow: decode: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("remote: submit_workflow: %s", out.Error)
	}
	return out.Output, nil
}

// GetStatus routes to workflowID's owner and returns its current metadata.
func (x *Executor) GetStatus(ctx context.Context, workflowID string) (persist.Status, []byte, error) {
	req, err := json.Marshal(statusRequest{WorkflowID: workflowID})
	if err != nil {
		return "", nil, fmt.Errorf("remote: get_status: %w", err)
	}
	resp, err := x.dispatch(ctx, workflowID, kindGetStatus, req, func(ctx context.Context) ([]byte, error) {
		meta, err := x.engine.Status(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(statusResponse{Status: meta.Status, Output: meta.Output, Error: meta.Error})
	})
	if err != nil {
		return "", nil, err
	}
	var status statusResponse
	if err := json.Unmarshal(resp, &status); err != nil {
		return "", nil, fmt.Errorf("remote: get_status: decode: %w", err)
	}
	if status.Error != "" && status.Status == persist.StatusFailed {
		return status.Status, nil, fmt.Errorf("remote: get_status: %s", status.Error)
	}
	return status.Status, status.Output, nil
}

// CancelWorkflow routes to workflowID's owner and cancels it there.
func (x *Executor) CancelWorkflow(ctx context.Context, workflowID string) error {
	req, err := json.Marshal(cancelRequest{WorkflowID: workflowID})
	if err != nil {
		return fmt.Errorf("remote: cancel_workflow: %w", err)
	}
	resp, err := x.dispatch(ctx, workflowID, kindCancelWorkflow, req, func(ctx context.Context) ([]byte, error) {
		if err := x.engine.Cancel(ctx, workflowID); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	var out outcome
	if len(resp) > 0 {
		if err := json.Unmarshal(resp, &out); err == nil && out.Error != "" {
			return fmt.Errorf("remote: cancel_workflow: %s", out.Error)
		}
	}
	return nil
}

// CallFunction routes a registered-handler invocation by key (typically the
// calling workflow's id, so calls execute alongside the workflow that made
// them) to key's owning node.
func (x *Executor) CallFunction(ctx context.Context, key, name string, request []byte) ([]byte, error) {
	req, err := json.Marshal(callRequest{Key: key, Name: name, Request: request})
	if err != nil {
		return nil, fmt.Errorf("remote: call_function: %w", err)
	}
	resp, err := x.dispatch(ctx, key, kindCallFunction, req, func(ctx context.Context) ([]byte, error) {
		output, err := x.engine.Registry().Call(ctx, name, request)
		if err != nil {
			return nil, err
		}
		return json.Marshal(outcome{Output: output})
	})
	if err != nil {
		return nil, err
	}
	var out outcome
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("remote: call_function: decode: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("remote: call_function: %s", out.Error)
	}
	return out.Output, nil
}

// dispatch resolves key's owner on the ring: if it's this node, runLocal
// runs directly; otherwise the request is marshaled to kind/payload and
// forwarded over the transport within rpcTimeout.
func (x *Executor) dispatch(ctx context.Context, key, kind string, payload []byte, runLocal func(context.Context) ([]byte, error)) ([]byte, error) {
	owner, ok := x.ring.Owner(key)
	if !ok {
		return nil, fmt.Errorf("remote: no owner for key %q: ring is empty", key)
	}
	if owner == x.self.NodeID {
		return runLocal(ctx)
	}

	node, ok := x.membership.Get(owner)
	if !ok {
		return nil, fmt.Errorf("remote: owner node %q is not a known member", owner)
	}

	rpcCtx, cancel := context.WithTimeout(ctx, x.rpcTimeout)
	defer cancel()
	resp, err := x.transport.Send(rpcCtx, node.Address, transport.Message{Kind: kind, Payload: payload})
	if err != nil {
		if rpcCtx.Err() != nil {
			return nil, durableerr.ErrTimeout
		}
		return nil, fmt.Errorf("remote: send to %q: %w", node.Address, err)
	}
	return resp.Payload, nil
}

// Handle dispatches one incoming RPC by kind. Exported so a node that serves
// more than one cluster protocol on a single address can multiplex it
// alongside other handlers by message kind.
func (x *Executor) Handle(ctx context.Context, msg transport.Message) (transport.Message, error) {
	switch msg.Kind {
	case kindSubmitWorkflow:
		var req submitRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return transport.Message{}, err
		}
		output, runErr := x.engine.Submit(ctx, req.WorkflowType, req.WorkflowID, req.Input)
		return jsonOutcomeMessage(output, runErr)

	case kindGetStatus:
		var req statusRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return transport.Message{}, err
		}
		meta, err := x.engine.Status(ctx, req.WorkflowID)
		if err != nil {
			return transport.Message{}, err
		}
		payload, err := json.Marshal(statusResponse{Status: meta.Status, Output: meta.Output, Error: meta.Error})
		if err != nil {
			return transport.Message{}, err
		}
		return transport.Message{Kind: kindGetStatus, Payload: payload}, nil

	case kindCancelWorkflow:
		var req cancelRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return transport.Message{}, err
		}
		runErr := x.engine.Cancel(ctx, req.WorkflowID)
		return jsonOutcomeMessage(nil, runErr)

	case kindCallFunction:
		var req callRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return transport.Message{}, err
		}
		output, runErr := x.engine.Registry().Call(ctx, req.Name, req.Request)
		return jsonOutcomeMessage(output, runErr)

	default:
		return transport.Message{}, fmt.Errorf("remote: unknown message kind %q", msg.Kind)
	}
}

func jsonOutcomeMessage(output []byte, runErr error) (transport.Message, error) {
	out := outcome{Output: output}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return transport.Message{}, err
	}
	return transport.Message{Payload: payload}, nil
}
