// Package engine is the node runtime: it executes workflow bodies against a
// journaling Context so that re-execution after a crash replays every
// already-completed operation instead of re-invoking it (spec §4.4, the
// hardest of the four core subsystems).
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nodegraft/durableflow/durableerr"
	"github.com/nodegraft/durableflow/emit"
	"github.com/nodegraft/durableflow/metrics"
	"github.com/nodegraft/durableflow/persist"
)

// WorkflowFunc is a workflow body: ordinary procedural code that reaches
// every externally observable effect through the supplied Context.
type WorkflowFunc func(ctx *Context, input []byte) ([]byte, error)

// Engine owns the journal/state/workflow/timer facades, the function and
// workflow registries, and a bounded worker pool: a given workflow executes
// on at most one goroutine at a time on this node (spec §4.4 "at-most-once
// in flight" invariant), and at most MaxConcurrentWorkflows executions run
// at once across all workflows.
type Engine struct {
	journal   *persist.Journal
	state     *persist.State
	workflows *persist.Workflow
	timers    *persist.TimerStore
	registry  *Registry
	emitter   emit.Emitter
	audit     *persist.AuditExporter
	metrics   *metrics.Metrics // may be nil if no metrics collector is configured

	cfg engineConfig
	sem chan struct{}

	mu            sync.Mutex
	workflowFuncs map[string]WorkflowFunc
	locks         map[string]*sync.Mutex
	wakers        map[string]chan wakeSignal

	sweepOnce sync.Once
	sweepStop chan struct{}
}

// New constructs an Engine over the given persist facades. emitter may be
// emit.NewNullEmitter() if no observability is wanted; audit may be nil if
// no external audit export is configured.
func New(journal *persist.Journal, state *persist.State, workflows *persist.Workflow, timers *persist.TimerStore, registry *Registry, emitter emit.Emitter, audit *persist.AuditExporter, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		journal:       journal,
		state:         state,
		workflows:     workflows,
		timers:        timers,
		registry:      registry,
		emitter:       emitter,
		audit:         audit,
		metrics:       cfg.metrics,
		cfg:           cfg,
		sem:           make(chan struct{}, cfg.maxConcurrentWorkflows),
		workflowFuncs: make(map[string]WorkflowFunc),
		locks:         make(map[string]*sync.Mutex),
		wakers:        make(map[string]chan wakeSignal),
	}
}

// RegisterWorkflow installs fn as the body executed for workflows of the
// given type.
func (e *Engine) RegisterWorkflow(workflowType string, fn WorkflowFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflowFuncs[workflowType] = fn
}

// Registry returns the call-handler registry new handlers should Register
// against.
func (e *Engine) Registry() *Registry { return e.registry }

// Status returns a workflow's current metadata, for callers (such as a
// remote executor) that need to report status without running it.
func (e *Engine) Status(ctx context.Context, workflowID string) (persist.WorkflowMeta, error) {
	return e.workflows.Get(ctx, workflowID)
}

// Submit creates a workflow record (a no-op if workflowID already has one)
// and runs it to completion, returning its output or terminal error, per
// spec §4.4 "Submit / resume".
func (e *Engine) Submit(ctx context.Context, workflowType, workflowID string, input []byte) ([]byte, error) {
	now := time.Now()
	meta := persist.WorkflowMeta{
		WorkflowID:   workflowID,
		WorkflowType: workflowType,
		InputPayload: input,
		Status:       persist.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := e.workflows.Create(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("engine: submit: %w", err)
	}
	if !created {
		return e.Resume(ctx, workflowID)
	}
	return e.execute(ctx, workflowID)
}

// Resume re-enters a non-terminal workflow, replaying its journal up to the
// live tail. A terminal workflow returns its recorded result without
// re-executing (spec §4.4 "resume").
func (e *Engine) Resume(ctx context.Context, workflowID string) ([]byte, error) {
	meta, err := e.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("engine: resume: %w", err)
	}
	switch meta.Status {
	case persist.StatusCompleted:
		return meta.Output, nil
	case persist.StatusFailed:
		return nil, durableerr.NewWorkflowError(durableerr.KindUser, workflowID, meta.Error, nil)
	case persist.StatusCancelled:
		return nil, durableerr.ErrCancelled
	}
	return e.execute(ctx, workflowID)
}

// Cancel marks a non-terminal workflow Cancelled. A subsequent Resume
// returns durableerr.ErrCancelled without re-running the body. Cancel does
// not forcibly interrupt a goroutine currently blocked inside this
// workflow's execute call; it only prevents future resumption.
func (e *Engine) Cancel(ctx context.Context, workflowID string) error {
	meta, err := e.workflows.Get(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("engine: cancel: %w", err)
	}
	if isTerminal(meta.Status) {
		return nil
	}
	meta.Status = persist.StatusCancelled
	meta.UpdatedAt = time.Now()
	if err := e.workflows.Update(ctx, meta); err != nil {
		return fmt.Errorf("engine: cancel: %w", err)
	}
	return nil
}

// Signal delivers payload to a workflow currently blocked in
// Context.AwaitSignal(name). It returns an error if the workflow is not
// currently awaiting anything on this node.
func (e *Engine) Signal(ctx context.Context, workflowID, name string, payload []byte) error {
	if e.send(workflowID, wakeSignal{kind: persist.KindSignalReceived, name: name, payload: payload}) {
		return nil
	}
	return fmt.Errorf("engine: workflow %q is not awaiting a signal", workflowID)
}

func isTerminal(status persist.Status) bool {
	switch status {
	case persist.StatusCompleted, persist.StatusFailed, persist.StatusCancelled:
		return true
	}
	return false
}

func (e *Engine) execute(ctx context.Context, workflowID string) ([]byte, error) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.sem }()

	lock := e.workflowLock(workflowID)
	lock.Lock()
	defer lock.Unlock()

	meta, err := e.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("engine: execute: %w", err)
	}

	e.mu.Lock()
	fn, ok := e.workflowFuncs[meta.WorkflowType]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("engine: no workflow registered for type %q", meta.WorkflowType)
	}

	if meta.Status == persist.StatusPending {
		meta.Status = persist.StatusRunning
		meta.UpdatedAt = time.Now()
		if err := e.workflows.Update(ctx, meta); err != nil {
			return nil, fmt.Errorf("engine: execute: %w", err)
		}
	}

	entries, err := e.journal.GetAll(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("engine: execute: %w", err)
	}

	wake := e.registerWaker(workflowID)
	defer e.unregisterWaker(workflowID)

	wctx := &Context{
		stdctx:       ctx,
		workflowID:   workflowID,
		workflowType: meta.WorkflowType,
		journal:      e.journal,
		state:        e.state,
		timers:       e.timers,
		registry:     e.registry,
		metrics:      e.metrics,
		entries:      entries,
		nextSeq:      uint64(len(entries)),
		wake:         wake,
	}

	if e.metrics != nil {
		e.metrics.UpdateInflightWorkflows(len(e.sem))
	}
	start := time.Now()
	e.emitter.Emit(emit.Event{WorkflowID: workflowID, Kind: "execute_start", Msg: "workflow execution started"})
	output, runErr := fn(wctx, meta.InputPayload)

	// A storage error bubbling up from a journal/state append or complete
	// (engine/context.go's nextEntry/complete) is not the workflow body's
	// own failure: it leaves the workflow Running rather than transitioning
	// to a terminal status, so a later call to execute can retry the same
	// operation instead of the workflow being stuck Failed forever.
	if runErr != nil && errors.Is(runErr, durableerr.ErrStorageError) {
		e.emitter.Emit(emit.Event{WorkflowID: workflowID, Kind: "execute_storage_error", Msg: runErr.Error()})
		if e.metrics != nil {
			e.metrics.RecordWorkflowLatency(meta.WorkflowType, "storage_error", time.Since(start))
		}
		return nil, runErr
	}

	meta.UpdatedAt = time.Now()
	switch {
	case runErr == nil:
		meta.Status = persist.StatusCompleted
		meta.Output = output
	case errors.Is(runErr, durableerr.ErrCancelled):
		meta.Status = persist.StatusCancelled
	default:
		meta.Status = persist.StatusFailed
		meta.Error = runErr.Error()
	}
	if err := e.workflows.Update(ctx, meta); err != nil {
		return nil, fmt.Errorf("engine: execute: update after run: %w", err)
	}
	e.emitter.Emit(emit.Event{WorkflowID: workflowID, Kind: "execute_end", Msg: string(meta.Status)})
	if e.metrics != nil {
		e.metrics.RecordWorkflowLatency(meta.WorkflowType, string(meta.Status), time.Since(start))
	}

	if e.audit != nil {
		if auditErr := e.audit.Export(ctx, meta); auditErr != nil {
			e.emitter.Emit(emit.Event{WorkflowID: workflowID, Kind: "audit_export_failed", Msg: auditErr.Error()})
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	return output, nil
}

func (e *Engine) workflowLock(workflowID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[workflowID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[workflowID] = lock
	}
	return lock
}

func (e *Engine) registerWaker(workflowID string) chan wakeSignal {
	ch := make(chan wakeSignal, 1)
	e.mu.Lock()
	e.wakers[workflowID] = ch
	e.mu.Unlock()
	return ch
}

func (e *Engine) unregisterWaker(workflowID string) {
	e.mu.Lock()
	delete(e.wakers, workflowID)
	e.mu.Unlock()
}

// send attempts a non-blocking delivery of signal to workflowID's currently
// blocked Context. It returns false if no Context is registered, or its
// channel is already full (at most one pending wake is ever needed, since a
// blocked Context consumes it before it could block on a second one).
func (e *Engine) send(workflowID string, signal wakeSignal) bool {
	e.mu.Lock()
	ch, ok := e.wakers[workflowID]
	e.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- signal:
		return true
	default:
		return false
	}
}
