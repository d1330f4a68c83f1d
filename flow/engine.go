package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conductorhq/conductor/logging"
	"github.com/google/uuid"
)

// RunResult is everything a completed Run produced: the output of every
// node invocation that turned out to be terminal, the full trace, and a
// snapshot of shared state as it stood when the last invocation finished.
type RunResult struct {
	TerminalOutputs     map[string]NodeOutput `json:"terminal_outputs"`
	Trace               []TraceEntry          `json:"trace"`
	SharedStateSnapshot map[string]any        `json:"shared_state"`
}

// Engine is the flow dispatcher: it owns the registry-backed executors,
// the shared state, and the trace of the run it most recently started. An
// Engine is reusable across multiple Run calls; shared state persists
// across them (see DESIGN.md), while each Run records a fresh trace.
type Engine struct {
	cfg engineConfig

	Registry *Registry
	State    *SharedState
	Trace    *Trace

	inline  Executor
	process Executor
	docker  Executor

	logger logging.Emitter
}

// NewEngine constructs an Engine with the given registry, initial shared
// state seed, and options.
func NewEngine(registry *Registry, seed map[string]any, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	state := NewSharedState(seed)
	var inline, process, docker Executor
	inline = NewInlineExecutor(registry, state)
	process = NewProcessExecutor(registry, state, cfg.processPoolSize)
	docker = NewDockerExecutor()
	if cfg.tracer != nil {
		inline = WrapTraced(cfg.tracer, inline)
		process = WrapTraced(cfg.tracer, process)
		docker = WrapTraced(cfg.tracer, docker)
	}

	e := &Engine{
		cfg:      cfg,
		Registry: registry,
		State:    state,
		Trace:    NewTrace(),
		inline:   inline,
		process:  process,
		docker:   docker,
		logger:   logging.NullEmitter{},
	}
	return e, nil
}

// SetLogger attaches an Emitter the engine uses for dispatch diagnostics.
// A nil logger is replaced with a NullEmitter.
func (e *Engine) SetLogger(l logging.Emitter) {
	if l == nil {
		l = logging.NullEmitter{}
	}
	e.logger = l
}

func (e *Engine) executorFor(kind ExecutorKind) (Executor, error) {
	switch kind {
	case ExecutorInline:
		return e.inline, nil
	case ExecutorProcess:
		return e.process, nil
	case ExecutorDocker:
		return e.docker, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, kind)
	}
}

// invocation is one unit of scheduled work: a node id paired with the
// input it will be invoked with.
type invocation struct {
	nodeID string
	input  NodeInput
}

// Run executes def starting from its declared start nodes, each seeded
// with payload. It implements the dispatcher of §4.2: pending/in-flight
// bounded by MaxConcurrency, a monotonic dispatch-order sequence counter,
// concurrent fan-out with no sibling waiting, revisits allowed, and the
// failure/timeout normalisation rules of §7.
//
// Run returns an error only for configuration failures detected at
// dispatch preparation (an unregistered target, an unknown executor kind)
// — node-runtime failures are folded into NodeOutput{status: "error"} or
// {status: "timeout"} and never abort the run.
func (e *Engine) Run(ctx context.Context, def *FlowDefinition, payload any) (RunResult, error) {
	if err := def.Validate(); err != nil {
		return RunResult{}, err
	}

	runID := uuid.NewString()
	runTrace := NewTrace()
	e.Trace = runTrace
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var seq atomic.Int64
	sem := make(chan struct{}, e.cfg.maxConcurrency)
	var wg sync.WaitGroup
	var pending, inflight atomic.Int64

	var termMu sync.Mutex
	terminal := map[string]NodeOutput{}

	var failure atomic.Value // holds error

	var dispatch func(inv invocation)
	dispatch = func(inv invocation) {
		select {
		case <-runCtx.Done():
			return
		default:
		}

		sequence := seq.Add(1)
		wg.Add(1)
		pending.Add(1)
		if e.cfg.metrics != nil {
			e.cfg.metrics.SetQueueDepth(int(pending.Load()))
		}
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-runCtx.Done():
				pending.Add(-1)
				return
			}
			pending.Add(-1)
			inflight.Add(1)
			if e.cfg.metrics != nil {
				e.cfg.metrics.SetQueueDepth(int(pending.Load()))
				e.cfg.metrics.SetInflight(int(inflight.Load()))
			}
			defer func() {
				<-sem
				inflight.Add(-1)
				if e.cfg.metrics != nil {
					e.cfg.metrics.SetInflight(int(inflight.Load()))
				}
			}()

			node, ok := def.Nodes[inv.nodeID]
			if !ok {
				// Guarded against by Validate, but defensive: a missing
				// node at dispatch time is a configuration error.
				failure.Store(fmt.Errorf("%w: %q", ErrMissingSuccessor, inv.nodeID))
				cancel()
				return
			}
			if node.ID == "" {
				node.ID = inv.nodeID
			}

			executor, err := e.executorFor(node.Executor)
			if err != nil {
				failure.Store(err)
				cancel()
				return
			}

			timeout := node.TimeoutSeconds
			if timeout <= 0 {
				timeout = e.cfg.defaultTimeout
			}
			node.TimeoutSeconds = timeout

			e.logger.Emit(logging.Event{RunID: runID, Sequence: sequence, NodeID: node.ID, Msg: "node_start"})

			started := time.Now()
			out, execErr := executor.Execute(runCtx, node, inv.input)
			finished := time.Now()

			var errPtr *string
			switch {
			case execErr == context.DeadlineExceeded:
				nerr := &NodeError{NodeID: node.ID, Code: "timeout", Message: fmt.Sprintf("timeout after %.3fs", timeout)}
				msg := nerr.Error()
				out = NodeOutput{Status: StatusTimeout, Metadata: map[string]any{"error": msg}}
				errPtr = &msg
			case errors.Is(execErr, ErrUnregisteredTarget):
				// Unresolvable target is a configuration error: abort the
				// whole run rather than limping along with a misconfigured
				// node marked as merely "errored".
				failure.Store(execErr)
				cancel()
				return
			case execErr != nil:
				nerr := &NodeError{NodeID: node.ID, Code: "execution_error", Message: execErr.Error(), Cause: execErr}
				msg := nerr.Error()
				out = NodeOutput{Status: StatusError, Metadata: map[string]any{"error": msg}}
				errPtr = &msg
			default:
				out = Normalize(out)
			}

			scheduled := node.resolveSuccessors(out.Status)

			runTrace.Append(TraceEntry{
				Sequence:   sequence,
				NodeID:     node.ID,
				StartedAt:  started,
				FinishedAt: finished,
				DurationMS: finished.Sub(started).Milliseconds(),
				Input:      inv.input,
				Output:     out,
				Scheduled:  scheduled,
				Error:      errPtr,
			})

			if e.cfg.metrics != nil {
				e.cfg.metrics.ObserveInvocation(node.ID, out.Status, finished.Sub(started))
			}

			e.logger.Emit(logging.Event{
				RunID: runID, Sequence: sequence, NodeID: node.ID, Msg: "node_end",
				Meta: map[string]any{"status": out.Status, "duration_ms": finished.Sub(started).Milliseconds()},
			})

			if len(scheduled) == 0 {
				termMu.Lock()
				terminal[node.ID] = out
				termMu.Unlock()
				return
			}

			for _, next := range scheduled {
				meta := map[string]any{}
				for k, v := range out.Metadata {
					meta[k] = v
				}
				meta["from"] = node.ID
				from := node.ID
				dispatch(invocation{
					nodeID: next,
					input: NodeInput{
						Payload:  out.Data,
						Metadata: meta,
						Source:   &from,
					},
				})
			}
		}()
	}

	for _, start := range def.Start {
		dispatch(invocation{nodeID: start, input: NodeInput{Payload: payload, Metadata: map[string]any{}}})
	}
	wg.Wait()

	if v := failure.Load(); v != nil {
		return RunResult{}, v.(error)
	}

	return RunResult{
		TerminalOutputs:     terminal,
		Trace:               runTrace.Snapshot(),
		SharedStateSnapshot: e.State.Snapshot(),
	}, nil
}
