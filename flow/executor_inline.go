package flow

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// InlineExecutor runs a node's target as a direct in-process call against a
// Registry. It is the cheapest and most common executor: no process
// boundary, no container, just a registered Go function.
type InlineExecutor struct {
	Registry *Registry
	State    *SharedState

	// envMu serialises the overlay/restore of process environment
	// variables across concurrent inline invocations, since os.Setenv is
	// process-global. This is the spec's primary design (not the "safer
	// alternative" of passing env purely as a context value) — see
	// SPEC_FULL.md §9.
	envMu sync.Mutex
}

// NewInlineExecutor builds an InlineExecutor over the given registry and
// shared state.
func NewInlineExecutor(registry *Registry, state *SharedState) *InlineExecutor {
	return &InlineExecutor{Registry: registry, State: state}
}

func (e *InlineExecutor) Execute(ctx context.Context, node NodeDefinition, input NodeInput) (NodeOutput, error) {
	fn, ok := e.Registry.Lookup(node.Target)
	if !ok {
		return NodeOutput{}, fmt.Errorf("%w: %q", ErrUnregisteredTarget, node.Target)
	}

	restore := e.overlayEnv(node.Env)
	defer restore()

	v, err := runWithTimeout(ctx, node.TimeoutSeconds, func(c context.Context) (any, error) {
		return fn(c, input, e.State, node.Env)
	})
	if err != nil {
		return NodeOutput{}, err
	}
	return Normalize(v), nil
}

// overlayEnv sets each key/value from env into the process environment,
// holding envMu for the duration so concurrent inline invocations with
// conflicting env never interleave. It returns a function that restores
// the prior values (or unsets keys that were previously absent).
func (e *InlineExecutor) overlayEnv(env map[string]string) func() {
	if len(env) == 0 {
		return func() {}
	}
	e.envMu.Lock()
	prior := make(map[string]*string, len(env))
	for k, v := range env {
		if old, ok := os.LookupEnv(k); ok {
			oldCopy := old
			prior[k] = &oldCopy
		} else {
			prior[k] = nil
		}
		os.Setenv(k, v)
	}
	return func() {
		for k, old := range prior {
			if old == nil {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, *old)
			}
		}
		e.envMu.Unlock()
	}
}
