package flow

import "fmt"

// ExecutorKind names one of the three node execution strategies.
type ExecutorKind string

const (
	ExecutorInline  ExecutorKind = "inline"
	ExecutorProcess ExecutorKind = "process"
	ExecutorDocker  ExecutorKind = "docker"
)

// NodeDefinition describes one node of a flow: how to run it and where its
// output routes next.
type NodeDefinition struct {
	ID       string       `json:"id" yaml:"id" toml:"id"`
	Executor ExecutorKind `json:"executor" yaml:"executor" toml:"executor"`

	// Target is interpreted per Executor: a "module:function" registry key
	// for inline/process nodes, an image reference for docker nodes.
	Target string `json:"target" yaml:"target" toml:"target"`

	// TimeoutSeconds overrides the engine default for this node. Zero means
	// "use the engine default"; a node with neither gets no timeout.
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`

	// Env is passed to the node's callable as its env argument (inline and
	// process executors); the inline executor also overlays it onto the
	// process environment for the duration of the call. Docker nodes
	// receive it as container environment variables (`-e K=V`).
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`

	// Transitions maps an output status to the list of successor node ids
	// to schedule. The reserved key "default" is consulted when the
	// output's status has no explicit entry. An empty or absent resolution
	// makes this invocation terminal.
	Transitions map[string][]string `json:"transitions,omitempty" yaml:"transitions,omitempty" toml:"transitions,omitempty"`
}

// FlowDefinition is the full graph: its entry points and its node set.
type FlowDefinition struct {
	Name  string                    `json:"name" yaml:"name" toml:"name"`
	Start []string                  `json:"start" yaml:"start" toml:"start"`
	Nodes map[string]NodeDefinition `json:"nodes" yaml:"nodes" toml:"nodes"`
}

// Validate checks the structural invariants a FlowDefinition must satisfy
// before it can be run: every start id and every transition target must
// name a node that actually exists, and every node must declare a known
// executor kind. These are configuration errors — caught before dispatch,
// never surfaced as a node-runtime failure.
func (f *FlowDefinition) Validate() error {
	if len(f.Start) == 0 {
		return fmt.Errorf("%w: flow %q has no start nodes", ErrInvalidDefinition, f.Name)
	}
	if len(f.Nodes) == 0 {
		return fmt.Errorf("%w: flow %q has no nodes", ErrInvalidDefinition, f.Name)
	}
	for _, id := range f.Start {
		if _, ok := f.Nodes[id]; !ok {
			return fmt.Errorf("%w: start node %q is not defined", ErrMissingSuccessor, id)
		}
	}
	for id, n := range f.Nodes {
		if id != n.ID && n.ID != "" {
			return fmt.Errorf("%w: node key %q does not match its id %q", ErrInvalidDefinition, id, n.ID)
		}
		switch n.Executor {
		case ExecutorInline, ExecutorProcess, ExecutorDocker:
		default:
			return fmt.Errorf("%w: node %q has unknown executor %q", ErrUnknownExecutor, id, n.Executor)
		}
		if n.Target == "" {
			return fmt.Errorf("%w: node %q has no target", ErrInvalidDefinition, id)
		}
		for status, successors := range n.Transitions {
			for _, s := range successors {
				if _, ok := f.Nodes[s]; !ok {
					return fmt.Errorf("%w: node %q transition %q references unknown node %q", ErrMissingSuccessor, id, status, s)
				}
			}
		}
	}
	return nil
}

// resolveSuccessors applies §4.2.2's routing rule: an explicit entry for
// the output's status wins; otherwise the "default" entry; otherwise the
// invocation is terminal (nil).
func (n NodeDefinition) resolveSuccessors(status string) []string {
	if list, ok := n.Transitions[status]; ok {
		return list
	}
	if list, ok := n.Transitions[DefaultTransitionKey]; ok {
		return list
	}
	return nil
}
