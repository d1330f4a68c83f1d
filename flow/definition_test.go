package flow

import "testing"

func validFlow() *FlowDefinition {
	return &FlowDefinition{
		Name:  "valid",
		Start: []string{"start"},
		Nodes: map[string]NodeDefinition{
			"start": {ID: "start", Executor: ExecutorInline, Target: "start", Transitions: map[string][]string{"success": {"end"}}},
			"end":   {ID: "end", Executor: ExecutorInline, Target: "end"},
		},
	}
}

func TestFlowDefinition_Validate_OK(t *testing.T) {
	if err := validFlow().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFlowDefinition_Validate_NoStart(t *testing.T) {
	f := validFlow()
	f.Start = nil
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an error for an empty start list")
	}
}

func TestFlowDefinition_Validate_StartReferencesUnknownNode(t *testing.T) {
	f := validFlow()
	f.Start = []string{"nope"}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an error for an undefined start node")
	}
}

func TestFlowDefinition_Validate_TransitionReferencesUnknownNode(t *testing.T) {
	f := validFlow()
	start := f.Nodes["start"]
	start.Transitions["success"] = []string{"ghost"}
	f.Nodes["start"] = start
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an error for a transition to an undefined node")
	}
}

func TestFlowDefinition_Validate_UnknownExecutor(t *testing.T) {
	f := validFlow()
	start := f.Nodes["start"]
	start.Executor = "teleport"
	f.Nodes["start"] = start
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an error for an unknown executor kind")
	}
}

func TestFlowDefinition_Validate_EmptyTarget(t *testing.T) {
	f := validFlow()
	start := f.Nodes["start"]
	start.Target = ""
	f.Nodes["start"] = start
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an error for an empty target")
	}
}

func TestNodeDefinition_ResolveSuccessors(t *testing.T) {
	n := NodeDefinition{Transitions: map[string][]string{
		"success": {"a", "b"},
		"default": {"fallback"},
	}}
	if got := n.resolveSuccessors("success"); len(got) != 2 {
		t.Fatalf("resolveSuccessors(success) = %v", got)
	}
	if got := n.resolveSuccessors("unmatched"); len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("resolveSuccessors(unmatched) = %v, want [fallback]", got)
	}

	terminal := NodeDefinition{Transitions: map[string][]string{}}
	if got := terminal.resolveSuccessors("anything"); got != nil {
		t.Fatalf("resolveSuccessors on a node with no transitions = %v, want nil", got)
	}
}
