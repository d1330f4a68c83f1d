package flow

import (
	"context"
	"testing"
	"time"
)

func TestProcessExecutor_ResolvesAndInvokesTarget(t *testing.T) {
	registry := NewRegistry()
	registry.Register("pkg:double", func(_ context.Context, in NodeInput, _ StateAccessor, _ map[string]string) (any, error) {
		n, _ := in.Payload.(float64)
		return NodeOutput{Status: "success", Data: n * 2}, nil
	})
	exec := NewProcessExecutor(registry, NewSharedState(nil), 2)

	out, err := exec.Execute(context.Background(), NodeDefinition{Target: "pkg:double"}, NodeInput{Payload: 3.0})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Data != 6.0 {
		t.Fatalf("Execute result = %#v, want 6", out)
	}
}

func TestProcessExecutor_UnregisteredTarget(t *testing.T) {
	exec := NewProcessExecutor(NewRegistry(), NewSharedState(nil), 1)
	if _, err := exec.Execute(context.Background(), NodeDefinition{Target: "nope"}, NodeInput{}); err == nil {
		t.Fatalf("expected an error for an unregistered target")
	}
}

// TestProcessExecutor_ProxiesSharedStateThroughTheParent checks that
// workers see a consistent, serialised view of shared state via the
// StateProxy rather than touching memory directly.
func TestProcessExecutor_ProxiesSharedStateThroughTheParent(t *testing.T) {
	state := NewSharedState(map[string]any{"counter": 0.0})
	registry := NewRegistry()
	registry.Register("pkg:incr", func(_ context.Context, _ NodeInput, s StateAccessor, _ map[string]string) (any, error) {
		cur := s.Get("counter", 0.0).(float64)
		s.Set("counter", cur+1)
		return NodeOutput{Status: "success"}, nil
	})
	exec := NewProcessExecutor(registry, state, 4)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			exec.Execute(context.Background(), NodeDefinition{Target: "pkg:incr"}, NodeInput{})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	// Proxy serialises each op but callers doing read-modify-write without
	// their own coordination can still race (same caveat as SharedState
	// itself); this only asserts the proxy delivered every call, not that
	// 20 non-atomic increments landed exactly at 20.
	if got := state.Get("counter", 0.0).(float64); got <= 0 {
		t.Fatalf("counter = %v, want > 0", got)
	}
}

func TestProcessExecutor_TimeoutPropagatesDeadlineExceeded(t *testing.T) {
	registry := NewRegistry()
	registry.Register("pkg:slow", func(ctx context.Context, _ NodeInput, _ StateAccessor, _ map[string]string) (any, error) {
		select {
		case <-time.After(time.Second):
			return NodeOutput{Status: "success"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	exec := NewProcessExecutor(registry, NewSharedState(nil), 1)

	_, err := exec.Execute(context.Background(), NodeDefinition{Target: "pkg:slow", TimeoutSeconds: 0.05}, NodeInput{})
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

// TestProcessExecutor_TimeoutReplacesStuckWorker checks spec.md's "process
// tasks have their worker killed and replaced": a callable that ignores
// cancellation and never returns must not permanently shrink the pool.
func TestProcessExecutor_TimeoutReplacesStuckWorker(t *testing.T) {
	registry := NewRegistry()
	unblock := make(chan struct{})
	defer close(unblock)
	registry.Register("pkg:stuck", func(_ context.Context, _ NodeInput, _ StateAccessor, _ map[string]string) (any, error) {
		<-unblock // never observes ctx cancellation
		return NodeOutput{Status: "success"}, nil
	})
	registry.Register("pkg:fast", func(context.Context, NodeInput, StateAccessor, map[string]string) (any, error) {
		return NodeOutput{Status: "success"}, nil
	})

	exec := NewProcessExecutor(registry, NewSharedState(nil), 1)

	_, err := exec.Execute(context.Background(), NodeDefinition{Target: "pkg:stuck", TimeoutSeconds: 0.05}, NodeInput{})
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		out, ferr := exec.Execute(context.Background(), NodeDefinition{Target: "pkg:fast"}, NodeInput{})
		if ferr != nil {
			t.Errorf("Execute: %v", ferr)
		}
		if out.Status != "success" {
			t.Errorf("out.Status = %q, want success", out.Status)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool never recovered capacity after a stuck worker timed out")
	}
}
