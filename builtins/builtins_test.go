package builtins

import (
	"context"
	"testing"

	"github.com/conductorhq/conductor/flow"
	"github.com/conductorhq/conductor/models"
)

func TestDecodeChatPayload_ParsesMessages(t *testing.T) {
	payload := map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
			map[string]any{"role": "assistant", "content": "hello"},
		},
	}
	out, err := decodeChatPayload(payload)
	if err != nil {
		t.Fatalf("decodeChatPayload: %v", err)
	}
	if len(out.Messages) != 2 || out.Messages[0].Role != "user" || out.Messages[1].Content != "hello" {
		t.Fatalf("decoded = %#v", out.Messages)
	}
}

func TestDecodeChatPayload_RejectsNonObject(t *testing.T) {
	if _, err := decodeChatPayload("not an object"); err == nil {
		t.Fatalf("expected an error for a non-object payload")
	}
}

func TestDecodeChatPayload_RejectsMissingMessages(t *testing.T) {
	if _, err := decodeChatPayload(map[string]any{}); err == nil {
		t.Fatalf("expected an error for a payload with no messages field")
	}
}

func TestDecodeChatPayload_SkipsMalformedEntries(t *testing.T) {
	payload := map[string]any{"messages": []any{"not a map", map[string]any{"role": "user", "content": "hi"}}}
	out, err := decodeChatPayload(payload)
	if err != nil {
		t.Fatalf("decodeChatPayload: %v", err)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("messages = %#v, want one surviving entry", out.Messages)
	}
}

func TestRegisterMock_InvokesUnderlyingModel(t *testing.T) {
	registry := flow.NewRegistry()
	mock := &models.MockChatModel{Responses: []models.ChatOut{{Text: "pong"}}}
	RegisterMock(registry, mock)

	call, ok := registry.Lookup("llm:mock_chat")
	if !ok {
		t.Fatalf("llm:mock_chat not registered")
	}
	payload := map[string]any{"messages": []any{map[string]any{"role": "user", "content": "ping"}}}
	result, err := call(context.Background(), flow.NodeInput{Payload: payload}, nil, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["text"] != "pong" {
		t.Fatalf("result = %#v, want text=pong", result)
	}
	if mock.Calls() != 1 {
		t.Fatalf("Calls = %d, want 1", mock.Calls())
	}
}

func TestRegisterMock_PropagatesChatPayloadErrors(t *testing.T) {
	registry := flow.NewRegistry()
	RegisterMock(registry, &models.MockChatModel{})
	call, _ := registry.Lookup("llm:mock_chat")
	if _, err := call(context.Background(), flow.NodeInput{Payload: "bad"}, nil, nil); err == nil {
		t.Fatalf("expected a payload decode error")
	}
}

func TestRegister_BindsBothProviders(t *testing.T) {
	registry := flow.NewRegistry()
	Register(registry, "", "")
	if _, ok := registry.Lookup("llm:anthropic_chat"); !ok {
		t.Fatalf("llm:anthropic_chat not registered")
	}
	if _, ok := registry.Lookup("llm:openai_chat"); !ok {
		t.Fatalf("llm:openai_chat not registered")
	}
}
