package models

import (
	"context"
	"testing"
)

type fakeAnthropicClient struct {
	systemPrompt string
	messages     []Message
	out          ChatOut
	err          error
}

func (f *fakeAnthropicClient) createMessage(_ context.Context, systemPrompt string, messages []Message, _ []ToolSpec) (ChatOut, error) {
	f.systemPrompt = systemPrompt
	f.messages = messages
	return f.out, f.err
}

func TestAnthropicModel_SplitsSystemPromptFromConversation(t *testing.T) {
	fake := &fakeAnthropicClient{out: ChatOut{Text: "hi"}}
	m := &AnthropicModel{client: fake}

	out, err := m.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "hi" {
		t.Fatalf("Text = %q, want hi", out.Text)
	}
	if fake.systemPrompt != "be terse" {
		t.Fatalf("systemPrompt = %q", fake.systemPrompt)
	}
	if len(fake.messages) != 1 || fake.messages[0].Content != "hello" {
		t.Fatalf("messages = %#v", fake.messages)
	}
}

func TestAnthropicModel_MergesMultipleSystemMessages(t *testing.T) {
	got, rest := extractSystemPrompt([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleUser, Content: "c"},
	})
	if got != "a\n\nb" {
		t.Fatalf("merged system prompt = %q", got)
	}
	if len(rest) != 1 || rest[0].Content != "c" {
		t.Fatalf("rest = %#v", rest)
	}
}

func TestAnthropicModel_RejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &AnthropicModel{client: &fakeAnthropicClient{}}
	if _, err := m.Chat(ctx, nil, nil); err == nil {
		t.Fatalf("expected an error for a cancelled context")
	}
}

func TestAnthropicModel_PropagatesClientError(t *testing.T) {
	wantErr := context.DeadlineExceeded
	fake := &fakeAnthropicClient{err: wantErr}
	m := &AnthropicModel{client: fake}
	if _, err := m.Chat(context.Background(), nil, nil); err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestAnthropicDefaultClient_RequiresAPIKey(t *testing.T) {
	c := &anthropicDefaultClient{}
	if _, err := c.createMessage(context.Background(), "", nil, nil); err == nil {
		t.Fatalf("expected an error when no API key is configured")
	}
}
