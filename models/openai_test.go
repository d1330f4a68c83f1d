package models

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeOpenAIClient struct {
	calls   int
	errs    []error
	out     ChatOut
	lastErr error
}

func (f *fakeOpenAIClient) createChatCompletion(_ context.Context, _ []Message, _ []ToolSpec) (ChatOut, error) {
	defer func() { f.calls++ }()
	if f.calls < len(f.errs) {
		return ChatOut{}, f.errs[f.calls]
	}
	return f.out, nil
}

func TestOpenAIModel_SucceedsWithoutRetry(t *testing.T) {
	fake := &fakeOpenAIClient{out: ChatOut{Text: "ok"}}
	m := &OpenAIModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := m.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "ok" || fake.calls != 1 {
		t.Fatalf("out = %#v, calls = %d", out, fake.calls)
	}
}

func TestOpenAIModel_RetriesTransientErrorsThenSucceeds(t *testing.T) {
	fake := &fakeOpenAIClient{
		errs: []error{errors.New("503 service unavailable")},
		out:  ChatOut{Text: "recovered"},
	}
	m := &OpenAIModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	out, err := m.Chat(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "recovered" || fake.calls != 2 {
		t.Fatalf("out = %#v, calls = %d", out, fake.calls)
	}
}

func TestOpenAIModel_DoesNotRetryPermanentErrors(t *testing.T) {
	permanent := errors.New("invalid api key")
	fake := &fakeOpenAIClient{errs: []error{permanent, permanent, permanent, permanent}}
	m := &OpenAIModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	_, err := m.Chat(context.Background(), nil, nil)
	if err != permanent {
		t.Fatalf("err = %v, want %v", err, permanent)
	}
	if fake.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", fake.calls)
	}
}

func TestOpenAIModel_GivesUpAfterMaxRetries(t *testing.T) {
	transient := errors.New("connection reset")
	fake := &fakeOpenAIClient{errs: []error{transient, transient, transient, transient}}
	m := &OpenAIModel{client: fake, maxRetries: 3, retryDelay: time.Millisecond}

	_, err := m.Chat(context.Background(), nil, nil)
	if err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
	if fake.calls != 4 {
		t.Fatalf("calls = %d, want 4 (1 + 3 retries)", fake.calls)
	}
}

func TestOpenAIModel_RejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &OpenAIModel{client: &fakeOpenAIClient{}, maxRetries: 1}
	if _, err := m.Chat(ctx, nil, nil); err == nil {
		t.Fatalf("expected an error for a cancelled context")
	}
}

func TestIsTransientError_ClassifiesKnownPatterns(t *testing.T) {
	cases := map[string]bool{
		"connection refused": true,
		"502 bad gateway":     true,
		"invalid api key":     false,
	}
	for msg, want := range cases {
		if got := isTransientError(errors.New(msg)); got != want {
			t.Errorf("isTransientError(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestIsRateLimitError_IdentifiesRateLimitType(t *testing.T) {
	if !isRateLimitError(&rateLimitError{message: "rate limited"}) {
		t.Fatalf("expected rateLimitError to be identified")
	}
	if isRateLimitError(errors.New("some other error")) {
		t.Fatalf("expected a plain error to not be identified as rate limit")
	}
}

func TestOpenAIDefaultClient_RequiresAPIKey(t *testing.T) {
	c := &openaiDefaultClient{}
	if _, err := c.createChatCompletion(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected an error when no API key is configured")
	}
}
