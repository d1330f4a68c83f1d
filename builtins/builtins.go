// Package builtins registers the flow callables Conductor ships with,
// wiring flow.Registry against the models package so a flow can target
// an LLM node out of the box.
package builtins

import (
	"context"
	"fmt"

	"github.com/conductorhq/conductor/flow"
	"github.com/conductorhq/conductor/models"
)

// chatPayload is the expected shape of a NodeInput.Payload for an
// "llm:*" node: a message list plus optional tool specs.
type chatPayload struct {
	Messages []chatMessage    `json:"messages"`
	Tools    []models.ToolSpec `json:"tools,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func decodeChatPayload(payload any) (chatPayload, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return chatPayload{}, fmt.Errorf("builtins: llm node payload must be an object with a messages field")
	}
	raw, ok := m["messages"]
	if !ok {
		return chatPayload{}, fmt.Errorf("builtins: llm node payload missing messages field")
	}
	list, ok := raw.([]any)
	if !ok {
		return chatPayload{}, fmt.Errorf("builtins: messages field must be a list")
	}

	var out chatPayload
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := entry["role"].(string)
		content, _ := entry["content"].(string)
		out.Messages = append(out.Messages, chatMessage{Role: role, Content: content})
	}
	if tools, ok := m["tools"].([]any); ok {
		for _, item := range tools {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := entry["name"].(string)
			description, _ := entry["description"].(string)
			schema, _ := entry["schema"].(map[string]any)
			out.Tools = append(out.Tools, models.ToolSpec{Name: name, Description: description, Schema: schema})
		}
	}
	return out, nil
}

func chatCallable(model models.ChatModel) flow.Callable {
	return func(ctx context.Context, in flow.NodeInput, state flow.StateAccessor, env map[string]string) (any, error) {
		payload, err := decodeChatPayload(in.Payload)
		if err != nil {
			return nil, err
		}
		messages := make([]models.Message, len(payload.Messages))
		for i, m := range payload.Messages {
			messages[i] = models.Message{Role: m.Role, Content: m.Content}
		}
		out, err := model.Chat(ctx, messages, payload.Tools)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"text":       out.Text,
			"tool_calls": out.ToolCalls,
		}, nil
	}
}

// Register binds the built-in "llm:anthropic_chat" and "llm:openai_chat"
// targets against the given registry, using API keys from env (an empty
// key still registers the callable; the underlying adapter returns an
// auth error at call time, matching how a misconfigured node surfaces as
// a node-runtime error rather than a dispatch-time one).
func Register(registry *flow.Registry, anthropicAPIKey, openaiAPIKey string) {
	registry.Register("llm:anthropic_chat", chatCallable(models.NewAnthropicModel(anthropicAPIKey, "")))
	registry.Register("llm:openai_chat", chatCallable(models.NewOpenAIModel(openaiAPIKey, "")))
}

// RegisterMock binds "llm:mock_chat" against a MockChatModel, for flows
// under test that want to exercise the llm node shape without a live key.
func RegisterMock(registry *flow.Registry, mock *models.MockChatModel) {
	registry.Register("llm:mock_chat", chatCallable(mock))
}
