// Package flow implements the Conductor flow engine: the scheduling loop,
// the node execution pipeline and its three executor strategies, the
// shared-state concurrency discipline, and the trace/Mermaid model.
package flow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// StatusSuccess is the status a NodeOutput carries when a node returns
// without producing one explicitly.
const StatusSuccess = "success"

// StatusError is the status assigned to a NodeOutput produced from an
// uncaught executor error.
const StatusError = "error"

// StatusTimeout is the status assigned to a NodeOutput produced when a
// node's execution exceeds its timeout.
const StatusTimeout = "timeout"

// DefaultTransitionKey is the reserved transitions key used as a fallback
// when no explicit status matches.
const DefaultTransitionKey = "default"

// NodeInput is the envelope a node receives on invocation.
type NodeInput struct {
	// Payload is the prior node's Data, or the caller-provided seed for
	// start nodes.
	Payload any `json:"payload"`

	// Metadata carries engine-attached context. At minimum it holds the
	// originating node id for non-start invocations.
	Metadata map[string]any `json:"metadata"`

	// Source is the id of the predecessor that scheduled this invocation,
	// or nil for start nodes.
	Source *string `json:"source"`
}

// NodeOutput is the envelope a node produces.
type NodeOutput struct {
	Status   string         `json:"status"`
	Data     any            `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

// Normalize converts a loose node return value into a NodeOutput following
// §3 of the spec:
//
//   - a NodeOutput is returned with Status defaulted to "success" if empty;
//   - a map containing at least one of status/data/metadata is treated as a
//     partial NodeOutput, missing fields defaulted;
//   - any other value becomes {status:"success", data:value, metadata:{}}.
//
// Normalize is idempotent: Normalize(Normalize(v)) == Normalize(v).
func Normalize(v any) NodeOutput {
	switch t := v.(type) {
	case NodeOutput:
		return completeOutput(t)
	case *NodeOutput:
		if t == nil {
			return NodeOutput{Status: StatusSuccess, Metadata: map[string]any{}}
		}
		return completeOutput(*t)
	case map[string]any:
		if hasAnyKey(t, "status", "data", "metadata") {
			out := NodeOutput{}
			if s, ok := t["status"]; ok {
				if str, ok := s.(string); ok {
					out.Status = str
				}
			}
			out.Data = t["data"]
			if m, ok := t["metadata"].(map[string]any); ok {
				out.Metadata = m
			}
			return completeOutput(out)
		}
	}
	return NodeOutput{Status: StatusSuccess, Data: v, Metadata: map[string]any{}}
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func completeOutput(out NodeOutput) NodeOutput {
	if out.Status == "" {
		out.Status = StatusSuccess
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return out
}

// ParseNodeOutput parses raw bytes (typically a docker node's stdout) into a
// NodeOutput per the §4.3.3 docker wire contract. It uses gjson to test for
// the presence of status/data/metadata fields without committing to a
// struct shape up front, since a container may legitimately emit any JSON
// value, not just an object shaped like NodeOutput.
func ParseNodeOutput(raw []byte) (NodeOutput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return NodeOutput{}, errors.New("empty output")
	}
	if !gjson.ValidBytes(trimmed) {
		return NodeOutput{}, fmt.Errorf("invalid json: %s", truncate(string(trimmed), previewLen))
	}

	parsed := gjson.ParseBytes(trimmed)
	if parsed.IsObject() {
		hasStatus := parsed.Get("status").Exists()
		hasData := parsed.Get("data").Exists()
		hasMetadata := parsed.Get("metadata").Exists()
		if hasStatus || hasData || hasMetadata {
			out := NodeOutput{Metadata: map[string]any{}}
			if hasStatus {
				out.Status = parsed.Get("status").String()
			}
			if hasData {
				out.Data = parsed.Get("data").Value()
			}
			if hasMetadata {
				if m, ok := parsed.Get("metadata").Value().(map[string]any); ok {
					out.Metadata = m
				}
			}
			return completeOutput(out), nil
		}
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return NodeOutput{}, err
	}
	return NodeOutput{Status: StatusSuccess, Data: v, Metadata: map[string]any{}}, nil
}

const previewLen = 200

// truncate bounds a string to n runes, appending an ellipsis marker when it
// had to cut content off. Used for trace and Mermaid label previews.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// preview renders a compact, length-bounded JSON preview of an arbitrary
// value for inclusion in trace entries and Mermaid labels.
func preview(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return truncate(fmt.Sprintf("%v", v), previewLen)
	}
	return truncate(string(b), previewLen)
}
