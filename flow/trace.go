package flow

import (
	"sync"
	"time"
)

// TraceEntry records one completed node invocation: what it was given,
// what it produced, how long it took, and what it was scheduled to run
// next. InputPreview/OutputPreview carry length-bounded JSON renderings
// of Input/Output for inclusion in Mermaid labels without re-serialising
// (and potentially re-truncating differently) at render time.
type TraceEntry struct {
	Sequence      int64          `json:"sequence"`
	NodeID        string         `json:"node_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	DurationMS    int64          `json:"duration_ms"`
	Input         NodeInput      `json:"input"`
	Output        NodeOutput     `json:"output"`
	InputPreview  string         `json:"input_preview"`
	OutputPreview string         `json:"output_preview"`
	Scheduled     []string       `json:"scheduled"`
	Error         *string        `json:"error,omitempty"`
}

// Trace is an append-only, mutex-guarded record of every invocation in a
// run. Entries are appended in dispatch-completion order but carry their
// own Sequence (dispatch order) so callers can recover either ordering.
type Trace struct {
	mu      sync.Mutex
	entries []TraceEntry
}

// NewTrace returns an empty Trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Append adds entry to the trace. Safe for concurrent use by multiple
// in-flight node invocations.
func (t *Trace) Append(entry TraceEntry) {
	entry.InputPreview = preview(entry.Input)
	entry.OutputPreview = preview(entry.Output)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

// Snapshot returns a copy of the entries recorded so far, safe to retain
// and mutate without affecting the live trace.
func (t *Trace) Snapshot() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports how many entries have been recorded.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
