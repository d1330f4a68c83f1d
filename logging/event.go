// Package logging provides structured event emission for the flow engine
// and CLI: a small Emitter interface with text, JSON, null and in-memory
// implementations, grounded on the teacher's graph/emit package.
package logging

// Event is one observability event raised during a run: a dispatch, a
// node completion, a configuration failure.
type Event struct {
	RunID    string
	Sequence int64
	NodeID   string
	Msg      string
	Meta     map[string]any
}
