package logging

import "context"

// Emitter receives observability events from the engine and CLI.
// Implementations must be non-blocking and safe for concurrent use; Emit
// is called from node-invocation goroutines and must never panic.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
