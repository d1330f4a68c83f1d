package logging

import "context"

// NullEmitter discards every event. It is the Engine's default logger so
// that constructing an Engine never requires wiring up observability.
type NullEmitter struct{}

func (NullEmitter) Emit(Event)                                {}
func (NullEmitter) EmitBatch(context.Context, []Event) error   { return nil }
func (NullEmitter) Flush(context.Context) error                { return nil }
