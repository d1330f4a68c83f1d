package main

import (
	"errors"

	"github.com/conductorhq/conductor/flow"
)

// configError wraps a fatal configuration or resolution failure (§7,
// taxonomy 1-2): a malformed flow/global, a missing node id, an unknown
// executor, or an unresolvable resource reference. It always maps to exit
// code 2.
type configError struct {
	cause error
}

func (e *configError) Error() string { return e.cause.Error() }
func (e *configError) Unwrap() error { return e.cause }

// exitCodeFor maps a command error to the process exit code the spec's
// CLI surface documents: 2 for configuration errors, 1 for any other
// engine-internal failure. A successful run always exits 0, regardless of
// node-level "error"/"timeout" statuses, since those are folded into
// TerminalOutputs rather than returned as a Go error.
func exitCodeFor(err error) int {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return 2
	}
	var engErr *flow.EngineError
	if errors.As(err, &engErr) {
		return 2
	}
	if errors.Is(err, flow.ErrInvalidDefinition) ||
		errors.Is(err, flow.ErrUnknownExecutor) ||
		errors.Is(err, flow.ErrMissingSuccessor) ||
		errors.Is(err, flow.ErrUnregisteredTarget) {
		return 2
	}
	return 1
}
