package flow

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedExecutor wraps an Executor so every invocation becomes an
// OpenTelemetry span, attaching node id and status as attributes and
// marking the span errored on an "error" or "timeout" status (custom
// statuses leave it unset). Grounded on the
// teacher's OTelEmitter (graph/emit/otel.go), adapted from "one event one
// span" to "one node invocation one span" since this engine's executors
// are the natural unit of instrumentation.
type TracedExecutor struct {
	Tracer trace.Tracer
	Next   Executor
}

// WrapTraced returns next wrapped with OpenTelemetry spans created from
// tracer.
func WrapTraced(tracer trace.Tracer, next Executor) *TracedExecutor {
	return &TracedExecutor{Tracer: tracer, Next: next}
}

func (t *TracedExecutor) Execute(ctx context.Context, node NodeDefinition, input NodeInput) (NodeOutput, error) {
	spanCtx, span := t.Tracer.Start(ctx, "node:"+node.ID)
	defer span.End()

	span.SetAttributes(
		attribute.String("node.id", node.ID),
		attribute.String("node.executor", string(node.Executor)),
		attribute.String("node.target", node.Target),
	)

	out, err := t.Next.Execute(spanCtx, node, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	span.SetAttributes(attribute.String("node.status", out.Status))
	if out.Status == StatusError || out.Status == StatusTimeout {
		span.SetStatus(codes.Error, out.Status)
	}
	return out, nil
}
