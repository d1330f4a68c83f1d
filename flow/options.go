package flow

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures an Engine at construction, following the teacher's
// functional-options pattern (graph/options.go) generalised from a
// generic Engine[S] to this package's JSON-envelope Engine.
type Option func(*engineConfig) error

type engineConfig struct {
	maxConcurrency  int
	processPoolSize int
	defaultTimeout  float64 // seconds; 0 = no default
	metrics         *Metrics
	tracer          trace.Tracer
}

func defaultConfig() engineConfig {
	return engineConfig{
		maxConcurrency:  4,
		processPoolSize: 1,
	}
}

// WithMaxConcurrency bounds the number of node invocations in flight at
// once, across the whole run. Default: 4 (§6).
func WithMaxConcurrency(n int) Option {
	return func(c *engineConfig) error {
		if n < 1 {
			return &EngineError{Code: "INVALID_OPTION", Message: "max concurrency must be at least 1"}
		}
		c.maxConcurrency = n
		return nil
	}
}

// WithProcessPoolSize sets the number of long-lived workers backing the
// process executor. Default: 1 (§6).
func WithProcessPoolSize(n int) Option {
	return func(c *engineConfig) error {
		if n < 1 {
			return &EngineError{Code: "INVALID_OPTION", Message: "process pool size must be at least 1"}
		}
		c.processPoolSize = n
		return nil
	}
}

// WithDefaultNodeTimeout sets the timeout applied to nodes that do not
// declare their own. Default: no timeout.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(c *engineConfig) error {
		c.defaultTimeout = d.Seconds()
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector. Default: metrics
// disabled.
func WithMetrics(m *Metrics) Option {
	return func(c *engineConfig) error {
		c.metrics = m
		return nil
	}
}

// WithTracer wraps every executor in an OpenTelemetry span using tracer.
// Default: no tracing.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *engineConfig) error {
		c.tracer = tracer
		return nil
	}
}
