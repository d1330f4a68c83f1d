package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the engine's Prometheus instrumentation, grounded on the
// teacher's PrometheusMetrics (graph/metrics.go) and narrowed to the
// collectors this engine actually has events for: per-node duration, a
// running count by status, a timeout count, and gauges for in-flight
// invocations and queue depth.
type Metrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	inflight prometheus.Gauge
	queue    prometheus.Gauge
}

// NewMetrics registers the conductor_ namespaced collectors with registry.
// A nil registry uses prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "conductor",
			Name:      "node_duration_ms",
			Help:      "Node invocation duration in milliseconds.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "nodes_total",
			Help:      "Completed node invocations by terminal status.",
		}, []string{"node_id", "status"}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "conductor",
			Name:      "timeouts_total",
			Help:      "Node invocations that exceeded their timeout.",
		}, []string{"node_id"}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "conductor",
			Name:      "inflight_nodes",
			Help:      "Node invocations currently executing.",
		}),
		queue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "conductor",
			Name:      "queue_depth",
			Help:      "Invocations dispatched but not yet admitted past the concurrency gate.",
		}),
	}
}

// ObserveInvocation records one completed node invocation.
func (m *Metrics) ObserveInvocation(nodeID, status string, d time.Duration) {
	m.duration.WithLabelValues(nodeID, status).Observe(float64(d.Milliseconds()))
	m.total.WithLabelValues(nodeID, status).Inc()
	if status == StatusTimeout {
		m.timeouts.WithLabelValues(nodeID).Inc()
	}
}

// SetInflight records the current number of invocations past the
// concurrency gate and actively executing.
func (m *Metrics) SetInflight(n int) { m.inflight.Set(float64(n)) }

// SetQueueDepth records the current number of invocations dispatched but
// still waiting on the concurrency gate.
func (m *Metrics) SetQueueDepth(n int) { m.queue.Set(float64(n)) }
