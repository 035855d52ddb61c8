// Package metrics provides Prometheus instrumentation for the object pool.
//
// # Overview
//
// A PoolMetrics value owns one set of collectors registered against a
// caller-supplied prometheus.Registerer, so every registry (and every test)
// can keep its own series:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewPoolMetrics(reg, "objectpool")
//	r := pool.NewRegistry(spawner, pool.WithMetrics(m))
//
// # Metric Types
//
// Gauges: active and inactive instance counts per pooled type.
// Counters: acquisitions (by path), returns, instances created (by phase)
// and failures (by operation and error type).
//
// A nil *PoolMetrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Acquisition paths
const (
	PathReuse = "reuse"
	PathGrow  = "grow"
)

// Creation phases
const (
	PhaseSeed = "seed"
	PhaseGrow = "grow"
)

// PoolMetrics groups the collectors of one pool registry.
type PoolMetrics struct {
	active   *prometheus.GaugeVec   // Instances currently acquired
	inactive *prometheus.GaugeVec   // Instances available for reuse
	acquires *prometheus.CounterVec // Successful acquisitions
	returns  *prometheus.CounterVec // Successful returns
	created  *prometheus.CounterVec // Instances produced by the spawner
	failures *prometheus.CounterVec // Reported failures
}

// NewPoolMetrics creates and registers the pool collectors.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewPoolMetrics(reg prometheus.Registerer, namespace string) *PoolMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PoolMetrics{
		active: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "active_instances",
				Help:      "Number of pooled instances currently acquired",
			},
			[]string{"type"},
		),
		inactive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "inactive_instances",
				Help:      "Number of pooled instances available for acquisition",
			},
			[]string{"type"},
		),
		acquires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "acquires_total",
				Help:      "Total successful acquisitions by path (reuse or grow)",
			},
			[]string{"type", "path"},
		),
		returns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "returns_total",
				Help:      "Total successful returns",
			},
			[]string{"type"},
		),
		created: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "instances_created_total",
				Help:      "Total instances produced by the spawner by phase (seed or grow)",
			},
			[]string{"type", "phase"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "failures_total",
				Help:      "Total reported pool failures",
			},
			[]string{"operation", "error_type"},
		),
	}
}

// SetSizes publishes the active and inactive counts of one type
func (m *PoolMetrics) SetSizes(typeName string, active, inactive int) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(typeName).Set(float64(active))
	m.inactive.WithLabelValues(typeName).Set(float64(inactive))
}

// ObserveAcquire counts a successful acquisition
func (m *PoolMetrics) ObserveAcquire(typeName, path string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(typeName, path).Inc()
}

// ObserveReturn counts a successful return
func (m *PoolMetrics) ObserveReturn(typeName string) {
	if m == nil {
		return
	}
	m.returns.WithLabelValues(typeName).Inc()
}

// ObserveCreated counts an instance produced by the spawner
func (m *PoolMetrics) ObserveCreated(typeName, phase string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(typeName, phase).Inc()
}

// ObserveFailure counts a reported failure
func (m *PoolMetrics) ObserveFailure(operation, errorType string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, errorType).Inc()
}

// Forget drops the size series of every listed type
func (m *PoolMetrics) Forget(typeNames ...string) {
	if m == nil {
		return
	}
	for _, name := range typeNames {
		m.active.DeleteLabelValues(name)
		m.inactive.DeleteLabelValues(name)
	}
}
