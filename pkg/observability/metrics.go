package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a private registry. It implements
// ledger.Observer so calculators report straight into it.
type Metrics struct {
	registry *prometheus.Registry

	schedulesComputed prometheus.Counter
	calculatorHits    prometheus.Counter
	cacheLookups      *prometheus.CounterVec
}

// NewMetrics registers the counters under namespace on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		schedulesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_computations_total",
			Help:      "Repayment schedules built by a calculator.",
		}),
		calculatorHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculator_cache_hits_total",
			Help:      "Repayment schedules served from a calculator's memo.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_cache_lookups_total",
			Help:      "Rendered schedule cache lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.schedulesComputed,
		m.calculatorHits,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ScheduleComputed counts a schedule built by a calculator.
func (m *Metrics) ScheduleComputed() { m.schedulesComputed.Inc() }

// ScheduleCacheHit counts a schedule served from a calculator memo.
func (m *Metrics) ScheduleCacheHit() { m.calculatorHits.Inc() }

// CacheHit and CacheMiss count schedule cache lookups by result.
func (m *Metrics) CacheHit()  { m.cacheLookups.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.cacheLookups.WithLabelValues("miss").Inc() }

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
