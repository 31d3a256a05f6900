package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	plansComputed      *prometheus.CounterVec
	plansDispatched    *prometheus.CounterVec
	refreshCycles      prometheus.Counter
	refreshDuration    prometheus.Histogram
	quarterTransitions prometheus.Counter
	providerErrors     *prometheus.CounterVec
	portfoliosTracked  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		plansComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_plans_computed_total",
				Help: "Total number of order plans computed",
			},
			[]string{"strategy", "phase"},
		),

		plansDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_plans_dispatched_total",
				Help: "Total number of order plans dispatched to notifiers",
			},
			[]string{"notifier", "status"},
		),

		refreshCycles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ladder_refresh_cycles_total",
				Help: "Total number of refresh cycles completed",
			},
		),

		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ladder_refresh_duration_seconds",
				Help:    "Refresh cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		quarterTransitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ladder_quarter_transitions_total",
				Help: "Total number of portfolios entering quarter stop-loss mode",
			},
		),

		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ladder_provider_errors_total",
				Help: "Total number of market data provider errors",
			},
			[]string{"provider"},
		),

		portfoliosTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ladder_portfolios_tracked",
				Help: "Number of portfolios currently tracked",
			},
		),
	}

	reg.MustRegister(r.plansComputed)
	reg.MustRegister(r.plansDispatched)
	reg.MustRegister(r.refreshCycles)
	reg.MustRegister(r.refreshDuration)
	reg.MustRegister(r.quarterTransitions)
	reg.MustRegister(r.providerErrors)
	reg.MustRegister(r.portfoliosTracked)

	return r
}

// RecordPlan records a computed order plan.
func (r *Registry) RecordPlan(strategy, phase string) {
	r.plansComputed.WithLabelValues(strategy, phase).Inc()
}

// RecordDispatch records a plan delivery attempt.
func (r *Registry) RecordDispatch(notifier, status string) {
	r.plansDispatched.WithLabelValues(notifier, status).Inc()
}

// RecordRefreshCycle records a refresh cycle completion.
func (r *Registry) RecordRefreshCycle(duration float64) {
	r.refreshCycles.Inc()
	r.refreshDuration.Observe(duration)
}

// RecordQuarterTransition records a portfolio entering stop-loss mode.
func (r *Registry) RecordQuarterTransition() {
	r.quarterTransitions.Inc()
}

// RecordProviderError records a market data fetch failure.
func (r *Registry) RecordProviderError(provider string) {
	r.providerErrors.WithLabelValues(provider).Inc()
}

// SetPortfoliosTracked sets the tracked portfolio count.
func (r *Registry) SetPortfoliosTracked(n int) {
	r.portfoliosTracked.Set(float64(n))
}
