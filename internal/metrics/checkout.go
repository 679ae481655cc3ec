// Package metrics exposes Prometheus collectors for the storefront flows.
// A nil collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout step names used as label values
const (
	StepPersist = "persist"
	StepNotify  = "notify"
)

// CheckoutMetrics records checkout finalization outcomes
type CheckoutMetrics struct {
	orders       prometheus.Counter
	stepFailures *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout collectors on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_orders_completed_total",
		Help: "Checkouts that reached confirmation.",
	})
	stepFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_step_failures_total",
		Help: "Finalization steps that failed without aborting checkout.",
	}, []string{"step"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_validation_failures_total",
		Help: "Form submissions rejected by validation.",
	}, []string{"phase"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_finalize_duration_seconds",
		Help:    "Duration of checkout finalization in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(orders, stepFailures, rejected, duration)
	return &CheckoutMetrics{
		orders:       orders,
		stepFailures: stepFailures,
		rejected:     rejected,
		duration:     duration,
	}
}

// IncCompleted counts a checkout that reached confirmation.
func (m *CheckoutMetrics) IncCompleted() {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.Inc()
}

// IncStepFailure counts a persist or notify failure.
func (m *CheckoutMetrics) IncStepFailure(step string) {
	if m == nil || m.stepFailures == nil {
		return
	}
	m.stepFailures.WithLabelValues(normalizeLabel(step)).Inc()
}

// IncRejected counts a form rejected in the given phase.
func (m *CheckoutMetrics) IncRejected(phase string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(phase)).Inc()
}

// ObserveFinalize records how long finalization took.
func (m *CheckoutMetrics) ObserveFinalize(duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
