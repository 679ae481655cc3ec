package metrics

import "github.com/prometheus/client_golang/prometheus"

// TrackingMetrics records order status change traffic
type TrackingMetrics struct {
	events      prometheus.Counter
	subscribers prometheus.Gauge
}

// NewTrackingMetrics registers the tracking collectors on the provided registerer.
func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	if reg == nil {
		return &TrackingMetrics{}
	}
	events := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_status_events_total",
		Help: "Order change events received from the database.",
	})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "order_status_subscribers",
		Help: "Currently attached order status subscribers.",
	})
	reg.MustRegister(events, subscribers)
	return &TrackingMetrics{events: events, subscribers: subscribers}
}

// IncEvents counts a received change event.
func (m *TrackingMetrics) IncEvents() {
	if m == nil || m.events == nil {
		return
	}
	m.events.Inc()
}

// AddSubscribers adjusts the attached subscriber gauge.
func (m *TrackingMetrics) AddSubscribers(delta int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}
