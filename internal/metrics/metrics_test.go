package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.IncCompleted()
	m.IncCompleted()
	m.IncStepFailure(StepNotify)
	m.IncRejected("shipping")
	m.ObserveFinalize(250 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := findMetricFamily(mfs, "checkout_orders_completed_total"); got == nil {
		t.Fatalf("completed counter not exported")
	} else if v := got.GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Fatalf("expected completed=2, got %f", v)
	}

	if got, err := fetchCounterValue(mfs, "checkout_step_failures_total", "step", StepNotify); err != nil {
		t.Fatalf("fetch step failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected notify failures=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "checkout_validation_failures_total", "phase", "shipping"); err != nil {
		t.Fatalf("fetch rejected: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejected=1, got %f", got)
	}

	hist := findMetricFamily(mfs, "checkout_finalize_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected finalize duration to be observed")
	}
}

func TestTrackingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTrackingMetrics(reg)

	m.IncEvents()
	m.AddSubscribers(2)
	m.AddSubscribers(-1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if v := findMetricFamily(mfs, "order_status_subscribers").GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Fatalf("expected subscribers=1, got %f", v)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var checkout *CheckoutMetrics
	checkout.IncCompleted()
	checkout.IncStepFailure("")
	checkout.ObserveFinalize(time.Second)

	unregistered := NewCheckoutMetrics(nil)
	unregistered.IncRejected("payment")

	var tracking *TrackingMetrics
	tracking.IncEvents()
	tracking.AddSubscribers(1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
