package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/orrery-sim/orrery"
)

func newSimulation(t *testing.T, collector *SimCollector) *orrery.Simulation {
	t.Helper()
	sim, err := orrery.NewSimulation(orrery.DefaultConfig(), orrery.WithObserver(collector))
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	earth, _ := orrery.BodyFromString("Earth")
	moon, _ := orrery.BodyFromString("Moon")
	sun, _ := orrery.BodyFromString("Sun")
	// The Moon waits for the Earth during the first steps.
	for _, body := range []orrery.CelestialBody{sun, moon} {
		if err := sim.AddBody(body, nil); err != nil {
			t.Fatalf("AddBody(%s): %v", body.Name, err)
		}
	}
	if err := sim.StepN(2); err != nil {
		t.Fatalf("StepN: %v", err)
	}
	if err := sim.AddBody(earth, nil); err != nil {
		t.Fatalf("AddBody(Earth): %v", err)
	}
	return sim
}

func TestCollectorRecordsSteps(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	sim := newSimulation(t, collector)
	if err := sim.StepN(3); err != nil {
		t.Fatalf("StepN: %v", err)
	}

	if got := testutil.ToFloat64(collector.Steps.WithLabelValues("rk4")); got != 5 {
		t.Fatalf("orrery_steps_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(collector.SkippedOverrides.WithLabelValues("Moon")); got != 2 {
		t.Fatalf("orrery_skipped_overrides_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Bodies); got != 3 {
		t.Fatalf("orrery_bodies = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.Elapsed); got != 5*3600 {
		t.Fatalf("orrery_elapsed_seconds = %v, want %v", got, 5*3600)
	}
	if got := testutil.ToFloat64(collector.Epoch); got != sim.Epoch() {
		t.Fatalf("orrery_epoch_julian_date = %v, want %v", got, sim.Epoch())
	}
	if got := testutil.ToFloat64(collector.Energy); got != sim.Energy() || got >= 0 {
		t.Fatalf("orrery_energy_joules = %v, want %v", got, sim.Energy())
	}
	if count := histogramSampleCount(t, reg, "orrery_step_duration_seconds", map[string]string{"method": "rk4"}); count != 5 {
		t.Fatalf("orrery_step_duration_seconds sample_count = %d, want 5", count)
	}
}

func TestCollectorEnergyDrift(t *testing.T) {
	collector, err := NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.ObserveEnergy(-100)
	collector.ObserveEnergy(-99)
	if got := testutil.ToFloat64(collector.EnergyDrift); got != 0.01 {
		t.Fatalf("orrery_energy_drift_ratio = %v, want 0.01", got)
	}
	if got := testutil.ToFloat64(collector.Energy); got != -99 {
		t.Fatalf("orrery_energy_joules = %v, want -99", got)
	}
}

func TestCollectorReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimCollector: %v", err)
	}
	if first.Steps != second.Steps || first.Bodies != second.Bodies {
		t.Fatal("expected the existing collectors to be reused")
	}
}

func TestMetricsHandlerExposesSimulationGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	newSimulation(t, collector)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"orrery_steps_total",
		"orrery_step_duration_seconds",
		"orrery_skipped_overrides_total",
		"orrery_bodies",
		"orrery_elapsed_seconds",
		"orrery_epoch_julian_date",
		"orrery_energy_joules",
		"orrery_energy_drift_ratio",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
