package observability

import (
	"fmt"
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orrery-sim/orrery"
)

// SimCollector bundles Prometheus metrics for a simulation loop. It implements
// orrery.StepObserver so it can be attached with orrery.WithObserver.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Steps            *prometheus.CounterVec
	StepDurations    *prometheus.HistogramVec
	SkippedOverrides *prometheus.CounterVec

	Bodies      prometheus.Gauge
	Elapsed     prometheus.Gauge
	Epoch       prometheus.Gauge
	Energy      prometheus.Gauge
	EnergyDrift prometheus.Gauge

	// Energy is computed every few steps since it is quadratic in the number of bodies.
	EnergyEvery uint64
	energy0     float64
}

// NewSimCollector registers simulation Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_steps_total",
		Help: "Total number of simulation steps, labeled by integration method.",
	}, []string{"method"}), "orrery_steps_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orrery_step_duration_seconds",
		Help:    "Wall clock duration of a simulation step in seconds.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 0.01, 0.05},
	}, []string{"method"}), "orrery_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	skipped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_skipped_overrides_total",
		Help: "Total number of analytic satellite overrides skipped because of an unresolved parent.",
	}, []string{"body"}), "orrery_skipped_overrides_total")
	if err != nil {
		return nil, err
	}
	bodies, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_bodies",
		Help: "Current number of registered bodies.",
	}), "orrery_bodies")
	if err != nil {
		return nil, err
	}
	elapsed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_elapsed_seconds",
		Help: "Simulated seconds since the start epoch.",
	}), "orrery_elapsed_seconds")
	if err != nil {
		return nil, err
	}
	epoch, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_epoch_julian_date",
		Help: "Current simulation epoch as a Julian date.",
	}), "orrery_epoch_julian_date")
	if err != nil {
		return nil, err
	}
	energy, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_energy_joules",
		Help: "Total mechanical energy of the simulated bodies.",
	}), "orrery_energy_joules")
	if err != nil {
		return nil, err
	}
	drift, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_energy_drift_ratio",
		Help: "Relative drift of the total energy since the first observed step.",
	}), "orrery_energy_drift_ratio")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:         gatherer,
		Steps:            steps,
		StepDurations:    durations,
		SkippedOverrides: skipped,
		Bodies:           bodies,
		Elapsed:          elapsed,
		Epoch:            epoch,
		Energy:           energy,
		EnergyDrift:      drift,
		EnergyEvery:      1,
	}, nil
}

// ObserveStep implements orrery.StepObserver.
func (c *SimCollector) ObserveStep(sim *orrery.Simulation, info orrery.StepInfo) {
	if c == nil {
		return
	}
	method := info.Method.String()
	c.Steps.WithLabelValues(method).Inc()
	c.StepDurations.WithLabelValues(method).Observe(info.Duration.Seconds())
	for _, name := range info.Skipped {
		c.SkippedOverrides.WithLabelValues(name).Inc()
	}
	c.Bodies.Set(float64(info.Bodies))
	c.Elapsed.Set(info.Elapsed)
	c.Epoch.Set(info.Epoch)
	if c.EnergyEvery > 0 && (info.Step%c.EnergyEvery == 0 || c.energy0 == 0) {
		c.ObserveEnergy(sim.Energy())
	}
}

// ObserveEnergy records the total energy; the first non null value is the drift reference.
func (c *SimCollector) ObserveEnergy(e float64) {
	c.Energy.Set(e)
	if c.energy0 == 0 {
		c.energy0 = e
	}
	if c.energy0 != 0 {
		c.EnergyDrift.Set(math.Abs((e - c.energy0) / c.energy0))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
