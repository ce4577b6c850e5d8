package orrery

import (
	"fmt"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/soniakeys/meeus/v3/julian"
	"gonum.org/v1/gonum/spatial/r3"
)

// StepInfo describes a completed step.
type StepInfo struct {
	Method   Method
	Step     uint64  // Number of steps since the simulation was created.
	Dt       float64 // Signed step in seconds.
	Epoch    float64 // Julian date after the step.
	Elapsed  float64 // Seconds since the start epoch after the step.
	Bodies   int
	Skipped  []string      // Satellites which could not be overridden.
	Duration time.Duration // Wall clock time spent in the step.
}

// StepObserver is notified after every step, from the goroutine calling Step.
type StepObserver interface {
	ObserveStep(sim *Simulation, info StepInfo)
}

// StepObserverFunc adapts a function into a StepObserver.
type StepObserverFunc func(sim *Simulation, info StepInfo)

// ObserveStep calls f(sim, info).
func (f StepObserverFunc) ObserveStep(sim *Simulation, info StepInfo) {
	f(sim, info)
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger of the simulation; it does not log by default.
func WithLogger(logger kitlog.Logger) Option {
	return func(s *Simulation) {
		s.logger = kitlog.With(logger, "subsys", "orrery")
	}
}

// WithObserver appends an observer notified after every step.
func WithObserver(o StepObserver) Option {
	return func(s *Simulation) {
		s.observers = append(s.observers, o)
	}
}

// Simulation integrates a set of bodies under their mutual gravitation, where
// satellites may follow their parent analytically.
// A Simulation is not safe for concurrent use.
type Simulation struct {
	cfg        SimulationConfig
	integrator Integrator
	reg        registry
	sys        System
	links      []SatelliteLink
	elapsed    float64 // seconds since cfg.StartEpoch
	steps      uint64
	logger     kitlog.Logger
	observers  []StepObserver
}

// NewSimulation returns an empty simulation; the configuration is validated.
func NewSimulation(cfg SimulationConfig, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	integrator, err := NewIntegrator(cfg.Method)
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:        cfg,
		integrator: integrator,
		reg:        newRegistry(),
		sys:        System{Center: -1},
		logger:     kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddBody registers a body. Its initial state is the provided one if not nil, else it
// is computed from its elements at the current epoch, around its parent if registered
// or else around the central body. A parent which is not registered yet is linked
// when it gets registered. Parent loops and element-defined satellites of a massless
// parent are rejected.
func (s *Simulation) AddBody(body CelestialBody, initial *StateVector) error {
	if body.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidBody)
	}
	if _, exists := s.reg.lookup(body.Name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBody, body.Name)
	}
	if body.Parent == body.Name {
		return fmt.Errorf("%w: %s cannot be its own parent", ErrInvalidBody, body.Name)
	}
	if !body.Center && s.reg.descends(body.Parent, body.Name) {
		return fmt.Errorf("%w: %s would be a parent of its own parent %s", ErrInvalidBody, body.Name, body.Parent)
	}
	if body.Mass < 0 || math.IsNaN(body.Mass) || math.IsInf(body.Mass, 0) || (body.Center && body.Mass == 0) {
		return fmt.Errorf("%w: %s has a mass of %g kg", ErrInvalidMass, body.Name, body.Mass)
	}
	if body.Center && s.reg.center >= 0 {
		return fmt.Errorf("%w: %s and %s", ErrDuplicateCenter, s.reg.records[s.reg.center].body.Name, body.Name)
	}

	rec := record{body: body, parent: -1}
	if body.Elements != nil {
		if err := body.Elements.Validate(); err != nil {
			return fmt.Errorf("%s: %w", body.Name, err)
		}
		rec.elements = *body.Elements
		if rec.elements.Epoch == 0 {
			rec.elements.Epoch = s.cfg.StartEpoch
		}
		// Keep a private copy so that the caller cannot alter a registered body.
		elements := rec.elements
		rec.body.Elements = &elements
	}
	if initial != nil {
		if !finite(initial.Position) || !finite(initial.Velocity) {
			return fmt.Errorf("%w: %s has a non finite initial state", ErrInvalidBody, body.Name)
		}
		rec.initial = *initial
		rec.supplied = true
	}
	if !body.Center && !rec.supplied && !rec.hasElements() {
		return fmt.Errorf("%w: %s", ErrNoState, body.Name)
	}

	pending := false
	if body.Parent != "" && !body.Center {
		if p, ok := s.reg.lookup(body.Parent); ok {
			if p != s.reg.center {
				rec.parent = p
				rec.satellite = rec.hasElements()
			}
		} else {
			pending = true
			rec.satellite = rec.hasElements()
		}
	}
	if rec.hasElements() && !rec.supplied && !body.Center && rec.parent < 0 && s.reg.center < 0 {
		return fmt.Errorf("%w: register the central body before %s", ErrNoCenter, body.Name)
	}
	if rec.satellite && rec.parent >= 0 && s.reg.records[rec.parent].body.Mass <= 0 {
		return fmt.Errorf("%w: %s orbits the massless %s", ErrInvalidMass, body.Name, body.Parent)
	}
	if !body.Center && body.Mass <= 0 {
		for _, sat := range s.reg.pending[body.Name] {
			if s.reg.records[sat].satellite {
				return fmt.Errorf("%w: %s is massless and %s orbits it", ErrInvalidMass, body.Name, s.reg.records[sat].body.Name)
			}
		}
	}

	idx, adopted := s.reg.insert(rec)
	s.sys.Masses = append(s.sys.Masses, body.Mass)
	s.sys.Pos = append(s.sys.Pos, r3.Vec{})
	s.sys.Vel = append(s.sys.Vel, r3.Vec{})
	if body.Center {
		s.sys.Center = idx
	}
	s.setState(idx, s.deriveState(idx))
	if pending {
		s.reg.wait(idx, body.Parent)
		level.Warn(s.logger).Log("body", body.Name, "parent", body.Parent, "status", "parent not registered yet")
	}
	for _, sat := range adopted {
		// The satellite was placed around the central body so far.
		s.setState(sat, s.deriveState(sat))
		level.Info(s.logger).Log("body", s.reg.records[sat].body.Name, "parent", body.Name, "status", "linked")
	}
	s.relink()
	level.Info(s.logger).Log("body", body.Name, "mass(kg)", body.Mass, "center", body.Center, "state", s.state(idx))
	return nil
}

// deriveState returns the state of body i at the current epoch from its definition.
func (s *Simulation) deriveState(i int) StateVector {
	rec := s.reg.records[i]
	if rec.supplied || rec.body.Center || !rec.hasElements() {
		return rec.initial
	}
	central := rec.parent
	if central < 0 {
		central = s.reg.center
	}
	parent := s.state(central)
	return rec.elements.StateAtJD(s.reg.records[central].body.Mass, s.Epoch(), &parent)
}

func (s *Simulation) state(i int) StateVector {
	return StateVector{s.sys.Pos[i], s.sys.Vel[i]}
}

func (s *Simulation) setState(i int, st StateVector) {
	s.sys.Pos[i], s.sys.Vel[i] = st.Position, st.Velocity
}

// relink rebuilds the satellite links, parents first.
func (s *Simulation) relink() {
	s.links = s.links[:0]
	for _, i := range s.reg.order() {
		rec := s.reg.records[i]
		if !rec.satellite {
			continue
		}
		link := SatelliteLink{Name: rec.body.Name, Index: i, Parent: rec.parent, Elements: rec.elements}
		if rec.parent >= 0 {
			link.ParentMass = s.reg.records[rec.parent].body.Mass
		}
		s.links = append(s.links, link)
	}
}

// Ready returns whether at least one body is registered.
func (s *Simulation) Ready() bool {
	return len(s.reg.records) > 0
}

// Step advances the simulation by one signed time step of TimeStep × TimeScale seconds.
func (s *Simulation) Step() error {
	if !s.Ready() {
		return ErrNotReady
	}
	start := time.Now()
	dt := s.cfg.Dt()
	s.integrator.Advance(&s.sys, s.cfg.forceModel(), dt)
	s.elapsed += dt
	s.steps++

	var skipped []string
	if s.cfg.AnalyticSatellites {
		skipped = OverrideSatellites(&s.sys, s.links, s.Epoch())
		for _, name := range skipped {
			level.Debug(s.logger).Log("body", name, "status", "override skipped", "reason", "unresolved parent")
		}
	}

	if len(s.observers) > 0 {
		info := StepInfo{
			Method:   s.cfg.Method,
			Step:     s.steps,
			Dt:       dt,
			Epoch:    s.Epoch(),
			Elapsed:  s.elapsed,
			Bodies:   len(s.reg.records),
			Skipped:  skipped,
			Duration: time.Since(start),
		}
		for _, o := range s.observers {
			o.ObserveStep(s, info)
		}
	}
	return nil
}

// StepN performs n steps.
func (s *Simulation) StepN(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateConfig applies a partial configuration. The previous configuration is kept
// if the resulting one is invalid.
func (s *Simulation) UpdateConfig(u ConfigUpdate) error {
	cfg := s.cfg.Merge(u)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Method != s.integrator.Method() {
		integrator, err := NewIntegrator(cfg.Method)
		if err != nil {
			return err
		}
		s.integrator = integrator
	}
	s.cfg = cfg
	level.Info(s.logger).Log("config", cfg)
	return nil
}

// Reset moves the simulation to the given number of seconds since the start epoch,
// recomputing every body defined by elements and restoring the provided initial states.
func (s *Simulation) Reset(elapsed float64) {
	s.elapsed = elapsed
	for _, i := range s.reg.order() {
		s.setState(i, s.deriveState(i))
	}
	level.Info(s.logger).Log("status", "reset", "epoch", s.Epoch(), "elapsed(s)", elapsed)
}

// ResetTo resets the simulation to the given date.
func (s *Simulation) ResetTo(dt time.Time) {
	s.Reset((julian.TimeToJD(dt) - s.cfg.StartEpoch) * Day)
}

// State returns a copy of the state of the named body.
func (s *Simulation) State(name string) (StateVector, bool) {
	i, ok := s.reg.lookup(name)
	if !ok {
		return StateVector{}, false
	}
	return s.state(i), true
}

// States returns a copy of the state of every body, by name.
func (s *Simulation) States() map[string]StateVector {
	states := make(map[string]StateVector, len(s.reg.records))
	for i, rec := range s.reg.records {
		states[rec.body.Name] = s.state(i)
	}
	return states
}

// NamedState is the state of a body at a given time.
type NamedState struct {
	Name string
	StateVector
}

// Snapshot returns a copy of the state of every body in registration order.
func (s *Simulation) Snapshot() []NamedState {
	snap := make([]NamedState, len(s.reg.records))
	for i, rec := range s.reg.records {
		snap[i] = NamedState{rec.body.Name, s.state(i)}
	}
	return snap
}

// Bodies returns the registered bodies in registration order.
func (s *Simulation) Bodies() []CelestialBody {
	bodies := make([]CelestialBody, len(s.reg.records))
	for i, rec := range s.reg.records {
		bodies[i] = rec.body
		bodies[i].Elements = copyElements(rec.body.Elements)
	}
	return bodies
}

// Epoch returns the current Julian date.
func (s *Simulation) Epoch() float64 {
	return s.cfg.StartEpoch + s.elapsed/Day
}

// Elapsed returns the number of seconds since the start epoch.
func (s *Simulation) Elapsed() float64 {
	return s.elapsed
}

// Time returns the current date in UTC.
func (s *Simulation) Time() time.Time {
	return julian.JDToTime(s.Epoch())
}

// Config returns the current configuration.
func (s *Simulation) Config() SimulationConfig {
	return s.cfg
}

// Steps returns the number of steps performed.
func (s *Simulation) Steps() uint64 {
	return s.steps
}

// Energy returns the total mechanical energy in J.
func (s *Simulation) Energy() float64 {
	var kinetic, potential float64
	for i, m := range s.sys.Masses {
		v := norm(s.sys.Vel[i])
		kinetic += 0.5 * m * v * v
		for j := i + 1; j < len(s.sys.Masses); j++ {
			if r := norm(r3.Sub(s.sys.Pos[j], s.sys.Pos[i])); r >= singularityε {
				potential -= G * m * s.sys.Masses[j] / r
			}
		}
	}
	return kinetic + potential
}

// Momentum returns the total linear momentum in kg m/s.
func (s *Simulation) Momentum() r3.Vec {
	var p r3.Vec
	for i, m := range s.sys.Masses {
		p = r3.Add(p, r3.Scale(m, s.sys.Vel[i]))
	}
	return p
}

// AngularMomentum returns the total angular momentum about the origin in kg m²/s.
func (s *Simulation) AngularMomentum() r3.Vec {
	var l r3.Vec
	for i, m := range s.sys.Masses {
		l = r3.Add(l, r3.Scale(m, r3.Cross(s.sys.Pos[i], s.sys.Vel[i])))
	}
	return l
}

// Osculating returns the current osculating elements of the named body around its
// parent, or the central body if it has none.
func (s *Simulation) Osculating(name string) (OrbitalElements, bool) {
	i, ok := s.reg.lookup(name)
	if !ok || i == s.reg.center {
		return OrbitalElements{}, false
	}
	central := s.reg.records[i].parent
	if central < 0 {
		central = s.reg.center
	}
	if central < 0 {
		return OrbitalElements{}, false
	}
	rel := s.state(i).Sub(s.state(central))
	oe := ElementsFromState(rel, s.reg.records[central].body.Mass, s.Epoch())
	if oe.Validate() != nil {
		return OrbitalElements{}, false
	}
	return oe, true
}

// OrbitPath returns n points along the current osculating orbit of the named body,
// around the current position of its parent or central body.
func (s *Simulation) OrbitPath(name string, n int) ([]r3.Vec, bool) {
	oe, ok := s.Osculating(name)
	if !ok {
		return nil, false
	}
	i, _ := s.reg.lookup(name)
	central := s.reg.records[i].parent
	if central < 0 {
		central = s.reg.center
	}
	parent := s.state(central)
	return oe.Polyline(s.reg.records[central].body.Mass, n, &parent), true
}
