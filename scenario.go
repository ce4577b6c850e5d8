package orrery

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scenario is a set of bodies with the configuration to simulate them.
type Scenario struct {
	Name     string
	Config   SimulationConfig
	Bodies   []CelestialBody
	States   map[string]StateVector // Initial states provided instead of elements.
	LogLevel string
}

type bodyFile struct {
	Name     string        `mapstructure:"name"`
	Mass     float64       `mapstructure:"mass"`
	Radius   float64       `mapstructure:"radius"`
	Center   bool          `mapstructure:"center"`
	Parent   string        `mapstructure:"parent"`
	Catalog  bool          `mapstructure:"catalog"` // Use the built-in definition of this body.
	Elements *elementsFile `mapstructure:"elements"`
	State    *stateFile    `mapstructure:"state"`
}

type elementsFile struct {
	A     float64 `mapstructure:"a"`
	E     float64 `mapstructure:"e"`
	I     float64 `mapstructure:"i"`
	Node  float64 `mapstructure:"node"`
	Peri  float64 `mapstructure:"peri"`
	M0    float64 `mapstructure:"m0"`
	Epoch float64 `mapstructure:"epoch"`
}

type stateFile struct {
	Position []float64 `mapstructure:"position"` // m
	Velocity []float64 `mapstructure:"velocity"` // m/s
}

// LoadScenario reads the scenario file at path, or the default configuration file if path is empty.
func LoadScenario(path string) (*Scenario, error) {
	v, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ScenarioFromViper(v)
}

// ScenarioFromViper returns the scenario described by the provided configuration.
func ScenarioFromViper(v *viper.Viper) (*Scenario, error) {
	cfg, err := ConfigFromViper(v)
	if err != nil {
		return nil, err
	}
	sc := &Scenario{
		Name:     v.GetString("name"),
		Config:   cfg,
		States:   make(map[string]StateVector),
		LogLevel: v.GetString("log.level"),
	}
	if sc.Name == "" {
		sc.Name = "orrery"
	}
	var files []bodyFile
	if err := v.UnmarshalKey("bodies", &files); err != nil {
		return nil, fmt.Errorf("could not decode bodies: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("scenario has no bodies")
	}
	for _, f := range files {
		body, err := f.body()
		if err != nil {
			return nil, err
		}
		sc.Bodies = append(sc.Bodies, body)
		if f.State != nil {
			st, err := f.State.vector()
			if err != nil {
				return nil, fmt.Errorf("body %s: %w", f.Name, err)
			}
			sc.States[f.Name] = st
		}
	}
	return sc, nil
}

func (f bodyFile) body() (CelestialBody, error) {
	if f.Catalog {
		body, err := BodyFromString(f.Name)
		if err != nil {
			return body, err
		}
		// Explicit values override the catalog.
		if f.Mass != 0 {
			body.Mass = f.Mass
		}
		if f.Parent != "" {
			body.Parent = f.Parent
		}
		if f.Elements != nil {
			body.Elements = f.Elements.elements()
		}
		return body, nil
	}
	body := CelestialBody{Name: f.Name, Mass: f.Mass, Radius: f.Radius, Center: f.Center, Parent: f.Parent}
	if f.Elements != nil {
		body.Elements = f.Elements.elements()
	}
	return body, nil
}

func (f elementsFile) elements() *OrbitalElements {
	return &OrbitalElements{
		SemiMajorAxis: f.A,
		Eccentricity:  f.E,
		Inclination:   f.I,
		AscendingNode: f.Node,
		ArgPeriapsis:  f.Peri,
		MeanAnomaly:   f.M0,
		Epoch:         f.Epoch,
	}
}

func (f stateFile) vector() (StateVector, error) {
	if len(f.Position) != 3 || len(f.Velocity) != 3 {
		return StateVector{}, errors.New("state position and velocity need three components each")
	}
	return StateVector{
		Position: r3.Vec{X: f.Position[0], Y: f.Position[1], Z: f.Position[2]},
		Velocity: r3.Vec{X: f.Velocity[0], Y: f.Velocity[1], Z: f.Velocity[2]},
	}, nil
}

// Build returns a simulation with every body of the scenario registered in order.
func (sc *Scenario) Build(opts ...Option) (*Simulation, error) {
	sim, err := NewSimulation(sc.Config, opts...)
	if err != nil {
		return nil, err
	}
	for _, body := range sc.Bodies {
		var initial *StateVector
		if st, ok := sc.States[body.Name]; ok {
			initial = &st
		}
		if err := sim.AddBody(body, initial); err != nil {
			return nil, err
		}
	}
	return sim, nil
}
