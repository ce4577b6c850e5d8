package orrery

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// StateVector is a Cartesian position (m) and velocity (m/s) in the ecliptic frame.
type StateVector struct {
	Position r3.Vec
	Velocity r3.Vec
}

// Add returns the component-wise sum of both states.
func (s StateVector) Add(o StateVector) StateVector {
	return StateVector{r3.Add(s.Position, o.Position), r3.Add(s.Velocity, o.Velocity)}
}

// Sub returns the state relative to o.
func (s StateVector) Sub(o StateVector) StateVector {
	return StateVector{r3.Sub(s.Position, o.Position), r3.Sub(s.Velocity, o.Velocity)}
}

// String implements the Stringer interface.
func (s StateVector) String() string {
	return fmt.Sprintf("R=[%.3f %.3f %.3f] m V=[%.6f %.6f %.6f] m/s", s.Position.X, s.Position.Y, s.Position.Z, s.Velocity.X, s.Velocity.Y, s.Velocity.Z)
}

// CelestialBody defines a body of the simulation.
// Exactly one body should be the Center. Parent names the body a satellite's
// elements are relative to; an empty Parent means the central body.
type CelestialBody struct {
	Name     string
	Mass     float64 // kg
	Radius   float64 // m
	Center   bool
	Parent   string
	Elements *OrbitalElements
}

// String implements the Stringer interface.
func (c CelestialBody) String() string {
	if c.Parent != "" {
		return fmt.Sprintf("%s body (satellite of %s)", c.Name, c.Parent)
	}
	return c.Name + " body"
}

// BodyFromString returns the catalog body whose name matches (case insensitive).
func BodyFromString(name string) (CelestialBody, error) {
	for _, b := range catalog {
		if strings.EqualFold(b.Name, name) {
			b.Elements = copyElements(b.Elements)
			return b, nil
		}
	}
	return CelestialBody{}, fmt.Errorf("undefined body '%s'", name)
}

// SolarSystem returns the catalog of the Sun, the eight planets and the Moon, with
// J2000 mean elements. The returned bodies may be freely modified.
func SolarSystem() []CelestialBody {
	bodies := make([]CelestialBody, len(catalog))
	for i, b := range catalog {
		b.Elements = copyElements(b.Elements)
		bodies[i] = b
	}
	return bodies
}

func copyElements(oe *OrbitalElements) *OrbitalElements {
	if oe == nil {
		return nil
	}
	cpy := *oe
	return &cpy
}

// Mean elements at J2000 with respect to the ecliptic, from Standish (JPL), except for the Moon.
var catalog = []CelestialBody{
	{Name: "Sun", Mass: 1.989e30, Radius: 6.957e8, Center: true},
	{Name: "Mercury", Mass: 3.3011e23, Radius: 2.4397e6, Elements: &OrbitalElements{0.38709927, 0.20563593, 7.00497902, 48.33076593, 29.12703035, 174.79252722, J2000}},
	{Name: "Venus", Mass: 4.8675e24, Radius: 6.0518e6, Elements: &OrbitalElements{0.72333566, 0.00677672, 3.39467605, 76.67984255, 54.92262463, 50.37663232, J2000}},
	{Name: "Earth", Mass: 5.9722e24, Radius: 6.3781e6, Elements: &OrbitalElements{1.00000261, 0.01671123, 0, 0, 102.93768193, 357.52688973, J2000}},
	{Name: "Moon", Mass: 7.342e22, Radius: 1.7374e6, Parent: "Earth", Elements: &OrbitalElements{0.00257, 0.0549, 5.145, 125.08, 318.15, 135.27, J2000}},
	{Name: "Mars", Mass: 6.4171e23, Radius: 3.3962e6, Elements: &OrbitalElements{1.52371034, 0.09339410, 1.84969142, 49.55953891, 286.4968315, 19.39019754, J2000}},
	{Name: "Jupiter", Mass: 1.8982e27, Radius: 7.1492e7, Elements: &OrbitalElements{5.20288700, 0.04838624, 1.30439695, 100.47390909, 274.25457074, 19.66796068, J2000}},
	{Name: "Saturn", Mass: 5.6834e26, Radius: 6.0268e7, Elements: &OrbitalElements{9.53667594, 0.05386179, 2.48599187, 113.66242448, 338.93645383, 317.35536592, J2000}},
	{Name: "Uranus", Mass: 8.681e25, Radius: 2.5559e7, Elements: &OrbitalElements{19.18916464, 0.04725744, 0.77263783, 74.01692503, 96.93735127, 142.28382821, J2000}},
	{Name: "Neptune", Mass: 1.02413e26, Radius: 2.4764e7, Elements: &OrbitalElements{30.06992276, 0.00859048, 1.77004347, 131.78422574, 273.18053653, 259.91520804, J2000}},
}
