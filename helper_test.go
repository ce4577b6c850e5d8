package orrery

import (
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// vectorsEqual returns whether both vectors are within tol of each other (absolute, per component).
func vectorsEqual(a, b r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) && scalar.EqualWithinAbs(a.Y, b.Y, tol) && scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

// anglesEqual returns whether two angles in degrees are equal, modulo 360.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Mod(math.Abs(a-b), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	if diff < 1e-6 {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10f degrees", diff)
}

// sunOnly returns a simulation with only a fixed Sun at the origin.
func sunOnly(t *testing.T, cfg SimulationConfig) *Simulation {
	t.Helper()
	sim, err := NewSimulation(cfg)
	if err != nil {
		t.Fatalf("NewSimulation: %s", err)
	}
	if err := sim.AddBody(CelestialBody{Name: "Sun", Mass: sunMass, Center: true}, nil); err != nil {
		t.Fatalf("AddBody(Sun): %s", err)
	}
	return sim
}

const (
	sunMass   = 1.989e30
	earthMass = 5.972e24
	moonMass  = 7.342e22
)

var (
	earthElements = OrbitalElements{SemiMajorAxis: 1.00000261, Eccentricity: 0.01671123, ArgPeriapsis: 102.93768193, MeanAnomaly: 357.52688973}
	moonElements  = OrbitalElements{SemiMajorAxis: 0.00257, Eccentricity: 0.0549, Inclination: 5.145, AscendingNode: 125.08, ArgPeriapsis: 318.15, MeanAnomaly: 135.27}
)
