package orrery

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestOverrideSatellites(t *testing.T) {
	sys := &System{
		Masses: []float64{sunMass, earthMass, moonMass, 1},
		Center: 0,
		Pos:    []r3.Vec{{}, {X: AU}, {X: 2 * AU}, {Y: AU}},
		Vel:    []r3.Vec{{}, {Y: 29780}, {}, {}},
	}
	moon := moonElements
	moon.Epoch = J2000
	links := []SatelliteLink{
		{Name: "Moon", Index: 2, Parent: 1, ParentMass: earthMass, Elements: moon},
		{Name: "Orphan", Index: 3, Parent: -1, Elements: moon},
	}
	skipped := OverrideSatellites(sys, links, J2000+1)
	if len(skipped) != 1 || skipped[0] != "Orphan" {
		t.Fatalf("expected the orphan to be skipped, got %v", skipped)
	}
	if sys.Pos[3] != (r3.Vec{Y: AU}) {
		t.Fatal("a skipped satellite must keep its provisional state")
	}
	earth := StateVector{sys.Pos[1], sys.Vel[1]}
	exp := moon.StateAtJD(earthMass, J2000+1, &earth)
	if sys.Pos[2] != exp.Position || sys.Vel[2] != exp.Velocity {
		t.Fatalf("Moon not overridden: %v instead of %v", sys.Pos[2], exp.Position)
	}
}

func TestOverrideSatellitesNested(t *testing.T) {
	// A satellite of a satellite follows its just-updated parent when listed after it.
	sys := &System{
		Masses: []float64{sunMass, earthMass, moonMass, 1},
		Center: 0,
		Pos:    make([]r3.Vec, 4),
		Vel:    make([]r3.Vec, 4),
	}
	sys.Pos[1] = r3.Vec{X: AU}
	moon := moonElements
	moon.Epoch = J2000
	probe := OrbitalElements{SemiMajorAxis: 1e-5, Eccentricity: 0.1, Epoch: J2000}
	links := []SatelliteLink{
		{Name: "Moon", Index: 2, Parent: 1, ParentMass: earthMass, Elements: moon},
		{Name: "Probe", Index: 3, Parent: 2, ParentMass: moonMass, Elements: probe},
	}
	if skipped := OverrideSatellites(sys, links, J2000); len(skipped) != 0 {
		t.Fatalf("nothing should be skipped: %v", skipped)
	}
	if d := norm(r3.Sub(sys.Pos[3], sys.Pos[2])) / AU; d < probe.Periapsis()*0.999 || d > probe.Apoapsis()*1.001 {
		t.Fatalf("probe is %e AU from the Moon", d)
	}
}

func TestOverrideSatellitesMasslessParent(t *testing.T) {
	sys := &System{
		Masses: []float64{sunMass, 0, moonMass},
		Center: 0,
		Pos:    []r3.Vec{{}, {X: AU}, {X: AU + 3e8}},
		Vel:    []r3.Vec{{}, {Y: 29780}, {Y: 30800}},
	}
	moon := moonElements
	moon.Epoch = J2000
	links := []SatelliteLink{{Name: "Moon", Index: 2, Parent: 1, ParentMass: 0, Elements: moon}}
	skipped := OverrideSatellites(sys, links, J2000)
	if len(skipped) != 1 || skipped[0] != "Moon" {
		t.Fatalf("expected the Moon to be skipped, got %v", skipped)
	}
	if sys.Pos[2] != (r3.Vec{X: AU + 3e8}) || sys.Vel[2] != (r3.Vec{Y: 30800}) {
		t.Fatalf("a skipped satellite must keep its state: %v %v", sys.Pos[2], sys.Vel[2])
	}
}
