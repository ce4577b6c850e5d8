package orrery

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	eccentricityε = 1e-11 // below this, orbits are treated as circular
	equatorialε   = 1e-11 // below this ratio of |n|/|h|, orbits are treated as equatorial
)

// OrbitalElements defines a Keplerian orbit relative to its central body.
// Distances are in AU and angles in degrees, as they are usually tabulated.
type OrbitalElements struct {
	SemiMajorAxis float64 // a, in AU
	Eccentricity  float64 // e
	Inclination   float64 // i, in degrees
	AscendingNode float64 // Ω, in degrees
	ArgPeriapsis  float64 // ω, in degrees
	MeanAnomaly   float64 // M₀ at Epoch, in degrees
	Epoch         float64 // Julian date; zero stands for the simulation start epoch
}

// Validate returns an error wrapping ErrInvalidElements if these elements do
// not describe a closed orbit.
func (oe OrbitalElements) Validate() error {
	switch {
	case !(oe.SemiMajorAxis > 0) || math.IsInf(oe.SemiMajorAxis, 0):
		return fmt.Errorf("%w: semi-major axis of %g AU", ErrInvalidElements, oe.SemiMajorAxis)
	case !(oe.Eccentricity >= 0 && oe.Eccentricity < 1):
		return fmt.Errorf("%w: eccentricity of %g is not elliptical", ErrInvalidElements, oe.Eccentricity)
	}
	for _, angle := range []float64{oe.Inclination, oe.AscendingNode, oe.ArgPeriapsis, oe.MeanAnomaly, oe.Epoch} {
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			return fmt.Errorf("%w: non finite value in %s", ErrInvalidElements, oe)
		}
	}
	return nil
}

// Periapsis returns the periapsis distance in AU.
func (oe OrbitalElements) Periapsis() float64 {
	return oe.SemiMajorAxis * (1 - oe.Eccentricity)
}

// Apoapsis returns the apoapsis distance in AU.
func (oe OrbitalElements) Apoapsis() float64 {
	return oe.SemiMajorAxis * (1 + oe.Eccentricity)
}

// MeanMotion returns the mean motion in radians per second around a central body of the given mass.
func (oe OrbitalElements) MeanMotion(centralMass float64) float64 {
	a := oe.SemiMajorAxis * AU
	return math.Sqrt(G * centralMass / (a * a * a))
}

// Period returns the orbital period around a central body of the given mass.
func (oe OrbitalElements) Period(centralMass float64) time.Duration {
	return time.Duration(2 * math.Pi / oe.MeanMotion(centralMass) * float64(time.Second))
}

// StateAt returns the Cartesian state after sinceEpoch seconds from the elements epoch
// (negative values are allowed), around a central body of the given mass in kg.
// If parent is not nil, its state is added to the result.
func (oe OrbitalElements) StateAt(centralMass, sinceEpoch float64, parent *StateVector) StateVector {
	a := oe.SemiMajorAxis * AU
	e := oe.Eccentricity
	μ := G * centralMass
	n := math.Sqrt(μ / (a * a * a))

	E := SolveKepler(Deg2rad(oe.MeanAnomaly)+n*sinceEpoch, e)
	sinE2, cosE2 := math.Sincos(E / 2)
	ν := 2 * math.Atan2(math.Sqrt(1+e)*sinE2, math.Sqrt(1-e)*cosE2)
	r := a * (1 - e*math.Cos(E))
	sinν, cosν := math.Sincos(ν)
	h := math.Sqrt(μ * a * (1 - e*e))

	dcm := PQW2Ecliptic(Deg2rad(oe.AscendingNode), Deg2rad(oe.Inclination), Deg2rad(oe.ArgPeriapsis))
	st := StateVector{
		Position: MxV33(dcm, r3.Vec{X: r * cosν, Y: r * sinν}),
		Velocity: MxV33(dcm, r3.Vec{X: -μ / h * sinν, Y: μ / h * (e + cosν)}),
	}
	if parent != nil {
		st.Position = r3.Add(st.Position, parent.Position)
		st.Velocity = r3.Add(st.Velocity, parent.Velocity)
	}
	return st
}

// StateAtJD returns the Cartesian state at the provided Julian date.
func (oe OrbitalElements) StateAtJD(centralMass, jd float64, parent *StateVector) StateVector {
	return oe.StateAt(centralMass, (jd-oe.Epoch)*Day, parent)
}

// Polyline samples n positions evenly spaced in time along one full orbit, starting
// from the elements epoch. If parent is not nil, its position is added to each point.
func (oe OrbitalElements) Polyline(centralMass float64, n int, parent *StateVector) []r3.Vec {
	if n <= 0 {
		return nil
	}
	period := 2 * math.Pi / oe.MeanMotion(centralMass)
	pts := make([]r3.Vec, n)
	for k := range pts {
		pts[k] = oe.StateAt(centralMass, period*float64(k)/float64(n), parent).Position
	}
	return pts
}

// String implements the stringer interface.
func (oe OrbitalElements) String() string {
	return fmt.Sprintf("a=%.6f AU e=%.6f i=%.4f Ω=%.4f ω=%.4f M₀=%.4f", oe.SemiMajorAxis, oe.Eccentricity, oe.Inclination, oe.AscendingNode, oe.ArgPeriapsis, oe.MeanAnomaly)
}

// ElementsFromState returns the osculating elements of the provided state, relative to
// a central body of the given mass, with the mean anomaly expressed at the given epoch.
// Circular orbits have ω = 0 and equatorial ones have Ω = 0.
func ElementsFromState(rel StateVector, centralMass, epoch float64) OrbitalElements {
	// From Vallado's RV2COE.
	μ := G * centralMass
	R, V := rel.Position, rel.Velocity
	r := norm(R)
	v := norm(V)
	hVec := r3.Cross(R, V)
	h := norm(hVec)
	nVec := r3.Cross(r3.Vec{Z: 1}, hVec)
	rv := r3.Dot(R, V)
	eVec := r3.Scale(1/μ, r3.Sub(r3.Scale(v*v-μ/r, R), r3.Scale(rv, V)))
	e := norm(eVec)
	ξ := (v*v)/2 - μ/r
	a := -μ / (2 * ξ)
	i := math.Acos(clamp(hVec.Z / h))

	circular := e < eccentricityε
	equatorial := norm(nVec)/h < equatorialε

	var Ω, ω, ν float64
	if !equatorial {
		Ω = math.Atan2(nVec.Y, nVec.X)
	}
	switch {
	case circular && equatorial:
		// True longitude.
		ν = math.Atan2(R.Y, R.X)
		if hVec.Z < 0 {
			ν = -ν
		}
	case circular:
		// Argument of latitude.
		ν = math.Acos(clamp(r3.Dot(nVec, R) / (norm(nVec) * r)))
		if R.Z < 0 {
			ν = 2*math.Pi - ν
		}
	default:
		if equatorial {
			// Longitude of periapsis.
			ω = math.Atan2(eVec.Y, eVec.X)
			if hVec.Z < 0 {
				ω = -ω
			}
		} else {
			ω = math.Acos(clamp(r3.Dot(nVec, eVec) / (norm(nVec) * e)))
			if eVec.Z < 0 {
				ω = 2*math.Pi - ω
			}
		}
		ν = math.Acos(clamp(r3.Dot(eVec, R) / (e * r)))
		if rv < 0 {
			ν = 2*math.Pi - ν
		}
	}

	sinν, cosν := math.Sincos(ν)
	E := math.Atan2(math.Sqrt(1-e*e)*sinν, e+cosν)
	M := E - e*math.Sin(E)

	return OrbitalElements{
		SemiMajorAxis: a / AU,
		Eccentricity:  e,
		Inclination:   Rad2deg(i),
		AscendingNode: Rad2deg(Ω),
		ArgPeriapsis:  Rad2deg(ω),
		MeanAnomaly:   Rad2deg(M),
		Epoch:         epoch,
	}
}

// clamp bounds a cosine to [-1, 1] to absorb rounding errors before an arccosine.
func clamp(c float64) float64 {
	if math.Abs(c) > 1 {
		return sign(c)
	}
	return c
}
