package orrery

import "gonum.org/v1/gonum/spatial/r3"

// singularityε is the separation in meters below which no attraction is computed.
const singularityε = 1e-3

// Acceleration returns the gravitational acceleration on a body at a due to a body
// of mass massB at b. A zero vector is returned for coincident bodies.
func Acceleration(a, b r3.Vec, massB float64) r3.Vec {
	d := r3.Sub(b, a)
	r := r3.Norm(d)
	if r < singularityε {
		return r3.Vec{}
	}
	return r3.Scale(G*massB/(r*r*r), d)
}

// ForceModel selects which bodies attract which.
// Without perturbations, each body only feels the central body, which never moves.
// With perturbations, all bodies attract each other; the central body is only
// integrated when IntegrateCenter is set.
type ForceModel struct {
	Perturbations   bool
	IntegrateCenter bool
}

// Fixed returns whether body i is held in place, given the index of the central body (-1 if none).
func (fm ForceModel) Fixed(i, center int) bool {
	return i == center && !(fm.Perturbations && fm.IntegrateCenter)
}

// Accelerations computes into acc the acceleration of every body from the single
// position snapshot pos. Fixed bodies get a null acceleration.
func (fm ForceModel) Accelerations(masses []float64, center int, pos, acc []r3.Vec) {
	for i := range pos {
		acc[i] = r3.Vec{}
		if fm.Fixed(i, center) {
			continue
		}
		if !fm.Perturbations {
			if center >= 0 {
				acc[i] = Acceleration(pos[i], pos[center], masses[center])
			}
			continue
		}
		for j := range pos {
			if j == i || masses[j] == 0 {
				continue
			}
			acc[i] = r3.Add(acc[i], Acceleration(pos[i], pos[j], masses[j]))
		}
	}
}
