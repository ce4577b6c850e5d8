package orrery

import "math"

const (
	// KeplerTolerance is the default convergence threshold on the eccentric anomaly, in radians.
	KeplerTolerance = 1e-12
	keplerMaxIter   = 100
	// Above this eccentricity, Newton iterations are seeded at π.
	keplerHighEcc = 0.8
)

// SolveKepler returns the eccentric anomaly E such that M = E - e·sin(E).
// The mean anomaly M is in radians and may be any real number.
func SolveKepler(M, e float64) float64 {
	E, _, _ := SolveKeplerTolerance(M, e, KeplerTolerance)
	return E
}

// SolveKeplerTolerance solves Kepler's equation via Newton-Raphson and also
// returns the number of iterations and whether the tolerance was reached.
// When it is not reached within the iteration cap, the last estimate is returned.
func SolveKeplerTolerance(M, e, tol float64) (E float64, iterations int, converged bool) {
	M = math.Mod(M, 2*math.Pi)
	if M < 0 {
		M += 2 * math.Pi
	}
	if e > keplerHighEcc {
		E = math.Pi
	} else {
		E = M + e*math.Sin(M)
	}
	for iterations = 1; iterations <= keplerMaxIter; iterations++ {
		sinE, cosE := math.Sincos(E)
		ΔE := (E - e*sinE - M) / (1 - e*cosE)
		E -= ΔE
		if math.Abs(ΔE) < tol {
			return E, iterations, true
		}
	}
	return E, keplerMaxIter, false
}
