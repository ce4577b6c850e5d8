package orrery

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// PQW2Ecliptic returns the direction cosine matrix from the perifocal frame to
// the ecliptic frame, i.e. R3(-Ω)·R1(-i)·R3(-ω). Angles are in radians.
func PQW2Ecliptic(Ω, i, ω float64) *mat.Dense {
	var tmp, dcm mat.Dense
	tmp.Mul(R3(-Ω), R1(-i))
	dcm.Mul(&tmp, R3(-ω))
	return &dcm
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a 3x3 matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v r3.Vec) r3.Vec {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: rVec.AtVec(0), Y: rVec.AtVec(1), Z: rVec.AtVec(2)}
}
