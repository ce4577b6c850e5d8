package orrery

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAngles(t *testing.T) {
	for i := 0.0; i <= 360; i += 0.5 {
		// Specific tests
		mi := math.Mod(i, 180)
		var expPi float64
		specificCase := true
		switch mi {
		case 0:
			expPi = 0
		case 30:
			expPi = 1 / 6.
		case 60:
			expPi = 1 / 3.
		case 90:
			expPi = 1 / 2.
		case 120:
			expPi = 2 / 3.
		case 150:
			expPi = 5 / 6.
		default:
			specificCase = false
		}
		if specificCase && i < 360 {
			if i >= 180 {
				expPi++
			}
			if !scalar.EqualWithinAbs(Deg2rad(i)/math.Pi, expPi, 1e-10) {
				t.Fatalf("%f deg %f rad exp=%f", i, Deg2rad(i)/math.Pi, expPi)
			}
		}

		if ok, _ := anglesEqual(i, Rad2deg(Deg2rad(i))); i < 360 && !ok {
			t.Fatalf("incorrect conversion for %3.2f", i)
		} else if i == 360 && Rad2deg(Deg2rad(i)) != 0 {
			t.Fatalf("incorrect conversion for %3.2f", i)
		}
	}
	if ok, _ := anglesEqual(1, Rad2deg(Deg2rad(-359.))); !ok {
		t.Fatal("incorrect conversion for -359")
	}
	if ok, _ := anglesEqual(180, Rad2deg(Deg2rad(-180.))); !ok {
		t.Fatal("incorrect conversion for -180")
	}
	if ok, _ := anglesEqual(0, Rad2deg(Deg2rad(-720.))); !ok {
		t.Fatal("incorrect conversion for -720")
	}
	if !scalar.EqualWithinAbs(Deg2rad(Rad2deg(-5*math.Pi/3)), math.Pi/3, 1e-12) {
		t.Fatal("incorrect conversion for -5pi/3")
	}
}

func TestMisc(t *testing.T) {
	if sign(10) != 1 {
		t.Fatal("sign of 10 != 1")
	}
	if sign(-10) != -1 {
		t.Fatal("sign of -10 != -1")
	}
	if sign(0) != 1 {
		t.Fatal("sign of 0 != 1")
	}
	if norm(r3.Vec{}) != 0 {
		t.Fatal("norm of a nil vector was not nil")
	}
	five0 := r3.Vec{X: 5, Y: 6, Z: 7}
	five1 := r3.Vec{X: 7, Y: 6, Z: 5}
	if norm(five0) != math.Sqrt(110) || norm(five0) != norm(five1) {
		t.Fatal("norm of the [5, 6, 7] and permutations is invalid")
	}
	if unit(r3.Vec{}) != (r3.Vec{}) {
		t.Fatal("unit of a nil vector should be nil")
	}
	if !scalar.EqualWithinAbs(norm(unit(five0)), 1, 1e-15) {
		t.Fatal("unit vector is not of unit norm")
	}
	if !finite(five0) || finite(r3.Vec{X: math.NaN()}) || finite(r3.Vec{Z: math.Inf(-1)}) {
		t.Fatal("finite is incorrect")
	}
}
