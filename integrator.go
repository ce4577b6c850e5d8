package orrery

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Method defines the numerical integration scheme.
type Method uint8

const (
	// Euler is the explicit first order method (positions use the velocities prior to the update).
	Euler Method = iota + 1
	// Verlet is the symplectic second order velocity Verlet method.
	Verlet
	// RK4 is the classical fourth order Runge-Kutta method applied to the whole system.
	RK4
)

func (m Method) String() string {
	switch m {
	case Euler:
		return "euler"
	case Verlet:
		return "verlet"
	case RK4:
		return "rk4"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// ParseMethod returns the method from its name (case insensitive).
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euler":
		return Euler, nil
	case "verlet", "velocity-verlet", "velocity_verlet":
		return Verlet, nil
	case "rk4", "runge-kutta", "runge_kutta":
		return RK4, nil
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnknownMethod, s)
}

func (m Method) valid() bool {
	return m >= Euler && m <= RK4
}

// System is the integrable state of all bodies, index aligned.
type System struct {
	Masses []float64
	Center int // Index of the central body, or -1.
	Pos    []r3.Vec
	Vel    []r3.Vec
}

// Len returns the number of bodies.
func (s *System) Len() int {
	return len(s.Pos)
}

// Integrator advances a System by one signed time step.
type Integrator interface {
	Method() Method
	Advance(sys *System, fm ForceModel, dt float64)
}

// NewIntegrator returns the integrator for the provided method.
func NewIntegrator(m Method) (Integrator, error) {
	switch m {
	case Euler:
		return &eulerIntegrator{}, nil
	case Verlet:
		return &verletIntegrator{}, nil
	case RK4:
		return &rk4Integrator{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
}

// grow returns buf resized to n, reusing its storage when possible.
func grow(buf []r3.Vec, n int) []r3.Vec {
	if cap(buf) < n {
		return make([]r3.Vec, n)
	}
	return buf[:n]
}

type eulerIntegrator struct {
	acc []r3.Vec
}

func (it *eulerIntegrator) Method() Method { return Euler }

func (it *eulerIntegrator) Advance(sys *System, fm ForceModel, dt float64) {
	it.acc = grow(it.acc, sys.Len())
	fm.Accelerations(sys.Masses, sys.Center, sys.Pos, it.acc)
	for i := range sys.Pos {
		if fm.Fixed(i, sys.Center) {
			continue
		}
		sys.Pos[i] = r3.Add(sys.Pos[i], r3.Scale(dt, sys.Vel[i]))
		sys.Vel[i] = r3.Add(sys.Vel[i], r3.Scale(dt, it.acc[i]))
	}
}

type verletIntegrator struct {
	acc0, acc1 []r3.Vec
}

func (it *verletIntegrator) Method() Method { return Verlet }

func (it *verletIntegrator) Advance(sys *System, fm ForceModel, dt float64) {
	n := sys.Len()
	it.acc0 = grow(it.acc0, n)
	it.acc1 = grow(it.acc1, n)
	fm.Accelerations(sys.Masses, sys.Center, sys.Pos, it.acc0)
	for i := range sys.Pos {
		if fm.Fixed(i, sys.Center) {
			continue
		}
		sys.Pos[i] = r3.Add(sys.Pos[i], r3.Add(r3.Scale(dt, sys.Vel[i]), r3.Scale(0.5*dt*dt, it.acc0[i])))
	}
	fm.Accelerations(sys.Masses, sys.Center, sys.Pos, it.acc1)
	for i := range sys.Vel {
		if fm.Fixed(i, sys.Center) {
			continue
		}
		sys.Vel[i] = r3.Add(sys.Vel[i], r3.Scale(0.5*dt, r3.Add(it.acc0[i], it.acc1[i])))
	}
}

type rk4Integrator struct {
	// The k's are already scaled by the step size.
	k1x, k2x, k3x, k4x []r3.Vec
	k1v, k2v, k3v, k4v []r3.Vec
	tPos, tVel, acc    []r3.Vec
}

func (it *rk4Integrator) Method() Method { return RK4 }

func (it *rk4Integrator) Advance(sys *System, fm ForceModel, dt float64) {
	const (
		half     = 1 / 2.0
		oneSixth = 1 / 6.0
		oneThird = 1 / 3.0
	)
	n := sys.Len()
	for _, buf := range []*[]r3.Vec{&it.k1x, &it.k2x, &it.k3x, &it.k4x, &it.k1v, &it.k2v, &it.k3v, &it.k4v, &it.tPos, &it.tVel, &it.acc} {
		*buf = grow(*buf, n)
	}

	// stage computes the scaled derivatives at the trial state, and moves the trial
	// state to the initial state plus scale times those derivatives.
	stage := func(kx, kv []r3.Vec, pos, vel []r3.Vec, scale float64) {
		fm.Accelerations(sys.Masses, sys.Center, pos, it.acc)
		for i := 0; i < n; i++ {
			if fm.Fixed(i, sys.Center) {
				kx[i], kv[i] = r3.Vec{}, r3.Vec{}
				it.tPos[i], it.tVel[i] = sys.Pos[i], sys.Vel[i]
				continue
			}
			kx[i] = r3.Scale(dt, vel[i])
			kv[i] = r3.Scale(dt, it.acc[i])
			it.tPos[i] = r3.Add(sys.Pos[i], r3.Scale(scale, kx[i]))
			it.tVel[i] = r3.Add(sys.Vel[i], r3.Scale(scale, kv[i]))
		}
	}
	stage(it.k1x, it.k1v, sys.Pos, sys.Vel, half)
	stage(it.k2x, it.k2v, it.tPos, it.tVel, half)
	stage(it.k3x, it.k3v, it.tPos, it.tVel, 1)
	stage(it.k4x, it.k4v, it.tPos, it.tVel, 0)

	for i := 0; i < n; i++ {
		if fm.Fixed(i, sys.Center) {
			continue
		}
		sys.Pos[i] = r3.Add(sys.Pos[i], r3.Add(
			r3.Scale(oneSixth, r3.Add(it.k1x[i], it.k4x[i])),
			r3.Scale(oneThird, r3.Add(it.k2x[i], it.k3x[i]))))
		sys.Vel[i] = r3.Add(sys.Vel[i], r3.Add(
			r3.Scale(oneSixth, r3.Add(it.k1v[i], it.k4v[i])),
			r3.Scale(oneThird, r3.Add(it.k2v[i], it.k3v[i]))))
	}
}
