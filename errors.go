package orrery

import "errors"

var (
	// ErrInvalidElements is returned for orbital elements which cannot describe a closed orbit.
	ErrInvalidElements = errors.New("invalid orbital elements")
	// ErrInvalidBody is returned for bodies with an empty name or inconsistent definition.
	ErrInvalidBody = errors.New("invalid body")
	// ErrInvalidMass is returned for negative, non finite or null central masses.
	ErrInvalidMass = errors.New("invalid mass")
	// ErrDuplicateBody is returned when a body name is registered twice.
	ErrDuplicateBody = errors.New("duplicate body")
	// ErrDuplicateCenter is returned when a second central body is registered.
	ErrDuplicateCenter = errors.New("central body already registered")
	// ErrNoCenter is returned when elements are given before any central body exists.
	ErrNoCenter = errors.New("no central body")
	// ErrNoState is returned for a non central body without elements nor initial state.
	ErrNoState = errors.New("no initial state")
	// ErrNotReady is returned when stepping a simulation without bodies.
	ErrNotReady = errors.New("simulation has no bodies")
	// ErrInvalidConfig is returned for configurations which cannot drive a simulation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownMethod is returned when parsing an unsupported integration method.
	ErrUnknownMethod = errors.New("unknown integration method")
)
