package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// OrbitParams describes a circular barycentric orbit.
type OrbitParams struct {
	Radius      float64 // AU-equivalent units
	AngularRate float64 // rad/day, sign gives the sense of motion
	Phase       float64 // orbital longitude at epoch 0, radians
	Inclination float64 // tilt of the orbital plane about the x axis, radians
}

// OrbitState is the satellite's barycentric position and velocity at an epoch.
type OrbitState struct {
	Epoch    model.Epoch
	Position r3.Vec
	Velocity r3.Vec // units per day
}

// CircularOrbit evaluates a circular orbit in closed form. It has no internal
// state and is safe for concurrent use.
type CircularOrbit struct {
	params OrbitParams
}

// NewCircularOrbit validates the orbit parameters.
func NewCircularOrbit(p OrbitParams) (*CircularOrbit, error) {
	if !finite(p.Radius, p.AngularRate, p.Phase, p.Inclination) {
		return nil, invalid("orbit", p, "parameters must be finite")
	}
	if p.Radius <= 0 {
		return nil, invalid("orbit.radius", p.Radius, "must be positive")
	}
	if p.AngularRate == 0 {
		return nil, invalid("orbit.angular_rate", p.AngularRate, "must be non-zero")
	}
	return &CircularOrbit{params: p}, nil
}

// Params returns the orbit parameters.
func (o *CircularOrbit) Params() OrbitParams { return o.params }

// Period returns the orbital period in days.
func (o *CircularOrbit) Period() float64 {
	return twoPi / math.Abs(o.params.AngularRate)
}

// PositionVelocity returns the orbit state at epoch. Velocity is the exact
// time derivative of position.
func (o *CircularOrbit) PositionVelocity(epoch model.Epoch) OrbitState {
	p := o.params
	theta := p.AngularRate*epoch.Days() + p.Phase
	s, c := math.Sincos(theta)

	pos := r3.Vec{X: p.Radius * c, Y: p.Radius * s}
	vel := r3.Vec{X: -p.Radius * p.AngularRate * s, Y: p.Radius * p.AngularRate * c}

	return OrbitState{
		Epoch:    epoch,
		Position: rotateX(pos, p.Inclination),
		Velocity: rotateX(vel, p.Inclination),
	}
}

// PositionVelocity is a one-shot helper validating p and evaluating the orbit.
func PositionVelocity(epoch model.Epoch, p OrbitParams) (OrbitState, error) {
	o, err := NewCircularOrbit(p)
	if err != nil {
		return OrbitState{}, err
	}
	return o.PositionVelocity(epoch), nil
}
