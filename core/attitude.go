package core

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// AttitudeParams describes a nominal scanning law: a constant spin about the
// scan axis while that axis precesses at a fixed cone half-angle around the
// barycentric z pole.
type AttitudeParams struct {
	SpinRate       float64 // rad/day about the scan axis
	PrecessionRate float64 // rad/day of the scan axis around the pole
	ConeAngle      float64 // half-angle between scan axis and pole, radians
	Phase          float64 // precession phase at epoch 0, radians
	SpinPhase      float64 // spin phase at epoch 0, radians
}

// AttitudeState is the orientation of the scan frame at an epoch.
//
// Orientation rotates scan-frame vectors into the barycentric frame. The
// angular velocity is expressed in the barycentric frame, rad/day.
type AttitudeState struct {
	Epoch           model.Epoch
	Orientation     quat.Number
	AngularVelocity r3.Vec
}

// ToBarycentric rotates a scan-frame vector into the barycentric frame.
func (a AttitudeState) ToBarycentric(v r3.Vec) r3.Vec {
	return r3.Rotation(a.Orientation).Rotate(v)
}

// ToScanFrame rotates a barycentric vector into the scan frame.
func (a AttitudeState) ToScanFrame(v r3.Vec) r3.Vec {
	return r3.Rotation(quat.Conj(a.Orientation)).Rotate(v)
}

// SpinAxis returns the scan-frame z axis in the barycentric frame.
func (a AttitudeState) SpinAxis() r3.Vec { return a.ToBarycentric(axisZ) }

// ViewingDirection returns the scan-frame x axis in the barycentric frame.
func (a AttitudeState) ViewingDirection() r3.Vec { return a.ToBarycentric(axisX) }

// ScanningLaw evaluates the attitude analytically as the composition of two
// constant-rate rotations, so any epoch is reproducible without integration.
type ScanningLaw struct {
	params AttitudeParams
	cone   quat.Number
}

// NewScanningLaw validates the attitude parameters.
func NewScanningLaw(p AttitudeParams) (*ScanningLaw, error) {
	if !finite(p.SpinRate, p.PrecessionRate, p.ConeAngle, p.Phase, p.SpinPhase) {
		return nil, invalid("attitude", p, "parameters must be finite")
	}
	if p.SpinRate == 0 {
		return nil, invalid("attitude.spin_rate", p.SpinRate, "must be non-zero")
	}
	if p.ConeAngle < 0 || p.ConeAngle > math.Pi {
		return nil, invalid("attitude.cone_angle", p.ConeAngle, "must be within [0, π]")
	}
	return &ScanningLaw{
		params: p,
		cone:   quat.Number(r3.NewRotation(p.ConeAngle, axisX)),
	}, nil
}

// Params returns the scanning-law parameters.
func (s *ScanningLaw) Params() AttitudeParams { return s.params }

// Orientation returns q(t) = Rz(Ω(t)) · Rx(ξ) · Rz(Ψ(t)) and the matching
// angular velocity ωp·z + ωs·spinAxis.
func (s *ScanningLaw) Orientation(epoch model.Epoch) AttitudeState {
	t := epoch.Days()
	precession := quat.Number(r3.NewRotation(s.params.PrecessionRate*t+s.params.Phase, axisZ))
	spin := quat.Number(r3.NewRotation(s.params.SpinRate*t+s.params.SpinPhase, axisZ))

	q := quat.Mul(quat.Mul(precession, s.cone), spin)
	q = quat.Scale(1/quat.Abs(q), q)

	state := AttitudeState{Epoch: epoch, Orientation: q}
	state.AngularVelocity = r3.Add(
		r3.Scale(s.params.PrecessionRate, axisZ),
		r3.Scale(s.params.SpinRate, state.SpinAxis()),
	)
	return state
}
