package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// ReferenceEpoch is the default epoch at which source positions are given.
const ReferenceEpoch model.Epoch = 0

// Source yields the apparent direction of a sky source seen from the
// satellite. Multi-source support adds implementations, not callers.
type Source interface {
	Direction(epoch model.Epoch, orbit OrbitState) r3.Vec
}

// PointSource is a single star moving linearly on the sky with parallax.
type PointSource struct {
	params model.SourceParameters
	ref    model.Epoch
}

var _ Source = (*PointSource)(nil)

// NewPointSource validates the astrometric parameters.
func NewPointSource(p model.SourceParameters, ref model.Epoch) (*PointSource, error) {
	if err := ValidateSourceParameters(p); err != nil {
		return nil, err
	}
	if !finite(ref.Days()) {
		return nil, invalid("source.reference_epoch", ref, "must be finite")
	}
	return &PointSource{params: p, ref: ref}, nil
}

// ValidateSourceParameters checks that p describes a position on the sphere.
// Negative parallax is allowed.
func ValidateSourceParameters(p model.SourceParameters) error {
	if !finite(p.RA, p.Dec, p.Parallax, p.PMRA, p.PMDec) {
		return invalid("source", p, "parameters must be finite")
	}
	if math.Abs(p.Dec) > math.Pi/2 {
		return invalid("source.dec", p.Dec, "must be within [-π/2, π/2]")
	}
	return nil
}

// Parameters returns the source's true parameters.
func (s *PointSource) Parameters() model.SourceParameters { return s.params }

// ReferenceEpoch returns the epoch at which RA and Dec apply.
func (s *PointSource) ReferenceEpoch() model.Epoch { return s.ref }

// Direction returns the unit apparent direction at epoch.
func (s *PointSource) Direction(epoch model.Epoch, orbit OrbitState) r3.Vec {
	return r3.Unit(ApparentDirection(epoch, s.ref, s.params, orbit))
}

// TrueDirection returns the unit apparent direction for parameters given at
// ReferenceEpoch.
func TrueDirection(epoch model.Epoch, p model.SourceParameters, orbit OrbitState) r3.Vec {
	return r3.Unit(ApparentDirection(epoch, ReferenceEpoch, p, orbit))
}

// ApparentDirection returns the unnormalised direction
//
//	ũ = r + τ(p·μα* + q·μδ) − ϖ(b − (b·r)r)
//
// where τ = epoch − ref and b is the barycentric satellite position.
func ApparentDirection(epoch, ref model.Epoch, s model.SourceParameters, orbit OrbitState) r3.Vec {
	p, q, r := TangentBasis(s.RA, s.Dec)
	tau := epoch.Since(ref)
	b := orbit.Position

	u := r
	u = r3.Add(u, r3.Scale(tau*s.PMRA, p))
	u = r3.Add(u, r3.Scale(tau*s.PMDec, q))
	u = r3.Sub(u, r3.Scale(s.Parallax, tangential(b, r)))
	return u
}

// DirectionPartials returns ∂ũ/∂s for the five parameters in solver order.
// The derivatives are exact for the unnormalised direction of
// ApparentDirection.
func DirectionPartials(epoch, ref model.Epoch, s model.SourceParameters, orbit OrbitState) [model.NumParameters]r3.Vec {
	p, q, r := TangentBasis(s.RA, s.Dec)
	sa, ca := math.Sincos(s.RA)
	sd, cd := math.Sincos(s.Dec)
	tau := epoch.Since(ref)
	b := orbit.Position
	br := r3.Dot(b, r)

	drdRA := r3.Scale(cd, p)
	dpdRA := r3.Vec{X: -ca, Y: -sa}
	dqdRA := r3.Scale(-sd, p)
	drdDec := q
	dqdDec := r3.Scale(-1, r)

	// d/dx of b − (b·r)r is −((b·r')r + (b·r)r').
	dPdRA := r3.Scale(-1, r3.Add(r3.Scale(r3.Dot(b, drdRA), r), r3.Scale(br, drdRA)))
	dPdDec := r3.Scale(-1, r3.Add(r3.Scale(r3.Dot(b, drdDec), r), r3.Scale(br, drdDec)))

	var out [model.NumParameters]r3.Vec
	out[model.ParamRA] = r3.Sub(
		r3.Add(drdRA, r3.Add(r3.Scale(tau*s.PMRA, dpdRA), r3.Scale(tau*s.PMDec, dqdRA))),
		r3.Scale(s.Parallax, dPdRA),
	)
	out[model.ParamDec] = r3.Sub(
		r3.Add(drdDec, r3.Scale(tau*s.PMDec, dqdDec)),
		r3.Scale(s.Parallax, dPdDec),
	)
	out[model.ParamParallax] = r3.Scale(-1, tangential(b, r))
	out[model.ParamPMRA] = r3.Scale(tau, p)
	out[model.ParamPMDec] = r3.Scale(tau, q)
	return out
}

// tangential projects b onto the plane perpendicular to r.
func tangential(b, r r3.Vec) r3.Vec {
	return r3.Sub(b, r3.Scale(r3.Dot(b, r), r))
}
