package core

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

func testOrbitState(t *testing.T, epoch model.Epoch) OrbitState {
	t.Helper()
	o, err := NewCircularOrbit(OrbitParams{Radius: 1, AngularRate: 2 * math.Pi / 365.25, Inclination: 0.1})
	if err != nil {
		t.Fatalf("NewCircularOrbit: %v", err)
	}
	return o.PositionVelocity(epoch)
}

func TestApparentDirectionWithoutMotionIsReferenceDirection(t *testing.T) {
	p := model.SourceParameters{RA: 1.1, Dec: -0.3}
	_, _, r := TangentBasis(p.RA, p.Dec)
	got := ApparentDirection(200, ReferenceEpoch, p, testOrbitState(t, 200))
	if diff := r3.Norm(r3.Sub(got, r)); diff > 1e-15 {
		t.Fatalf("direction = %v, want %v", got, r)
	}
}

func TestParallaxDisplacesTowardsOppositeOfSatellite(t *testing.T) {
	p := model.SourceParameters{RA: 0.4, Dec: 0.2, Parallax: 1e-3}
	orbit := testOrbitState(t, 90)
	u := TrueDirection(90, p, orbit)
	_, _, r := TangentBasis(p.RA, p.Dec)

	shift := r3.Sub(u, r)
	if r3.Dot(shift, tangential(orbit.Position, r)) >= 0 {
		t.Fatalf("parallax shift %v not opposite to satellite offset", shift)
	}
	if got, want := r3.Norm(shift), p.Parallax*r3.Norm(tangential(orbit.Position, r)); math.Abs(got-want) > 1e-6 {
		t.Fatalf("|shift| = %v, want ≈ %v", got, want)
	}
}

func TestDirectionPartialsMatchFiniteDifferences(t *testing.T) {
	params := []model.SourceParameters{
		{RA: 0, Dec: 0, Parallax: 0.01},
		{RA: 2.1, Dec: 0.7, Parallax: 2e-4, PMRA: 3e-6, PMDec: -5e-6},
		{RA: -1.3, Dec: -1.2, Parallax: -1e-4, PMRA: -1e-7, PMDec: 2e-7},
	}
	const h = 1e-6
	for _, s := range params {
		for _, e := range []model.Epoch{-150, 0, 42, 700} {
			orbit := testOrbitState(t, e)
			analytic := DirectionPartials(e, ReferenceEpoch, s, orbit)
			base := s.Vector()
			for k := 0; k < model.NumParameters; k++ {
				var d [model.NumParameters]float64
				d[k] = h
				plus := ApparentDirection(e, ReferenceEpoch, model.SourceParametersFromVector(base).Add(d), orbit)
				d[k] = -h
				minus := ApparentDirection(e, ReferenceEpoch, model.SourceParametersFromVector(base).Add(d), orbit)
				numeric := r3.Scale(1/(2*h), r3.Sub(plus, minus))

				tol := 1e-7 * math.Max(1, r3.Norm(numeric))
				if diff := r3.Norm(r3.Sub(numeric, analytic[k])); diff > tol {
					t.Fatalf("∂ũ/∂%s at %+v epoch %v: analytic %v numeric %v (diff %g)",
						model.ParameterNames[k], s, e, analytic[k], numeric, diff)
				}
			}
		}
	}
}

func TestValidateSourceParameters(t *testing.T) {
	if err := ValidateSourceParameters(model.SourceParameters{Dec: math.Pi / 2, Parallax: -1e-3}); err != nil {
		t.Fatalf("pole with negative parallax rejected: %v", err)
	}
	for _, p := range []model.SourceParameters{
		{Dec: math.Pi/2 + 1e-9},
		{RA: math.NaN()},
		{PMDec: math.Inf(-1)},
	} {
		if err := ValidateSourceParameters(p); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("ValidateSourceParameters(%+v) = %v, want ErrInvalidParameter", p, err)
		}
	}
}
