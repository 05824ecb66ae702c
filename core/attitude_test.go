package core

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

func testAttitudeParams() AttitudeParams {
	return AttitudeParams{
		SpinRate:       2 * math.Pi / 0.25,
		PrecessionRate: 2 * math.Pi / 63,
		ConeAngle:      math.Pi / 4,
		Phase:          0.2,
		SpinPhase:      1.1,
	}
}

func TestScanningLawOrientationIsUnitAndOnCone(t *testing.T) {
	law, err := NewScanningLaw(testAttitudeParams())
	if err != nil {
		t.Fatalf("NewScanningLaw: %v", err)
	}
	for _, e := range []model.Epoch{0, 0.1, 7.77, 100, 1000.5} {
		att := law.Orientation(e)
		if got := quat.Abs(att.Orientation); math.Abs(got-1) > 1e-14 {
			t.Fatalf("|q| = %v at %v, want 1", got, e)
		}
		axis := att.SpinAxis()
		if got := math.Acos(clamp(axis.Z, -1, 1)); math.Abs(got-math.Pi/4) > 1e-12 {
			t.Fatalf("spin axis cone angle = %v at %v, want π/4", got, e)
		}
		if got := r3.Dot(axis, att.ViewingDirection()); math.Abs(got) > 1e-14 {
			t.Fatalf("viewing direction not perpendicular to spin axis: %v", got)
		}
	}
}

func TestScanningLawAngularVelocityMatchesNumericalRotation(t *testing.T) {
	law, err := NewScanningLaw(testAttitudeParams())
	if err != nil {
		t.Fatalf("NewScanningLaw: %v", err)
	}
	const h = 1e-7
	for _, e := range []model.Epoch{0, 3.3, 55} {
		att := law.Orientation(e)
		for _, axis := range []r3.Vec{axisX, {Y: 1}, axisZ} {
			plus := law.Orientation(e + h).ToBarycentric(axis)
			minus := law.Orientation(e - h).ToBarycentric(axis)
			numeric := r3.Scale(1/(2*h), r3.Sub(plus, minus))
			analytic := r3.Cross(att.AngularVelocity, att.ToBarycentric(axis))
			if diff := r3.Norm(r3.Sub(numeric, analytic)); diff > 1e-5 {
				t.Fatalf("epoch %v axis %v: |dv/dt - ω×v| = %g", e, axis, diff)
			}
		}
	}
}

func TestAttitudeFrameRoundTrip(t *testing.T) {
	law, err := NewScanningLaw(testAttitudeParams())
	if err != nil {
		t.Fatalf("NewScanningLaw: %v", err)
	}
	att := law.Orientation(12.34)
	v := r3.Vec{X: 0.3, Y: -0.4, Z: 0.866}
	back := att.ToBarycentric(att.ToScanFrame(v))
	if diff := r3.Norm(r3.Sub(back, v)); diff > 1e-15 {
		t.Fatalf("round trip error %g", diff)
	}
}

func TestNewScanningLawRejectsInvalidParameters(t *testing.T) {
	bad := []AttitudeParams{
		{SpinRate: 0, ConeAngle: 0.5},
		{SpinRate: 1, ConeAngle: -0.1},
		{SpinRate: 1, ConeAngle: 4},
		{SpinRate: math.Inf(1), ConeAngle: 0.5},
	}
	for _, p := range bad {
		if _, err := NewScanningLaw(p); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("NewScanningLaw(%+v) error = %v, want ErrInvalidParameter", p, err)
		}
	}
}
