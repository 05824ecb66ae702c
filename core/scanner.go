package core

import (
	"context"
	"math"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// Scanner finds the epochs at which a source crosses the scan line, i.e. the
// along-scan angle of its true direction passes through zero while the
// across-scan angle stays inside the field of view.
type Scanner struct {
	// ScanLineHalfWidth bounds |ζ| at a transit, radians.
	ScanLineHalfWidth float64
	// Step is the bracketing step in days. It must be well below the spin
	// period or transits are missed.
	Step float64
	// Tolerance is the bisection stopping width in days.
	Tolerance float64
	// Detector defaults to AlongScanDetector.
	Detector Detector
}

// DefaultScanner uses a 2.5° half-width field and a 20-minute step.
func DefaultScanner() Scanner {
	return Scanner{
		ScanLineHalfWidth: 2.5 * math.Pi / 180,
		Step:              1.0 / 72,
		Tolerance:         1e-9,
	}
}

// Transits returns the ordered transit epochs within [start, end].
func (s Scanner) Transits(ctx context.Context, start, end model.Epoch, orbit OrbitModel, attitude AttitudeModel, source Source) ([]model.Epoch, error) {
	if !finite(start.Days(), end.Days()) || end <= start {
		return nil, invalid("scan.interval", [2]model.Epoch{start, end}, "end must be after start")
	}
	if !(s.Step > 0) || !(s.Tolerance > 0) {
		return nil, invalid("scan.step", s.Step, "step and tolerance must be positive")
	}
	if !(s.ScanLineHalfWidth > 0) || s.ScanLineHalfWidth > math.Pi/2 {
		return nil, invalid("scan.half_width", s.ScanLineHalfWidth, "must be within (0, π/2]")
	}
	det := s.Detector
	if det == nil {
		det = AlongScanDetector{}
	}

	eval := func(t model.Epoch) (eta, zeta float64) {
		o := orbit.PositionVelocity(t)
		a := attitude.Orientation(t)
		u := source.Direction(t, o)
		return det.FieldAngle(u, a), AcrossScanAngle(u, a)
	}

	var transits []model.Epoch
	t0 := start
	eta0, zeta0 := eval(t0)
	for steps := 0; t0 < end; steps++ {
		if steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t1 := t0 + model.Epoch(s.Step)
		if t1 > end {
			t1 = end
		}
		eta1, zeta1 := eval(t1)

		if s.brackets(eta0, eta1, zeta0, zeta1) {
			root := s.bisect(t0, t1, eta0, func(t model.Epoch) float64 {
				eta, _ := eval(t)
				return eta
			})
			if _, zeta := eval(root); math.Abs(zeta) <= s.ScanLineHalfWidth {
				transits = append(transits, root)
			}
		}
		t0, eta0, zeta0 = t1, eta1, zeta1
	}
	return transits, nil
}

// brackets rejects sign changes produced by the ±π wrap of η and crossings
// well outside the field of view. A root landing exactly on t0 was already
// counted by the previous step.
func (s Scanner) brackets(eta0, eta1, zeta0, zeta1 float64) bool {
	if eta0 == 0 || eta0*eta1 > 0 {
		return false
	}
	if math.Abs(eta0) > math.Pi/2 || math.Abs(eta1) > math.Pi/2 {
		return false
	}
	limit := 2 * s.ScanLineHalfWidth
	return math.Abs(zeta0) <= limit || math.Abs(zeta1) <= limit
}

func (s Scanner) bisect(lo, hi model.Epoch, fLo float64, f func(model.Epoch) float64) model.Epoch {
	if fLo == 0 {
		return lo
	}
	for float64(hi-lo) > s.Tolerance {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			break
		}
		fMid := f(mid)
		if fMid == 0 {
			return mid
		}
		if (fMid < 0) == (fLo < 0) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return lo + (hi-lo)/2
}
