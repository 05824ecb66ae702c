// Package timectrl builds the epoch sequences a simulation is sampled at and
// converts between calendar time and simulation epochs.
package timectrl

import (
	"errors"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// J2000JulianDay is the Julian day of the reference epoch 2000-01-01T12:00 UTC.
const J2000JulianDay = 2451545.0

// J2000 is the calendar time of epoch 0.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// ErrInvalidSequence is returned for grids that cannot produce epochs.
var ErrInvalidSequence = errors.New("invalid epoch sequence")

// Grid describes epochs from Start to End (inclusive when it falls on the
// cadence) every Cadence days.
type Grid struct {
	Start   model.Epoch
	End     model.Epoch
	Cadence float64
}

// Epochs returns the ordered epochs of the grid.
func (g Grid) Epochs() ([]model.Epoch, error) {
	if !(g.Cadence > 0) || math.IsInf(g.Cadence, 0) {
		return nil, fmt.Errorf("%w: cadence %v must be positive", ErrInvalidSequence, g.Cadence)
	}
	if g.End < g.Start {
		return nil, fmt.Errorf("%w: end %v before start %v", ErrInvalidSequence, g.End, g.Start)
	}
	// Index-based stepping avoids accumulating rounding in long grids.
	n := int(math.Floor(float64(g.End-g.Start)/g.Cadence+1e-9)) + 1
	out := make([]model.Epoch, n)
	for i := range out {
		out[i] = g.Start + model.Epoch(float64(i)*g.Cadence)
	}
	return out, nil
}

// EvenlySpaced returns count epochs covering [start, start+span) at equal
// spacing, so a full period is sampled without repeating its first phase.
func EvenlySpaced(start model.Epoch, span float64, count int) ([]model.Epoch, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count %d must be positive", ErrInvalidSequence, count)
	}
	if !(span > 0) || math.IsInf(span, 0) {
		return nil, fmt.Errorf("%w: span %v must be positive", ErrInvalidSequence, span)
	}
	out := make([]model.Epoch, count)
	step := span / float64(count)
	for i := range out {
		out[i] = start + model.Epoch(float64(i)*step)
	}
	return out, nil
}

// EpochFromTime converts a calendar time to days since J2000.
func EpochFromTime(t time.Time) model.Epoch {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	frac := float64(t.Nanosecond()) / (86400 * 1e9)
	return model.Epoch(jd - J2000JulianDay + frac)
}

// TimeFromEpoch converts days since J2000 back to calendar time, rounded to
// the nearest microsecond.
func TimeFromEpoch(e model.Epoch) time.Time {
	us := math.Round(e.Days() * 86400 * 1e6)
	return J2000.Add(time.Duration(us) * time.Microsecond)
}
