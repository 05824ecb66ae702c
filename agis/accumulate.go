package agis

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/astrometric-simulator/core"
	"github.com/signalsfoundry/astrometric-simulator/model"
)

// nonFiniteError reports an observation whose model angle or design row is
// not a finite number at the current estimate.
type nonFiniteError struct {
	index int
}

func (e *nonFiniteError) Error() string {
	return fmt.Sprintf("non-finite model evaluation for observation %d", e.index)
}

// accumulate builds the normal equations at est.
//
// Observations are split into fixed blocks of s.blockSize. Blocks are
// accumulated concurrently and their partial sums are merged in block order,
// so the result does not depend on the number of workers.
func (s *Solver) accumulate(observations model.ObservationSet, est model.SourceParameters) (*NormalEquations, error) {
	blocks := (len(observations) + s.blockSize - 1) / s.blockSize
	partials := make([]*NormalEquations, blocks)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for b := 0; b < blocks; b++ {
		b := b
		lo := b * s.blockSize
		hi := min(lo+s.blockSize, len(observations))
		g.Go(func() error {
			ne, err := s.accumulateBlock(observations, lo, hi, est)
			if err != nil {
				return err
			}
			partials[b] = ne
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := NewNormalEquations()
	for _, p := range partials {
		total.Merge(p)
	}
	return total, nil
}

func (s *Solver) accumulateBlock(observations model.ObservationSet, lo, hi int, est model.SourceParameters) (*NormalEquations, error) {
	ne := NewNormalEquations()
	for i := lo; i < hi; i++ {
		o := observations[i]
		angle, row := s.linearise(o, est)
		r := core.WrapAngle(o.Angle - angle)
		if !finiteRow(r, row) {
			return nil, &nonFiniteError{index: i}
		}
		ne.Add(row, r, weight(o.Sigma))
	}
	return ne, nil
}

func finiteRow(r float64, row [nParams]float64) bool {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return false
	}
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
