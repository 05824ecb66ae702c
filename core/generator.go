package core

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// OrbitModel yields the satellite's barycentric state at an epoch.
type OrbitModel interface {
	PositionVelocity(epoch model.Epoch) OrbitState
}

// AttitudeModel yields the scan-frame orientation at an epoch.
type AttitudeModel interface {
	Orientation(epoch model.Epoch) AttitudeState
}

var (
	_ OrbitModel    = (*CircularOrbit)(nil)
	_ AttitudeModel = (*ScanningLaw)(nil)
)

// Generator simulates field-angle observations of one source by one detector.
type Generator struct {
	Orbit    OrbitModel
	Attitude AttitudeModel
	Source   Source
	Detector Detector
}

// NewGenerator builds a Generator from raw parameters, validating each model.
func NewGenerator(orbit OrbitParams, attitude AttitudeParams, truth model.SourceParameters) (*Generator, error) {
	o, err := NewCircularOrbit(orbit)
	if err != nil {
		return nil, err
	}
	a, err := NewScanningLaw(attitude)
	if err != nil {
		return nil, err
	}
	s, err := NewPointSource(truth, ReferenceEpoch)
	if err != nil {
		return nil, err
	}
	return &Generator{Orbit: o, Attitude: a, Source: s, Detector: AlongScanDetector{}}, nil
}

// Generate returns one observation per epoch, in epoch-sequence order.
//
// Noise is drawn from a generator private to this call, seeded with seed, so
// identical inputs reproduce the identical set.
func (g *Generator) Generate(epochs []model.Epoch, noiseSigma float64, seed int64) (model.ObservationSet, error) {
	if len(epochs) == 0 {
		return nil, invalid("epochs", len(epochs), "epoch sequence is empty")
	}
	if math.IsNaN(noiseSigma) || math.IsInf(noiseSigma, 0) || noiseSigma < 0 {
		return nil, invalid("noise_sigma", noiseSigma, "must be finite and non-negative")
	}
	for i, e := range epochs {
		if !finite(e.Days()) {
			return nil, invalid("epochs", i, "epoch is not finite")
		}
	}

	detector := g.Detector
	if detector == nil {
		detector = AlongScanDetector{}
	}
	noise := distuv.Normal{Mu: 0, Sigma: noiseSigma, Src: rand.NewSource(uint64(seed))}

	out := make(model.ObservationSet, len(epochs))
	for i, epoch := range epochs {
		orbit := g.Orbit.PositionVelocity(epoch)
		att := g.Attitude.Orientation(epoch)
		angle := detector.FieldAngle(g.Source.Direction(epoch, orbit), att)
		out[i] = model.Observation{
			Epoch: epoch,
			Angle: WrapAngle(angle + noise.Rand()),
			Sigma: noiseSigma,
		}
	}
	return out, nil
}

// Generate is the one-shot form of Generator.Generate.
func Generate(epochs []model.Epoch, orbit OrbitParams, attitude AttitudeParams, truth model.SourceParameters, noiseSigma float64, seed int64) (model.ObservationSet, error) {
	g, err := NewGenerator(orbit, attitude, truth)
	if err != nil {
		return nil, err
	}
	return g.Generate(epochs, noiseSigma, seed)
}
