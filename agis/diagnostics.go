package agis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/astrometric-simulator/core"
	"github.com/signalsfoundry/astrometric-simulator/model"
)

// Diagnostics summarises the post-fit residuals of a solution.
type Diagnostics struct {
	ChiSquare    float64   `json:"chi_square"`
	DOF          int       `json:"dof"`
	Residuals    []float64 `json:"residuals"`
	RMS          float64   `json:"rms"`
	WeightedMean float64   `json:"weighted_mean"`
}

// ReducedChiSquare returns chi-square per degree of freedom, or NaN when the
// system has no redundancy.
func (d Diagnostics) ReducedChiSquare() float64 {
	if d.DOF <= 0 {
		return math.NaN()
	}
	return d.ChiSquare / float64(d.DOF)
}

// Diagnose computes residuals observed − model (wrapped to (−π, π]), the
// chi-square Σ(r/σ)² and dof = n − 5. Observations with zero sigma count
// with unit sigma, matching the solver weights.
func Diagnose(observations model.ObservationSet, modelAngles []float64) (Diagnostics, error) {
	if len(observations) != len(modelAngles) {
		return Diagnostics{}, &core.InvalidParameterError{
			Field:  "model_angles",
			Value:  len(modelAngles),
			Reason: "length does not match the observation set",
		}
	}

	residuals := make([]float64, len(observations))
	weights := make([]float64, len(observations))
	chi2 := 0.0
	for i, o := range observations {
		r := core.WrapAngle(o.Angle - modelAngles[i])
		w := weight(o.Sigma)
		residuals[i] = r
		weights[i] = w
		chi2 += w * r * r
	}

	d := Diagnostics{
		ChiSquare: chi2,
		DOF:       len(observations) - model.NumParameters,
		Residuals: residuals,
	}
	if len(residuals) > 0 {
		d.RMS = floats.Norm(residuals, 2) / math.Sqrt(float64(len(residuals)))
		d.WeightedMean = stat.Mean(residuals, weights)
	}
	return d, nil
}
