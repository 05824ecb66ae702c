package agis

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

const nParams = model.NumParameters

// NormalEquations accumulates AᵗWA and AᵗWr for one iteration.
type NormalEquations struct {
	Matrix *mat.SymDense
	Vector *mat.VecDense
	// WeightedSquares is Σ w·r², the chi-square at the linearisation point.
	WeightedSquares float64
	Count           int
}

// NewNormalEquations returns an empty system.
func NewNormalEquations() *NormalEquations {
	return &NormalEquations{
		Matrix: mat.NewSymDense(nParams, nil),
		Vector: mat.NewVecDense(nParams, nil),
	}
}

// Add accumulates one observation with design row a, residual r and weight w.
func (ne *NormalEquations) Add(a [nParams]float64, r, w float64) {
	row := mat.NewVecDense(nParams, a[:])
	ne.Matrix.SymRankOne(ne.Matrix, w, row)
	ne.Vector.AddScaledVec(ne.Vector, w*r, row)
	ne.WeightedSquares += w * r * r
	ne.Count++
}

// Merge adds the contributions accumulated in other.
func (ne *NormalEquations) Merge(other *NormalEquations) {
	ne.Matrix.AddSym(ne.Matrix, other.Matrix)
	ne.Vector.AddVec(ne.Vector, other.Vector)
	ne.WeightedSquares += other.WeightedSquares
	ne.Count += other.Count
}

// solution is the outcome of solving a normal-equations system.
type solution struct {
	delta      [nParams]float64
	covariance model.Matrix5
	condition  float64
}

// solveError describes why a system could not be solved.
type solveError struct {
	reason    string
	condition float64
}

func (e *solveError) Error() string { return e.reason }

// Solve returns Δ = N⁻¹b and the covariance N⁻¹.
//
// The matrix is equilibrated to unit diagonal before the Cholesky
// factorisation so the condition check is independent of parameter units.
func (ne *NormalEquations) Solve(maxCondition float64) (solution, error) {
	var scale [nParams]float64
	for i := 0; i < nParams; i++ {
		d := ne.Matrix.At(i, i)
		if !(d > 0) || math.IsInf(d, 0) {
			return solution{}, &solveError{reason: "normal matrix has a non-positive diagonal"}
		}
		scale[i] = 1 / math.Sqrt(d)
	}

	scaled := mat.NewSymDense(nParams, nil)
	for i := 0; i < nParams; i++ {
		for j := i; j < nParams; j++ {
			scaled.SetSym(i, j, ne.Matrix.At(i, j)*scale[i]*scale[j])
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(scaled); !ok {
		return solution{}, &solveError{reason: "normal matrix is not positive definite"}
	}
	cond := chol.Cond()
	if math.IsNaN(cond) || cond > maxCondition {
		return solution{}, &solveError{reason: "normal matrix is ill-conditioned", condition: cond}
	}

	rhs := mat.NewVecDense(nParams, nil)
	for i := 0; i < nParams; i++ {
		rhs.SetVec(i, ne.Vector.AtVec(i)*scale[i])
	}
	var y mat.VecDense
	if err := chol.SolveVecTo(&y, rhs); err != nil {
		return solution{}, &solveError{reason: "solve failed: " + err.Error(), condition: cond}
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return solution{}, &solveError{reason: "inverse failed: " + err.Error(), condition: cond}
	}

	out := solution{condition: cond}
	for i := 0; i < nParams; i++ {
		out.delta[i] = y.AtVec(i) * scale[i]
		for j := 0; j < nParams; j++ {
			out.covariance[i][j] = inv.At(i, j) * scale[i] * scale[j]
		}
	}
	return out, nil
}
