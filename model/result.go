package model

// Matrix5 is a dense 5x5 matrix in parameter order.
type Matrix5 [NumParameters][NumParameters]float64

// IterationReport records one Gauss-Newton step.
type IterationReport struct {
	Iteration       int                    `json:"iteration"`
	Estimate        SourceParameters       `json:"estimate"` // after the update
	Update          [NumParameters]float64 `json:"update"`
	UpdateNorm      float64                `json:"update_norm"`
	ChiSquareBefore float64                `json:"chi_square_before"`
	ConditionNumber float64                `json:"condition_number"`
}

// SolverResult is the outcome of one solve call.
type SolverResult struct {
	Estimate     SourceParameters       `json:"final_estimate"`
	Iterations   int                    `json:"iteration_count"`
	Converged    bool                   `json:"converged"`
	Residuals    []float64              `json:"residuals"`
	Covariance   Matrix5                `json:"covariance"`
	FormalErrors [NumParameters]float64 `json:"formal_errors"`
	ChiSquare    float64                `json:"chi_square"`
	DOF          int                    `json:"dof"`
	History      []IterationReport      `json:"history,omitempty"`
}
