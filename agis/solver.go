// Package agis implements the iterative global astrometric solution for a
// single source: a Gauss-Newton adjustment of the five astrometric parameters
// against along-scan field-angle observations, with the orbit and attitude
// held fixed.
package agis

import (
	"errors"
	"math"
	"runtime"

	"github.com/signalsfoundry/astrometric-simulator/core"
	"github.com/signalsfoundry/astrometric-simulator/model"
)

const (
	// DefaultMaxCondition bounds the condition number of the equilibrated
	// normal matrix.
	DefaultMaxCondition = 1e10
	// DefaultBlockSize is the number of observations accumulated per block.
	DefaultBlockSize = 256
)

// SolverState is the only state carried from one iteration to the next.
type SolverState struct {
	Estimate       model.SourceParameters
	Iteration      int
	LastUpdateNorm float64
	Converged      bool
}

// Solver refines source parameters against an observation set. A Solver holds
// only configuration; each Solve call owns its own state, so one Solver may
// serve concurrent solves.
type Solver struct {
	orbit        core.OrbitModel
	attitude     core.AttitudeModel
	detector     core.Detector
	ref          model.Epoch
	workers      int
	blockSize    int
	maxCondition float64
	hook         func(model.IterationReport)
}

// Option customises Solver construction.
type Option func(*Solver)

// WithWorkers sets how many goroutines accumulate the normal equations.
func WithWorkers(workers int) Option {
	return func(s *Solver) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithBlockSize sets the accumulation block size. The partition into blocks
// depends only on this value, never on the worker count.
func WithBlockSize(size int) Option {
	return func(s *Solver) {
		if size > 0 {
			s.blockSize = size
		}
	}
}

// WithMaxCondition overrides DefaultMaxCondition.
func WithMaxCondition(limit float64) Option {
	return func(s *Solver) {
		if limit > 1 {
			s.maxCondition = limit
		}
	}
}

// WithReferenceEpoch sets the epoch at which the solved RA/Dec apply.
func WithReferenceEpoch(ref model.Epoch) Option {
	return func(s *Solver) { s.ref = ref }
}

// WithDetector replaces the default along-scan detector.
func WithDetector(d core.Detector) Option {
	return func(s *Solver) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithIterationHook registers a callback invoked after every completed
// iteration. It runs on the solving goroutine.
func WithIterationHook(fn func(model.IterationReport)) Option {
	return func(s *Solver) { s.hook = fn }
}

// NewSolver constructs a Solver over fixed orbit and attitude models.
func NewSolver(orbit core.OrbitModel, attitude core.AttitudeModel, opts ...Option) (*Solver, error) {
	if orbit == nil {
		return nil, &core.InvalidParameterError{Field: "orbit", Reason: "orbit model is required"}
	}
	if attitude == nil {
		return nil, &core.InvalidParameterError{Field: "attitude", Reason: "attitude model is required"}
	}
	s := &Solver{
		orbit:        orbit,
		attitude:     attitude,
		detector:     core.AlongScanDetector{},
		ref:          core.ReferenceEpoch,
		workers:      runtime.GOMAXPROCS(0),
		blockSize:    DefaultBlockSize,
		maxCondition: DefaultMaxCondition,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Solve validates the raw parameters and runs a Solver over them.
func Solve(
	observations model.ObservationSet,
	orbit core.OrbitParams,
	attitude core.AttitudeParams,
	initial model.SourceParameters,
	maxIterations int,
	tolerance float64,
	opts ...Option,
) (*model.SolverResult, error) {
	o, err := core.NewCircularOrbit(orbit)
	if err != nil {
		return nil, err
	}
	a, err := core.NewScanningLaw(attitude)
	if err != nil {
		return nil, err
	}
	s, err := NewSolver(o, a, opts...)
	if err != nil {
		return nil, err
	}
	return s.Solve(observations, initial, maxIterations, tolerance)
}

// Solve iterates from initial until the normalised update drops below
// tolerance or maxIterations is reached. Exhausting the iterations returns
// Converged=false with the last estimate. A singular or ill-conditioned
// system returns a *core.NumericalInstabilityError.
func (s *Solver) Solve(observations model.ObservationSet, initial model.SourceParameters, maxIterations int, tolerance float64) (*model.SolverResult, error) {
	if err := validateInputs(observations, initial, maxIterations, tolerance); err != nil {
		return nil, err
	}
	if distinct := observations.DistinctEpochs(); distinct < model.NumParameters {
		return nil, &core.NumericalInstabilityError{
			Iteration: 1,
			Reason:    "fewer distinct epochs than astrometric parameters",
		}
	}

	state := SolverState{Estimate: initial}
	var (
		covariance model.Matrix5
		history    []model.IterationReport
	)
	for state.Iteration < maxIterations && !state.Converged {
		next, step, err := s.step(observations, state, tolerance)
		if err != nil {
			return nil, err
		}
		state = next
		covariance = step.covariance
		report := model.IterationReport{
			Iteration:       state.Iteration,
			Estimate:        state.Estimate,
			Update:          step.delta,
			UpdateNorm:      state.LastUpdateNorm,
			ChiSquareBefore: step.chiSquare,
			ConditionNumber: step.condition,
		}
		history = append(history, report)
		if s.hook != nil {
			s.hook(report)
		}
	}

	diag, err := Diagnose(observations, s.ModelAngles(observations, state.Estimate))
	if err != nil {
		return nil, err
	}

	result := &model.SolverResult{
		Estimate:   state.Estimate,
		Iterations: state.Iteration,
		Converged:  state.Converged,
		Residuals:  diag.Residuals,
		Covariance: covariance,
		ChiSquare:  diag.ChiSquare,
		DOF:        diag.DOF,
		History:    history,
	}
	for i := range result.FormalErrors {
		result.FormalErrors[i] = math.Sqrt(covariance[i][i])
	}
	return result, nil
}

type stepResult struct {
	delta      [nParams]float64
	covariance model.Matrix5
	condition  float64
	chiSquare  float64
}

// step performs one linearise-accumulate-solve-update cycle and returns the
// successor state. The input state is not modified.
func (s *Solver) step(observations model.ObservationSet, state SolverState, tolerance float64) (SolverState, stepResult, error) {
	iteration := state.Iteration + 1

	ne, err := s.accumulate(observations, state.Estimate)
	if err != nil {
		var nf *nonFiniteError
		if errors.As(err, &nf) {
			return state, stepResult{}, &core.NumericalInstabilityError{Iteration: iteration, Reason: nf.Error()}
		}
		return state, stepResult{}, err
	}

	sol, err := ne.Solve(s.maxCondition)
	if err != nil {
		var se *solveError
		if errors.As(err, &se) {
			return state, stepResult{}, &core.NumericalInstabilityError{
				Iteration: iteration,
				Condition: se.condition,
				Reason:    se.reason,
			}
		}
		return state, stepResult{}, err
	}

	norm := 0.0
	for i, d := range sol.delta {
		sigma := math.Sqrt(sol.covariance[i][i])
		norm += (d / sigma) * (d / sigma)
	}
	norm = math.Sqrt(norm)

	next := SolverState{
		Estimate:       state.Estimate.Add(sol.delta),
		Iteration:      iteration,
		LastUpdateNorm: norm,
		Converged:      norm < tolerance,
	}
	return next, stepResult{
		delta:      sol.delta,
		covariance: sol.covariance,
		condition:  sol.condition,
		chiSquare:  ne.WeightedSquares,
	}, nil
}

// ModelAngles evaluates the forward model for every observation epoch with
// the given parameters. It mirrors the observation generator exactly.
func (s *Solver) ModelAngles(observations model.ObservationSet, est model.SourceParameters) []float64 {
	out := make([]float64, len(observations))
	for i, o := range observations {
		orbit := s.orbit.PositionVelocity(o.Epoch)
		att := s.attitude.Orientation(o.Epoch)
		out[i] = s.detector.FieldAngle(core.ApparentDirection(o.Epoch, s.ref, est, orbit), att)
	}
	return out
}

// linearise returns the model angle and the analytic design row of one
// observation at est.
func (s *Solver) linearise(o model.Observation, est model.SourceParameters) (float64, [nParams]float64) {
	orbit := s.orbit.PositionVelocity(o.Epoch)
	att := s.attitude.Orientation(o.Epoch)
	u := core.ApparentDirection(o.Epoch, s.ref, est, orbit)
	partials := core.DirectionPartials(o.Epoch, s.ref, est, orbit)

	var row [nParams]float64
	for k, du := range partials {
		row[k] = s.detector.FieldAngleDerivative(u, du, att)
	}
	return s.detector.FieldAngle(u, att), row
}

// weight returns the inverse-variance weight of an observation. Noise-free
// observations carry unit weight.
func weight(sigma float64) float64 {
	if sigma > 0 {
		return 1 / (sigma * sigma)
	}
	return 1
}

func validateInputs(observations model.ObservationSet, initial model.SourceParameters, maxIterations int, tolerance float64) error {
	if len(observations) == 0 {
		return &core.InvalidParameterError{Field: "observations", Value: 0, Reason: "observation set is empty"}
	}
	if maxIterations < 1 {
		return &core.InvalidParameterError{Field: "max_iterations", Value: maxIterations, Reason: "must be at least 1"}
	}
	if !(tolerance > 0) || math.IsInf(tolerance, 0) {
		return &core.InvalidParameterError{Field: "convergence_tolerance", Value: tolerance, Reason: "must be positive and finite"}
	}
	if err := core.ValidateSourceParameters(initial); err != nil {
		return err
	}
	for i, o := range observations {
		if math.IsNaN(o.Angle) || math.IsInf(o.Angle, 0) || math.IsNaN(o.Epoch.Days()) || math.IsInf(o.Epoch.Days(), 0) {
			return &core.InvalidParameterError{Field: "observations", Value: i, Reason: "observation is not finite"}
		}
		if math.IsNaN(o.Sigma) || o.Sigma < 0 {
			return &core.InvalidParameterError{Field: "observations.sigma", Value: o.Sigma, Reason: "must be non-negative"}
		}
	}
	return nil
}
