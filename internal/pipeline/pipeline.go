// Package pipeline runs a scenario end to end: epoch generation, observation
// simulation and the astrometric solve, with logging, metrics and tracing
// around each stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/astrometric-simulator/agis"
	"github.com/signalsfoundry/astrometric-simulator/core"
	"github.com/signalsfoundry/astrometric-simulator/internal/logging"
	"github.com/signalsfoundry/astrometric-simulator/internal/observability"
	"github.com/signalsfoundry/astrometric-simulator/internal/scenario"
	"github.com/signalsfoundry/astrometric-simulator/model"
)

// Recorder receives run metrics. *observability.SimulationCollector
// satisfies it.
type Recorder interface {
	ObserveGenerated(n int)
	ObserveIteration(r model.IterationReport)
	ObserveSolve(outcome string, d time.Duration)
}

var _ Recorder = (*observability.SimulationCollector)(nil)

type runner struct {
	log          logging.Logger
	recorder     Recorder
	tracer       trace.Tracer
	observations bool
}

// Option customises a pipeline run.
type Option func(*runner)

// WithLogger sets the run logger. Without it the logger stored on the
// context is used.
func WithLogger(l logging.Logger) Option {
	return func(r *runner) { r.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *runner) { r.recorder = rec }
}

// WithTracer overrides the global simulator tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *runner) { r.tracer = t }
}

// WithoutObservations omits the observation table from the report.
func WithoutObservations() Option {
	return func(r *runner) { r.observations = false }
}

func newRunner(ctx context.Context, opts []Option) (context.Context, *runner) {
	r := &runner{observations: true}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.FromContext(ctx)
	}
	if r.tracer == nil {
		r.tracer = observability.Tracer()
	}
	ctx, r.log = logging.WithRunLogger(ctx, r.log)
	return ctx, r
}

// Report is the serialisable outcome of one run.
type Report struct {
	RunID        string                 `json:"run_id"`
	Scenario     string                 `json:"scenario"`
	Seed         int64                  `json:"seed"`
	NoiseSigma   float64                `json:"noise_sigma"`
	EpochCount   int                    `json:"epoch_count"`
	Truth        model.SourceParameters `json:"true_parameters"`
	Initial      model.SourceParameters `json:"initial_estimate"`
	Observations model.ObservationSet   `json:"observations,omitempty"`
	Result       *model.SolverResult    `json:"result"`
	// EstimateErrors is estimate − truth per parameter, in solver order.
	EstimateErrors [model.NumParameters]float64 `json:"estimate_minus_truth"`
	// NormalisedErrors divides EstimateErrors by the formal errors.
	NormalisedErrors [model.NumParameters]float64 `json:"normalised_errors"`
	// ReducedChiSquare is omitted when the system has no redundancy.
	ReducedChiSquare *float64 `json:"reduced_chi_square,omitempty"`
	DurationSeconds  float64  `json:"duration_seconds"`
}

// Generate builds the epoch sequence of sc and simulates its observations.
func Generate(ctx context.Context, sc *scenario.Scenario, opts ...Option) (model.ObservationSet, error) {
	ctx, r := newRunner(ctx, opts)
	return r.generate(ctx, sc)
}

// Transits returns the scan-line crossings of the scenario source between
// the scenario's start and end epochs.
func Transits(ctx context.Context, sc *scenario.Scenario, opts ...Option) ([]model.Epoch, error) {
	ctx, r := newRunner(ctx, opts)
	ctx, span := r.tracer.Start(ctx, "pipeline.transits")
	defer span.End()

	orbit, attitude, source, err := sc.Models()
	if err != nil {
		return nil, fail(span, err)
	}
	scanner := sc.Epochs.Scanner
	if scanner.Step == 0 {
		scanner = core.DefaultScanner()
	}
	epochs, err := scanner.Transits(ctx, sc.Epochs.Start, sc.Epochs.End, orbit, attitude, source)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("transits", len(epochs)))
	r.log.Info(ctx, "transit search complete",
		logging.String("scenario", sc.Name),
		logging.Int("transits", len(epochs)),
	)
	return epochs, nil
}

// Run executes the full scenario. Non-convergence is reported in the result;
// only invalid input, numerical instability and cancellation are errors.
func Run(ctx context.Context, sc *scenario.Scenario, opts ...Option) (*Report, error) {
	ctx, r := newRunner(ctx, opts)
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("scenario", sc.Name),
		attribute.Int64("seed", sc.Seed),
	))
	defer span.End()

	r.log.Info(ctx, "run started",
		logging.String("scenario", sc.Name),
		logging.String("epoch_mode", sc.Epochs.Mode),
		logging.Float("noise_sigma", sc.NoiseSigma),
	)

	obs, err := r.generate(ctx, sc)
	if err != nil {
		return nil, fail(span, err)
	}
	result, err := r.solve(ctx, sc, obs)
	if err != nil {
		return nil, fail(span, err)
	}

	report := &Report{
		RunID:      logging.RunIDFromContext(ctx),
		Scenario:   sc.Name,
		Seed:       sc.Seed,
		NoiseSigma: sc.NoiseSigma,
		EpochCount: len(obs),
		Truth:      sc.Truth,
		Initial:    sc.Solver.Initial,
		Result:     result,
	}
	if r.observations {
		report.Observations = obs
	}
	report.EstimateErrors = result.Estimate.Sub(sc.Truth)
	for i, e := range report.EstimateErrors {
		if f := result.FormalErrors[i]; f > 0 {
			report.NormalisedErrors[i] = e / f
		}
	}
	if result.DOF > 0 {
		red := result.ChiSquare / float64(result.DOF)
		report.ReducedChiSquare = &red
	}
	report.DurationSeconds = time.Since(start).Seconds()

	span.SetAttributes(
		attribute.Bool("converged", result.Converged),
		attribute.Int("iterations", result.Iterations),
	)
	r.log.Info(ctx, "run complete",
		logging.Bool("converged", result.Converged),
		logging.Int("iterations", result.Iterations),
		logging.Float("parallax", result.Estimate.Parallax),
		logging.Float("parallax_error", result.FormalErrors[model.ParamParallax]),
		logging.Float("chi_square", result.ChiSquare),
	)
	return report, nil
}

func (r *runner) generate(ctx context.Context, sc *scenario.Scenario) (model.ObservationSet, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.generate")
	defer span.End()

	epochs, err := sc.EpochSequence(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	orbit, attitude, source, err := sc.Models()
	if err != nil {
		return nil, fail(span, err)
	}
	gen := &core.Generator{Orbit: orbit, Attitude: attitude, Source: source, Detector: core.AlongScanDetector{}}
	obs, err := gen.Generate(epochs, sc.NoiseSigma, sc.Seed)
	if err != nil {
		return nil, fail(span, err)
	}

	if r.recorder != nil {
		r.recorder.ObserveGenerated(len(obs))
	}
	span.SetAttributes(attribute.Int("observations", len(obs)))
	r.log.Debug(ctx, "observations generated",
		logging.Int("count", len(obs)),
		logging.Int("distinct_epochs", obs.DistinctEpochs()),
	)
	return obs, nil
}

func (r *runner) solve(ctx context.Context, sc *scenario.Scenario, obs model.ObservationSet) (*model.SolverResult, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.solve", trace.WithAttributes(
		attribute.Int("max_iterations", sc.Solver.MaxIterations),
		attribute.Float64("tolerance", sc.Solver.Tolerance),
	))
	defer span.End()

	orbit, attitude, _, err := sc.Models()
	if err != nil {
		return nil, fail(span, err)
	}

	hook := func(rep model.IterationReport) {
		span.AddEvent("iteration", trace.WithAttributes(
			attribute.Int("iteration", rep.Iteration),
			attribute.Float64("update_norm", rep.UpdateNorm),
			attribute.Float64("chi_square", rep.ChiSquareBefore),
			attribute.Float64("condition", rep.ConditionNumber),
		))
		if r.recorder != nil {
			r.recorder.ObserveIteration(rep)
		}
		r.log.Debug(ctx, "iteration complete",
			logging.Int("iteration", rep.Iteration),
			logging.Float("update_norm", rep.UpdateNorm),
			logging.Float("chi_square", rep.ChiSquareBefore),
			logging.Float("condition", rep.ConditionNumber),
		)
	}
	opts := append(sc.Solver.Options(),
		agis.WithReferenceEpoch(sc.RefEpoch),
		agis.WithIterationHook(hook),
	)
	solver, err := agis.NewSolver(orbit, attitude, opts...)
	if err != nil {
		return nil, fail(span, err)
	}

	start := time.Now()
	result, err := solver.Solve(obs, sc.Solver.Initial, sc.Solver.MaxIterations, sc.Solver.Tolerance)
	elapsed := time.Since(start)
	if r.recorder != nil {
		r.recorder.ObserveSolve(outcome(result, err), elapsed)
	}
	if err != nil {
		var nie *core.NumericalInstabilityError
		if errors.As(err, &nie) {
			r.log.Error(ctx, "solver numerically unstable",
				logging.Int("iteration", nie.Iteration),
				logging.Float("condition", nie.Condition),
				logging.Err(err),
			)
		}
		return nil, fail(span, fmt.Errorf("solve: %w", err))
	}
	if !result.Converged {
		r.log.Warn(ctx, "solver did not converge",
			logging.Int("iterations", result.Iterations),
			logging.Float("last_update_norm", lastNorm(result)),
		)
	}
	return result, nil
}

func outcome(result *model.SolverResult, err error) string {
	switch {
	case errors.Is(err, core.ErrNumericalInstability):
		return observability.OutcomeUnstable
	case err != nil:
		return observability.OutcomeInvalid
	case result.Converged:
		return observability.OutcomeConverged
	default:
		return observability.OutcomeNotConverged
	}
}

func lastNorm(result *model.SolverResult) float64 {
	if len(result.History) == 0 {
		return math.NaN()
	}
	return result.History[len(result.History)-1].UpdateNorm
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
