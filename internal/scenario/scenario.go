// Package scenario loads simulation scenarios from YAML files and maps them
// onto the core model parameters.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/signalsfoundry/astrometric-simulator/agis"
	"github.com/signalsfoundry/astrometric-simulator/core"
	"github.com/signalsfoundry/astrometric-simulator/model"
	"github.com/signalsfoundry/astrometric-simulator/timectrl"
)

// ErrInvalidScenario wraps every structural or semantic scenario problem.
var ErrInvalidScenario = errors.New("invalid scenario")

// Epoch generation modes.
const (
	ModeGrid         = "grid"
	ModeEvenlySpaced = "evenly_spaced"
	ModeList         = "list"
	ModeTransits     = "transits"
)

// Solver defaults applied when a scenario omits them.
const (
	DefaultMaxIterations = 20
	DefaultTolerance     = 1e-8
)

// Scenario is a validated simulation description.
type Scenario struct {
	Name       string
	Orbit      core.OrbitParams
	Attitude   core.AttitudeParams
	Truth      model.SourceParameters
	RefEpoch   model.Epoch
	Epochs     EpochRule
	NoiseSigma float64
	Seed       int64
	Solver     SolverSettings
}

// EpochRule describes how the observation epochs are produced.
type EpochRule struct {
	Mode    string
	Start   model.Epoch
	End     model.Epoch
	Cadence float64
	Count   int
	List    []model.Epoch
	// Scanner is used in transits mode.
	Scanner core.Scanner
}

// SolverSettings configures the solve step.
type SolverSettings struct {
	Initial       model.SourceParameters
	MaxIterations int
	Tolerance     float64
	Workers       int
	BlockSize     int
	MaxCondition  float64
}

// Options translates the settings into solver options.
func (s SolverSettings) Options() []agis.Option {
	opts := []agis.Option{agis.WithWorkers(s.Workers)}
	if s.BlockSize > 0 {
		opts = append(opts, agis.WithBlockSize(s.BlockSize))
	}
	if s.MaxCondition > 0 {
		opts = append(opts, agis.WithMaxCondition(s.MaxCondition))
	}
	return opts
}

// Models builds the orbit, attitude and true source of the scenario.
func (s *Scenario) Models() (*core.CircularOrbit, *core.ScanningLaw, *core.PointSource, error) {
	orbit, err := core.NewCircularOrbit(s.Orbit)
	if err != nil {
		return nil, nil, nil, err
	}
	attitude, err := core.NewScanningLaw(s.Attitude)
	if err != nil {
		return nil, nil, nil, err
	}
	source, err := core.NewPointSource(s.Truth, s.RefEpoch)
	if err != nil {
		return nil, nil, nil, err
	}
	return orbit, attitude, source, nil
}

// EpochSequence evaluates the epoch rule. Transit search honours ctx.
func (s *Scenario) EpochSequence(ctx context.Context) ([]model.Epoch, error) {
	r := s.Epochs
	switch r.Mode {
	case ModeGrid:
		return timectrl.Grid{Start: r.Start, End: r.End, Cadence: r.Cadence}.Epochs()
	case ModeEvenlySpaced:
		return timectrl.EvenlySpaced(r.Start, float64(r.End-r.Start), r.Count)
	case ModeList:
		return append([]model.Epoch(nil), r.List...), nil
	case ModeTransits:
		orbit, attitude, source, err := s.Models()
		if err != nil {
			return nil, err
		}
		epochs, err := r.Scanner.Transits(ctx, r.Start, r.End, orbit, attitude, source)
		if err != nil {
			return nil, fmt.Errorf("scan transits: %w", err)
		}
		if len(epochs) == 0 {
			return nil, fmt.Errorf("%w: no transits between %v and %v", ErrInvalidScenario, r.Start, r.End)
		}
		return epochs, nil
	default:
		return nil, fmt.Errorf("%w: unknown epoch mode %q", ErrInvalidScenario, r.Mode)
	}
}

func mapScenario(dto fileDTO) (*Scenario, error) {
	sc := &Scenario{
		Name: dto.Name,
		Orbit: core.OrbitParams{
			Radius:      dto.Orbit.Radius,
			AngularRate: dto.Orbit.AngularRate,
			Phase:       dto.Orbit.Phase,
			Inclination: dto.Orbit.Inclination,
		},
		Attitude: core.AttitudeParams{
			SpinRate:       dto.Attitude.SpinRate,
			PrecessionRate: dto.Attitude.PrecessionRate,
			ConeAngle:      dto.Attitude.ConeAngle,
			Phase:          dto.Attitude.Phase,
			SpinPhase:      dto.Attitude.SpinPhase,
		},
		Truth:      dto.Source.params(),
		RefEpoch:   model.Epoch(dto.Source.ReferenceEpoch),
		NoiseSigma: dto.Noise.Sigma,
		Seed:       dto.Noise.Seed,
	}
	if sc.Name == "" {
		sc.Name = "unnamed"
	}

	rule, err := mapEpochs(dto.Epochs)
	if err != nil {
		return nil, err
	}
	sc.Epochs = rule
	sc.Solver = mapSolver(dto.Solver, sc.Truth)

	// Constructors carry the remaining domain checks.
	if _, _, _, err := sc.Models(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := core.ValidateSourceParameters(sc.Solver.Initial); err != nil {
		return nil, fmt.Errorf("%w: solver.initial: %w", ErrInvalidScenario, err)
	}
	return sc, nil
}

func mapEpochs(dto epochsDTO) (EpochRule, error) {
	rule := EpochRule{
		Mode:    dto.Mode,
		Start:   model.Epoch(dto.Start),
		Cadence: dto.Cadence,
		Count:   dto.Count,
	}
	if dto.StartUTC != "" {
		t, err := parseUTC(dto.StartUTC)
		if err != nil {
			return EpochRule{}, err
		}
		rule.Start = timectrl.EpochFromTime(t)
	}
	switch {
	case dto.End != nil:
		rule.End = model.Epoch(*dto.End)
	case dto.Duration > 0:
		rule.End = rule.Start + model.Epoch(dto.Duration)
	}

	switch dto.Mode {
	case ModeList:
		rule.List = make([]model.Epoch, len(dto.List))
		for i, e := range dto.List {
			rule.List[i] = model.Epoch(e)
		}
		return rule, nil
	case ModeTransits:
		rule.Scanner = core.DefaultScanner()
		if dto.HalfWidth > 0 {
			rule.Scanner.ScanLineHalfWidth = dto.HalfWidth
		}
		if dto.Step > 0 {
			rule.Scanner.Step = dto.Step
		}
	}
	if rule.End <= rule.Start {
		return EpochRule{}, fmt.Errorf("%w: epochs.end (%v) must be after epochs.start (%v)", ErrInvalidScenario, rule.End, rule.Start)
	}
	return rule, nil
}

// mapSolver applies defaults. Without an explicit initial estimate the solver
// starts from the true position with zero parallax and proper motion.
func mapSolver(dto solverDTO, truth model.SourceParameters) SolverSettings {
	s := SolverSettings{
		Initial:       model.SourceParameters{RA: truth.RA, Dec: truth.Dec},
		MaxIterations: dto.MaxIterations,
		Tolerance:     dto.Tolerance,
		Workers:       dto.Workers,
		BlockSize:     dto.BlockSize,
		MaxCondition:  dto.MaxCondition,
	}
	if dto.Initial != nil {
		s.Initial = dto.Initial.params()
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = DefaultMaxIterations
	}
	if s.Tolerance == 0 {
		s.Tolerance = DefaultTolerance
	}
	if s.Workers == 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	return s
}

func (d sourceDTO) params() model.SourceParameters {
	return model.SourceParameters{
		RA:       d.RA,
		Dec:      d.Dec,
		Parallax: d.Parallax,
		PMRA:     d.PMRA,
		PMDec:    d.PMDec,
	}
}
