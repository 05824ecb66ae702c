package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

// Solver run outcomes used as the outcome label.
const (
	OutcomeConverged    = "converged"
	OutcomeNotConverged = "not_converged"
	OutcomeUnstable     = "numerical_instability"
	OutcomeInvalid      = "invalid_input"
)

// SimulationCollector bundles the Prometheus metrics of observation
// generation and solver runs.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	ObservationsGenerated prometheus.Counter
	SolverIterations      prometheus.Counter
	SolverRuns            *prometheus.CounterVec
	SolverDuration        prometheus.Histogram

	ChiSquare       prometheus.Gauge
	UpdateNorm      prometheus.Gauge
	ConditionNumber prometheus.Gauge
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	generated, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "astro_observations_generated_total",
		Help: "Total number of simulated field-angle observations.",
	}), "astro_observations_generated_total")
	if err != nil {
		return nil, err
	}

	iterations, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "astro_solver_iterations_total",
		Help: "Total number of completed Gauss-Newton iterations.",
	}), "astro_solver_iterations_total")
	if err != nil {
		return nil, err
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_solver_runs_total",
		Help: "Total number of solver runs, labeled by outcome.",
	}, []string{"outcome"})
	runs, err = register(reg, runs, "astro_solver_runs_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "astro_solver_duration_seconds",
		Help:    "Wall-clock duration of solver runs in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}), "astro_solver_duration_seconds")
	if err != nil {
		return nil, err
	}

	chi2, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "astro_solver_chi_square",
		Help: "Chi-square of the most recent solver iteration at its linearisation point.",
	}), "astro_solver_chi_square")
	if err != nil {
		return nil, err
	}
	norm, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "astro_solver_update_norm",
		Help: "Normalised parameter update of the most recent solver iteration.",
	}), "astro_solver_update_norm")
	if err != nil {
		return nil, err
	}
	cond, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "astro_solver_condition_number",
		Help: "Condition number of the equilibrated normal matrix in the most recent iteration.",
	}), "astro_solver_condition_number")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:              gatherer,
		ObservationsGenerated: generated,
		SolverIterations:      iterations,
		SolverRuns:            runs,
		SolverDuration:        duration,
		ChiSquare:             chi2,
		UpdateNorm:            norm,
		ConditionNumber:       cond,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimulationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveGenerated adds n simulated observations.
func (c *SimulationCollector) ObserveGenerated(n int) {
	if c == nil || c.ObservationsGenerated == nil {
		return
	}
	c.ObservationsGenerated.Add(float64(n))
}

// ObserveIteration records one completed solver iteration.
func (c *SimulationCollector) ObserveIteration(r model.IterationReport) {
	if c == nil {
		return
	}
	if c.SolverIterations != nil {
		c.SolverIterations.Inc()
	}
	if c.ChiSquare != nil {
		c.ChiSquare.Set(r.ChiSquareBefore)
	}
	if c.UpdateNorm != nil {
		c.UpdateNorm.Set(r.UpdateNorm)
	}
	if c.ConditionNumber != nil {
		c.ConditionNumber.Set(r.ConditionNumber)
	}
}

// ObserveSolve records the outcome and duration of one solver run.
func (c *SimulationCollector) ObserveSolve(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.SolverRuns != nil {
		c.SolverRuns.WithLabelValues(outcome).Inc()
	}
	if c.SolverDuration != nil {
		c.SolverDuration.Observe(d.Seconds())
	}
}

// WriteTextfile writes the collector's metrics in the Prometheus text format
// for the node-exporter textfile collector.
func (c *SimulationCollector) WriteTextfile(path string) error {
	g := c.Gatherer()
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}
