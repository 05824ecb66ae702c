// simulator generates astrometric scan observations for a scenario and solves
// them back into source parameters.
//
// Usage:
//
//	simulator run <scenario.yaml> [-o report.json] [--no-observations]
//	simulator generate <scenario.yaml> [-o observations.json]
//	simulator transits <scenario.yaml>
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/astrometric-simulator/internal/logging"
	"github.com/signalsfoundry/astrometric-simulator/internal/observability"
)

// version is set at build time via -ldflags.
var version = "dev"

type app struct {
	logCfg      logging.Config
	metricsOut  string
	metricsAddr string

	log       logging.Logger
	collector *observability.SimulationCollector
	shutdown  []func(context.Context)
}

func newRootCmd(a *app, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "simulator",
		Short:         "Astrometric scanning-satellite simulator and AGIS-core solver",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), stderr)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.logCfg.Level, "log-level", valueOr(a.logCfg.Level, "info"), "log level: debug, info, warn, error")
	f.StringVar(&a.logCfg.Format, "log-format", valueOr(a.logCfg.Format, "text"), "log format: text or json")
	f.StringVar(&a.logCfg.Backend, "log-backend", valueOr(a.logCfg.Backend, "slog"), "log backend: slog or zap")
	f.StringVar(&a.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile on exit")
	f.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address while running")

	root.AddCommand(newRunCmd(a), newGenerateCmd(a), newTransitsCmd(a))
	return root
}

func (a *app) setup(ctx context.Context, stderr io.Writer) error {
	a.logCfg.Output = stderr
	a.log = logging.New(a.logCfg)

	collector, err := observability.NewSimulationCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	a.collector = collector

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), a.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.shutdown = append(a.shutdown, func(ctx context.Context) {
		observability.ShutdownWithTimeout(ctx, shutdownTracing, a.log)
	})

	if a.metricsAddr != "" {
		srv := serveMetrics(ctx, a.metricsAddr, a.collector, a.log)
		a.shutdown = append(a.shutdown, func(ctx context.Context) { shutdownServer(ctx, srv) })
	}
	return nil
}

// finish releases what setup acquired. It runs whether or not the command
// succeeded so failed solves still reach the metrics textfile.
func (a *app) finish(ctx context.Context) error {
	if a.collector == nil {
		return nil
	}
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i](ctx)
	}
	a.shutdown = nil
	if a.metricsOut == "" {
		return nil
	}
	if err := a.collector.WriteTextfile(a.metricsOut); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.log.Debug(ctx, "metrics written", logging.String("path", a.metricsOut))
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// execute runs the command line in args and always finishes the app.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{logCfg: logging.ConfigFromEnv()}
	root := newRootCmd(a, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if ferr := a.finish(ctx); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
