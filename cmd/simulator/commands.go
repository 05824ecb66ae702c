package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/astrometric-simulator/internal/pipeline"
	"github.com/signalsfoundry/astrometric-simulator/internal/scenario"
	"github.com/signalsfoundry/astrometric-simulator/model"
	"github.com/signalsfoundry/astrometric-simulator/timectrl"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		out            string
		noObservations bool
	)
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Simulate observations and solve for the source parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			opts := []pipeline.Option{pipeline.WithLogger(a.log), pipeline.WithRecorder(a.collector)}
			if noObservations {
				opts = append(opts, pipeline.WithoutObservations())
			}
			report, err := pipeline.Run(cmd.Context(), sc, opts...)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, report)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().BoolVar(&noObservations, "no-observations", false, "omit the observation table from the report")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "generate <scenario>",
		Short: "Simulate the observation set of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			obs, err := pipeline.Generate(cmd.Context(), sc, pipeline.WithLogger(a.log), pipeline.WithRecorder(a.collector))
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, obs)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the observations to this file instead of stdout")
	return cmd
}

type transit struct {
	Epoch model.Epoch `json:"epoch"`
	UTC   string      `json:"utc"`
}

func newTransitsCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "transits <scenario>",
		Short: "List the scan-line crossings of the scenario source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			epochs, err := pipeline.Transits(cmd.Context(), sc, pipeline.WithLogger(a.log))
			if err != nil {
				return err
			}
			rows := make([]transit, len(epochs))
			for i, e := range epochs {
				rows[i] = transit{Epoch: e, UTC: timectrl.TimeFromEpoch(e).Format("2006-01-02T15:04:05.000000Z07:00")}
			}
			return writeOutput(cmd, out, rows)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the transits to this file instead of stdout")
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, v any) error {
	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return pipeline.WriteReport(w, v)
}
