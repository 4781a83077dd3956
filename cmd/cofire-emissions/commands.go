package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rshade/cofire-emissions/internal/emissions"
	"github.com/rshade/cofire-emissions/internal/report"
	"github.com/rshade/cofire-emissions/internal/scenario"
	"github.com/rshade/cofire-emissions/internal/server"
	"github.com/spf13/cobra"
)

func (a *app) factorsCmd() *cobra.Command {
	var (
		output string
		biogas bool
	)

	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Show coal emission factors derived from the reference plants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}
			if biogas {
				return report.WriteBiogasFactors(cmd.OutOrStdout(), format, a.calc.BiogasFactors())
			}
			return report.WriteFactors(cmd.OutOrStdout(), format, a.calc.EmissionFactors())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(report.FormatTable), "output format: table, json or csv")
	cmd.Flags().BoolVar(&biogas, "biogas", false, "show the biogas emission factors instead")
	return cmd
}

// calculateFlags holds the scenario inputs accepted as flags.
type calculateFlags struct {
	scenarioFile        string
	coal                float64
	tsp, pm10, pm25     float64
	so2                 float64
	biogas              float64
	esp, fgd            float64
	baselineFromFactors bool
	output              string
}

func (a *app) calculateCmd() *cobra.Command {
	var f calculateFlags

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Calculate blended emissions and reductions for one scenario",
		Long: `Calculate blended emissions and reductions for one scenario.

Inputs come from --scenario (YAML or JSON) or from flags. Flags given
explicitly override values loaded from the scenario file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCalculate(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.scenarioFile, "scenario", "s", "", "scenario file (.yaml, .yml or .json)")
	flags.Float64Var(&f.coal, "coal", 0, "coal consumption (tons/year)")
	flags.Float64Var(&f.tsp, "tsp", 0, "baseline TSP (tons/year)")
	flags.Float64Var(&f.pm10, "pm10", 0, "baseline PM10 (tons/year)")
	flags.Float64Var(&f.pm25, "pm25", 0, "baseline PM2.5 (tons/year)")
	flags.Float64Var(&f.so2, "so2", 0, "baseline SO2 (tons/year)")
	flags.Float64Var(&f.biogas, "biogas", 0, "biogas blending fraction (0 to 1)")
	flags.Float64Var(&f.esp, "esp", 0, "ESP efficiency (%)")
	flags.Float64Var(&f.fgd, "fgd", 0, "FGD efficiency (%)")
	flags.BoolVar(&f.baselineFromFactors, "baseline-from-factors", false,
		"estimate missing baseline emissions from the reference emission factors")
	flags.StringVarP(&f.output, "output", "o", string(report.FormatTable), "output format: table, json or csv")

	return cmd
}

func (a *app) runCalculate(cmd *cobra.Command, f calculateFlags) error {
	format, err := report.ParseFormat(f.output)
	if err != nil {
		return err
	}

	in := emissions.ScenarioInput{Baseline: emissions.Emissions{}}
	if f.scenarioFile != "" {
		if in, err = scenario.Load(f.scenarioFile); err != nil {
			return err
		}
	}
	applyFlagOverrides(cmd, f, &in)

	if f.baselineFromFactors {
		suggested, err := a.calc.SuggestBaseline(in.CoalConsumption)
		if err != nil {
			return err
		}
		for p, v := range suggested {
			if _, ok := in.Baseline[p]; !ok {
				in.Baseline[p] = v
				a.logger.Debug().Str("pollutant", p.String()).Float64("tons", v).Msg("baseline estimated from reference factors")
			}
		}
	}

	result, err := a.calc.Calculate(in)
	if err != nil {
		return err
	}
	return report.WriteResult(cmd.OutOrStdout(), format, in, result)
}

// applyFlagOverrides copies explicitly set flags into in.
func applyFlagOverrides(cmd *cobra.Command, f calculateFlags, in *emissions.ScenarioInput) {
	flags := cmd.Flags()
	if flags.Changed("coal") {
		in.CoalConsumption = f.coal
	}
	if flags.Changed("biogas") {
		in.BiogasFraction = f.biogas
	}
	if flags.Changed("esp") {
		in.ESPEfficiency = f.esp
	}
	if flags.Changed("fgd") {
		in.FGDEfficiency = f.fgd
	}

	baseline := []struct {
		flag      string
		pollutant emissions.Pollutant
		value     float64
	}{
		{"tsp", emissions.TSP, f.tsp},
		{"pm10", emissions.PM10, f.pm10},
		{"pm25", emissions.PM25, f.pm25},
		{"so2", emissions.SO2, f.so2},
	}
	for _, b := range baseline {
		if flags.Changed(b.flag) {
			in.Baseline[b.pollutant] = b.value
		}
	}
}

func (a *app) serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.ListenAddr = listen
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.calc, server.Config{
				ListenAddr:  a.cfg.ListenAddr,
				ReadTimeout: a.cfg.ReadTimeout,
			}, a.logger)
			if err := srv.ListenAndServe(ctx); err != nil {
				return fmt.Errorf("serving: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides COFIRE_LISTEN_ADDR)")
	return cmd
}
