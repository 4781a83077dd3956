package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rshade/cofire-emissions/internal/config"
	"github.com/rshade/cofire-emissions/internal/emissions"
	"github.com/rshade/cofire-emissions/internal/logging"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg    config.Config
	logger zerolog.Logger
	calc   *emissions.Calculator

	plantsFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:          "cofire-emissions",
		Short:        "Coal/biogas co-firing emissions calculator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.plantsFile, "plants", "", "CSV of reference plants (default: embedded dataset)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides COFIRE_LOG_LEVEL)")

	rootCmd.AddCommand(a.factorsCmd())
	rootCmd.AddCommand(a.calculateCmd())
	rootCmd.AddCommand(a.serveCmd())

	return rootCmd
}

// init resolves configuration, the logger and the calculator.
func (a *app) init(cmd *cobra.Command) error {
	bootstrap := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()

	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	a.cfg = config.FromEnv(bootstrap)

	if a.logLevel != "" {
		lvl, err := zerolog.ParseLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		a.cfg.LogLevel = lvl
	}
	if a.plantsFile != "" {
		a.cfg.PlantsFile = a.plantsFile
	}

	a.logger = logging.New(cmd.ErrOrStderr(), a.cfg)
	emissions.SetLogger(a.logger)

	table, err := loadReferenceTable(a.cfg.PlantsFile)
	if err != nil {
		return err
	}
	a.calc, err = emissions.NewCalculator(table)
	return err
}

func loadReferenceTable(path string) (*emissions.ReferenceTable, error) {
	if path == "" {
		return emissions.LoadReferenceTable()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plants file: %w", err)
	}
	defer f.Close()

	records, err := emissions.ParseReferencePlants(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table, err := emissions.NewReferenceTable(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
