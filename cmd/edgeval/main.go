package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/newthinker/edgeval/internal/app"
	"github.com/newthinker/edgeval/internal/config"
	"github.com/newthinker/edgeval/internal/core"
	"github.com/newthinker/edgeval/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// exitInsufficient signals that the run finished but had too few trades to judge
const exitInsufficient = 2

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "edgeval",
	Short: "edgeval - statistical validation of trading strategy edge",
	Long: `edgeval backtests a signal-generating strategy over a basket of symbols and
asks whether its results beat random entry timing. It runs a Monte Carlo
permutation test, bootstraps a win-rate interval, checks out-of-sample
degradation and reports risk and effect-size metrics with a single verdict.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads --config, or falls back to defaults plus EDGEVAL_* env
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
		return config.Defaults(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newApp builds the logger and application shared by all commands
func newApp() (*app.App, *zap.Logger, error) {
	log := logger.Must(debug)
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, log, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, log, fmt.Errorf("initializing: %w", err)
	}
	return a, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, core.ErrInsufficientSignals) {
			os.Exit(exitInsufficient)
		}
		os.Exit(1)
	}
}
