package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/config"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/di"
	"github.com/junlangzi/Lottery-Predictor-sub001/pkg/logger"
)

// globalFlags override the environment-driven configuration.
type globalFlags struct {
	dataDir       string
	algorithmsDir string
	resultsFile   string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "streakctl",
		Short: "Tune lottery prediction algorithms for the longest hit streak",
		Long: `streakctl searches the numeric parameters of a prediction algorithm for the
vector that keeps its top pick appearing in the daily results for the most
consecutive days.

Examples:
  streakctl algorithms
  streakctl train --target hot --start 2024-01-01 --time-limit 600
  streakctl train --target hot --resume --accept-mismatch
  streakctl state show hot
  streakctl accuracy hot --from 2024-01-01 --to 2024-06-30`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Data directory (overrides TRAINER_DATA_DIR)")
	root.PersistentFlags().StringVar(&g.algorithmsDir, "algorithms", "", "Algorithm descriptor directory (overrides ALGORITHMS_DIR)")
	root.PersistentFlags().StringVar(&g.resultsFile, "results", "", "Results file to import (overrides RESULTS_FILE)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newTrainCmd(g),
		newAlgorithmsCmd(g),
		newStateCmd(g),
		newAccuracyCmd(g),
	)
	return root
}

// load resolves configuration and wires the container. The caller closes it.
func (g *globalFlags) load(ctx context.Context, cmd *cobra.Command) (*di.Container, zerolog.Logger, error) {
	if g.dataDir != "" {
		_ = os.Setenv("TRAINER_DATA_DIR", g.dataDir)
	}
	if g.algorithmsDir != "" {
		_ = os.Setenv("ALGORITHMS_DIR", g.algorithmsDir)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.resultsFile != "" {
		cfg.ResultsFile = g.resultsFile
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: isTerminal(cmd.ErrOrStderr()),
		Output: cmd.ErrOrStderr(),
	})

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return nil, log, err
	}
	return container, log, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
