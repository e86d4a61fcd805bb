package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/work"
)

type trainFlags struct {
	target         string
	peers          []string
	start          string
	timeLimit      int
	streakLimit    int
	mode           string
	seed           int64
	valuesPerParam int
	sampling       string
	resume         bool
	acceptMismatch bool
	jsonOutput     bool
	progress       bool
}

func newTrainCmd(g *globalFlags) *cobra.Command {
	f := &trainFlags{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run one optimization job in the foreground",
		Long: `Run one optimization job and print its events until it finishes.
Ctrl-C stops the job; the best vector found so far is still saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, g, f)
		},
	}

	cmd.Flags().StringVar(&f.target, "target", "", "Target algorithm id (required)")
	cmd.Flags().StringSliceVar(&f.peers, "peers", nil, "Peer algorithm ids whose scores are combined with the target")
	cmd.Flags().StringVar(&f.start, "start", "", "First day to predict (YYYY-MM-DD); optional with --resume")
	cmd.Flags().IntVar(&f.timeLimit, "time-limit", 0, "Time limit in seconds (0 = none)")
	cmd.Flags().IntVar(&f.streakLimit, "streak-limit", 0, "Stop once a streak this long is found (0 = none)")
	cmd.Flags().StringVar(&f.mode, "mode", string(domain.ModeExplore), "Search mode: Explore or GenerateSets")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (0 = time based)")
	cmd.Flags().IntVar(&f.valuesPerParam, "values-per-param", 3, "GenerateSets: values per parameter")
	cmd.Flags().StringVar(&f.sampling, "sampling", string(domain.SamplingRandom), "GenerateSets: Random or Sequential")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "Continue from the saved training state")
	cmd.Flags().BoolVar(&f.acceptMismatch, "accept-mismatch", false, "Resume even when the saved parameters differ from the declared ones")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print events as JSON lines")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "Include progress events in the output")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func (f *trainFlags) request() (domain.JobRequest, error) {
	req := domain.JobRequest{
		TargetAlgorithmID: f.target,
		PeerAlgorithmIDs:  f.peers,
		TimeLimitSeconds:  f.timeLimit,
		StreakLimitDays:   f.streakLimit,
		Mode:              domain.Mode(f.mode),
		Explore:           domain.ExploreConfig{Seed: f.seed},
		Generate: domain.GenerateConfig{
			ValuesPerParam: f.valuesPerParam,
			Sampling:       domain.Sampling(f.sampling),
			Seed:           f.seed,
		},
	}
	if f.start != "" {
		d, err := domain.ParseDate(f.start)
		if err != nil {
			return req, err
		}
		req.StartDate = d
	}
	return req, nil
}

func runTrain(cmd *cobra.Command, g *globalFlags, f *trainFlags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req, err := f.request()
	if err != nil {
		return err
	}

	container, log, err := g.load(context.Background(), cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	if f.resume {
		if err := container.Runner.PrepareResume(&req, f.acceptMismatch); err != nil {
			var mismatch *work.MismatchError
			if errors.As(err, &mismatch) {
				return fmt.Errorf("%w (missing %v, extra %v); rerun with --accept-mismatch",
					err, mismatch.Mismatch.Missing, mismatch.Mismatch.Extra)
			}
			return err
		}
	}

	jobID, err := container.Runner.Start(req)
	if err != nil {
		return err
	}
	log.Info().Str("job_id", jobID).Str("algorithm", req.TargetAlgorithmID).Msg("Job started")

	finished, err := follow(ctx, container.EventBus, jobID, cmd.OutOrStdout(), f)
	if err != nil {
		// Interrupted: stop the job and keep printing until it reports back.
		_ = container.Runner.Stop()
		finished, err = follow(context.Background(), container.EventBus, jobID, cmd.OutOrStdout(), f)
		if err != nil {
			return err
		}
	}
	if err := container.Runner.Wait(context.Background()); err != nil {
		return err
	}
	if !finished.Success {
		return fmt.Errorf("job failed: %s", finished.Message)
	}
	return nil
}

// follow prints events of jobID until its finished event arrives.
func follow(ctx context.Context, bus *events.Bus, jobID string, out io.Writer, f *trainFlags) (*events.FinishedData, error) {
	for {
		ev, err := bus.Receive(ctx)
		if err != nil {
			return nil, err
		}
		if ev.JobID != jobID {
			continue
		}
		if ev.Type == events.Progress && !f.progress {
			continue
		}
		if err := printEvent(out, ev, f.jsonOutput); err != nil {
			return nil, err
		}
		if data, ok := ev.Data.(*events.FinishedData); ok {
			return data, nil
		}
	}
}

func printEvent(out io.Writer, ev events.Event, asJSON bool) error {
	if asJSON {
		b, err := json.Marshal(&ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}

	ts := ev.Timestamp.Format("15:04:05")
	var line string
	switch d := ev.Data.(type) {
	case *events.LogData:
		line = fmt.Sprintf("%-5s %s", strings.ToUpper(d.Level), d.Text)
	case *events.StatusData:
		line = "status " + d.Text
	case *events.ProgressData:
		line = fmt.Sprintf("progress evaluated=%d best=%d candidate=%d", d.Evaluated, d.BestStreak, d.CandidateStreak)
	case *events.BestUpdateData:
		line = fmt.Sprintf("best   streak=%d params=%s", d.Streak, compact(d.Params))
	case *events.FinishedData:
		line = fmt.Sprintf("done   %s reason=%s best=%d", d.Message, d.Reason, d.BestStreak)
		if d.Artifact != "" {
			line += " artifact=" + d.Artifact
		}
	case *events.ErrorEventData:
		line = "error  " + d.Error
	default:
		line = string(ev.Type)
	}
	_, err := fmt.Fprintf(out, "%s %s\n", ts, line)
	return err
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
