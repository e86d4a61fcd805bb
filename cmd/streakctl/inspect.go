package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/evaluation"
)

func newAlgorithmsCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "algorithms",
		Short: "List discovered prediction algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, err := g.load(context.Background(), cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			list := container.Registry.List()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tPARAMS\tDESCRIPTION")
			for _, info := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, info.Kind,
					strings.Join(info.Parameters.NumericKeys(), ","), info.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newStateCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect saved training state",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <algorithm>",
		Short: "Print the saved training state of an algorithm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, _, err := g.load(context.Background(), cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			state, err := container.States.Read(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), state)
		},
	})
	return cmd
}

type accuracyFlags struct {
	from    string
	to      string
	peers   []string
	source  string
	timeout time.Duration
	asJSON  bool
}

func newAccuracyCmd(g *globalFlags) *cobra.Command {
	f := &accuracyFlags{}
	cmd := &cobra.Command{
		Use:   "accuracy <algorithm>",
		Short: "Report top-N hit rates of an algorithm over a date range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccuracy(cmd, g, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.from, "from", "", "First day (YYYY-MM-DD, default first recorded day)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last day (YYYY-MM-DD, default last recorded day)")
	cmd.Flags().StringSliceVar(&f.peers, "peers", nil, "Peer algorithm ids")
	cmd.Flags().StringVar(&f.source, "source", "", "Parameter source: state or defaults (default prefers state)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "Give up after this long")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print as JSON")
	return cmd
}

func runAccuracy(cmd *cobra.Command, g *globalFlags, f *accuracyFlags, id string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	container, log, err := g.load(ctx, cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	info, ok := container.Registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: unknown algorithm %q", domain.ErrConfig, id)
	}

	store, err := container.ResultsRepo.Snapshot()
	if err != nil {
		return err
	}
	first, ok := store.First()
	if !ok {
		return errors.New("no results loaded")
	}
	last, _ := store.Last()

	from, to := first.Date, last.Date
	if f.from != "" {
		if from, err = domain.ParseDate(f.from); err != nil {
			return err
		}
	}
	if f.to != "" {
		if to, err = domain.ParseDate(f.to); err != nil {
			return err
		}
	}

	vector, source, err := container.States.Vector(info, f.source)
	if err != nil {
		return err
	}

	eval := evaluation.NewEvaluator(store, container.Registry, container.Materializer,
		evaluation.Config{TargetID: id, PeerIDs: f.peers},
		nil, nil, container.Metrics, log)
	report, err := eval.Accuracy(ctx, vector, from, to)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		return writeJSON(out, map[string]interface{}{
			"algorithm": id,
			"source":    source,
			"params":    vector,
			"report":    report,
		})
	}
	return printAccuracy(out, id, source, report)
}

func printAccuracy(out io.Writer, id, source string, r evaluation.AccuracyReport) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Algorithm:\t%s (%s parameters)\n", id, source)
	fmt.Fprintf(tw, "Range:\t%s .. %s\n", r.From.Format(domain.DateLayout), r.To.Format(domain.DateLayout))
	fmt.Fprintf(tw, "Days:\t%d\n", r.DaysEvaluated)

	cutoffs := make([]int, 0, len(r.Hits))
	for n := range r.Hits {
		cutoffs = append(cutoffs, n)
	}
	sort.Ints(cutoffs)
	for _, n := range cutoffs {
		fmt.Fprintf(tw, "Top %d:\t%d hits\t%.1f%%\n", n, r.Hits[n], r.TopPercent[n])
	}
	fmt.Fprintf(tw, "Repeat gap:\t%.2f days\t(sd %.2f)\n", r.RepeatMeanGap, r.RepeatStdDev)
	if r.Reason != "" {
		fmt.Fprintf(tw, "Ended:\t%s\n", r.Reason)
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
