package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/compare"
	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/report"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

var (
	compareWorkers      int
	compareJSON         bool
	compareStoreFactors bool
	compareRoot         string
)

type comparisonEntry struct {
	Path   string          `json:"path"`
	Name   string          `json:"name"`
	Owner  string          `json:"owner,omitempty"`
	Rank   int             `json:"rank"`
	Error  string          `json:"error,omitempty"`
	Result *scoring.Result `json:"result,omitempty"`
}

type comparisonOutput struct {
	Entries []comparisonEntry `json:"entries"`
	Best    []compare.Best    `json:"best"`
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <glob>...",
		Short: "Score and rank many method projects",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCompareCmd,
	}
	addSchemeFlags(cmd)
	cmd.Flags().IntVar(&compareWorkers, "workers", compare.DefaultWorkers, "files scored in parallel")
	cmd.Flags().BoolVar(&compareJSON, "json", false, "print the comparison as JSON")
	cmd.Flags().BoolVar(&compareStoreFactors, "store-factors", false, "score every file with the database factor table")
	cmd.Flags().StringVar(&compareRoot, "root", ".", "directory that relative patterns are matched against")
	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	applyIntConfig(cmd, "workers", &compareWorkers, e.file.Compare.Workers)
	if compareWorkers < 1 {
		return fmt.Errorf("--workers must be >= 1")
	}
	sel, err := buildSelection(cmd, nil, e.file.Scoring)
	if err != nil {
		return err
	}
	paths, err := compare.ExpandPatterns(compareRoot, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no project files matched")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := compare.Options{Selection: sel, Workers: compareWorkers, Log: e.log}
	if compareStoreFactors {
		st, err := openStore()
		if err != nil {
			return err
		}
		items, err := storeFactors(ctx, st, e.log)
		closeStore(st)
		if err != nil {
			return err
		}
		table, err := factors.NewTable(items)
		if err != nil {
			return fmt.Errorf("invalid factor table: %w", err)
		}
		opts.Factors = table
	}

	entries, err := compare.ScoreFiles(ctx, paths, opts)
	if err != nil {
		return fmt.Errorf("comparison aborted: %w", err)
	}
	ranked := compare.Rank(entries)
	best := compare.BestPerFactor(ranked)

	out := cmd.OutOrStdout()
	if compareJSON {
		return writeJSON(out, comparisonJSON(ranked, best))
	}
	return report.RenderComparison(out, ranked, best)
}

func comparisonJSON(ranked []compare.Entry, best []compare.Best) comparisonOutput {
	out := comparisonOutput{Entries: make([]comparisonEntry, 0, len(ranked)), Best: best}
	for _, e := range ranked {
		entry := comparisonEntry{Path: e.Path, Name: e.Name, Owner: e.Owner, Rank: e.Rank}
		if e.Skipped() {
			entry.Error = e.Err.Error()
		} else {
			res := e.Result
			entry.Result = &res
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}
