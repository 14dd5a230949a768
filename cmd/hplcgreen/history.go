package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/report"
)

var (
	historyMethod string
	historySince  string
	historyLast   int
	historyWindow int
	historyJSON   bool
	historyNoPlot bool
)

type historyRun struct {
	RunID       string                        `json:"runId"`
	MethodID    string                        `json:"methodId"`
	MethodName  string                        `json:"methodName"`
	ScoredAt    time.Time                     `json:"scoredAt"`
	Schemes     string                        `json:"schemes"`
	Score1      float64                       `json:"score1"`
	Score2      float64                       `json:"score2"`
	Score3      float64                       `json:"score3"`
	TotalVolume float64                       `json:"totalVolume"`
	Warnings    int                           `json:"warnings"`
	Factors     map[string]map[string]float64 `json:"factors,omitempty"`
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored scoring runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyMethod, "method", "", "filter by method ID")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to the last N runs")
	cmd.Flags().IntVar(&historyWindow, "window", 1, "moving average window for the trend")
	cmd.Flags().BoolVar(&historyJSON, "json", false, "print runs as JSON")
	cmd.Flags().BoolVar(&historyNoPlot, "no-plot", false, "omit the score trend plot")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	since, err := parseSince(historySince)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	filter := model.HistoryFilter{MethodID: historyMethod, Since: since, Last: historyLast}
	h, err := report.BuildHistory(context.Background(), st, filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeJSON(out, historyRuns(h))
	}
	return report.RenderHistory(out, h, historyWindow, report.Options{
		Color: report.ColorEnabled(out),
		Plot:  !historyNoPlot,
	})
}

// historyRuns flattens stored runs with their factors keyed by stage then letter.
func historyRuns(h report.History) []historyRun {
	runs := make([]historyRun, 0, len(h.Records))
	for _, rec := range h.Records {
		run := historyRun{
			RunID:       rec.RunID,
			MethodID:    rec.MethodID,
			MethodName:  rec.MethodName,
			ScoredAt:    rec.ScoredAt,
			Schemes:     rec.Schemes,
			Score1:      rec.Score1,
			Score2:      rec.Score2,
			Score3:      rec.Score3,
			TotalVolume: rec.TotalVolume,
			Warnings:    rec.Warnings,
		}
		for _, f := range h.Factors[rec.RunID] {
			if run.Factors == nil {
				run.Factors = map[string]map[string]float64{}
			}
			if run.Factors[f.Stage] == nil {
				run.Factors[f.Stage] = map[string]float64{}
			}
			run.Factors[f.Stage][f.Factor] = f.Value
		}
		runs = append(runs, run)
	}
	return runs
}
