package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/project"
	"github.com/verte-zerg/hplcgreen/internal/report"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
	"github.com/verte-zerg/hplcgreen/internal/store"
)

var (
	scoreSave         bool
	scoreJSON         bool
	scoreNoPlot       bool
	scoreRefresh      bool
	scoreStoreFactors bool
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <project.json>",
		Short: "Score a method project",
		Args:  cobra.ExactArgs(1),
		RunE:  runScoreCmd,
	}
	addSchemeFlags(cmd)
	cmd.Flags().BoolVar(&scoreSave, "save", false, "store the method and its score in the history database")
	cmd.Flags().BoolVar(&scoreJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&scoreNoPlot, "no-plot", false, "omit the gradient composition plot")
	cmd.Flags().BoolVar(&scoreRefresh, "refresh", false, "write recomputed gradient calculations back to the project")
	cmd.Flags().BoolVar(&scoreStoreFactors, "store-factors", false, "use the database factor table instead of the project's")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	ctx := context.Background()
	path := args[0]
	parser, err := project.NewParser()
	if err != nil {
		return err
	}
	doc, err := parser.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	var st *store.Store
	if scoreSave || scoreStoreFactors || len(doc.Factors) == 0 {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
	}
	items := doc.Factors
	if scoreStoreFactors || len(items) == 0 {
		items, err = storeFactors(ctx, st, e.log)
		if err != nil {
			return err
		}
	}
	table, err := factors.NewTable(items)
	if err != nil {
		return fmt.Errorf("invalid factor table: %w", err)
	}
	sel, err := buildSelection(cmd, doc.Schemes, e.file.Scoring)
	if err != nil {
		return err
	}

	method := doc.Method()
	res, err := scoring.NewPipeline(e.log).Score(method, table, sel)
	if err != nil {
		return fmt.Errorf("failed to score %s: %w", path, err)
	}

	now := time.Now()
	if scoreRefresh {
		if err := doc.Refresh(); err != nil {
			return fmt.Errorf("failed to refresh calculations: %w", err)
		}
		doc.Touch(now)
		if err := project.Save(path, doc); err != nil {
			return fmt.Errorf("failed to write project: %w", err)
		}
	}
	if scoreSave {
		runID, err := saveRun(ctx, st, path, method, res, now)
		if err != nil {
			return err
		}
		e.log.Info("score saved", "run", runID, "path", path)
	}

	out := cmd.OutOrStdout()
	if scoreJSON {
		return writeJSON(out, res)
	}
	return report.RenderScore(out, method.Name, res, method.Gradient, report.Options{
		Color: report.ColorEnabled(out),
		Plot:  !scoreNoPlot,
	})
}

// saveRun stores the method under a path-derived ID when it has none, then
// records the run with its per-stage major factors.
func saveRun(ctx context.Context, st *store.Store, path string, method model.MethodConfiguration, res scoring.Result, now time.Time) (string, error) {
	if method.ID == "" {
		method.ID = stableMethodID(path)
	}
	if method.Name == "" {
		method.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	id, err := st.SaveMethod(ctx, method, now)
	if err != nil {
		return "", fmt.Errorf("failed to save method: %w", err)
	}
	rec := model.ScoreRecord{
		MethodID:    id,
		MethodName:  method.Name,
		ScoredAt:    now,
		Schemes:     res.Selection.String(),
		Score1:      res.Instrument.Score1,
		Score2:      res.Preparation.Score2,
		Score3:      res.Final.Score3,
		TotalVolume: res.Gradient.TotalVolume,
		Warnings:    len(res.Warnings),
	}
	runID, err := st.InsertScore(ctx, rec, scoreFactors(res))
	if err != nil {
		return "", fmt.Errorf("failed to save score: %w", err)
	}
	return runID, nil
}

func stableMethodID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(abs))).String()
}

func scoreFactors(res scoring.Result) []model.ScoreFactor {
	out := make([]model.ScoreFactor, 0, 12)
	add := func(stage string, m scoring.MajorFactors) {
		out = append(out,
			model.ScoreFactor{Stage: stage, Factor: "S", Value: m.S},
			model.ScoreFactor{Stage: stage, Factor: "H", Value: m.H},
			model.ScoreFactor{Stage: stage, Factor: "E", Value: m.E},
			model.ScoreFactor{Stage: stage, Factor: "P", Value: m.P},
			model.ScoreFactor{Stage: stage, Factor: "R", Value: m.R},
			model.ScoreFactor{Stage: stage, Factor: "D", Value: m.D},
		)
	}
	add(scoring.StageInstrument, res.Instrument.Major)
	add(scoring.StagePreparation, res.Preparation.Major)
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
