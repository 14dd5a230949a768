package report

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
	"github.com/verte-zerg/hplcgreen/internal/store"
)

// History holds stored scoring runs prepared for rendering.
type History struct {
	Records []model.ScoreRecord
	Factors map[string][]model.ScoreFactor
}

// BuildHistory loads score records and their major factors.
func BuildHistory(ctx context.Context, st *store.Store, filter model.HistoryFilter) (History, error) {
	records, err := st.ListScores(ctx, filter)
	if err != nil {
		return History{}, err
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.RunID
	}
	factors, err := st.ListScoreFactors(ctx, ids)
	if err != nil {
		return History{}, err
	}
	return History{Records: records, Factors: factors}, nil
}

// Scores returns the score1, score2 and score3 series in run order.
func (h History) Scores() (score1, score2, score3 []float64) {
	score1 = make([]float64, len(h.Records))
	score2 = make([]float64, len(h.Records))
	score3 = make([]float64, len(h.Records))
	for i, r := range h.Records {
		score1[i] = r.Score1
		score2[i] = r.Score2
		score3[i] = r.Score3
	}
	return score1, score2, score3
}

// Factor returns the stored value of one stage factor for a run.
func (h History) Factor(runID, stage, factor string) (float64, bool) {
	for _, f := range h.Factors[runID] {
		if f.Stage == stage && f.Factor == factor {
			return f.Value, true
		}
	}
	return 0, false
}

// RenderHistorySummary prints aggregate figures for stored runs.
func RenderHistorySummary(w io.Writer, h History) error {
	if len(h.Records) == 0 {
		_, err := fmt.Fprintln(w, "No score history found.")
		return err
	}
	best := math.Inf(1)
	var total float64
	for _, r := range h.Records {
		total += r.Score3
		best = math.Min(best, r.Score3)
	}
	latest := h.Records[len(h.Records)-1]
	rows := [][]string{
		{"Runs", fmt.Sprintf("%d", len(h.Records))},
		{"Avg score3", num(total / float64(len(h.Records)))},
		{"Best score3", num(best)},
		{"Latest score3", fmt.Sprintf("%s (%s)", num(latest.Score3), scoring.GradeFor(latest.Score3))},
	}
	return writeTable(w, "Summary", nil, rows, nil)
}

// RenderHistory prints the run table followed by a score trend plot.
func RenderHistory(w io.Writer, h History, window int, opts Options) error {
	if err := RenderHistorySummary(w, h); err != nil || len(h.Records) == 0 {
		return err
	}
	rows := make([][]string, 0, len(h.Records))
	for _, r := range h.Records {
		rows = append(rows, []string{
			r.ScoredAt.Local().Format("2006-01-02 15:04"),
			r.MethodName,
			num(r.Score1),
			num(r.Score2),
			num(r.Score3),
			string(scoring.GradeFor(r.Score3)),
			fmt.Sprintf("%d", r.Warnings),
		})
	}
	headers := []string{"Scored at", "Method", "Score1", "Score2", "Score3", "Grade", "Warnings"}
	if err := writeTable(w, "Runs", headers, rows, map[int]bool{2: true, 3: true, 4: true, 6: true}); err != nil {
		return err
	}
	score1, score2, score3 := h.Scores()
	if _, err := fmt.Fprintf(w, "Trend: [%s]\n\n", Sparkline(score3)); err != nil {
		return err
	}
	if len(h.Records) < 2 {
		return nil
	}
	return PlotSeries(w, "Score trend", []Series{
		{Name: "score3", Values: MovingAverage(score3, window)},
		{Name: "score1", Values: MovingAverage(score1, window)},
		{Name: "score2", Values: MovingAverage(score2, window)},
	}, PlotOptions{
		Width:      opts.Width,
		Height:     opts.Height,
		Min:        0,
		Max:        100,
		XLabel:     fmt.Sprintf("runs 1 → %d", len(h.Records)),
		ForceColor: opts.Color,
	})
}
