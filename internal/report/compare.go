package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/verte-zerg/hplcgreen/internal/compare"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

// RenderComparison prints ranked entries and the best method per factor.
func RenderComparison(w io.Writer, entries []compare.Entry, best []compare.Best) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No project files matched.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	var skipped []compare.Entry
	for _, e := range entries {
		if e.Skipped() {
			skipped = append(skipped, e)
			continue
		}
		res := e.Result
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Rank),
			e.Name,
			num(res.Instrument.Score1),
			num(res.Preparation.Score2),
			num(res.Final.Score3),
			string(res.Final.Grade),
			num(res.Legacy.PerSample),
			fmt.Sprintf("%d", len(res.Warnings)),
		})
	}
	headers := []string{"Rank", "Method", "Score1", "Score2", "Score3", "Grade", "Per sample", "Warnings"}
	cols := numericCols(2, 4)
	cols[0], cols[6], cols[7] = true, true, true
	if err := writeTable(w, "Ranking (lower is greener)", headers, rows, cols); err != nil {
		return err
	}

	if len(best) > 0 {
		bestRows := make([][]string, 0, len(best))
		for _, b := range best {
			bestRows = append(bestRows, []string{b.Factor, b.Name, num(b.Value)})
		}
		if err := writeTable(w, "Best per factor", []string{"Factor", "Method", "Value"}, bestRows, map[int]bool{2: true}); err != nil {
			return err
		}
	}

	if len(skipped) == 0 {
		return nil
	}
	skipRows := make([][]string, 0, len(skipped))
	for _, e := range skipped {
		reason := e.Err.Error()
		switch {
		case e.Encrypted():
			reason = "encrypted"
		case errors.Is(e.Err, scoring.ErrMissingPrerequisite):
			reason = "not configured: " + reason
		}
		skipRows = append(skipRows, []string{e.Path, reason})
	}
	return writeTable(w, "Skipped", []string{"File", "Reason"}, skipRows, nil)
}
