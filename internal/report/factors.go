package report

import (
	"fmt"
	"io"

	"github.com/verte-zerg/hplcgreen/internal/model"
)

// RenderFactors prints the reagent factor table with aggregate scores.
func RenderFactors(w io.Writer, items []model.ReagentFactor) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No reagent factors found.")
		return err
	}
	rows := make([][]string, 0, len(items))
	for _, f := range items {
		kind := ""
		switch {
		case f.IsCustom:
			kind = "custom"
		case f.OriginalData != nil:
			kind = "edited"
		}
		rows = append(rows, []string{
			f.Name,
			fmt.Sprintf("%.3f", f.Density),
			num(f.SafetyScore()),
			num(f.HealthScore()),
			num(f.EnvScore()),
			num(f.Regeneration),
			num(f.Disposal),
			kind,
		})
	}
	headers := []string{"Reagent", "Density", "Safety", "Health", "Env", "Regeneration", "Disposal", ""}
	return writeTable(w, "", headers, rows, numericCols(1, 6))
}
