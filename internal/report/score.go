package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hplcgreen/internal/gradient"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

// Options control text rendering.
type Options struct {
	Width  int
	Height int
	Color  bool
	// Plot adds the gradient composition chart.
	Plot bool
}

// SubFactorLabels names the merged sub-factor codes in display order.
var SubFactorLabels = []struct {
	Code  string
	Label string
}{
	{"S1", "Release potential"},
	{"S2", "Fire/explosion"},
	{"S3", "Reaction/decomposition"},
	{"S4", "Acute toxicity"},
	{"H1", "Chronic toxicity"},
	{"H2", "Irritation"},
	{"E1", "Persistency"},
	{"E2", "Air hazard"},
	{"E3", "Water hazard"},
	{"R", "Regeneration"},
	{"D", "Disposal"},
}

// SubFactorValues returns the sub-factor scores in SubFactorLabels order.
func SubFactorValues(s scoring.SubFactorScores) []float64 {
	return []float64{
		s.ReleasePotential, s.FireExplos, s.ReactDecom, s.AcuteToxicity,
		s.ChronicToxicity, s.Irritation,
		s.Persistency, s.AirHazard, s.WaterHazard,
		s.Regeneration, s.Disposal,
	}
}

// GradeLabel renders the grade of score, coloured when enabled.
func GradeLabel(w io.Writer, score float64, color bool) string {
	grade := scoring.GradeFor(score)
	if !color {
		return string(grade)
	}
	style := lipgloss.NewRenderer(w).NewStyle().Bold(true).Foreground(lipgloss.Color(scoring.ColorFor(score)))
	return style.Render(string(grade))
}

// RenderScore prints the full breakdown of a scoring result.
func RenderScore(w io.Writer, name string, res scoring.Result, steps []model.GradientStep, opts Options) error {
	if name != "" {
		if _, err := fmt.Fprintf(w, "Method: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Schemes: %s\n\n", res.Selection); err != nil {
		return err
	}
	summary := [][]string{
		{"Score1 (instrument)", num(res.Instrument.Score1), string(scoring.GradeFor(res.Instrument.Score1))},
		{"Score2 (preparation)", num(res.Preparation.Score2), string(scoring.GradeFor(res.Preparation.Score2))},
		{"Score3 (final)", num(res.Final.Score3), GradeLabel(w, res.Final.Score3, opts.Color)},
	}
	if err := writeTable(w, "Summary", nil, summary, map[int]bool{1: true}); err != nil {
		return err
	}

	g := res.Gradient
	if _, err := fmt.Fprintf(w, "Gradient: %.2f mL over %.2f min (A %.2f mL, B %.2f mL)\n",
		g.TotalVolume, g.TotalTime, g.MobilePhaseA.Volume, g.MobilePhaseB.Volume); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Energy: instrument %.3f kWh, preparation %.3f kWh\n\n",
		res.Instrument.EnergyKWh, res.Preparation.EnergyKWh); err != nil {
		return err
	}

	if err := renderMajor(w, res); err != nil {
		return err
	}
	if err := renderSubFactors(w, res); err != nil {
		return err
	}
	if err := renderReagents(w, res); err != nil {
		return err
	}
	if err := RenderLegacy(w, res.Legacy); err != nil {
		return err
	}
	if err := RenderWarnings(w, res.Warnings); err != nil {
		return err
	}
	if opts.Plot && len(steps) > 1 {
		return RenderGradient(w, steps, opts)
	}
	return nil
}

func renderMajor(w io.Writer, res scoring.Result) error {
	inst, prep := res.Instrument.Major, res.Preparation.Major
	rows := [][]string{
		{"S", num(inst.S), num(prep.S)},
		{"H", num(inst.H), num(prep.H)},
		{"E", num(inst.E), num(prep.E)},
		{"P", num(inst.P), num(prep.P)},
		{"R", num(inst.R), num(prep.R)},
		{"D", num(inst.D), num(prep.D)},
	}
	return writeTable(w, "Major factors", []string{"Factor", "Instrument", "Preparation"}, rows, numericCols(1, 2))
}

func renderSubFactors(w io.Writer, res scoring.Result) error {
	inst := SubFactorValues(res.Instrument.SubFactors)
	prep := SubFactorValues(res.Preparation.SubFactors)
	merged := SubFactorValues(res.Merged.SubFactors)
	// Method-level R and D use the aggregate transform over both stages.
	merged[9], merged[10] = res.Merged.R, res.Merged.D
	rows := make([][]string, 0, len(SubFactorLabels))
	for i, l := range SubFactorLabels {
		rows = append(rows, []string{l.Code, l.Label, num(inst[i]), num(prep[i]), num(merged[i])})
	}
	return writeTable(w, "Sub-factors", []string{"Code", "Name", "Instrument", "Preparation", "Method"}, rows, numericCols(2, 4))
}

func renderReagents(w io.Writer, res scoring.Result) error {
	var rows [][]string
	add := func(stage string, items []scoring.ReagentScore) {
		for _, r := range items {
			rows = append(rows, []string{stage, r.Name, num(r.Volume), num(r.Mass), num(r.S), num(r.H), num(r.E)})
		}
	}
	add(scoring.StageInstrument, res.Instrument.Reagents)
	add(scoring.StagePreparation, res.Preparation.Reagents)
	if len(rows) == 0 {
		_, err := fmt.Fprint(w, "No scored reagents.\n\n")
		return err
	}
	return writeTable(w, "Reagents", []string{"Stage", "Reagent", "Volume (mL)", "Mass (g)", "S", "H", "E"}, rows, numericCols(2, 6))
}

// RenderLegacy prints the per-sample contribution table.
func RenderLegacy(w io.Writer, t scoring.LegacyTable) error {
	rows := make([][]string, 0, len(t.Rows)+3)
	for _, r := range t.Rows {
		rows = append(rows, []string{r.Name, r.Stage, num(r.Mass), num(r.S), num(r.H), num(r.E), num(r.R), num(r.D)})
	}
	rows = append(rows,
		[]string{"Total", "", "", num(t.TotalS), num(t.TotalH), num(t.TotalE), num(t.TotalR), num(t.TotalD)},
		[]string{"P", "", "", "", "", "", "", num(t.P)},
		[]string{fmt.Sprintf("Per sample (n=%d)", t.SampleCount), "", "", "", "", "", "", num(t.PerSample)},
	)
	return writeTable(w, "Per-sample contributions", []string{"Reagent", "Stage", "Mass (g)", "S", "H", "E", "R", "D"}, rows, numericCols(2, 7))
}

// RenderWarnings lists non-fatal scoring warnings.
func RenderWarnings(w io.Writer, warnings []scoring.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Warnings"); err != nil {
		return err
	}
	for _, warn := range warnings {
		if _, err := fmt.Fprintf(w, "- %s\n", warn); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderGradient plots the phase composition of a gradient program over time.
func RenderGradient(w io.Writer, steps []model.GradientStep, opts Options) error {
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	a, b, err := CompositionSeries(steps, width)
	if err != nil {
		return err
	}
	end := steps[len(steps)-1].Time
	return PlotSeries(w, "Gradient composition", []Series{
		{Name: "Phase A", Values: a},
		{Name: "Phase B", Values: b},
	}, PlotOptions{
		Width:      width,
		Height:     opts.Height,
		Min:        0,
		Max:        100,
		Unit:       "%",
		XLabel:     fmt.Sprintf("%s → %s min", trimFloat(steps[0].Time), trimFloat(end)),
		ForceColor: opts.Color,
	})
}

// CompositionSeries samples phase A and B percentages at width evenly spaced
// times between the first and last step.
func CompositionSeries(steps []model.GradientStep, width int) ([]float64, []float64, error) {
	if width < 2 {
		width = 2
	}
	points, err := gradient.Trace(steps, 32)
	if err != nil {
		return nil, nil, err
	}
	start, end := points[0].Time, points[len(points)-1].Time
	a := make([]float64, width)
	b := make([]float64, width)
	j := 0
	for i := 0; i < width; i++ {
		t := start + (end-start)*float64(i)/float64(width-1)
		for j+1 < len(points)-1 && points[j+1].Time < t {
			j++
		}
		p0, p1 := points[j], points[j+1]
		frac := 0.0
		if p1.Time > p0.Time {
			frac = (t - p0.Time) / (p1.Time - p0.Time)
		}
		if frac > 1 {
			frac = 1
		}
		a[i] = p0.PhaseA + (p1.PhaseA-p0.PhaseA)*frac
		b[i] = 100 - a[i]
	}
	return a, b, nil
}
