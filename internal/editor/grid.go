package editor

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/hplcgreen/internal/curve"
	"github.com/verte-zerg/hplcgreen/internal/model"
)

const defaultCurve = curve.Linear

type column struct {
	title  string
	width  int
	format func(model.GradientStep) string
	parse  func(*model.GradientStep, string) error
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8C8C8C"))
	cellStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	rowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	editStyle     = lipgloss.NewStyle().Underline(true)
)

var errPercent = errors.New("must be between 0 and 100")

// columns are the editable fields of a step in display order.
var columns = []column{
	{
		title:  "Time (min)",
		width:  10,
		format: func(s model.GradientStep) string { return formatNumber(s.Time) },
		parse: func(s *model.GradientStep, v string) error {
			f, err := parseNumber(v)
			if err != nil {
				return err
			}
			if f < 0 {
				return errors.New("must be >= 0")
			}
			s.Time = f
			return nil
		},
	},
	{
		title:  "A (%)",
		width:  7,
		format: func(s model.GradientStep) string { return formatNumber(s.PhaseA) },
		parse: func(s *model.GradientStep, v string) error {
			f, err := parsePercent(v)
			if err != nil {
				return err
			}
			s.PhaseA, s.PhaseB = f, 100-f
			return nil
		},
	},
	{
		title:  "B (%)",
		width:  7,
		format: func(s model.GradientStep) string { return formatNumber(s.PhaseB) },
		parse: func(s *model.GradientStep, v string) error {
			f, err := parsePercent(v)
			if err != nil {
				return err
			}
			s.PhaseA, s.PhaseB = 100-f, f
			return nil
		},
	},
	{
		title:  "Flow (mL/min)",
		width:  13,
		format: func(s model.GradientStep) string { return formatNumber(s.FlowRate) },
		parse: func(s *model.GradientStep, v string) error {
			f, err := parseNumber(v)
			if err != nil {
				return err
			}
			if f < 0 {
				return errors.New("must be >= 0")
			}
			s.FlowRate = f
			return nil
		},
	},
	{
		title:  "Curve",
		width:  16,
		format: func(s model.GradientStep) string { return s.Curve.String() },
		parse: func(s *model.GradientStep, v string) error {
			shape, err := curve.Parse(v)
			if err != nil {
				return err
			}
			s.Curve = shape
			return nil
		},
	},
}

func parseNumber(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

func parsePercent(v string) (float64, error) {
	f, err := parseNumber(v)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 100 {
		return 0, errPercent
	}
	return f, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fitCell truncates or pads s to exactly width display cells.
func fitCell(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func (m *Model) renderGrid() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fitCell("#", 3)))
	for _, c := range columns {
		b.WriteByte(' ')
		b.WriteString(headerStyle.Render(fitCell(c.title, c.width)))
	}
	if len(m.steps) == 0 {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("no steps, press a to add one"))
		return b.String()
	}
	for r, step := range m.steps {
		b.WriteByte('\n')
		marker := fitCell(strconv.Itoa(step.StepNo), 3)
		if r == m.row {
			b.WriteString(rowStyle.Render(marker))
		} else {
			b.WriteString(cellStyle.Render(marker))
		}
		for c, col := range columns {
			b.WriteByte(' ')
			b.WriteString(m.renderCell(r, c, col, step))
		}
	}
	return b.String()
}

func (m *Model) renderCell(r, c int, col column, step model.GradientStep) string {
	selected := r == m.row && c == m.col
	if selected && m.editing {
		return editStyle.Render(fitCell(m.input.Value(), col.width))
	}
	text := fitCell(col.format(step), col.width)
	if selected {
		return selectedStyle.Render(text)
	}
	return cellStyle.Render(text)
}
