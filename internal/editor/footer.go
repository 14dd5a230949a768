package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

var (
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

func (m *Model) renderFooter() string {
	var segments []string
	if m.pending {
		segments = append(segments, "Recalculating…")
	}
	if m.err != nil {
		var verr *scoring.ValidationError
		switch {
		case scoring.IsNotConfigured(m.err):
			segments = append(segments, "Not configured: "+m.err.Error())
		case errors.As(m.err, &verr):
			segments = append(segments, fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message))
		default:
			segments = append(segments, m.err.Error())
		}
		return errorStyle.Render(strings.Join(segments, "  "))
	}
	if m.result == nil {
		return footerStyle.Render(strings.Join(segments, "  "))
	}
	res := m.result
	segments = append(segments,
		fmt.Sprintf("Volume %.2f mL", res.Gradient.TotalVolume),
		fmt.Sprintf("Score1 %.1f", res.Instrument.Score1),
		fmt.Sprintf("Score2 %.1f", res.Preparation.Score2),
		fmt.Sprintf("Score3 %.1f", res.Final.Score3),
	)
	if n := len(res.Warnings); n > 0 {
		segments = append(segments, fmt.Sprintf("%d warnings", n))
	}
	grade := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color(scoring.ColorFor(res.Final.Score3))).
		Render(string(res.Final.Grade))
	return footerStyle.Render(strings.Join(segments, " · ")) + " " + grade
}
