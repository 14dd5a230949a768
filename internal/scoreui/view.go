package scoreui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hplcgreen/internal/report"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	method := "none"
	if len(m.methods) > 0 {
		method = fmt.Sprintf("%s (%d/%d)", m.methods[m.methodIdx].Name, m.methodIdx+1, len(m.methods))
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format("2006-01-02")
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	summary := fmt.Sprintf("Method: %s  since=%s  last=%s  window=%d  schemes: %s", method, since, last, m.window, m.sel)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Method: n/p  Scroll: up/down/pgup/pgdn  Window: -/=  Filter: /  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabFactors {
		switch {
		case m.result == nil:
			return fitLines(m.emptyMessage(), m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.factorTable.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) emptyMessage() string {
	switch {
	case len(m.methods) == 0:
		return "No stored methods. Score a project with --save first."
	case m.scoreErr != "":
		return "Cannot score method: " + m.scoreErr
	default:
		return "No result."
	}
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(m.renderOverview(width))
	m.viewports[tabHistory].SetContent(renderHistory(m.history, m.window, width))
}

func (m *Model) renderOverview(width int) string {
	if m.result == nil {
		return m.emptyMessage()
	}
	res := m.result
	title := cardValueStyle.Render(m.method.Name)
	cards := []string{
		metricCard("Score1", fmt.Sprintf("%.1f", res.Instrument.Score1), res.Instrument.Score1),
		metricCard("Score2", fmt.Sprintf("%.1f", res.Preparation.Score2), res.Preparation.Score2),
		metricCard("Score3", fmt.Sprintf("%.1f %s", res.Final.Score3, res.Final.Grade), res.Final.Score3),
		metricCard("Volume", fmt.Sprintf("%.2f mL", res.Gradient.TotalVolume), -1),
		metricCard("Per sample", fmt.Sprintf("%.2f", res.Legacy.PerSample), -1),
		metricCard("Warnings", strconv.Itoa(len(res.Warnings)), -1),
	}
	var grid string
	if width < 80 {
		grid = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		grid = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	sections := []string{title, grid}

	var buf bytes.Buffer
	if err := report.RenderWarnings(&buf, res.Warnings); err == nil && buf.Len() > 0 {
		sections = append(sections, strings.TrimRight(buf.String(), "\n"))
	}
	buf.Reset()
	opts := report.Options{Width: report.PlotWidthFor(width), Height: plotHeight, Color: true}
	if err := report.RenderGradient(&buf, m.method.Gradient, opts); err != nil {
		sections = append(sections, fmt.Sprintf("Failed to render gradient: %v", err))
	} else {
		sections = append(sections, strings.TrimRight(buf.String(), "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// metricCard renders a labelled value. A score >= 0 colours the value by grade.
func metricCard(label, value string, score float64) string {
	style := cardValueStyle
	if score >= 0 {
		style = style.Foreground(lipgloss.Color(scoring.ColorFor(score)))
	}
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), style.Render(value))
	return cardStyle.Render(content)
}

func renderHistory(h report.History, window, width int) string {
	var buf bytes.Buffer
	opts := report.Options{Width: report.PlotWidthFor(width), Height: plotHeight, Color: true}
	if err := report.RenderHistory(&buf, h, window, opts); err != nil {
		return fmt.Sprintf("Failed to render history: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func factorColumns() []table.Column {
	return []table.Column{
		{Title: "Stage", Width: 11},
		{Title: "Reagent", Width: 20},
		{Title: "Volume (mL)", Width: 11},
		{Title: "Mass (g)", Width: 9},
		{Title: "S", Width: 6},
		{Title: "H", Width: 6},
		{Title: "E", Width: 6},
		{Title: "R load", Width: 7},
		{Title: "D load", Width: 7},
	}
}

func factorRows(res *scoring.Result) []table.Row {
	if res == nil {
		return nil
	}
	var rows []table.Row
	add := func(stage string, items []scoring.ReagentScore) {
		for _, r := range items {
			rows = append(rows, table.Row{
				stage,
				r.Name,
				fmt.Sprintf("%.2f", r.Volume),
				fmt.Sprintf("%.2f", r.Mass),
				fmt.Sprintf("%.1f", r.S),
				fmt.Sprintf("%.1f", r.H),
				fmt.Sprintf("%.1f", r.E),
				fmt.Sprintf("%.2f", r.RegenerationLoad),
				fmt.Sprintf("%.2f", r.DisposalLoad),
			})
		}
	}
	add(scoring.StageInstrument, res.Instrument.Reagents)
	add(scoring.StagePreparation, res.Preparation.Reagents)
	return rows
}

func (m *Model) applyFactorRows(width, height int) {
	rows := factorRows(m.result)
	m.factorTable.SetRows(rows)
	m.factorTable.GotoTop()
	m.tableLayout.rowCount = len(rows)
	m.tableLayout.width = 0
	m.setTableSize(width, height)
}

func (m *Model) setTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.tableLayout.width == width && m.tableLayout.height == viewportHeight {
		return
	}
	m.tableLayout.width = width
	m.tableLayout.height = viewportHeight
	m.factorTable.SetWidth(width)
	m.factorTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustTableHeight(height)
	if m.tableLayout.height != viewportHeight {
		m.tableLayout.height = viewportHeight
		m.factorTable.SetHeight(viewportHeight)
	}
}

// adjustTableHeight corrects for header and border lines so the rendered
// table fills exactly bodyHeight lines.
func (m *Model) adjustTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.factorTable.Height()
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(m.factorTable.View())
		if viewHeight == target {
			return height
		}
		height = maxInt(1, height+target-viewHeight)
		m.factorTable.SetHeight(height)
	}
	return height
}

func factorTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}
