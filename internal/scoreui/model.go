// Package scoreui provides the Bubble Tea score browser.
package scoreui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/report"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
	"github.com/verte-zerg/hplcgreen/internal/store"
)

const (
	tabOverview = iota
	tabFactors
	tabHistory
)

const (
	plotHeight    = 10
	defaultWindow = 1
)

// Options configure the score browser.
type Options struct {
	Store     *store.Store
	Factors   scoring.FactorSource
	Selection scoring.Selection
	Filter    model.HistoryFilter
	Window    int
}

// Model implements the Bubble Tea score browser.
type Model struct {
	store    *store.Store
	factors  scoring.FactorSource
	sel      scoring.Selection
	pipeline *scoring.Pipeline

	filter model.HistoryFilter
	window int

	methods   []model.MethodSummary
	methodIdx int
	method    model.MethodConfiguration
	result    *scoring.Result
	scoreErr  string
	history   report.History
	errMsg    string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	factorTable table.Model
	tableLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a score browser and loads the stored methods.
func NewModel(opts Options) *Model {
	window := opts.Window
	if window < 1 {
		window = defaultWindow
	}
	m := &Model{
		store:    opts.Store,
		factors:  opts.Factors,
		sel:      opts.Selection,
		pipeline: scoring.NewPipeline(nil),
		filter:   opts.Filter,
		window:   window,
		tabs:     []string{"Overview", "Factors", "History"},
	}
	m.initInputs()
	m.factorTable = table.New(table.WithColumns(factorColumns()), table.WithHeight(1))
	m.factorTable.SetStyles(factorTableStyles())
	m.initViewports()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.activeTab == tabFactors {
			m.factorTable.Focus()
		} else {
			m.factorTable.Blur()
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "n":
			m.moveMethod(1)
			return m, nil
		case "p":
			m.moveMethod(-1)
			return m, nil
		case "=":
			m.window = nextWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "-":
			m.window = prevWindow(m.window)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabFactors {
				m.factorTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabFactors {
				m.factorTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabFactors {
				var cmd tea.Cmd
				m.factorTable, cmd = m.factorTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Method ID: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Trend window: "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[0].SetValue(m.filter.MethodID)
	if m.filter.Since != nil {
		m.filterInputs[1].SetValue(m.filter.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[1].SetValue("")
	}
	if m.filter.Last > 0 {
		m.filterInputs[2].SetValue(strconv.Itoa(m.filter.Last))
	} else {
		m.filterInputs[2].SetValue("")
	}
	m.filterInputs[3].SetValue(strconv.Itoa(m.window))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	if m.activeTab == tabFactors {
		m.factorTable.Focus()
	} else {
		m.factorTable.Blur()
	}
}

func (m *Model) moveMethod(delta int) {
	count := len(m.methods)
	if count == 0 {
		return
	}
	m.methodIdx = (m.methodIdx + delta + count) % count
	m.filter.MethodID = m.methods[m.methodIdx].ID
	m.refresh()
}

// refresh reloads methods, scores the selected one and loads its history.
func (m *Model) refresh() {
	ctx := context.Background()
	m.errMsg = ""
	m.result = nil
	m.scoreErr = ""
	m.method = model.MethodConfiguration{}

	methods, err := m.store.ListMethods(ctx)
	if err != nil {
		m.setLoadError(err)
		return
	}
	m.methods = methods
	m.methodIdx = selectMethod(methods, m.filter.MethodID, m.methodIdx)

	historyFilter := m.filter
	if len(methods) > 0 {
		summary := methods[m.methodIdx]
		historyFilter.MethodID = summary.ID
		cfg, err := m.store.GetMethod(ctx, summary.ID)
		if err != nil {
			m.setLoadError(err)
			return
		}
		m.method = cfg
		m.score()
	}

	history, err := report.BuildHistory(ctx, m.store, historyFilter)
	if err != nil {
		m.setLoadError(err)
		return
	}
	m.history = history

	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyFactorRows(width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) score() {
	if m.factors == nil || m.factors.Len() == 0 {
		m.scoreErr = "no reagent factor table loaded"
		return
	}
	res, err := m.pipeline.Score(m.method, m.factors, m.sel)
	if err != nil {
		m.scoreErr = err.Error()
		return
	}
	m.result = &res
}

func (m *Model) setLoadError(err error) {
	m.errMsg = err.Error()
	for i := range m.viewports {
		m.viewports[i].SetContent("Failed to load scores.")
	}
}

// selectMethod keeps the requested method when present, else the current index.
func selectMethod(methods []model.MethodSummary, id string, current int) int {
	if id != "" {
		for i, s := range methods {
			if s.ID == id {
				return i
			}
		}
	}
	if current < 0 || current >= len(methods) {
		return 0
	}
	return current
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refresh()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	methodID := strings.TrimSpace(m.filterInputs[0].Value())

	sinceInput := strings.TrimSpace(m.filterInputs[1].Value())
	var since *time.Time
	if sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	lastInput := strings.TrimSpace(m.filterInputs[2].Value())
	last := 0
	if lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	window := defaultWindow
	if windowInput := strings.TrimSpace(m.filterInputs[3].Value()); windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid trend window (use integer >= 1)")
		}
		window = parsed
	}

	m.filter = model.HistoryFilter{MethodID: methodID, Since: since, Last: last}
	m.window = window
	return nil
}

func nextWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}
