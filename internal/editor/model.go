// Package editor provides the Bubble Tea gradient program editor.
package editor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hplcgreen/internal/logger"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/project"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

// SaveFunc persists a document.
type SaveFunc func(path string, doc *project.Document) error

// Options configure an editor session.
type Options struct {
	Doc  *project.Document
	Path string
	// Factors overrides the document's own factor table when set.
	Factors   scoring.FactorSource
	Selection scoring.Selection
	Debounce  time.Duration
	Save      SaveFunc
	Log       *logger.Logger
	Now       func() time.Time
}

// recalcMsg fires when a debounce window closes. Only the latest seq counts.
type recalcMsg struct {
	seq int
}

// Model implements the gradient editor UI.
type Model struct {
	doc      *project.Document
	path     string
	factors  scoring.FactorSource
	sel      scoring.Selection
	pipeline *scoring.Pipeline
	save     SaveFunc
	now      func() time.Time
	debounce time.Duration

	steps []model.GradientStep
	row   int
	col   int

	editing bool
	input   textinput.Model

	seq     int
	pending bool
	result  *scoring.Result
	err     error

	dirty  bool
	status string

	width  int
	height int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// New builds an editor over opts.Doc and scores the current program once.
func New(opts Options) *Model {
	doc := opts.Doc
	if doc == nil {
		doc = project.New("")
	}
	factors := opts.Factors
	if factors == nil {
		factors = scoring.FactorList(doc.Factors)
	}
	save := opts.Save
	if save == nil {
		save = project.Save
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 3 * time.Second
	}
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 24

	m := &Model{
		doc:      doc,
		path:     opts.Path,
		factors:  factors,
		sel:      opts.Selection,
		pipeline: scoring.NewPipeline(opts.Log),
		save:     save,
		now:      now,
		debounce: debounce,
		steps:    append([]model.GradientStep(nil), doc.Gradient.Steps...),
		input:    input,
	}
	m.recalculate()
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
		return m, nil
	case recalcMsg:
		if msg.seq == m.seq {
			m.recalculate()
		}
		return m, nil
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	default:
		return m, nil
	}
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter, tea.KeyTab:
		m.editing = false
		m.input.Blur()
		return m, m.applyEdit(m.row, m.col, m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.steps)-1 {
			m.row++
		}
	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l", "tab":
		if m.col < len(columns)-1 {
			m.col++
		}
	case "enter", "e":
		if len(m.steps) == 0 {
			return m, nil
		}
		m.editing = true
		m.input.SetValue(columns[m.col].format(m.steps[m.row]))
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "a":
		return m, m.addStep()
	case "d":
		return m, m.deleteStep()
	case "r":
		m.seq++
		m.recalculate()
	case "ctrl+s", "w":
		m.saveDocument()
	}
	return m, nil
}

// applyEdit validates and stores one cell value, then restarts the debounce window.
func (m *Model) applyEdit(row, col int, value string) tea.Cmd {
	if row < 0 || row >= len(m.steps) || col < 0 || col >= len(columns) {
		return nil
	}
	step := m.steps[row]
	if err := columns[col].parse(&step, strings.TrimSpace(value)); err != nil {
		m.status = fmt.Sprintf("%s: %v", columns[col].title, err)
		return nil
	}
	m.steps[row] = step
	m.status = ""
	m.dirty = true
	return m.scheduleRecalc()
}

func (m *Model) addStep() tea.Cmd {
	if len(m.steps) == 0 {
		m.steps = []model.GradientStep{{PhaseA: 100, FlowRate: 1, Curve: defaultCurve}}
		m.row = 0
	} else {
		next := m.steps[m.row]
		if m.row+1 < len(m.steps) {
			next.Time = (next.Time + m.steps[m.row+1].Time) / 2
		} else {
			next.Time++
		}
		m.steps = append(m.steps[:m.row+1], append([]model.GradientStep{next}, m.steps[m.row+1:]...)...)
		m.row++
	}
	renumber(m.steps)
	m.dirty = true
	return m.scheduleRecalc()
}

func (m *Model) deleteStep() tea.Cmd {
	if len(m.steps) == 0 {
		return nil
	}
	m.steps = append(m.steps[:m.row], m.steps[m.row+1:]...)
	if m.row >= len(m.steps) && m.row > 0 {
		m.row--
	}
	renumber(m.steps)
	m.dirty = true
	return m.scheduleRecalc()
}

func (m *Model) scheduleRecalc() tea.Cmd {
	m.seq++
	m.pending = true
	seq := m.seq
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return recalcMsg{seq: seq}
	})
}

func (m *Model) recalculate() {
	m.pending = false
	cfg := m.doc.Methods
	cfg.Gradient = append([]model.GradientStep(nil), m.steps...)
	res, err := m.pipeline.Score(cfg, m.factors, m.sel)
	if err != nil {
		m.result = nil
		m.err = err
		return
	}
	m.result = &res
	m.err = nil
}

func (m *Model) saveDocument() {
	if m.path == "" {
		m.status = "no file to save to"
		return
	}
	m.doc.Gradient.Steps = append([]model.GradientStep(nil), m.steps...)
	m.doc.Touch(m.now())
	// Invalid programs are saved with the cache cleared and the reason recorded.
	_ = m.doc.Refresh()
	if err := m.save(m.path, m.doc); err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return
	}
	m.dirty = false
	m.status = "saved " + m.path
}

// Steps returns a copy of the edited program.
func (m *Model) Steps() []model.GradientStep {
	return append([]model.GradientStep(nil), m.steps...)
}

// Dirty reports unsaved edits.
func (m *Model) Dirty() bool {
	return m.dirty
}

// View implements tea.Model.
func (m *Model) View() string {
	name := m.doc.Methods.Name
	if name == "" {
		name = "untitled"
	}
	title := titleStyle.Render("Gradient editor: " + name)
	if m.dirty {
		title += " *"
	}
	lines := []string{title, "", m.renderGrid()}
	if m.status != "" {
		lines = append(lines, statusStyle.Render(m.status))
	}
	lines = append(lines, "", m.renderFooter(),
		helpStyle.Render("arrows move · enter edit · a add · d delete · r rescore · w save · q quit"))
	content := strings.Join(lines, "\n")
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, content)
}

func renumber(steps []model.GradientStep) {
	for i := range steps {
		steps[i].StepNo = i
	}
}
