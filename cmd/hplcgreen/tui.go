package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/config"
	"github.com/verte-zerg/hplcgreen/internal/editor"
	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/logger"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/project"
	"github.com/verte-zerg/hplcgreen/internal/scoreui"
)

var (
	editDebounceMs int
	editCreate     bool

	browseMethod string
	browseSince  string
	browseLast   int
	browseWindow int
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <project.json>",
		Short: "Edit a gradient program with live rescoring",
		Args:  cobra.ExactArgs(1),
		RunE:  runEditCmd,
	}
	addSchemeFlags(cmd)
	cmd.Flags().IntVar(&editDebounceMs, "debounce-ms", int(config.DefaultDebounce.Milliseconds()), "recalculation delay after the last edit")
	cmd.Flags().BoolVar(&editCreate, "create", false, "start a new project when the file does not exist")
	return cmd
}

func runEditCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	applyIntConfig(cmd, "debounce-ms", &editDebounceMs, e.file.Editor.DebounceMs)
	if editDebounceMs < 0 {
		return fmt.Errorf("--debounce-ms must be >= 0")
	}

	path := args[0]
	doc, err := loadOrCreate(path)
	if err != nil {
		return err
	}
	if len(doc.Factors) == 0 {
		st, err := openStore()
		if err != nil {
			return err
		}
		items, err := storeFactors(context.Background(), st, e.log)
		closeStore(st)
		if err != nil {
			return err
		}
		doc.Factors = items
	}
	sel, err := buildSelection(cmd, doc.Schemes, e.file.Scoring)
	if err != nil {
		return err
	}

	m := editor.New(editor.Options{
		Doc:       doc,
		Path:      path,
		Selection: sel,
		Debounce:  time.Duration(editDebounceMs) * time.Millisecond,
		Log:       logger.Nop(),
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}
	if m.Dirty() {
		logErrf("unsaved changes to %s were discarded\n", path)
	}
	return nil
}

func loadOrCreate(path string) (*project.Document, error) {
	parser, err := project.NewParser()
	if err != nil {
		return nil, err
	}
	doc, err := parser.Load(path)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, os.ErrNotExist) || !editCreate {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return project.New(name), nil
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse stored methods and their score history",
		Args:  cobra.NoArgs,
		RunE:  runBrowseCmd,
	}
	addSchemeFlags(cmd)
	cmd.Flags().StringVar(&browseMethod, "method", "", "method ID to open")
	cmd.Flags().StringVar(&browseSince, "since", "", "history start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&browseLast, "last", 0, "limit history to the last N runs")
	cmd.Flags().IntVar(&browseWindow, "window", 1, "moving average window for the trend")
	return cmd
}

func runBrowseCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	if browseLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if browseWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	since, err := parseSince(browseSince)
	if err != nil {
		return err
	}
	sel, err := buildSelection(cmd, nil, e.file.Scoring)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	items, err := storeFactors(context.Background(), st, e.log)
	if err != nil {
		return err
	}
	table, err := factors.NewTable(items)
	if err != nil {
		return fmt.Errorf("invalid factor table: %w", err)
	}

	m := scoreui.NewModel(scoreui.Options{
		Store:     st,
		Factors:   table,
		Selection: sel,
		Filter:    model.HistoryFilter{MethodID: browseMethod, Since: since, Last: browseLast},
		Window:    browseWindow,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run score browser: %w", err)
	}
	return nil
}
