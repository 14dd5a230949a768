// Package main provides the CLI entrypoint for hplcgreen.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/compare"
	"github.com/verte-zerg/hplcgreen/internal/config"
	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/logger"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
	"github.com/verte-zerg/hplcgreen/internal/store"
)

const defaultLogMode = "dev"

var (
	configPath string
	dbPath     string
	logMode    string
)

// env is the resolved configuration shared by subcommands.
type env struct {
	file config.FileConfig
	log  *logger.Logger
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hplcgreen",
		Short:         "Green chemistry scoring for HPLC methods",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&logMode, "log", defaultLogMode, "log mode: dev, prod or quiet")

	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newFactorsCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newSchemesCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadEnv reads the config file and builds the logger. Flags win over file values.
func loadEnv(cmd *cobra.Command) (env, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return env{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log", &logMode, fileCfg.Log.Mode)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Storage.DB)
	log, err := logger.New(logMode)
	if err != nil {
		return env{}, fmt.Errorf("failed to create logger: %w", err)
	}
	return env{file: fileCfg, log: log}, nil
}

func addSchemeFlags(cmd *cobra.Command) {
	names := scoring.SchemeNames()
	for _, level := range scoring.Levels() {
		cmd.Flags().String(level, "", fmt.Sprintf("%s scheme (%s)", level, strings.Join(names[level], ", ")))
	}
}

// buildSelection resolves the scheme selection. A document's own schemes
// replace the config defaults; explicit flags override both.
func buildSelection(cmd *cobra.Command, doc *scoring.Selection, file config.ScoringConfig) (scoring.Selection, error) {
	var sel scoring.Selection
	if doc != nil {
		sel = *doc
	} else {
		for level, name := range file.Schemes() {
			if err := sel.Set(level, name); err != nil {
				return scoring.Selection{}, fmt.Errorf("config [scoring] %s: %w", level, err)
			}
		}
	}
	for _, level := range scoring.Levels() {
		if !cmd.Flags().Changed(level) {
			continue
		}
		name, err := cmd.Flags().GetString(level)
		if err != nil {
			return scoring.Selection{}, err
		}
		if err := sel.Set(level, name); err != nil {
			return scoring.Selection{}, fmt.Errorf("--%s: %w", level, err)
		}
	}
	return sel, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// storeFactors returns the stored factor table, replacing it with the
// predefined table when it is missing or outdated.
func storeFactors(ctx context.Context, st *store.Store, log *logger.Logger) ([]model.ReagentFactor, error) {
	items, version, err := st.LoadFactors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load factors: %w", err)
	}
	current, refreshed := factors.EnsureCurrent(items, version)
	if refreshed {
		if err := st.SaveFactors(ctx, current, factors.DataVersion); err != nil {
			return nil, fmt.Errorf("failed to save factors: %w", err)
		}
		log.Info("factor table refreshed", "version", factors.DataVersion, "reagents", len(current))
	}
	return current, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# hplcgreen configuration
# Uncomment a value to enable it. CLI flags override config values.

[scoring]
# safety = %q
# health = %q
# environment = %q
# instrument = %q
# preparation = %q
# final = %q

[editor]
# debounce-ms = %d        # Recalculation delay after the last edit

[compare]
# workers = %d            # Project files scored in parallel

[log]
# mode = %q               # dev, prod or quiet

[storage]
# db = %q
`,
		scoring.SafetyPBTBalanced,
		scoring.HealthAbsoluteBalance,
		scoring.EnvironmentPBTBalanced,
		scoring.InstrumentBalanced,
		scoring.PreparationBalanced,
		scoring.FinalStandard,
		config.DefaultDebounce.Milliseconds(),
		compare.DefaultWorkers,
		defaultLogMode,
		config.DefaultDBPath(),
	)
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
