package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/hplcgreen/internal/config"
	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

const sampleProject = `{
  "version": "1.0.0",
  "methods": {
    "name": "Isocratic check",
    "sampleCount": 2,
    "preTreatmentReagents": [{"name": "Methanol", "volume": 1}],
    "mobilePhaseA": [{"name": "Water", "percentage": 100}],
    "mobilePhaseB": [{"name": "Acetonitrile", "percentage": 100}]
  },
  "factors": [
    {"name": "Acetonitrile", "density": 0.786, "safetyScore": 2.724, "healthScore": 1.056, "envScore": 0.772, "recycleScore": 0, "disposal": 2, "power": 2},
    {"name": "Methanol", "density": 0.791, "safetyScore": 1.912, "healthScore": 0.43, "envScore": 0.317, "recycleScore": 0, "disposal": 2, "power": 3},
    {"name": "Water", "density": 0, "safetyScore": 0, "healthScore": 0, "envScore": 0, "recycleScore": 0, "disposal": 0, "power": 0}
  ],
  "gradient": [
    {"stepNo": 0, "time": 0, "phaseA": 50, "phaseB": 50, "flowRate": 1, "curve": "linear"},
    {"stepNo": 1, "time": 10, "phaseA": 50, "phaseB": 50, "flowRate": 1, "curve": "linear"}
  ]
}`

func alternate(t *testing.T, level string) string {
	t.Helper()
	names := scoring.SchemeNames()[level]
	if len(names) < 2 {
		t.Fatalf("level %s has no alternative scheme", level)
	}
	return names[1]
}

func TestBuildSelectionPrecedence(t *testing.T) {
	safety := alternate(t, scoring.LevelSafety)
	final := alternate(t, scoring.LevelFinal)
	file := config.ScoringConfig{Safety: &safety}

	cmd := newScoreCmd()
	sel, err := buildSelection(cmd, nil, file)
	if err != nil {
		t.Fatalf("build selection: %v", err)
	}
	if sel.Safety.String() != safety {
		t.Fatalf("expected config safety %s, got %s", safety, sel.Safety)
	}

	doc := &scoring.Selection{}
	sel, err = buildSelection(cmd, doc, file)
	if err != nil {
		t.Fatalf("build selection: %v", err)
	}
	if sel != (scoring.Selection{}) {
		t.Fatalf("expected document schemes to replace config, got %s", sel)
	}

	if err := cmd.Flags().Set(scoring.LevelFinal, final); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	sel, err = buildSelection(cmd, doc, file)
	if err != nil {
		t.Fatalf("build selection: %v", err)
	}
	if sel.Final.String() != final || sel.Safety != 0 {
		t.Fatalf("expected flag override, got %s", sel)
	}
}

func TestBuildSelectionRejectsUnknownScheme(t *testing.T) {
	bad := "nope"
	if _, err := buildSelection(newScoreCmd(), nil, config.ScoringConfig{Health: &bad}); err == nil {
		t.Fatalf("expected error for unknown config scheme")
	}
	cmd := newScoreCmd()
	if err := cmd.Flags().Set(scoring.LevelHealth, "nope"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if _, err := buildSelection(cmd, nil, config.ScoringConfig{}); err == nil {
		t.Fatalf("expected error for unknown flag scheme")
	}
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Compare.Workers != nil || cfg.Log.Mode != nil || len(cfg.Scoring.Schemes()) != 0 {
		t.Fatalf("expected commented template, got %+v", cfg)
	}

	uncommented := strings.ReplaceAll(defaultConfigTemplate(), "# safety", "safety")
	if err := os.WriteFile(path, []byte(uncommented), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load uncommented config: %v", err)
	}
	if cfg.Scoring.Safety == nil || *cfg.Scoring.Safety != scoring.SafetyPBTBalanced.String() {
		t.Fatalf("expected default safety scheme, got %+v", cfg.Scoring)
	}
}

func TestStableMethodID(t *testing.T) {
	dir := t.TempDir()
	a := stableMethodID(filepath.Join(dir, "a.json"))
	if a != stableMethodID(filepath.Join(dir, "a.json")) {
		t.Fatalf("expected deterministic id")
	}
	if a == stableMethodID(filepath.Join(dir, "b.json")) {
		t.Fatalf("expected distinct ids per path")
	}
}

func TestScoreFactorsCoversBothStages(t *testing.T) {
	var res scoring.Result
	res.Instrument.Major.S = 1.5
	res.Preparation.Major.D = 2
	got := scoreFactors(res)
	if len(got) != 12 {
		t.Fatalf("expected 12 factors, got %d", len(got))
	}
	if got[0] != (model.ScoreFactor{Stage: scoring.StageInstrument, Factor: "S", Value: 1.5}) {
		t.Fatalf("unexpected first factor: %+v", got[0])
	}
	if got[11] != (model.ScoreFactor{Stage: scoring.StagePreparation, Factor: "D", Value: 2}) {
		t.Fatalf("unexpected last factor: %+v", got[11])
	}
}

func TestMergeFactors(t *testing.T) {
	table, err := factors.NewTable(factors.Predefined())
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	before := table.Len()
	water, _ := table.Lookup("Water")
	water.Density = 0.998
	incoming := []model.ReagentFactor{
		water,
		{Name: "Glycerol", Density: 1.26, Disposal: 1},
	}
	added, updated, err := mergeFactors(table, incoming)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if added != 1 || updated != 1 || table.Len() != before+1 {
		t.Fatalf("unexpected merge result: added=%d updated=%d len=%d", added, updated, table.Len())
	}
	got, _ := table.Lookup("water")
	if got.Density != 0.998 || got.OriginalData == nil {
		t.Fatalf("expected edited water with snapshot, got %+v", got)
	}
	glycerol, _ := table.Lookup("Glycerol")
	if !glycerol.IsCustom || glycerol.ID == "" {
		t.Fatalf("expected custom glycerol, got %+v", glycerol)
	}
}

func TestWriteSchemesMarksDefaults(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSchemes(&buf); err != nil {
		t.Fatalf("write schemes: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "(default)") != len(scoring.Levels()) {
		t.Fatalf("expected one default per level:\n%s", out)
	}
	if !strings.HasPrefix(out, "safety:\n") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestScoreSaveAndHistory(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "method.json")
	if err := os.WriteFile(projectPath, []byte(sampleProject), 0o644); err != nil {
		t.Fatalf("write project: %v", err)
	}
	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--db", filepath.Join(dir, "scores.db"),
		"--log", "quiet",
	}

	out := runCLI(t, append(base, "score", projectPath, "--save", "--no-plot")...)
	if !strings.Contains(out, "Isocratic check") {
		t.Fatalf("expected method name in report:\n%s", out)
	}

	out = runCLI(t, append(base, "score", projectPath, "--json")...)
	var res scoring.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode score json: %v\n%s", err, out)
	}
	if res.Gradient.TotalVolume < 9.99 || res.Gradient.TotalVolume > 10.01 {
		t.Fatalf("expected 10 mL total volume, got %v", res.Gradient.TotalVolume)
	}

	out = runCLI(t, append(base, "history", "--json")...)
	var runs []historyRun
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history json: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 stored run, got %d", len(runs))
	}
	if runs[0].MethodID != stableMethodID(projectPath) || runs[0].MethodName != "Isocratic check" {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
	if len(runs[0].Factors[scoring.StageInstrument]) != 6 {
		t.Fatalf("expected 6 instrument factors, got %+v", runs[0].Factors)
	}
}

func TestFactorsExportImportDelete(t *testing.T) {
	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--db", filepath.Join(dir, "scores.db"),
		"--log", "quiet",
	}
	exportPath := filepath.Join(dir, "factors.yaml")
	runCLI(t, append(base, "factors", "export", exportPath)...)
	doc, err := factors.LoadFile(exportPath)
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if len(doc.Reagents) != len(factors.Predefined()) {
		t.Fatalf("expected predefined table, got %d reagents", len(doc.Reagents))
	}

	runCLI(t, append(base, "factors", "delete", "Acetone")...)
	out := runCLI(t, append(base, "factors", "list")...)
	if strings.Contains(out, "Acetone") {
		t.Fatalf("expected Acetone to be deleted:\n%s", out)
	}

	runCLI(t, append(base, "factors", "import", exportPath)...)
	out = runCLI(t, append(base, "factors", "list")...)
	if !strings.Contains(out, "Acetone") {
		t.Fatalf("expected Acetone after import:\n%s", out)
	}
}
