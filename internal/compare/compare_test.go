package compare

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

func projectJSON(name string, samples int, flow float64, methanolPct float64) string {
	return fmt.Sprintf(`{
  "version": "1.0.0",
  "methods": {
    "name": %q,
    "sampleCount": %d,
    "preTreatmentReagents": [{"name": "Ethanol", "volume": 1}],
    "mobilePhaseA": [{"name": "Methanol", "percentage": %g}, {"name": "Water", "percentage": %g}],
    "mobilePhaseB": [{"name": "Acetonitrile", "percentage": 100}]
  },
  "gradient": {"steps": [
    {"stepNo": 0, "time": 0, "phaseA": 80, "phaseB": 20, "flowRate": %g, "curve": "linear"},
    {"stepNo": 1, "time": 12, "phaseA": 20, "phaseB": 80, "flowRate": %g, "curve": 6}
  ]}
}`, name, samples, methanolPct, 100-methanolPct, flow, flow)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), projectJSON("heavy", 2, 2.0, 100))
	writeFile(t, filepath.Join(root, "nested", "deep", "b.json"), projectJSON("light", 10, 0.5, 20))
	writeFile(t, filepath.Join(root, "nested", "c.json"), `{"encrypted": true, "owner": "lab", "data": "Zm9v"}`)
	writeFile(t, filepath.Join(root, "nested", "notes.txt"), "not a project")
	return root
}

func TestExpandPatterns(t *testing.T) {
	root := fixture(t)
	paths, err := ExpandPatterns(root, []string{"**/*.json", "a.json"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "nested", "c.json"),
		filepath.Join(root, "nested", "deep", "b.json"),
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	}

	abs, err := ExpandPatterns("", []string{filepath.Join(root, "nested", "**", "*.json")})
	if err != nil {
		t.Fatalf("expand absolute: %v", err)
	}
	if len(abs) != 2 {
		t.Fatalf("expected 2 nested matches, got %v", abs)
	}

	if _, err := ExpandPatterns(root, []string{"missing.json"}); err == nil {
		t.Fatalf("expected error for missing plain path")
	}
	if _, err := ExpandPatterns(root, []string{"[.json"}); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}

func TestScoreFilesRankAndBest(t *testing.T) {
	root := fixture(t)
	paths, err := ExpandPatterns(root, []string{"**/*.json"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	entries, err := ScoreFiles(context.Background(), paths, Options{Workers: 2})
	if err != nil {
		t.Fatalf("score files: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Path != paths[i] {
			t.Fatalf("entries must keep input order")
		}
	}
	if !entries[1].Skipped() || !entries[1].Encrypted() || entries[1].Path != paths[1] {
		t.Fatalf("expected encrypted file to be skipped: %+v", entries[1])
	}

	ranked := Rank(entries)
	if ranked[0].Name != "light" || ranked[0].Rank != 1 || ranked[1].Name != "heavy" || ranked[1].Rank != 2 {
		t.Fatalf("unexpected ranking: %s(%d) %s(%d)", ranked[0].Name, ranked[0].Rank, ranked[1].Name, ranked[1].Rank)
	}
	if ranked[2].Rank != 0 || !ranked[2].Skipped() {
		t.Fatalf("skipped entry must be last and unranked")
	}
	if ranked[0].Result.Final.Score3 > ranked[1].Result.Final.Score3 {
		t.Fatalf("rank must follow score3")
	}

	best := BestPerFactor(entries)
	byFactor := map[string]Best{}
	for _, b := range best {
		byFactor[b.Factor] = b
	}
	if byFactor["N"].Name != "light" || byFactor["N"].Value != 10 {
		t.Fatalf("expected light to win sample count: %+v", byFactor["N"])
	}
	if byFactor["score3"].Name != "light" {
		t.Fatalf("expected light to win score3: %+v", byFactor["score3"])
	}
	if len(best) != len(metrics) {
		t.Fatalf("expected a best entry per factor, got %d", len(best))
	}
}

func TestScoreFilesUsesSharedFactorTable(t *testing.T) {
	root := fixture(t)
	table, err := factors.NewTable(factors.Predefined()[:3])
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	entries, err := ScoreFiles(context.Background(), []string{filepath.Join(root, "a.json")}, Options{
		Factors:   table,
		Selection: scoring.Selection{Final: scoring.FinalEqual},
	})
	if err != nil {
		t.Fatalf("score files: %v", err)
	}
	res := entries[0].Result
	if res.Selection.Final != scoring.FinalEqual {
		t.Fatalf("expected shared selection")
	}
	unknown := 0
	for _, w := range res.Warnings {
		if w.Kind == scoring.WarnUnknownReagent {
			unknown++
		}
	}
	// Methanol, Water and Ethanol are missing from the shared table.
	if unknown != 3 {
		t.Fatalf("expected 3 unknown reagent warnings, got %+v", res.Warnings)
	}
}

func TestScoreFilesCancelled(t *testing.T) {
	root := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ScoreFiles(ctx, []string{filepath.Join(root, "a.json")}, Options{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
