// Package compare scores many project files and ranks them.
package compare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/logger"
	"github.com/verte-zerg/hplcgreen/internal/project"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

// DefaultWorkers bounds concurrent file scoring.
const DefaultWorkers = 4

// Entry is the outcome of scoring one file.
type Entry struct {
	Path        string
	Name        string
	Owner       string
	Rank        int
	SampleCount int
	Result      scoring.Result
	// Err is set when the file was skipped.
	Err error
}

// Skipped reports whether the file could not be scored.
func (e Entry) Skipped() bool {
	return e.Err != nil
}

// Encrypted reports whether the file was skipped for carrying an encrypted payload.
func (e Entry) Encrypted() bool {
	return errors.Is(e.Err, project.ErrEncrypted)
}

// Options control a comparison run.
type Options struct {
	// Factors overrides the factor tables stored in the files. When nil each
	// file's own table is used, falling back to the predefined table.
	Factors   scoring.FactorSource
	Selection scoring.Selection
	Workers   int
	Log       *logger.Logger
}

// ExpandPatterns resolves glob patterns (with ** support) relative to root.
// Plain file paths pass through. The result is sorted and deduplicated.
func ExpandPatterns(root string, patterns []string) ([]string, error) {
	if root == "" {
		root = "."
	}
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		base, pat := root, filepath.ToSlash(pattern)
		if filepath.IsAbs(pattern) {
			base, pat = doublestar.SplitPattern(pat)
			base = filepath.FromSlash(base)
		}
		if !strings.ContainsAny(pat, "*?[{") {
			full := filepath.Join(base, filepath.FromSlash(pat))
			info, err := os.Stat(full)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				add(full)
			}
			continue
		}
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(os.DirFS(base), pat)
		if err != nil {
			return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			full := filepath.Join(base, filepath.FromSlash(match))
			info, err := os.Stat(full)
			if err != nil || info.IsDir() {
				continue
			}
			add(full)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ScoreFiles scores every path with a bounded worker pool. Per-file failures
// are recorded on the entry; only cancellation aborts the run. Entries keep
// the order of paths.
func ScoreFiles(ctx context.Context, paths []string, opts Options) ([]Entry, error) {
	parser, err := project.NewParser()
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	pipeline := scoring.NewPipeline(log)

	entries := make([]Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries[i] = scoreFile(parser, pipeline, path, opts)
			if entries[i].Skipped() {
				log.Warn("comparison file skipped", "path", path, "error", entries[i].Err.Error())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scoreFile(parser *project.Parser, pipeline *scoring.Pipeline, path string, opts Options) Entry {
	entry := Entry{Path: path, Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	doc, err := parser.Load(path)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Owner = doc.Owner
	if doc.Methods.Name != "" {
		entry.Name = doc.Methods.Name
	}
	entry.SampleCount = doc.Methods.SampleCount

	source := opts.Factors
	if source == nil {
		items := doc.Factors
		if len(items) == 0 {
			items = factors.Predefined()
		}
		table, err := factors.NewTable(items)
		if err != nil {
			entry.Err = err
			return entry
		}
		source = table
	}
	res, err := pipeline.Score(doc.Method(), source, opts.Selection)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Result = res
	return entry
}

// Rank orders scored entries by final score (lower is greener) and assigns
// ranks from 1. Skipped entries follow, unranked, in path order.
func Rank(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Skipped() != b.Skipped() {
			return !a.Skipped()
		}
		if !a.Skipped() && a.Result.Final.Score3 != b.Result.Final.Score3 {
			return a.Result.Final.Score3 < b.Result.Final.Score3
		}
		return a.Path < b.Path
	})
	rank := 0
	for i := range out {
		if out[i].Skipped() {
			out[i].Rank = 0
			continue
		}
		rank++
		out[i].Rank = rank
	}
	return out
}

// Best names the entry holding the best value of one comparison factor.
type Best struct {
	Factor string
	Name   string
	Path   string
	Value  float64
}

type metric struct {
	name           string
	higherIsBetter bool
	value          func(Entry) float64
}

var metrics = []metric{
	{name: "score1", value: func(e Entry) float64 { return e.Result.Instrument.Score1 }},
	{name: "score2", value: func(e Entry) float64 { return e.Result.Preparation.Score2 }},
	{name: "score3", value: func(e Entry) float64 { return e.Result.Final.Score3 }},
	{name: "S", value: func(e Entry) float64 { return e.Result.Legacy.TotalS }},
	{name: "H", value: func(e Entry) float64 { return e.Result.Legacy.TotalH }},
	{name: "E", value: func(e Entry) float64 { return e.Result.Legacy.TotalE }},
	{name: "R", value: func(e Entry) float64 { return e.Result.Legacy.TotalR }},
	{name: "D", value: func(e Entry) float64 { return e.Result.Legacy.TotalD }},
	{name: "P", value: func(e Entry) float64 { return e.Result.Legacy.P }},
	{name: "N", higherIsBetter: true, value: func(e Entry) float64 { return float64(e.SampleCount) }},
	{name: "per-sample", value: func(e Entry) float64 { return e.Result.Legacy.PerSample }},
}

// BestPerFactor returns, per factor, the scored entry with the lowest value
// (highest for sample count). Ties keep the earlier entry.
func BestPerFactor(entries []Entry) []Best {
	var out []Best
	for _, m := range metrics {
		var best *Best
		for _, e := range entries {
			if e.Skipped() {
				continue
			}
			v := m.value(e)
			better := best == nil || v < best.Value
			if m.higherIsBetter {
				better = best == nil || v > best.Value
			}
			if better {
				best = &Best{Factor: m.name, Name: e.Name, Path: e.Path, Value: v}
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	return out
}
