package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{10, 20, 30, 20, 10}},
		{Name: "B", Values: []float64{10, 10, 20, 30, 40}},
	}, PlotOptions{Width: 20, Height: 4, Min: 0, Max: 100, Unit: "%", XLabel: "0 → 10 min"})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Test Plot", "Legend:", "0 → 10 min", "100%", "50%", "0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expected := 1 + 4 + 1 + 1
	if len(lines) != expected {
		t.Fatalf("expected %d lines of output, got %d", expected, len(lines))
	}
}

func TestPlotSeriesSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "Empty", []Series{{Name: "A"}}, PlotOptions{}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := runewidth.StringWidth(widestAxisLabel) + runewidth.StringWidth(axisSeparator)
	total := 80
	expected := total - axisWidth
	if got := PlotWidthFor(total); got != expected {
		t.Fatalf("expected width %d, got %d", expected, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestValueToRowClamps(t *testing.T) {
	if got := valueToRow(150, 0, 100, 8); got != 0 {
		t.Fatalf("expected top row, got %d", got)
	}
	if got := valueToRow(-5, 0, 100, 8); got != 7 {
		t.Fatalf("expected bottom row, got %d", got)
	}
}
