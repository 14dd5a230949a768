package report

import "testing"

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	same := MovingAverage([]float64{1, 2}, 1)
	if same[0] != 1 || same[1] != 2 {
		t.Fatalf("expected copy for window 1, got %v", same)
	}
}

func TestSparklineUsesFixedScale(t *testing.T) {
	if got := Sparkline([]float64{0, 100, 150, -3}); got != " @@ " {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{50, 50}); got != "++" {
		t.Fatalf("unexpected mid sparkline %q", got)
	}
}
