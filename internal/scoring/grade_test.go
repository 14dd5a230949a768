package scoring

import "testing"

func TestGradeFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{-5, GradeExcellent},
		{0, GradeExcellent},
		{19.99, GradeExcellent},
		{20, GradeGood},
		{45, GradeAverage},
		{79.9, GradePoor},
		{80, GradeVeryPoor},
		{150, GradeVeryPoor},
	}
	for _, tc := range cases {
		if got := GradeFor(tc.score); got != tc.want {
			t.Fatalf("GradeFor(%v): expected %s, got %s", tc.score, tc.want, got)
		}
	}
	if GradeVeryPoor.Hex() != "#d32f2f" {
		t.Fatalf("unexpected hex: %s", GradeVeryPoor.Hex())
	}
}

func TestColorFor(t *testing.T) {
	if got := ColorFor(0); got != "#2e7d32" {
		t.Fatalf("unexpected colour at 0: %s", got)
	}
	if got := ColorFor(40); got != "#ffd54f" {
		t.Fatalf("unexpected colour at 40: %s", got)
	}
	if got := ColorFor(100); got != "#d32f2f" {
		t.Fatalf("unexpected colour at 100: %s", got)
	}
	if got := ColorFor(10); got != "#58a25b" {
		t.Fatalf("unexpected interpolated colour: %s", got)
	}
}
