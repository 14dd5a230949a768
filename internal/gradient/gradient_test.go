package gradient

import (
	"errors"
	"math"
	"testing"

	"github.com/verte-zerg/hplcgreen/internal/curve"
	"github.com/verte-zerg/hplcgreen/internal/model"
)

func step(no int, tm, a, flow float64, c curve.Shape) model.GradientStep {
	return model.GradientStep{StepNo: no, Time: tm, PhaseA: a, PhaseB: 100 - a, FlowRate: flow, Curve: c}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestIntegrateLinearCrossFade(t *testing.T) {
	res, err := Integrate([]model.GradientStep{
		step(0, 0, 100, 1.0, curve.Linear),
		step(1, 10, 0, 1.0, curve.Linear),
	})
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if !almostEqual(res.TotalVolume, 10, 1e-9) {
		t.Fatalf("expected total 10 mL, got %v", res.TotalVolume)
	}
	if !almostEqual(res.MobilePhaseA.Volume, 5, 1e-9) || !almostEqual(res.MobilePhaseB.Volume, 5, 1e-9) {
		t.Fatalf("expected 5/5 mL, got %v/%v", res.MobilePhaseA.Volume, res.MobilePhaseB.Volume)
	}
	if res.TotalTime != 10 {
		t.Fatalf("expected total time 10, got %v", res.TotalTime)
	}
	if !res.IsValid || res.Reason != "" {
		t.Fatalf("expected valid result, got %+v", res)
	}
}

func TestIntegrateUsesArrivingStepFlowAndCurve(t *testing.T) {
	res, err := Integrate([]model.GradientStep{
		step(0, 0, 50, 0.2, curve.Linear),
		step(1, 4, 50, 2.0, curve.PostStep),
	})
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	// Constant 50/50 at 2.0 mL/min for 4 min.
	if !almostEqual(res.MobilePhaseA.Volume, 4, 1e-9) || !almostEqual(res.MobilePhaseB.Volume, 4, 1e-9) {
		t.Fatalf("unexpected volumes: %+v", res)
	}
	if res.Intervals[0].FlowRate != 2.0 || res.Intervals[0].Curve != curve.PostStep {
		t.Fatalf("unexpected interval: %+v", res.Intervals[0])
	}
}

func TestIntegrateConvexFrontLoadsChange(t *testing.T) {
	run := func(c curve.Shape) float64 {
		res, err := Integrate([]model.GradientStep{
			step(0, 0, 100, 1, curve.Linear),
			step(1, 10, 0, 1, c),
		})
		if err != nil {
			t.Fatalf("integrate: %v", err)
		}
		return res.MobilePhaseA.Volume
	}
	convex, linear, concave := run(curve.StrongConvex), run(curve.Linear), run(curve.StrongConcave)
	if !(convex < linear && linear < concave) {
		t.Fatalf("expected convex < linear < concave for phase A, got %v %v %v", convex, linear, concave)
	}
	// 1-(1-t)^2 averages 2/3, so A keeps 1/3 of 10 mL.
	if got := run(curve.WeakConvex); !almostEqual(got, 10.0/3, 1e-3) {
		t.Fatalf("unexpected weak-convex volume: %v", got)
	}
}

func TestIntegrateSplitIsAdditive(t *testing.T) {
	steps := []model.GradientStep{
		step(0, 0, 95, 1.0, curve.Linear),
		step(1, 3, 60, 1.2, curve.MediumConvex),
		step(2, 8, 20, 0.8, curve.UltraConcave),
		step(3, 12, 20, 1.0, curve.PreStep),
	}
	whole, err := Integrate(steps)
	if err != nil {
		t.Fatalf("integrate whole: %v", err)
	}
	first, err := Integrate(steps[:3])
	if err != nil {
		t.Fatalf("integrate first: %v", err)
	}
	second, err := Integrate(steps[2:])
	if err != nil {
		t.Fatalf("integrate second: %v", err)
	}
	if !almostEqual(whole.MobilePhaseA.Volume, first.MobilePhaseA.Volume+second.MobilePhaseA.Volume, 1e-9) {
		t.Fatalf("phase A not additive: %v vs %v", whole.MobilePhaseA.Volume, first.MobilePhaseA.Volume+second.MobilePhaseA.Volume)
	}
	if !almostEqual(whole.TotalVolume, first.TotalVolume+second.TotalVolume, 1e-9) {
		t.Fatalf("total not additive")
	}
	if !almostEqual(whole.TotalTime, first.TotalTime+second.TotalTime, 1e-12) {
		t.Fatalf("time not additive")
	}
}

func TestIntegrateZeroFlowIsFlagged(t *testing.T) {
	res, err := Integrate([]model.GradientStep{
		step(0, 0, 90, 0, curve.Linear),
		step(1, 5, 50, 0, curve.Linear),
		step(2, 10, 10, 0, curve.Linear),
	})
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if res.IsValid {
		t.Fatalf("expected invalid result for zero flow")
	}
	if res.Reason != ReasonZeroFlow {
		t.Fatalf("unexpected reason: %q", res.Reason)
	}
	if res.TotalVolume != 0 {
		t.Fatalf("expected zero volume, got %v", res.TotalVolume)
	}
}

func TestIntegrateHeldPhaseIsExactlyZero(t *testing.T) {
	for _, dt := range []float64{0.3, 1, 7.1, 13.7, 42.9} {
		for _, flow := range []float64{0.2, 0.35, 1, 1.7} {
			res, err := Integrate([]model.GradientStep{
				step(0, 0, 100, flow, curve.Linear),
				step(1, dt, 100, flow, curve.Linear),
			})
			if err != nil {
				t.Fatalf("dt=%v flow=%v: %v", dt, flow, err)
			}
			if res.MobilePhaseB.Volume != 0 {
				t.Fatalf("dt=%v flow=%v: expected exactly 0 mL of B, got %v", dt, flow, res.MobilePhaseB.Volume)
			}
			if !almostEqual(res.MobilePhaseA.Volume, dt*flow, 1e-9) {
				t.Fatalf("dt=%v flow=%v: unexpected A volume %v", dt, flow, res.MobilePhaseA.Volume)
			}
		}
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name  string
		steps []model.GradientStep
		field string
	}{
		{"too few", []model.GradientStep{step(0, 0, 50, 1, curve.Linear)}, "gradient"},
		{"non increasing", []model.GradientStep{
			step(0, 0, 50, 1, curve.Linear),
			step(1, 5, 50, 1, curve.Linear),
			step(2, 5, 50, 1, curve.Linear),
		}, "gradient[1..2]"},
		{"bad curve", []model.GradientStep{
			step(0, 0, 50, 1, curve.Linear),
			step(1, 5, 50, 1, curve.Shape(99)),
		}, "gradient[1]"},
		{"bad composition", []model.GradientStep{
			{Time: 0, PhaseA: 60, PhaseB: 30, FlowRate: 1, Curve: curve.Linear},
			step(1, 5, 50, 1, curve.Linear),
		}, "gradient[0]"},
		{"nan phase", []model.GradientStep{
			step(0, 0, 50, 1, curve.Linear),
			{Time: 5, PhaseA: math.NaN(), PhaseB: 50, FlowRate: 1, Curve: curve.Linear},
		}, "gradient[1]"},
		{"inf time", []model.GradientStep{
			step(0, 0, 50, 1, curve.Linear),
			step(1, math.Inf(1), 50, 1, curve.Linear),
		}, "gradient[1]"},
		{"inf flow", []model.GradientStep{
			step(0, 0, 50, math.Inf(1), curve.Linear),
			step(1, 5, 50, 1, curve.Linear),
		}, "gradient[0]"},
	}
	for _, tc := range cases {
		_, err := Integrate(tc.steps)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tc.name, err)
		}
		var gerr *Error
		if !errors.As(err, &gerr) {
			t.Fatalf("%s: expected *Error, got %T", tc.name, err)
		}
		if gerr.Field() != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, gerr.Field())
		}
	}
}

func TestTrace(t *testing.T) {
	points, err := Trace([]model.GradientStep{
		step(0, 0, 100, 1, curve.Linear),
		step(1, 10, 0, 1, curve.Linear),
	}, 10)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(points) != 11 {
		t.Fatalf("expected 11 points, got %d", len(points))
	}
	mid := points[5]
	if !almostEqual(mid.Time, 5, 1e-12) || !almostEqual(mid.PhaseA, 50, 1e-9) || !almostEqual(mid.PhaseB, 50, 1e-9) {
		t.Fatalf("unexpected midpoint: %+v", mid)
	}
}
