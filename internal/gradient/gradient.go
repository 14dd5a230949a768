// Package gradient integrates gradient elution programs into mobile phase volumes.
package gradient

import (
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/hplcgreen/internal/curve"
	"github.com/verte-zerg/hplcgreen/internal/model"
)

// SubSteps is the number of trapezoids used per step interval.
const SubSteps = 200

// ReasonZeroFlow marks a program whose flow rates were never configured.
const ReasonZeroFlow = "flow rates not configured"

const compositionTolerance = 0.01

// ErrInvalid is wrapped by every validation failure of a program.
var ErrInvalid = errors.New("invalid gradient")

// Error describes a malformed gradient program. From and To are step indices;
// both are -1 for program-wide problems and equal for single-step problems.
type Error struct {
	From   int
	To     int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid gradient at %s: %s", e.Field(), e.Reason)
}

// Unwrap exposes ErrInvalid to errors.Is.
func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Field names the offending part of the program.
func (e *Error) Field() string {
	switch {
	case e.From < 0:
		return "gradient"
	case e.From == e.To:
		return fmt.Sprintf("gradient[%d]", e.From)
	default:
		return fmt.Sprintf("gradient[%d..%d]", e.From, e.To)
	}
}

// PhaseVolume is the volume delivered by one mobile phase.
type PhaseVolume struct {
	Volume float64 `json:"volume"`
}

// Interval is the contribution of one step pair.
type Interval struct {
	From     int         `json:"from"`
	To       int         `json:"to"`
	Duration float64     `json:"duration"`
	FlowRate float64     `json:"flowRate"`
	Curve    curve.Shape `json:"curve"`
	VolumeA  float64     `json:"volumeA"`
	VolumeB  float64     `json:"volumeB"`
}

// Result is the outcome of integrating a program.
type Result struct {
	TotalVolume  float64     `json:"totalVolume"`
	TotalTime    float64     `json:"totalTime"`
	MobilePhaseA PhaseVolume `json:"mobilePhaseA"`
	MobilePhaseB PhaseVolume `json:"mobilePhaseB"`
	Intervals    []Interval  `json:"intervals,omitempty"`
	IsValid      bool        `json:"isValid"`
	Reason       string      `json:"reason,omitempty"`
}

// Validate checks ordering, ranges and curve identifiers of a program.
func Validate(steps []model.GradientStep) error {
	if len(steps) < 2 {
		return &Error{From: -1, To: -1, Reason: fmt.Sprintf("need at least 2 steps, got %d", len(steps))}
	}
	for i, s := range steps {
		switch {
		case !finite(s.Time) || s.Time < 0:
			return &Error{From: i, To: i, Reason: "time must be a finite number >= 0"}
		case !finite(s.PhaseA) || s.PhaseA < 0 || s.PhaseA > 100:
			return &Error{From: i, To: i, Reason: "phase A must be between 0 and 100"}
		case !finite(s.PhaseB) || s.PhaseB < 0 || s.PhaseB > 100:
			return &Error{From: i, To: i, Reason: "phase B must be between 0 and 100"}
		case math.Abs(s.PhaseA+s.PhaseB-100) > compositionTolerance:
			return &Error{From: i, To: i, Reason: fmt.Sprintf("phase A + phase B must be 100, got %.2f", s.PhaseA+s.PhaseB)}
		case !finite(s.FlowRate) || s.FlowRate < 0:
			return &Error{From: i, To: i, Reason: "flow rate must be a finite number >= 0"}
		case i > 0 && !s.Curve.Valid():
			return &Error{From: i, To: i, Reason: fmt.Sprintf("unknown curve %d", int(s.Curve))}
		}
		if i > 0 && s.Time-steps[i-1].Time <= 0 {
			return &Error{From: i - 1, To: i, Reason: fmt.Sprintf("time must increase (%.2f -> %.2f)", steps[i-1].Time, s.Time)}
		}
	}
	return nil
}

// Integrate computes the volume of each mobile phase delivered by the program.
// The interval between step i and i+1 uses step i+1's curve and flow rate.
func Integrate(steps []model.GradientStep) (Result, error) {
	if err := Validate(steps); err != nil {
		return Result{}, err
	}
	res := Result{
		Intervals: make([]Interval, 0, len(steps)-1),
		IsValid:   true,
	}
	for i := 0; i+1 < len(steps); i++ {
		iv := integrateInterval(steps[i], steps[i+1])
		iv.From = i
		iv.To = i + 1
		res.Intervals = append(res.Intervals, iv)
		res.MobilePhaseA.Volume += iv.VolumeA
		res.MobilePhaseB.Volume += iv.VolumeB
	}
	res.TotalVolume = res.MobilePhaseA.Volume + res.MobilePhaseB.Volume
	res.TotalTime = steps[len(steps)-1].Time - steps[0].Time
	if allFlowZero(steps) {
		res.IsValid = false
		res.Reason = ReasonZeroFlow
	}
	return res, nil
}

func integrateInterval(from, to model.GradientStep) Interval {
	dt := to.Time - from.Time
	iv := Interval{
		Duration: dt,
		FlowRate: to.FlowRate,
		Curve:    to.Curve,
	}
	if to.FlowRate == 0 {
		return iv
	}
	h := dt / SubSteps
	prev := composition(from.PhaseA, to.PhaseA, to.Curve, 0)
	var areaA, areaB float64
	for k := 1; k <= SubSteps; k++ {
		cur := composition(from.PhaseA, to.PhaseA, to.Curve, float64(k)/SubSteps)
		areaA += (prev + cur) / 2 * h
		// B is summed from its own samples so a phase held at 0 % stays exactly 0.
		areaB += ((100 - prev) + (100 - cur)) / 2 * h
		prev = cur
	}
	// Areas are in percent-minutes.
	iv.VolumeA = areaA / 100 * to.FlowRate
	iv.VolumeB = areaB / 100 * to.FlowRate
	return iv
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func composition(start, end float64, shape curve.Shape, t float64) float64 {
	return start + (end-start)*curve.Evaluate(shape, t)
}

func allFlowZero(steps []model.GradientStep) bool {
	for _, s := range steps {
		if s.FlowRate != 0 {
			return false
		}
	}
	return true
}

// Point is a sampled composition of the program.
type Point struct {
	Time   float64 `json:"time"`
	PhaseA float64 `json:"phaseA"`
	PhaseB float64 `json:"phaseB"`
}

// Trace samples the composition of both phases across the program, with
// perInterval points for each step pair. The first point is the first step.
func Trace(steps []model.GradientStep, perInterval int) ([]Point, error) {
	if err := Validate(steps); err != nil {
		return nil, err
	}
	if perInterval < 1 {
		perInterval = 1
	}
	points := make([]Point, 0, (len(steps)-1)*perInterval+1)
	points = append(points, Point{Time: steps[0].Time, PhaseA: steps[0].PhaseA, PhaseB: 100 - steps[0].PhaseA})
	for i := 0; i+1 < len(steps); i++ {
		from, to := steps[i], steps[i+1]
		dt := to.Time - from.Time
		for k := 1; k <= perInterval; k++ {
			t := float64(k) / float64(perInterval)
			a := composition(from.PhaseA, to.PhaseA, to.Curve, t)
			points = append(points, Point{Time: from.Time + dt*t, PhaseA: a, PhaseB: 100 - a})
		}
	}
	return points, nil
}
