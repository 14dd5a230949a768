package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/verte-zerg/hplcgreen/internal/model"
)

const (
	percentTolerance = 0.01
	// Phase volumes at or below volumeTolerance (mL) count as unused.
	volumeTolerance = 1e-9
)

// Phase names used in field paths and components.
const (
	PhaseA = "mobilePhaseA"
	PhaseB = "mobilePhaseB"
)

// Component is the share of a mobile phase volume attributed to one reagent.
type Component struct {
	Phase       string  `json:"phase"`
	ReagentName string  `json:"reagentName"`
	Percentage  float64 `json:"percentage"`
	Volume      float64 `json:"volume"`
}

// Volumes is the per-reagent volume table of a method in mL.
type Volumes struct {
	Instrument  map[string]float64 `json:"instrument"`
	Preparation map[string]float64 `json:"preparation"`
	Components  []Component        `json:"components"`
}

// ValidateComposition checks that a phase's percentages sum to 100 +/- 0.01.
// An empty list is valid only when the phase delivers no measurable volume.
func ValidateComposition(phase string, reagents []model.Reagent, phaseVolume float64) error {
	if len(reagents) == 0 {
		if phaseVolume > volumeTolerance {
			return invalidComposition(phase, fmt.Sprintf("no reagents configured for %.3f mL", phaseVolume))
		}
		return nil
	}
	var sum float64
	for i, r := range reagents {
		if strings.TrimSpace(r.Name) == "" {
			return invalidComposition(fmt.Sprintf("%s[%d]", phase, i), "reagent name is empty")
		}
		if math.IsNaN(r.Percentage) || r.Percentage < 0 {
			return invalidComposition(fmt.Sprintf("%s[%d]", phase, i), "percentage must be >= 0")
		}
		sum += r.Percentage
	}
	if math.Abs(sum-100) > percentTolerance {
		return invalidComposition(phase, fmt.Sprintf("percentages sum to %.2f, expected 100", sum))
	}
	return nil
}

// Distribute splits each phase volume among its reagents and adds the
// pretreatment volumes unchanged. Compositions must already be valid.
func Distribute(volumeA, volumeB float64, phaseA, phaseB []model.Reagent, pre []model.PreTreatmentReagent) (Volumes, error) {
	if err := ValidateComposition(PhaseA, phaseA, volumeA); err != nil {
		return Volumes{}, err
	}
	if err := ValidateComposition(PhaseB, phaseB, volumeB); err != nil {
		return Volumes{}, err
	}
	out := Volumes{
		Instrument:  map[string]float64{},
		Preparation: map[string]float64{},
	}
	out.Components = append(out.Components, split(PhaseA, volumeA, phaseA, out.Instrument)...)
	out.Components = append(out.Components, split(PhaseB, volumeB, phaseB, out.Instrument)...)
	for i, r := range pre {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		if math.IsNaN(r.Volume) || r.Volume < 0 {
			return Volumes{}, invalidComposition(fmt.Sprintf("preTreatmentReagents[%d]", i), "volume must be >= 0")
		}
		if r.Volume == 0 {
			continue
		}
		out.Preparation[name] += r.Volume
	}
	return out, nil
}

func split(phase string, volume float64, reagents []model.Reagent, into map[string]float64) []Component {
	var sum float64
	for _, r := range reagents {
		sum += r.Percentage
	}
	comps := make([]Component, 0, len(reagents))
	for _, r := range reagents {
		v := 0.0
		if sum > 0 {
			v = volume * r.Percentage / sum
		}
		name := strings.TrimSpace(r.Name)
		into[name] += v
		comps = append(comps, Component{Phase: phase, ReagentName: name, Percentage: r.Percentage, Volume: v})
	}
	return comps
}
