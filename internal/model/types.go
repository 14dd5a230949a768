// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/hplcgreen/internal/curve"
)

// GradientStep is one row of a gradient program. PhaseA/PhaseB are the
// composition in percent at the step's time.
type GradientStep struct {
	StepNo   int         `json:"stepNo"`
	Time     float64     `json:"time"`
	PhaseA   float64     `json:"phaseA"`
	PhaseB   float64     `json:"phaseB"`
	FlowRate float64     `json:"flowRate"`
	Curve    curve.Shape `json:"curve"`
}

// ReagentFactor holds the static property record of a reagent.
type ReagentFactor struct {
	ID      string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string  `json:"name" yaml:"name"`
	Density float64 `json:"density" yaml:"density"`

	ReleasePotential float64 `json:"releasePotential" yaml:"releasePotential"`
	FireExplos       float64 `json:"fireExplos" yaml:"fireExplos"`
	ReactDecom       float64 `json:"reactDecom" yaml:"reactDecom"`
	AcuteToxicity    float64 `json:"acuteToxicity" yaml:"acuteToxicity"`

	Irritation      float64 `json:"irritation" yaml:"irritation"`
	ChronicToxicity float64 `json:"chronicToxicity" yaml:"chronicToxicity"`

	Persistency float64 `json:"persistency" yaml:"persistency"`
	AirHazard   float64 `json:"airHazard" yaml:"airHazard"`
	WaterHazard float64 `json:"waterHazard" yaml:"waterHazard"`

	Regeneration float64 `json:"regeneration" yaml:"regeneration"`
	Disposal     float64 `json:"disposal" yaml:"disposal"`

	IsCustom     bool           `json:"isCustom,omitempty" yaml:"isCustom,omitempty"`
	OriginalData *ReagentFactor `json:"originalData,omitempty" yaml:"originalData,omitempty"`
}

// SafetyScore sums the four safety sub-factors.
func (f ReagentFactor) SafetyScore() float64 {
	return f.ReleasePotential + f.FireExplos + f.ReactDecom + f.AcuteToxicity
}

// HealthScore sums the two health sub-factors.
func (f ReagentFactor) HealthScore() float64 {
	return f.Irritation + f.ChronicToxicity
}

// EnvScore sums the three environment sub-factors.
func (f ReagentFactor) EnvScore() float64 {
	return f.Persistency + f.AirHazard + f.WaterHazard
}

// Reagent is a composition entry of a mobile phase.
type Reagent struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// PreTreatmentReagent is a sample preparation reagent with a per-sample volume in mL.
type PreTreatmentReagent struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// EnergyClass is the instrument power class.
type EnergyClass string

// Instrument power classes.
const (
	EnergyLow      EnergyClass = "low"
	EnergyStandard EnergyClass = "standard"
	EnergyHigh     EnergyClass = "high"
)

// PowerKW returns the nominal instrument power in kW.
func (c EnergyClass) PowerKW() float64 {
	switch c {
	case EnergyLow:
		return 0.5
	case EnergyHigh:
		return 2.0
	default:
		return 1.0
	}
}

// ParseEnergyClass resolves a power class name. Empty means standard.
func ParseEnergyClass(value string) (EnergyClass, error) {
	switch EnergyClass(strings.ToLower(strings.TrimSpace(value))) {
	case "", EnergyStandard:
		return EnergyStandard, nil
	case EnergyLow:
		return EnergyLow, nil
	case EnergyHigh:
		return EnergyHigh, nil
	default:
		return "", fmt.Errorf("unknown instrument energy class %q (use low, standard or high)", value)
	}
}

// MethodConfiguration is the top-level unit a user edits and persists.
type MethodConfiguration struct {
	ID                   string                `json:"id,omitempty"`
	Name                 string                `json:"name,omitempty"`
	SampleCount          int                   `json:"sampleCount"`
	PreTreatmentReagents []PreTreatmentReagent `json:"preTreatmentReagents"`
	MobilePhaseA         []Reagent             `json:"mobilePhaseA"`
	MobilePhaseB         []Reagent             `json:"mobilePhaseB"`
	InstrumentType       EnergyClass           `json:"instrumentType,omitempty"`
	InstrumentEnergy     float64               `json:"instrumentEnergy"`
	PretreatmentEnergy   float64               `json:"pretreatmentEnergy"`
	Gradient             []GradientStep        `json:"-"`
}

// ScoreRecord is a stored scoring run.
type ScoreRecord struct {
	RunID       string
	MethodID    string
	MethodName  string
	ScoredAt    time.Time
	Schemes     string
	Score1      float64
	Score2      float64
	Score3      float64
	TotalVolume float64
	Warnings    int
}

// HistoryFilter selects stored score records.
type HistoryFilter struct {
	MethodID string
	Since    *time.Time
	Last     int
}

// ScoreFactor is one stored major factor value of a scoring run.
type ScoreFactor struct {
	Stage  string
	Factor string
	Value  float64
}

// MethodSummary lists a stored method.
type MethodSummary struct {
	ID        string
	Name      string
	UpdatedAt time.Time
}
