package scoring

import (
	"sort"

	"github.com/verte-zerg/hplcgreen/internal/model"
)

// FactorSource is a read-only reagent factor table keyed by name.
type FactorSource interface {
	Lookup(name string) (model.ReagentFactor, bool)
	Len() int
}

// FactorList is a FactorSource backed by a slice. First match wins.
type FactorList []model.ReagentFactor

// Lookup implements FactorSource.
func (l FactorList) Lookup(name string) (model.ReagentFactor, bool) {
	for _, f := range l {
		if f.Name == name {
			return f, true
		}
	}
	return model.ReagentFactor{}, false
}

// Len implements FactorSource.
func (l FactorList) Len() int {
	return len(l)
}

// SubFactorScores holds normalized sub-factor scores (0-100 each).
type SubFactorScores struct {
	ReleasePotential float64 `json:"S1"`
	FireExplos       float64 `json:"S2"`
	ReactDecom       float64 `json:"S3"`
	AcuteToxicity    float64 `json:"S4"`
	ChronicToxicity  float64 `json:"H1"`
	Irritation       float64 `json:"H2"`
	Persistency      float64 `json:"E1"`
	AirHazard        float64 `json:"E2"`
	WaterHazard      float64 `json:"E3"`
	Regeneration     float64 `json:"R"`
	Disposal         float64 `json:"D"`
}

func (s SubFactorScores) add(o SubFactorScores) SubFactorScores {
	return SubFactorScores{
		ReleasePotential: s.ReleasePotential + o.ReleasePotential,
		FireExplos:       s.FireExplos + o.FireExplos,
		ReactDecom:       s.ReactDecom + o.ReactDecom,
		AcuteToxicity:    s.AcuteToxicity + o.AcuteToxicity,
		ChronicToxicity:  s.ChronicToxicity + o.ChronicToxicity,
		Irritation:       s.Irritation + o.Irritation,
		Persistency:      s.Persistency + o.Persistency,
		AirHazard:        s.AirHazard + o.AirHazard,
		WaterHazard:      s.WaterHazard + o.WaterHazard,
		Regeneration:     s.Regeneration + o.Regeneration,
		Disposal:         s.Disposal + o.Disposal,
	}
}

func (s SubFactorScores) clamped() SubFactorScores {
	return SubFactorScores{
		ReleasePotential: clampScore(s.ReleasePotential),
		FireExplos:       clampScore(s.FireExplos),
		ReactDecom:       clampScore(s.ReactDecom),
		AcuteToxicity:    clampScore(s.AcuteToxicity),
		ChronicToxicity:  clampScore(s.ChronicToxicity),
		Irritation:       clampScore(s.Irritation),
		Persistency:      clampScore(s.Persistency),
		AirHazard:        clampScore(s.AirHazard),
		WaterHazard:      clampScore(s.WaterHazard),
		Regeneration:     clampScore(s.Regeneration),
		Disposal:         clampScore(s.Disposal),
	}
}

// MajorFactors are the six top-level scoring dimensions.
type MajorFactors struct {
	S float64 `json:"S"`
	H float64 `json:"H"`
	E float64 `json:"E"`
	P float64 `json:"P"`
	R float64 `json:"R"`
	D float64 `json:"D"`
}

// Weighted applies stage weights.
func (m MajorFactors) Weighted(w StageWeights) float64 {
	return m.S*w.S + m.H*w.H + m.E*w.E + m.P*w.P + m.R*w.R + m.D*w.D
}

// ReagentScore is the contribution of one reagent.
type ReagentScore struct {
	Name             string          `json:"name"`
	Volume           float64         `json:"volume"`
	Mass             float64         `json:"mass"`
	SubFactors       SubFactorScores `json:"sub_factors"`
	S                float64         `json:"S"`
	H                float64         `json:"H"`
	E                float64         `json:"E"`
	RegenerationLoad float64         `json:"regeneration_load"`
	DisposalLoad     float64         `json:"disposal_load"`
}

// ScoreReagent converts a volume to mass and scores every sub-factor, then
// rolls S/H/E up with the selected intra-factor weights.
func ScoreReagent(name string, volume float64, f model.ReagentFactor, sel Selection) ReagentScore {
	mass := volume * f.Density
	if !(mass > 0) {
		mass = 0
	}
	sub := SubFactorScores{
		ReleasePotential: SubFactorScore(mass * f.ReleasePotential),
		FireExplos:       SubFactorScore(mass * f.FireExplos),
		ReactDecom:       SubFactorScore(mass * f.ReactDecom),
		AcuteToxicity:    SubFactorScore(mass * f.AcuteToxicity),
		ChronicToxicity:  SubFactorScore(mass * f.ChronicToxicity),
		Irritation:       SubFactorScore(mass * f.Irritation),
		Persistency:      SubFactorScore(mass * f.Persistency),
		AirHazard:        SubFactorScore(mass * f.AirHazard),
		WaterHazard:      SubFactorScore(mass * f.WaterHazard),
		Regeneration:     SubFactorScore(mass * f.Regeneration),
		Disposal:         SubFactorScore(mass * f.Disposal),
	}
	sw := sel.Safety.Weights()
	hw := sel.Health.Weights()
	ew := sel.Environment.Weights()
	return ReagentScore{
		Name:       name,
		Volume:     volume,
		Mass:       mass,
		SubFactors: sub,
		S: sub.ReleasePotential*sw.ReleasePotential +
			sub.FireExplos*sw.FireExplos +
			sub.ReactDecom*sw.ReactDecom +
			sub.AcuteToxicity*sw.AcuteToxicity,
		H: sub.ChronicToxicity*hw.ChronicToxicity +
			sub.Irritation*hw.Irritation,
		E: sub.Persistency*ew.Persistency +
			sub.AirHazard*ew.AirHazard +
			sub.WaterHazard*ew.WaterHazard,
		RegenerationLoad: mass * nonNegative(f.Regeneration),
		DisposalLoad:     mass * nonNegative(f.Disposal),
	}
}

// StageResult is the breakdown of one stage.
type StageResult struct {
	Volumes          map[string]float64 `json:"volumes"`
	Masses           map[string]float64 `json:"masses"`
	Reagents         []ReagentScore     `json:"reagents"`
	SubFactors       SubFactorScores    `json:"sub_factors"`
	Major            MajorFactors       `json:"major_factors"`
	RegenerationLoad float64            `json:"regeneration_load"`
	DisposalLoad     float64            `json:"disposal_load"`
	EnergyKWh        float64            `json:"energy_kwh"`
}

// scoreStage sums per-reagent S/H/E (capped at 100) and renormalizes the
// stage R/D loads with the aggregate transform. Reagents missing from the
// factor table are skipped and reported.
func scoreStage(stage string, volumes map[string]float64, factors FactorSource, sel Selection) (StageResult, []Warning) {
	res := StageResult{
		Volumes: map[string]float64{},
		Masses:  map[string]float64{},
	}
	var warnings []Warning
	var sum SubFactorScores
	var s, h, e float64
	for _, name := range sortedKeys(volumes) {
		volume := volumes[name]
		res.Volumes[name] = volume
		f, ok := factors.Lookup(name)
		if !ok {
			warnings = append(warnings, Warning{
				Kind:    WarnUnknownReagent,
				Subject: name,
				Stage:   stage,
				Message: "reagent not found in factor table; contribution skipped",
			})
			continue
		}
		rs := ScoreReagent(name, volume, f, sel)
		res.Masses[name] = rs.Mass
		res.Reagents = append(res.Reagents, rs)
		sum = sum.add(rs.SubFactors)
		s += rs.S
		h += rs.H
		e += rs.E
		res.RegenerationLoad += rs.RegenerationLoad
		res.DisposalLoad += rs.DisposalLoad
	}
	res.SubFactors = sum.clamped()
	res.Major = MajorFactors{
		S: clampScore(s),
		H: clampScore(h),
		E: clampScore(e),
		R: AggregateScore(res.RegenerationLoad),
		D: AggregateScore(res.DisposalLoad),
	}
	return res, warnings
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNegative(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
