// Package factors manages the reagent factor table.
package factors

import (
	"strconv"

	"github.com/verte-zerg/hplcgreen/internal/model"
)

// DataVersion identifies the predefined table. Stored tables written with a
// different version are replaced by Predefined.
const DataVersion = 2

type seed struct {
	name     string
	density  float64
	safety   float64
	health   float64
	env      float64
	disposal float64
}

var seeds = []seed{
	{"Acetone", 0.791, 1.995, 0.809, 0.310, 2},
	{"Acetonitrile", 0.786, 2.724, 1.056, 0.772, 2},
	{"Chloroform", 1.483, 1.077, 1.425, 1.435, 2},
	{"CO2", 0, 0, 0, 0, 0},
	{"Dichloromethane", 1.327, 2.618, 0.638, 0.343, 2},
	{"Ethanol", 0.789, 1.872, 0.204, 0.485, 2},
	{"Ethyl acetate", 0.902, 1.895, 0.796, 0.199, 2},
	{"Heptane", 0.684, 1.925, 0.784, 1.089, 2},
	{"Hexane (n)", 0.659, 2.004, 0.974, 1.100, 2},
	{"Isooctane", 0.692, 1.630, 0.330, 1.555, 2},
	{"Isopropanol", 0.785, 1.874, 0.885, 0.540, 2},
	{"Methanol", 0.791, 1.912, 0.430, 0.317, 2},
	{"Sulfuric acid 96%", 1.84, 1.756, 2.000, 1.985, 2},
	{"t-butyl methyl ether", 0.74, 1.720, 0.570, 1.150, 2},
	{"Tetrahydrofuran", 0.889, 1.965, 0.990, 0.900, 2},
	{"Water", 0, 0, 0, 0, 0},
}

// Predefined returns a fresh copy of the seeded reagent table. Only the
// aggregate safety, health and environment scores are published for these
// reagents.
func Predefined() []model.ReagentFactor {
	out := make([]model.ReagentFactor, 0, len(seeds))
	for i, s := range seeds {
		out = append(out, fromSeed(strconv.Itoa(i+1), s))
	}
	return out
}

func fromSeed(id string, s seed) model.ReagentFactor {
	f := model.ReagentFactor{
		ID:       id,
		Name:     s.name,
		Density:  s.density,
		Disposal: s.disposal,
	}
	return WithAggregates(f, s.safety, s.health, s.env)
}

// WithAggregates replaces the sub-factors of f with even splits of the
// aggregate safety, health and environment scores.
func WithAggregates(f model.ReagentFactor, safety, health, env float64) model.ReagentFactor {
	f.ReleasePotential = safety / 4
	f.FireExplos = safety / 4
	f.ReactDecom = safety / 4
	f.AcuteToxicity = safety / 4
	f.Irritation = health / 2
	f.ChronicToxicity = health / 2
	f.Persistency = env / 3
	f.AirHazard = env / 3
	f.WaterHazard = env / 3
	return f
}

func predefinedByName(name string) (model.ReagentFactor, bool) {
	for i, s := range seeds {
		if s.name == name {
			return fromSeed(strconv.Itoa(i+1), s), true
		}
	}
	return model.ReagentFactor{}, false
}

// EnsureCurrent returns the table to use given what was stored. The
// predefined table wins when the stored version differs, the stored table is
// empty, or the CO2 and Water baselines are missing. The boolean reports
// whether the stored table was replaced.
func EnsureCurrent(stored []model.ReagentFactor, storedVersion int) ([]model.ReagentFactor, bool) {
	if len(stored) == 0 || storedVersion != DataVersion {
		return Predefined(), true
	}
	var hasCO2, hasWater bool
	for _, f := range stored {
		switch f.Name {
		case "CO2":
			hasCO2 = true
		case "Water":
			hasWater = true
		}
	}
	if !hasCO2 || !hasWater {
		return Predefined(), true
	}
	return stored, false
}
