package scoring

import (
	"math"
	"testing"
)

func TestSchemeWeightsSumToOne(t *testing.T) {
	const tol = 1e-9
	for i, w := range safetyTable {
		if sum := w.ReleasePotential + w.FireExplos + w.ReactDecom + w.AcuteToxicity; math.Abs(sum-1) > tol {
			t.Fatalf("safety %s sums to %v", SafetyScheme(i), sum)
		}
	}
	for i, w := range healthTable {
		if sum := w.ChronicToxicity + w.Irritation; math.Abs(sum-1) > tol {
			t.Fatalf("health %s sums to %v", HealthScheme(i), sum)
		}
	}
	for i, w := range environmentTable {
		if sum := w.Persistency + w.AirHazard + w.WaterHazard; math.Abs(sum-1) > tol {
			t.Fatalf("environment %s sums to %v", EnvironmentScheme(i), sum)
		}
	}
	for i, w := range instrumentTable {
		if sum := w.S + w.H + w.E + w.P + w.R + w.D; math.Abs(sum-1) > tol {
			t.Fatalf("instrument %s sums to %v", InstrumentScheme(i), sum)
		}
	}
	for i, w := range preparationTable {
		if w.P != 0 {
			t.Fatalf("preparation %s must not weight P", PreparationScheme(i))
		}
		if sum := w.S + w.H + w.E + w.R + w.D; math.Abs(sum-1) > tol {
			t.Fatalf("preparation %s sums to %v", PreparationScheme(i), sum)
		}
	}
	for i, w := range finalTable {
		if sum := w.Instrument + w.Preparation; math.Abs(sum-1) > tol {
			t.Fatalf("final %s sums to %v", FinalScheme(i), sum)
		}
	}
}

func TestSelectionSet(t *testing.T) {
	var sel Selection
	pairs := [][2]string{
		{"safety", "frontier-focus"},
		{"health", "Strict_Compliance"},
		{"env", "deep impact"},
		{"instrument", "ECO_PRIORITY"},
		{"prep", "Circular_Economy"},
		{"final", "Direct_Online"},
	}
	for _, p := range pairs {
		if err := sel.Set(p[0], p[1]); err != nil {
			t.Fatalf("set %s=%s: %v", p[0], p[1], err)
		}
	}
	want := Selection{
		Safety:      SafetyFrontierFocus,
		Health:      HealthStrictCompliance,
		Environment: EnvironmentDeepImpact,
		Instrument:  InstrumentEcoPriority,
		Preparation: PreparationCircularEconomy,
		Final:       FinalDirectOnline,
	}
	if sel != want {
		t.Fatalf("unexpected selection: %s", sel)
	}
	if err := sel.Set("final", "Mostly_Vibes"); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
	if sel.Final != FinalDirectOnline {
		t.Fatalf("failed Set must not change the selection")
	}
	if err := sel.Set("budget", "Balanced"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := (Selection{Final: FinalScheme(9)}).Validate(); err == nil {
		t.Fatalf("expected validation error for out-of-range scheme")
	}
}

func TestSelectionDefaults(t *testing.T) {
	var sel Selection
	if got := sel.String(); got != "safety=PBT_Balanced health=Absolute_Balance environment=PBT_Balanced instrument=Balanced preparation=Balanced final=Standard" {
		t.Fatalf("unexpected default selection: %s", got)
	}
	if w := sel.Environment.Weights(); w.Persistency != 0.334 {
		t.Fatalf("unexpected default environment weights: %+v", w)
	}
}
