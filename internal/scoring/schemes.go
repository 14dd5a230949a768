package scoring

import (
	"fmt"
	"strings"
)

// SafetyScheme weights the four safety sub-factors.
type SafetyScheme int

// Safety schemes. The zero value is the default.
const (
	SafetyPBTBalanced SafetyScheme = iota
	SafetyFrontierFocus
	SafetyPersonnelExposure
	SafetyMaterialTransport
)

// HealthScheme weights the two health sub-factors.
type HealthScheme int

// Health schemes. The zero value is the default.
const (
	HealthAbsoluteBalance HealthScheme = iota
	HealthOccupationalExposure
	HealthOperationProtection
	HealthStrictCompliance
)

// EnvironmentScheme weights the three environment sub-factors.
type EnvironmentScheme int

// Environment schemes. The zero value is the default.
const (
	EnvironmentPBTBalanced EnvironmentScheme = iota
	EnvironmentEmissionCompliance
	EnvironmentDeepImpact
	EnvironmentDegradationPriority
)

// InstrumentScheme weights the six major factors of the instrument stage.
type InstrumentScheme int

// Instrument stage schemes. The zero value is the default.
const (
	InstrumentBalanced InstrumentScheme = iota
	InstrumentSafetyPriority
	InstrumentEcoPriority
	InstrumentEfficiencyPriority
)

// PreparationScheme weights the five major factors of the preparation stage.
type PreparationScheme int

// Preparation stage schemes. The zero value is the default.
const (
	PreparationBalanced PreparationScheme = iota
	PreparationOperationProtection
	PreparationCircularEconomy
	PreparationEnvironmentalTower
)

// FinalScheme splits the final score between the two stages.
type FinalScheme int

// Final schemes. The zero value is the default.
const (
	FinalStandard FinalScheme = iota
	FinalComplexPrep
	FinalDirectOnline
	FinalEqual
)

// SafetyWeights apply to S1..S4.
type SafetyWeights struct {
	ReleasePotential float64 `json:"releasePotential"`
	FireExplos       float64 `json:"fireExplos"`
	ReactDecom       float64 `json:"reactDecom"`
	AcuteToxicity    float64 `json:"acuteToxicity"`
}

// HealthWeights apply to H1 (chronic toxicity) and H2 (irritation).
type HealthWeights struct {
	ChronicToxicity float64 `json:"chronicToxicity"`
	Irritation      float64 `json:"irritation"`
}

// EnvironmentWeights apply to E1..E3.
type EnvironmentWeights struct {
	Persistency float64 `json:"persistency"`
	AirHazard   float64 `json:"airHazard"`
	WaterHazard float64 `json:"waterHazard"`
}

// StageWeights apply to the major factors of a stage. P is always zero for
// the preparation stage.
type StageWeights struct {
	S float64 `json:"S"`
	H float64 `json:"H"`
	E float64 `json:"E"`
	P float64 `json:"P"`
	R float64 `json:"R"`
	D float64 `json:"D"`
}

// FinalWeights split score3 between the stages.
type FinalWeights struct {
	Instrument  float64 `json:"instrument"`
	Preparation float64 `json:"preparation"`
}

var (
	safetyNames = []string{"PBT_Balanced", "Frontier_Focus", "Personnel_Exposure", "Material_Transport"}
	safetyTable = []SafetyWeights{
		{0.25, 0.25, 0.25, 0.25},
		{0.10, 0.60, 0.15, 0.15},
		{0.10, 0.20, 0.20, 0.50},
		{0.50, 0.20, 0.20, 0.10},
	}

	healthNames = []string{"Absolute_Balance", "Occupational_Exposure", "Operation_Protection", "Strict_Compliance"}
	healthTable = []HealthWeights{
		{0.50, 0.50},
		{0.70, 0.30},
		{0.30, 0.70},
		{0.90, 0.10},
	}

	environmentNames = []string{"PBT_Balanced", "Emission_Compliance", "Deep_Impact", "Degradation_Priority"}
	environmentTable = []EnvironmentWeights{
		{0.334, 0.333, 0.333},
		{0.10, 0.80, 0.10},
		{0.10, 0.10, 0.80},
		{0.70, 0.15, 0.15},
	}

	instrumentNames = []string{"Balanced", "Safety_Priority", "Eco_Priority", "Efficiency_Priority"}
	instrumentTable = []StageWeights{
		{S: 0.25, H: 0.15, E: 0.15, P: 0.25, R: 0.10, D: 0.10},
		{S: 0.50, H: 0.20, E: 0.10, P: 0.10, R: 0.05, D: 0.05},
		{S: 0.15, H: 0.10, E: 0.45, P: 0.10, R: 0.10, D: 0.10},
		{S: 0.10, H: 0.10, E: 0.10, P: 0.40, R: 0.15, D: 0.15},
	}

	preparationNames = []string{"Balanced", "Operation_Protection", "Circular_Economy", "Environmental_Tower"}
	preparationTable = []StageWeights{
		{S: 0.25, H: 0.20, E: 0.20, R: 0.175, D: 0.175},
		{S: 0.40, H: 0.30, E: 0.10, R: 0.10, D: 0.10},
		{S: 0.10, H: 0.10, E: 0.20, R: 0.30, D: 0.30},
		{S: 0.15, H: 0.15, E: 0.50, R: 0.10, D: 0.10},
	}

	finalNames = []string{"Standard", "Complex_Prep", "Direct_Online", "Equal"}
	finalTable = []FinalWeights{
		{0.6, 0.4},
		{0.3, 0.7},
		{0.8, 0.2},
		{0.5, 0.5},
	}
)

func schemeName(names []string, idx int) string {
	if idx < 0 || idx >= len(names) {
		return fmt.Sprintf("scheme(%d)", idx)
	}
	return names[idx]
}

func parseScheme(kind string, names []string, value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, nil
	}
	norm := normalizeSchemeName(v)
	for i, name := range names {
		if normalizeSchemeName(name) == norm {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s scheme %q (available: %s)", kind, value, strings.Join(names, ", "))
}

func normalizeSchemeName(v string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(v))
}

func (s SafetyScheme) String() string      { return schemeName(safetyNames, int(s)) }
func (s HealthScheme) String() string      { return schemeName(healthNames, int(s)) }
func (s EnvironmentScheme) String() string { return schemeName(environmentNames, int(s)) }
func (s InstrumentScheme) String() string  { return schemeName(instrumentNames, int(s)) }
func (s PreparationScheme) String() string { return schemeName(preparationNames, int(s)) }
func (s FinalScheme) String() string       { return schemeName(finalNames, int(s)) }

// Weights returns the immutable weight vector of the scheme. Out-of-range
// values yield the level's default weights; Selection.Validate reports them.
func (s SafetyScheme) Weights() SafetyWeights           { return weightsAt(safetyTable, int(s)) }
func (s HealthScheme) Weights() HealthWeights           { return weightsAt(healthTable, int(s)) }
func (s EnvironmentScheme) Weights() EnvironmentWeights { return weightsAt(environmentTable, int(s)) }
func (s InstrumentScheme) Weights() StageWeights        { return weightsAt(instrumentTable, int(s)) }
func (s PreparationScheme) Weights() StageWeights       { return weightsAt(preparationTable, int(s)) }
func (s FinalScheme) Weights() FinalWeights             { return weightsAt(finalTable, int(s)) }

func weightsAt[T any](table []T, i int) T {
	if i < 0 || i >= len(table) {
		return table[0]
	}
	return table[i]
}

func (s SafetyScheme) valid() bool      { return s >= 0 && int(s) < len(safetyNames) }
func (s HealthScheme) valid() bool      { return s >= 0 && int(s) < len(healthNames) }
func (s EnvironmentScheme) valid() bool { return s >= 0 && int(s) < len(environmentNames) }
func (s InstrumentScheme) valid() bool  { return s >= 0 && int(s) < len(instrumentNames) }
func (s PreparationScheme) valid() bool { return s >= 0 && int(s) < len(preparationNames) }
func (s FinalScheme) valid() bool       { return s >= 0 && int(s) < len(finalNames) }

func (s SafetyScheme) MarshalText() ([]byte, error)      { return []byte(s.String()), nil }
func (s HealthScheme) MarshalText() ([]byte, error)      { return []byte(s.String()), nil }
func (s EnvironmentScheme) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s InstrumentScheme) MarshalText() ([]byte, error)  { return []byte(s.String()), nil }
func (s PreparationScheme) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s FinalScheme) MarshalText() ([]byte, error)       { return []byte(s.String()), nil }

func (s *SafetyScheme) UnmarshalText(b []byte) error {
	i, err := parseScheme(LevelSafety, safetyNames, string(b))
	if err != nil {
		return err
	}
	*s = SafetyScheme(i)
	return nil
}

func (s *HealthScheme) UnmarshalText(b []byte) error {
	i, err := parseScheme(LevelHealth, healthNames, string(b))
	if err != nil {
		return err
	}
	*s = HealthScheme(i)
	return nil
}

func (s *EnvironmentScheme) UnmarshalText(b []byte) error {
	i, err := parseScheme(LevelEnvironment, environmentNames, string(b))
	if err != nil {
		return err
	}
	*s = EnvironmentScheme(i)
	return nil
}

func (s *InstrumentScheme) UnmarshalText(b []byte) error {
	i, err := parseScheme(LevelInstrument, instrumentNames, string(b))
	if err != nil {
		return err
	}
	*s = InstrumentScheme(i)
	return nil
}

func (s *PreparationScheme) UnmarshalText(b []byte) error {
	i, err := parseScheme(LevelPreparation, preparationNames, string(b))
	if err != nil {
		return err
	}
	*s = PreparationScheme(i)
	return nil
}

func (s *FinalScheme) UnmarshalText(b []byte) error {
	i, err := parseScheme(LevelFinal, finalNames, string(b))
	if err != nil {
		return err
	}
	*s = FinalScheme(i)
	return nil
}

// Selection levels.
const (
	LevelSafety      = "safety"
	LevelHealth      = "health"
	LevelEnvironment = "environment"
	LevelInstrument  = "instrument"
	LevelPreparation = "preparation"
	LevelFinal       = "final"
)

// Selection picks one named scheme per aggregation level. The zero value
// selects every default.
type Selection struct {
	Safety      SafetyScheme      `json:"safety"`
	Health      HealthScheme      `json:"health"`
	Environment EnvironmentScheme `json:"environment"`
	Instrument  InstrumentScheme  `json:"instrument"`
	Preparation PreparationScheme `json:"preparation"`
	Final       FinalScheme       `json:"final"`
}

// Set assigns the scheme of one level by name.
func (s *Selection) Set(level, name string) error {
	b := []byte(name)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelSafety:
		return s.Safety.UnmarshalText(b)
	case LevelHealth:
		return s.Health.UnmarshalText(b)
	case LevelEnvironment, "env":
		return s.Environment.UnmarshalText(b)
	case LevelInstrument:
		return s.Instrument.UnmarshalText(b)
	case LevelPreparation, "prep":
		return s.Preparation.UnmarshalText(b)
	case LevelFinal:
		return s.Final.UnmarshalText(b)
	default:
		return fmt.Errorf("unknown scheme level %q", level)
	}
}

// Validate rejects out-of-range enum values.
func (s Selection) Validate() error {
	switch {
	case !s.Safety.valid():
		return fmt.Errorf("unknown safety scheme %d", int(s.Safety))
	case !s.Health.valid():
		return fmt.Errorf("unknown health scheme %d", int(s.Health))
	case !s.Environment.valid():
		return fmt.Errorf("unknown environment scheme %d", int(s.Environment))
	case !s.Instrument.valid():
		return fmt.Errorf("unknown instrument scheme %d", int(s.Instrument))
	case !s.Preparation.valid():
		return fmt.Errorf("unknown preparation scheme %d", int(s.Preparation))
	case !s.Final.valid():
		return fmt.Errorf("unknown final scheme %d", int(s.Final))
	}
	return nil
}

// String renders the selection as level=name pairs in a fixed order.
func (s Selection) String() string {
	return fmt.Sprintf("safety=%s health=%s environment=%s instrument=%s preparation=%s final=%s",
		s.Safety, s.Health, s.Environment, s.Instrument, s.Preparation, s.Final)
}

// SchemeNames lists the available scheme names per level.
func SchemeNames() map[string][]string {
	return map[string][]string{
		LevelSafety:      append([]string(nil), safetyNames...),
		LevelHealth:      append([]string(nil), healthNames...),
		LevelEnvironment: append([]string(nil), environmentNames...),
		LevelInstrument:  append([]string(nil), instrumentNames...),
		LevelPreparation: append([]string(nil), preparationNames...),
		LevelFinal:       append([]string(nil), finalNames...),
	}
}

// Levels returns the selection levels in display order.
func Levels() []string {
	return []string{LevelSafety, LevelHealth, LevelEnvironment, LevelInstrument, LevelPreparation, LevelFinal}
}
