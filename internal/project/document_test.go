package project

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/hplcgreen/internal/curve"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

const legacyProject = `{
  "version": "1.0.0",
  "lastModified": "2025-03-01T10:00:00.000Z",
  "methods": {
    "sampleCount": 4,
    "preTreatmentReagents": [{"id": "1", "name": "Methanol", "volume": 2}],
    "mobilePhaseA": [{"id": "a", "name": "Methanol", "percentage": 60}, {"id": "b", "name": "Water", "percentage": 40}],
    "mobilePhaseB": [{"id": "c", "name": "Acetonitrile", "percentage": 100}]
  },
  "factors": [
    {"id": "2", "name": "Acetonitrile", "density": 0.786, "safetyScore": 2.724, "healthScore": 1.056, "envScore": 0.772, "recycleScore": 0, "disposal": 2, "power": 2},
    {"id": "12", "name": "Methanol", "density": 0.791, "safetyScore": 1.912, "healthScore": 0.43, "envScore": 0.317, "recycleScore": 0, "disposal": 2, "power": 3},
    {"id": "16", "name": "Water", "density": 0, "safetyScore": 0, "healthScore": 0, "envScore": 0, "recycleScore": 0, "disposal": 0, "power": 0}
  ],
  "gradient": [
    {"id": "s0", "stepNo": 0, "time": 0, "phaseA": 100, "phaseB": 0, "flowRate": 1, "curve": "linear"},
    {"id": "s1", "stepNo": 1, "time": 10, "phaseA": 0, "phaseB": 100, "flowRate": 1, "curve": "linear"}
  ]
}`

func TestParseLegacyDocument(t *testing.T) {
	doc, err := Parse([]byte(legacyProject))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Methods.SampleCount != 4 || len(doc.Methods.MobilePhaseA) != 2 {
		t.Fatalf("unexpected methods: %+v", doc.Methods)
	}
	if len(doc.Gradient.Steps) != 2 || doc.Gradient.Steps[1].Curve != curve.Linear {
		t.Fatalf("unexpected gradient: %+v", doc.Gradient)
	}
	if len(doc.Factors) != 3 {
		t.Fatalf("expected 3 factors, got %d", len(doc.Factors))
	}
	acn := doc.Factors[0]
	if math.Abs(acn.SafetyScore()-2.724) > 1e-9 || math.Abs(acn.AcuteToxicity-0.681) > 1e-9 {
		t.Fatalf("expected aggregate split, got %+v", acn)
	}
	if doc.Selection() != (scoring.Selection{}) {
		t.Fatalf("expected default selection")
	}

	res, err := scoring.Score(doc.Method(), scoring.FactorList(doc.Factors), doc.Selection())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if math.Abs(res.Volumes.Instrument["Methanol"]-3) > 1e-9 {
		t.Fatalf("expected 3 mL methanol, got %v", res.Volumes.Instrument["Methanol"])
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"negativeFlow":   `{"gradient": [{"time": 0, "phaseA": 50, "phaseB": 50, "flowRate": -1}]}`,
		"phaseOver100":   `{"gradient": {"steps": [{"time": 0, "phaseA": 150, "phaseB": 0, "flowRate": 1}]}}`,
		"emptyFactor":    `{"factors": [{"name": ""}]}`,
		"badInstrument":  `{"methods": {"instrumentType": "nuclear"}}`,
		"stringSamples":  `{"methods": {"sampleCount": "four"}}`,
		"missingPercent": `{"methods": {"mobilePhaseA": [{"name": "Water"}]}}`,
	}
	for name, input := range cases {
		_, err := Parse([]byte(input))
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: expected schema error, got %v", name, err)
		}
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestEnvelope(t *testing.T) {
	wrapped := `{"encrypted": false, "owner": "lab-3", "data": ` + legacyProject + `}`
	doc, err := Parse([]byte(wrapped))
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	if doc.Owner != "lab-3" || len(doc.Factors) != 3 {
		t.Fatalf("unexpected envelope document: owner=%q factors=%d", doc.Owner, len(doc.Factors))
	}

	stringData := `{"encrypted": false, "owner": "lab-3", "data": "{\"methods\": {\"sampleCount\": 2}}"}`
	doc, err = Parse([]byte(stringData))
	if err != nil {
		t.Fatalf("parse string payload: %v", err)
	}
	if doc.Methods.SampleCount != 2 {
		t.Fatalf("unexpected sample count: %d", doc.Methods.SampleCount)
	}

	_, err = Parse([]byte(`{"encrypted": true, "owner": "lab-3", "data": "U2FsdGVk"}`))
	if !errors.Is(err, ErrEncrypted) {
		t.Fatalf("expected encrypted error, got %v", err)
	}
}

func TestRefreshAndSaveRoundTrip(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("new parser: %v", err)
	}
	doc, err := p.Parse([]byte(legacyProject))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc.Schemes = &scoring.Selection{Final: scoring.FinalEqual}
	if err := doc.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	calc := doc.Gradient.Calculations
	if calc == nil || math.Abs(calc.TotalVolume-10) > 1e-9 || calc.TotalTime != 10 {
		t.Fatalf("unexpected calculations: %+v", calc)
	}
	if len(calc.MobilePhaseA.Components) != 2 || calc.MobilePhaseA.Components[0].ReagentName != "Methanol" {
		t.Fatalf("unexpected phase A components: %+v", calc.MobilePhaseA.Components)
	}
	if doc.Gradient.IsValid == nil || !*doc.Gradient.IsValid {
		t.Fatalf("expected valid gradient")
	}

	path := filepath.Join(t.TempDir(), "method.json")
	if err := Save(path, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"calculations"`) || !strings.Contains(string(raw), `"final": "Equal"`) {
		t.Fatalf("expected cached calculations and schemes in output:\n%s", raw)
	}
	reloaded, err := p.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Selection().Final != scoring.FinalEqual || len(reloaded.Gradient.Steps) != 2 {
		t.Fatalf("unexpected reloaded document: %+v", reloaded)
	}
	if math.Abs(reloaded.Factors[1].ChronicToxicity-0.215) > 1e-9 {
		t.Fatalf("sub factors must survive the round trip, got %+v", reloaded.Factors[1])
	}
}

func TestRefreshIsocraticSinglePhase(t *testing.T) {
	doc := New("isocratic")
	doc.Methods.MobilePhaseA = []model.Reagent{{Name: "Methanol", Percentage: 100}}
	doc.Gradient.Steps = []model.GradientStep{
		{StepNo: 0, Time: 0, PhaseA: 100, FlowRate: 1, Curve: curve.Linear},
		{StepNo: 1, Time: 13.7, PhaseA: 100, FlowRate: 1, Curve: curve.Linear},
	}
	if err := doc.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	calc := doc.Gradient.Calculations
	if calc == nil || calc.MobilePhaseB.Volume != 0 || math.Abs(calc.MobilePhaseA.Volume-13.7) > 1e-9 {
		t.Fatalf("unexpected calculations: %+v", calc)
	}
	if !*doc.Gradient.IsValid {
		t.Fatalf("expected valid gradient: %s", doc.Gradient.Reason)
	}
}

func TestRefreshFlagsProblems(t *testing.T) {
	doc := New("empty")
	if err := doc.Refresh(); err != nil {
		t.Fatalf("refresh empty: %v", err)
	}
	if *doc.Gradient.IsValid || doc.Gradient.Calculations != nil || doc.Gradient.Reason == "" {
		t.Fatalf("expected unconfigured gradient to be flagged: %+v", doc.Gradient)
	}

	doc, err := Parse([]byte(legacyProject))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc.Gradient.Steps[1].Time = 0
	if err := doc.Refresh(); err == nil {
		t.Fatalf("expected invalid gradient error")
	}
	if doc.Gradient.Calculations != nil {
		t.Fatalf("expected cache to be cleared")
	}
}

func TestMarshalKeepsOwnerEnvelope(t *testing.T) {
	doc := New("owned")
	doc.Owner = "lab-7"
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Owner != "lab-7" || back.Methods.Name != "owned" || len(back.Factors) != 16 {
		t.Fatalf("unexpected round trip: owner=%q name=%q factors=%d", back.Owner, back.Methods.Name, len(back.Factors))
	}
}
