// Package project reads and writes method project documents.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/verte-zerg/hplcgreen/internal/factors"
	"github.com/verte-zerg/hplcgreen/internal/gradient"
	"github.com/verte-zerg/hplcgreen/internal/model"
	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

// FormatVersion is written into new documents.
const FormatVersion = "1.0.0"

// ErrEncrypted reports an enveloped document whose payload is encrypted.
var ErrEncrypted = errors.New("project payload is encrypted")

// Document is a persisted method project.
type Document struct {
	Version      string                    `json:"version"`
	LastModified string                    `json:"lastModified,omitempty"`
	Methods      model.MethodConfiguration `json:"methods"`
	Factors      []model.ReagentFactor     `json:"factors"`
	Gradient     Gradient                  `json:"gradient"`
	Schemes      *scoring.Selection        `json:"schemes,omitempty"`

	// Owner is carried over from an unencrypted envelope.
	Owner string `json:"-"`
}

// Gradient holds the gradient program and the volumes last computed from it.
type Gradient struct {
	Steps        []model.GradientStep `json:"steps"`
	IsValid      *bool                `json:"isValid,omitempty"`
	Reason       string               `json:"reason,omitempty"`
	Calculations *Calculations        `json:"calculations"`
}

// Calculations caches integrated volumes.
type Calculations struct {
	TotalVolume  float64          `json:"totalVolume"`
	TotalTime    float64          `json:"totalTime"`
	MobilePhaseA PhaseCalculation `json:"mobilePhaseA"`
	MobilePhaseB PhaseCalculation `json:"mobilePhaseB"`
}

// PhaseCalculation is the consumed volume of one mobile phase split by reagent.
type PhaseCalculation struct {
	Volume     float64             `json:"volume"`
	Components []scoring.Component `json:"components"`
}

// UnmarshalJSON accepts a bare step array as well as the object form.
func (g *Gradient) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*g = Gradient{}
		return nil
	}
	if trimmed[0] == '[' {
		var steps []model.GradientStep
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return err
		}
		*g = Gradient{Steps: steps}
		return nil
	}
	type plain Gradient
	var out plain
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*g = Gradient(out)
	return nil
}

type envelope struct {
	Encrypted bool            `json:"encrypted"`
	Owner     string          `json:"owner,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// factorRecord also reads files that only carry aggregate scores.
type factorRecord struct {
	model.ReagentFactor
	SafetyScore  *float64 `json:"safetyScore,omitempty"`
	HealthScore  *float64 `json:"healthScore,omitempty"`
	EnvScore     *float64 `json:"envScore,omitempty"`
	RecycleScore *float64 `json:"recycleScore,omitempty"`
}

func (r factorRecord) factor() model.ReagentFactor {
	f := r.ReagentFactor
	hasSub := f.SafetyScore() != 0 || f.HealthScore() != 0 || f.EnvScore() != 0
	if !hasSub && (r.SafetyScore != nil || r.HealthScore != nil || r.EnvScore != nil) {
		f = factors.WithAggregates(f, deref(r.SafetyScore), deref(r.HealthScore), deref(r.EnvScore))
	}
	if f.Regeneration == 0 && r.RecycleScore != nil {
		f.Regeneration = *r.RecycleScore
	}
	return f
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

type rawDocument struct {
	Version      string                    `json:"version"`
	LastModified string                    `json:"lastModified"`
	Methods      model.MethodConfiguration `json:"methods"`
	Factors      []factorRecord            `json:"factors"`
	Gradient     Gradient                  `json:"gradient"`
	Schemes      *scoring.Selection        `json:"schemes"`
}

// Parser validates and decodes project documents.
type Parser struct {
	validator *Validator
}

// NewParser compiles the schema once for repeated parsing.
func NewParser() (*Parser, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	return &Parser{validator: v}, nil
}

// Parse decodes data, unwrapping an envelope when present.
func (p *Parser) Parse(data []byte) (*Document, error) {
	payload, owner, err := unwrap(data)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(payload, &generic); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	if err := p.validator.Validate(generic); err != nil {
		return nil, err
	}
	var raw rawDocument
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	doc := &Document{
		Version:      raw.Version,
		LastModified: raw.LastModified,
		Methods:      raw.Methods,
		Gradient:     raw.Gradient,
		Schemes:      raw.Schemes,
		Owner:        owner,
	}
	if doc.Version == "" {
		doc.Version = FormatVersion
	}
	for _, r := range raw.Factors {
		doc.Factors = append(doc.Factors, r.factor())
	}
	return doc, nil
}

// Parse is a convenience wrapper that compiles the schema on every call.
func Parse(data []byte) (*Document, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	return p.Parse(data)
}

// unwrap returns the inner payload of an envelope, or data unchanged.
func unwrap(data []byte) ([]byte, string, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, "", fmt.Errorf("decode project: %w", err)
	}
	_, hasData := keys["data"]
	_, hasEncrypted := keys["encrypted"]
	_, hasOwner := keys["owner"]
	if !hasData || (!hasEncrypted && !hasOwner) {
		return data, "", nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("decode envelope: %w", err)
	}
	if env.Encrypted {
		return nil, env.Owner, fmt.Errorf("%w (owner %q)", ErrEncrypted, env.Owner)
	}
	payload := bytes.TrimSpace(env.Data)
	if len(payload) > 0 && payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, "", fmt.Errorf("decode envelope data: %w", err)
		}
		payload = []byte(inner)
	}
	return payload, env.Owner, nil
}

// Marshal encodes doc, wrapping it in a plain envelope when it has an owner.
func Marshal(doc *Document) ([]byte, error) {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	if doc.Owner == "" {
		return append(body, '\n'), nil
	}
	out, err := json.MarshalIndent(envelope{Owner: doc.Owner, Data: body}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// Load reads and parses a project file.
func (p *Parser) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes doc to path via a temp file and rename.
func Save(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Touch stamps the modification time.
func (d *Document) Touch(now time.Time) {
	d.LastModified = now.UTC().Format(time.RFC3339Nano)
}

// Method returns the method configuration with the gradient program attached.
func (d *Document) Method() model.MethodConfiguration {
	cfg := d.Methods
	cfg.Gradient = append([]model.GradientStep(nil), d.Gradient.Steps...)
	return cfg
}

// Selection returns the stored scheme selection, or the defaults.
func (d *Document) Selection() scoring.Selection {
	if d.Schemes == nil {
		return scoring.Selection{}
	}
	return *d.Schemes
}

// Refresh recomputes the cached gradient calculations. On error the cache is
// cleared and marked invalid.
func (d *Document) Refresh() error {
	valid := false
	d.Gradient.IsValid = &valid
	d.Gradient.Reason = ""
	d.Gradient.Calculations = nil
	if len(d.Gradient.Steps) == 0 {
		d.Gradient.Reason = "no gradient program configured"
		return nil
	}
	res, err := gradient.Integrate(d.Gradient.Steps)
	if err != nil {
		d.Gradient.Reason = err.Error()
		return err
	}
	volumes, err := scoring.Distribute(res.MobilePhaseA.Volume, res.MobilePhaseB.Volume, d.Methods.MobilePhaseA, d.Methods.MobilePhaseB, nil)
	if err != nil {
		d.Gradient.Reason = err.Error()
		return err
	}
	calc := &Calculations{
		TotalVolume:  res.TotalVolume,
		TotalTime:    res.TotalTime,
		MobilePhaseA: PhaseCalculation{Volume: res.MobilePhaseA.Volume},
		MobilePhaseB: PhaseCalculation{Volume: res.MobilePhaseB.Volume},
	}
	for _, c := range volumes.Components {
		switch c.Phase {
		case scoring.PhaseA:
			calc.MobilePhaseA.Components = append(calc.MobilePhaseA.Components, c)
		case scoring.PhaseB:
			calc.MobilePhaseB.Components = append(calc.MobilePhaseB.Components, c)
		}
	}
	valid = res.IsValid
	d.Gradient.Reason = res.Reason
	d.Gradient.Calculations = calc
	return nil
}

// New returns an empty document seeded with the predefined factor table.
func New(name string) *Document {
	return &Document{
		Version: FormatVersion,
		Methods: model.MethodConfiguration{Name: name, SampleCount: 1, InstrumentType: model.EnergyStandard},
		Factors: factors.Predefined(),
	}
}
