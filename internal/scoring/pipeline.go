package scoring

import (
	"errors"

	"github.com/verte-zerg/hplcgreen/internal/gradient"
	"github.com/verte-zerg/hplcgreen/internal/logger"
	"github.com/verte-zerg/hplcgreen/internal/model"
)

// Stage names.
const (
	StageInstrument  = "instrument"
	StagePreparation = "preparation"
)

// InstrumentResult is the instrument stage with its score1.
type InstrumentResult struct {
	StageResult
	Score1 float64 `json:"score1"`
}

// PreparationResult is the preparation stage with its score2.
type PreparationResult struct {
	StageResult
	Score2 float64 `json:"score2"`
}

// MergedResult combines both stages. R and D are renormalized over the
// loads of the whole method.
type MergedResult struct {
	SubFactors SubFactorScores `json:"sub_factors"`
	R          float64         `json:"R"`
	D          float64         `json:"D"`
}

// FinalResult holds the composite score.
type FinalResult struct {
	Score3 float64 `json:"score3"`
	Grade  Grade   `json:"grade"`
}

// Result is the full breakdown of a scored method.
type Result struct {
	Instrument  InstrumentResult  `json:"instrument"`
	Preparation PreparationResult `json:"preparation"`
	Merged      MergedResult      `json:"merged"`
	Final       FinalResult       `json:"final"`
	Gradient    gradient.Result   `json:"gradient"`
	Volumes     Volumes           `json:"volumes"`
	Legacy      LegacyTable       `json:"legacy"`
	Selection   Selection         `json:"selection"`
	Warnings    []Warning         `json:"warnings,omitempty"`
}

// Pipeline scores methods. It keeps no state between calls and is safe for
// concurrent use.
type Pipeline struct {
	log *logger.Logger
}

// NewPipeline returns a pipeline that also logs non-fatal warnings.
func NewPipeline(log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{log: log}
}

// Score runs the pipeline with a silent logger.
func Score(cfg model.MethodConfiguration, factors FactorSource, sel Selection) (Result, error) {
	return NewPipeline(nil).Score(cfg, factors, sel)
}

// Score integrates the gradient, distributes volumes, scores both stages and
// aggregates them with the selected schemes.
func (p *Pipeline) Score(cfg model.MethodConfiguration, factors FactorSource, sel Selection) (Result, error) {
	if len(cfg.Gradient) == 0 {
		return Result{}, missing("gradient", "no gradient program configured")
	}
	if factors == nil || factors.Len() == 0 {
		return Result{}, missing("factors", "no reagent factor table configured")
	}
	if err := sel.Validate(); err != nil {
		return Result{}, err
	}

	grad, err := gradient.Integrate(cfg.Gradient)
	if err != nil {
		var gerr *gradient.Error
		if errors.As(err, &gerr) {
			return Result{}, &ValidationError{Kind: KindInvalidGradient, Field: gerr.Field(), Message: gerr.Reason, Err: err}
		}
		return Result{}, &ValidationError{Kind: KindInvalidGradient, Field: "gradient", Message: err.Error(), Err: err}
	}

	volumes, err := Distribute(grad.MobilePhaseA.Volume, grad.MobilePhaseB.Volume, cfg.MobilePhaseA, cfg.MobilePhaseB, cfg.PreTreatmentReagents)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Gradient:  grad,
		Volumes:   volumes,
		Selection: sel,
	}
	if !grad.IsValid {
		res.Warnings = append(res.Warnings, Warning{Kind: WarnZeroFlow, Stage: StageInstrument, Message: grad.Reason})
	}

	inst, warns := scoreStage(StageInstrument, volumes.Instrument, factors, sel)
	res.Warnings = append(res.Warnings, warns...)
	prep, warns := scoreStage(StagePreparation, volumes.Preparation, factors, sel)
	res.Warnings = append(res.Warnings, warns...)

	inst.EnergyKWh = SampleEnergy(cfg.InstrumentType.PowerKW(), grad.TotalTime, cfg.InstrumentEnergy)
	inst.Major.P = PowerScore(inst.EnergyKWh)
	prep.EnergyKWh = nonNegative(cfg.PretreatmentEnergy)
	prep.Major.P = PowerScore(prep.EnergyKWh)

	res.Instrument = InstrumentResult{StageResult: inst, Score1: StageScore(inst.Major, sel.Instrument.Weights())}
	prepWeights := sel.Preparation.Weights()
	prepWeights.P = 0
	res.Preparation = PreparationResult{StageResult: prep, Score2: StageScore(prep.Major, prepWeights)}
	res.Merged = MergedResult{
		SubFactors: inst.SubFactors.add(prep.SubFactors).clamped(),
		R:          AggregateScore(inst.RegenerationLoad + prep.RegenerationLoad),
		D:          AggregateScore(inst.DisposalLoad + prep.DisposalLoad),
	}
	score3 := FinalScore(res.Instrument.Score1, res.Preparation.Score2, sel.Final)
	res.Final = FinalResult{Score3: score3, Grade: GradeFor(score3)}
	res.Legacy = buildLegacyTable(map[string]map[string]float64{
		StageInstrument:  volumes.Instrument,
		StagePreparation: volumes.Preparation,
	}, factors, inst.Major.P, cfg.SampleCount)

	for _, w := range res.Warnings {
		p.log.Warn("scoring warning", "kind", string(w.Kind), "subject", w.Subject, "stage", w.Stage, "method", cfg.Name)
	}
	return res, nil
}

// StageScore is the weighted sum of major factors, bounded to [0,100].
func StageScore(m MajorFactors, w StageWeights) float64 {
	return clampScore(m.Weighted(w))
}

// FinalScore combines the stage scores with the selected final weights.
func FinalScore(score1, score2 float64, scheme FinalScheme) float64 {
	w := scheme.Weights()
	return clampScore(score1*w.Instrument + score2*w.Preparation)
}
