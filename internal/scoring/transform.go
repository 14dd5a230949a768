package scoring

import "math"

// Calibration of the saturating log transforms. Per-reagent sub-factors and
// stage-level R/D aggregates use different constants.
const (
	subFactorScale      = 33.3
	subFactorMultiplier = 1.0
	aggregateScale      = 45.0
	aggregateMultiplier = 14.0
	maxScore            = 100.0
)

// Energy thresholds (kWh) of the power score.
const (
	powerFloorKWh   = 0.1
	powerCeilingKWh = 1.5
)

// SubFactorScore maps mass x sub-factor value into [0,100].
func SubFactorScore(product float64) float64 {
	return saturate(product, subFactorScale, subFactorMultiplier)
}

// AggregateScore maps a stage sum of mass x regeneration (or disposal) into [0,100].
func AggregateScore(sum float64) float64 {
	return saturate(sum, aggregateScale, aggregateMultiplier)
}

func saturate(x, scale, multiplier float64) float64 {
	if !(x > 0) {
		return 0
	}
	if math.IsInf(x, 1) {
		return maxScore
	}
	return clampScore(scale * math.Log10(1+multiplier*x))
}

// PowerScore maps an energy consumption in kWh onto [0,100] by clamped
// linear interpolation between 0.1 and 1.5 kWh.
func PowerScore(kwh float64) float64 {
	switch {
	case !(kwh > powerFloorKWh):
		return 0
	case kwh >= powerCeilingKWh:
		return maxScore
	default:
		return (kwh - powerFloorKWh) / (powerCeilingKWh - powerFloorKWh) * maxScore
	}
}

// SampleEnergy returns the instrument energy per sample in kWh. An explicit
// measured value wins over the power class estimate.
func SampleEnergy(powerKW, runMinutes, measuredKWh float64) float64 {
	if measuredKWh > 0 {
		return measuredKWh
	}
	if powerKW <= 0 || runMinutes <= 0 {
		return 0
	}
	return powerKW * runMinutes / 60
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > maxScore:
		return maxScore
	default:
		return v
	}
}
