package scoring

import "sort"

// LegacyRow is one reagent of the simple per-sample table: mass times the
// aggregate factor scores, without log normalization.
type LegacyRow struct {
	Name   string  `json:"name"`
	Stage  string  `json:"stage"`
	Volume float64 `json:"volume"`
	Mass   float64 `json:"mass"`
	S      float64 `json:"S"`
	H      float64 `json:"H"`
	E      float64 `json:"E"`
	R      float64 `json:"R"`
	D      float64 `json:"D"`
}

// LegacyTable is the per-sample summary. The sample count divides the total
// exactly once; volumes are never scaled by it.
type LegacyTable struct {
	Rows        []LegacyRow `json:"rows"`
	TotalS      float64     `json:"totalS"`
	TotalH      float64     `json:"totalH"`
	TotalE      float64     `json:"totalE"`
	TotalR      float64     `json:"totalR"`
	TotalD      float64     `json:"totalD"`
	P           float64     `json:"P"`
	Total       float64     `json:"total"`
	SampleCount int         `json:"sampleCount"`
	PerSample   float64     `json:"perSample"`
}

func buildLegacyTable(stages map[string]map[string]float64, factors FactorSource, power float64, sampleCount int) LegacyTable {
	if sampleCount < 1 {
		sampleCount = 1
	}
	table := LegacyTable{P: power, SampleCount: sampleCount}
	stageNames := make([]string, 0, len(stages))
	for stage := range stages {
		stageNames = append(stageNames, stage)
	}
	sort.Strings(stageNames)
	for _, stage := range stageNames {
		volumes := stages[stage]
		for _, name := range sortedKeys(volumes) {
			f, ok := factors.Lookup(name)
			if !ok {
				continue
			}
			mass := nonNegative(volumes[name] * f.Density)
			row := LegacyRow{
				Name:   name,
				Stage:  stage,
				Volume: volumes[name],
				Mass:   mass,
				S:      mass * f.SafetyScore(),
				H:      mass * f.HealthScore(),
				E:      mass * f.EnvScore(),
				R:      mass * f.Regeneration,
				D:      mass * f.Disposal,
			}
			table.Rows = append(table.Rows, row)
			table.TotalS += row.S
			table.TotalH += row.H
			table.TotalE += row.E
			table.TotalR += row.R
			table.TotalD += row.D
		}
	}
	table.Total = table.TotalS + table.TotalH + table.TotalE + table.TotalR + table.TotalD + table.P
	table.PerSample = table.Total / float64(table.SampleCount)
	return table
}
