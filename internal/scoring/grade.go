package scoring

import (
	"fmt"
	"math"
)

// Grade is a score band. Lower scores are greener.
type Grade string

// Grades from greenest to least green.
const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeAverage   Grade = "Average"
	GradePoor      Grade = "Poor"
	GradeVeryPoor  Grade = "Very poor"
)

var (
	gradeBreakpoints = []float64{0, 20, 40, 60, 80, 100}
	gradeColors      = [][3]uint8{
		{0x2e, 0x7d, 0x32},
		{0x81, 0xc7, 0x84},
		{0xff, 0xd5, 0x4f},
		{0xff, 0x98, 0x00},
		{0xf4, 0x43, 0x36},
		{0xd3, 0x2f, 0x2f},
	}
	gradeOrder = []Grade{GradeExcellent, GradeGood, GradeAverage, GradePoor, GradeVeryPoor}
	gradeHex   = map[Grade]string{
		GradeExcellent: "#2e7d32",
		GradeGood:      "#81c784",
		GradeAverage:   "#ffd54f",
		GradePoor:      "#ff9800",
		GradeVeryPoor:  "#d32f2f",
	}
)

// GradeFor returns the band of a 0-100 score.
func GradeFor(score float64) Grade {
	score = clampScore(score)
	for i := 1; i < len(gradeBreakpoints)-1; i++ {
		if score < gradeBreakpoints[i] {
			return gradeOrder[i-1]
		}
	}
	return GradeVeryPoor
}

// Hex returns the representative colour of the band.
func (g Grade) Hex() string {
	return gradeHex[g]
}

// ColorFor interpolates the score colour between the band breakpoints.
func ColorFor(score float64) string {
	score = clampScore(score)
	for i := 1; i < len(gradeBreakpoints); i++ {
		if score <= gradeBreakpoints[i] {
			lo, hi := gradeBreakpoints[i-1], gradeBreakpoints[i]
			t := (score - lo) / (hi - lo)
			a, b := gradeColors[i-1], gradeColors[i]
			return fmt.Sprintf("#%02x%02x%02x", lerp(a[0], b[0], t), lerp(a[1], b[1], t), lerp(a[2], b[2], t))
		}
	}
	c := gradeColors[len(gradeColors)-1]
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
