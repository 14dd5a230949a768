// Package curve evaluates the interpolation laws used between gradient steps.
package curve

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Shape identifies one of the eleven gradient transition curves.
type Shape int

// Shapes in display order. Ordinals match the numeric curve codes used in
// stored gradient programs (1..11).
const (
	PreStep Shape = iota + 1
	WeakConvex
	MediumConvex
	StrongConvex
	UltraConvex
	Linear
	WeakConcave
	MediumConcave
	StrongConcave
	UltraConcave
	PostStep
)

var shapeNames = map[Shape]string{
	PreStep:       "pre-step",
	WeakConvex:    "weak-convex",
	MediumConvex:  "medium-convex",
	StrongConvex:  "strong-convex",
	UltraConvex:   "ultra-convex",
	Linear:        "linear",
	WeakConcave:   "weak-concave",
	MediumConcave: "medium-concave",
	StrongConcave: "strong-concave",
	UltraConcave:  "ultra-concave",
	PostStep:      "post-step",
}

// Exponent ladder shared by the convex and concave families.
var exponents = map[Shape]float64{
	WeakConvex:    2,
	MediumConvex:  3,
	StrongConvex:  4,
	UltraConvex:   6,
	WeakConcave:   2,
	MediumConcave: 3,
	StrongConcave: 4,
	UltraConcave:  6,
}

// All returns every shape in display order.
func All() []Shape {
	out := make([]Shape, 0, len(shapeNames))
	for s := PreStep; s <= PostStep; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is one of the known shapes.
func (s Shape) Valid() bool {
	return s >= PreStep && s <= PostStep
}

// String returns the canonical name.
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("curve(%d)", int(s))
}

// Exponent returns the power used by convex/concave shapes, or 0 for the others.
func (s Shape) Exponent() float64 {
	return exponents[s]
}

// Evaluate returns the fractional progress from a step's start value to its
// end value at normalized time t. t is clamped to [0,1].
func Evaluate(s Shape, t float64) float64 {
	if math.IsNaN(t) || t <= 0 {
		t = 0
	}
	if t >= 1 {
		t = 1
	}
	switch s {
	case PreStep:
		if t > 0 {
			return 1
		}
		return 0
	case PostStep:
		if t >= 1 {
			return 1
		}
		return 0
	case Linear:
		return t
	case WeakConvex, MediumConvex, StrongConvex, UltraConvex:
		return 1 - math.Pow(1-t, exponents[s])
	case WeakConcave, MediumConcave, StrongConcave, UltraConcave:
		return math.Pow(t, exponents[s])
	default:
		return t
	}
}

// Parse resolves a curve identifier. Names are case-insensitive and accept
// underscores or spaces in place of dashes; numeric codes 1..11 are accepted.
func Parse(value string) (Shape, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return 0, fmt.Errorf("curve identifier is empty")
	}
	if n, err := strconv.Atoi(v); err == nil {
		s := Shape(n)
		if !s.Valid() {
			return 0, fmt.Errorf("unknown curve code %d", n)
		}
		return s, nil
	}
	v = strings.NewReplacer("_", "-", " ", "-").Replace(v)
	for s, name := range shapeNames {
		if name == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown curve %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown curve %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON accepts both the string name and the numeric code.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed := Shape(n)
		if !parsed.Valid() {
			return fmt.Errorf("unknown curve code %d", n)
		}
		*s = parsed
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("curve must be a name or code: %w", err)
	}
	return s.UnmarshalText([]byte(name))
}
