package factors

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/hplcgreen/internal/model"
)

var (
	// ErrNotFound reports a reagent name missing from the table.
	ErrNotFound = errors.New("reagent not found")
	// ErrDuplicate reports a reagent name already present in the table.
	ErrDuplicate = errors.New("reagent already exists")
	// ErrInvalid reports a malformed factor record.
	ErrInvalid = errors.New("invalid reagent factor")
	// ErrLastReagent reports an attempt to empty the table.
	ErrLastReagent = errors.New("at least one reagent must be kept")
	// ErrNoOriginal reports a reset of a reagent without original data.
	ErrNoOriginal = errors.New("reagent has no original data")
)

// Table is an ordered reagent factor table keyed by name. Lookups are exact
// first and then case-insensitive. Not safe for concurrent mutation.
type Table struct {
	items []model.ReagentFactor
}

// NewTable validates items and builds a table from a copy of them.
func NewTable(items []model.ReagentFactor) (*Table, error) {
	t := &Table{items: make([]model.ReagentFactor, 0, len(items))}
	for _, f := range items {
		if err := Validate(f); err != nil {
			return nil, err
		}
		if t.index(f.Name) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, f.Name)
		}
		t.items = append(t.items, f)
	}
	return t, nil
}

// Validate checks a single factor record.
func Validate(f model.ReagentFactor) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: reagent name cannot be empty", ErrInvalid)
	}
	values := map[string]float64{
		"density":          f.Density,
		"releasePotential": f.ReleasePotential,
		"fireExplos":       f.FireExplos,
		"reactDecom":       f.ReactDecom,
		"acuteToxicity":    f.AcuteToxicity,
		"irritation":       f.Irritation,
		"chronicToxicity":  f.ChronicToxicity,
		"persistency":      f.Persistency,
		"airHazard":        f.AirHazard,
		"waterHazard":      f.WaterHazard,
		"regeneration":     f.Regeneration,
		"disposal":         f.Disposal,
	}
	for field, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s of %q must be a finite non-negative number", ErrInvalid, field, f.Name)
		}
	}
	return nil
}

func (t *Table) index(name string) int {
	name = strings.TrimSpace(name)
	for i := range t.items {
		if t.items[i].Name == name {
			return i
		}
	}
	for i := range t.items {
		if strings.EqualFold(t.items[i].Name, name) {
			return i
		}
	}
	return -1
}

// Lookup returns the factor record for name.
func (t *Table) Lookup(name string) (model.ReagentFactor, bool) {
	if t == nil {
		return model.ReagentFactor{}, false
	}
	i := t.index(name)
	if i < 0 {
		return model.ReagentFactor{}, false
	}
	return t.items[i], true
}

// Len returns the number of reagents.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

// All returns a copy of the table in order.
func (t *Table) All() []model.ReagentFactor {
	if t == nil {
		return nil
	}
	return append([]model.ReagentFactor(nil), t.items...)
}

// Names returns the reagent names in table order.
func (t *Table) Names() []string {
	names := make([]string, 0, t.Len())
	for _, f := range t.All() {
		names = append(names, f.Name)
	}
	return names
}

// AddCustom appends a user-defined reagent and returns the stored record.
func (t *Table) AddCustom(f model.ReagentFactor) (model.ReagentFactor, error) {
	f.Name = strings.TrimSpace(f.Name)
	if err := Validate(f); err != nil {
		return model.ReagentFactor{}, err
	}
	if t.index(f.Name) >= 0 {
		return model.ReagentFactor{}, fmt.Errorf("%w: %q", ErrDuplicate, f.Name)
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.IsCustom = true
	f.OriginalData = nil
	t.items = append(t.items, f)
	return f, nil
}

// Update replaces the record named name. The first edit of a predefined
// reagent keeps a snapshot so it can be reset later.
func (t *Table) Update(name string, f model.ReagentFactor) error {
	i := t.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	f.Name = strings.TrimSpace(f.Name)
	if err := Validate(f); err != nil {
		return err
	}
	if j := t.index(f.Name); j >= 0 && j != i {
		return fmt.Errorf("%w: %q", ErrDuplicate, f.Name)
	}
	cur := t.items[i]
	f.ID = cur.ID
	f.IsCustom = cur.IsCustom
	f.OriginalData = cur.OriginalData
	if !cur.IsCustom && f.OriginalData == nil {
		snapshot := cur
		snapshot.OriginalData = nil
		f.OriginalData = &snapshot
	}
	t.items[i] = f
	return nil
}

// Delete removes the reagent named name. The last reagent cannot be removed.
func (t *Table) Delete(name string) error {
	i := t.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if len(t.items) <= 1 {
		return ErrLastReagent
	}
	t.items = append(t.items[:i], t.items[i+1:]...)
	return nil
}

// ResetToOriginal restores a predefined reagent to its seeded values.
func (t *Table) ResetToOriginal(name string) error {
	i := t.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	cur := t.items[i]
	switch {
	case cur.OriginalData != nil:
		restored := *cur.OriginalData
		restored.OriginalData = nil
		t.items[i] = restored
		return nil
	case cur.IsCustom:
		return fmt.Errorf("%w: %q is a custom reagent", ErrNoOriginal, cur.Name)
	}
	seeded, ok := predefinedByName(cur.Name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoOriginal, cur.Name)
	}
	seeded.ID = cur.ID
	t.items[i] = seeded
	return nil
}
