package project

import (
	"embed"
	"errors"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schemas/project.cue
var schemaFS embed.FS

// ErrSchema reports a document that does not match the project schema.
var ErrSchema = errors.New("project schema violation")

// Validator checks decoded project documents against the embedded CUE schema.
// It is safe for concurrent use.
type Validator struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	content, err := schemaFS.ReadFile("schemas/project.cue")
	if err != nil {
		return nil, fmt.Errorf("read project schema: %w", err)
	}
	ctx := cuecontext.New()
	inst := ctx.CompileBytes(content, cue.Filename("project.cue"))
	if err := inst.Err(); err != nil {
		return nil, fmt.Errorf("compile project schema: %w", err)
	}
	def := inst.LookupPath(cue.ParsePath("#Project"))
	if !def.Exists() {
		return nil, fmt.Errorf("project schema has no #Project definition")
	}
	return &Validator{ctx: ctx, def: def}, nil
}

// Validate unifies data with #Project and requires a concrete result.
func (v *Validator) Validate(data map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	value := v.ctx.Encode(data)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	unified := v.def.Unify(value)
	if err := unified.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
