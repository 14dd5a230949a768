// Package scoring computes green chemistry scores for HPLC methods.
package scoring

import (
	"errors"
	"fmt"
)

// Kind classifies blocking validation failures.
type Kind string

// Validation kinds.
const (
	KindInvalidGradient     Kind = "InvalidGradient"
	KindInvalidComposition  Kind = "InvalidComposition"
	KindMissingPrerequisite Kind = "MissingPrerequisite"
)

// Sentinels matched by errors.Is against a *ValidationError of the same kind.
var (
	ErrInvalidGradient     = errors.New("invalid gradient")
	ErrInvalidComposition  = errors.New("invalid composition")
	ErrMissingPrerequisite = errors.New("missing prerequisite")
)

// ValidationError blocks score computation and names the offending field.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the same kind.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidGradient:
		return e.Kind == KindInvalidGradient
	case ErrInvalidComposition:
		return e.Kind == KindInvalidComposition
	case ErrMissingPrerequisite:
		return e.Kind == KindMissingPrerequisite
	}
	return false
}

// IsNotConfigured reports whether err means the method has not been set up
// yet (no gradient or no factor table), as opposed to corrupt data.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrMissingPrerequisite)
}

func missing(field, msg string) *ValidationError {
	return &ValidationError{Kind: KindMissingPrerequisite, Field: field, Message: msg}
}

func invalidComposition(field, msg string) *ValidationError {
	return &ValidationError{Kind: KindInvalidComposition, Field: field, Message: msg}
}

// WarningKind classifies non-fatal findings attached to a result.
type WarningKind string

// Warning kinds.
const (
	WarnZeroFlow       WarningKind = "ZeroFlowConfiguration"
	WarnUnknownReagent WarningKind = "UnknownReagent"
)

// Warning is a non-fatal finding. Scoring continues.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject,omitempty"`
	Stage   string      `json:"stage,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Subject, w.Message)
}
