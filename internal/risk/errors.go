package risk

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError.
type ErrorKind string

const (
	KindInvalidRiskTarget     ErrorKind = "invalid_risk_target"
	KindZeroRateSensitivity   ErrorKind = "zero_rate_sensitivity"
	KindDegenerateProbability ErrorKind = "degenerate_probability"
	KindNonPositiveDivisor    ErrorKind = "non_positive_divisor"
	KindInvalidBounds         ErrorKind = "invalid_bounds"
	KindInvalidLearningRate   ErrorKind = "invalid_learning_rate"
)

// DomainError is a data-driven failure. Callers can always recover from it:
// re-prompt, fall back to defaults, or skip one session of a batch.
type DomainError struct {
	Kind   ErrorKind
	Field  string
	Value  float64
	Detail string
}

func (e *DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s=%g: %s", e.Kind, e.Field, e.Value, e.Detail)
}

// Is matches on Kind so the sentinels below work with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidRiskTarget     = &DomainError{Kind: KindInvalidRiskTarget}
	ErrZeroRateSensitivity   = &DomainError{Kind: KindZeroRateSensitivity}
	ErrDegenerateProbability = &DomainError{Kind: KindDegenerateProbability}
	ErrNonPositiveDivisor    = &DomainError{Kind: KindNonPositiveDivisor}
	ErrInvalidBounds         = &DomainError{Kind: KindInvalidBounds}
	ErrInvalidLearningRate   = &DomainError{Kind: KindInvalidLearningRate}
)

func newDomainError(kind ErrorKind, field string, value float64, detail string) *DomainError {
	return &DomainError{Kind: kind, Field: field, Value: value, Detail: detail}
}

// NewDomainError builds a DomainError for callers outside this package.
func NewDomainError(kind ErrorKind, field string, value float64, detail string) error {
	return newDomainError(kind, field, value, detail)
}

// IsDomainError reports whether err wraps a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
