package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidField       = errors.New("invalid field value")
	ErrUnknownProblemType = errors.New("unrecognized problem type")
	ErrUnknownLikelihood  = errors.New("unrecognized likelihood")
	ErrUnknownSize        = errors.New("unrecognized size code")
)

// NormalizeError reports the zone and field that made a forecast unusable.
type NormalizeError struct {
	Zone  string
	Field string
	Err   error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize %s: %s: %v", e.Zone, e.Field, e.Err)
}

func (e *NormalizeError) Unwrap() error {
	return e.Err
}

// Kind returns a short label for the wrapped sentinel, used as a metric label.
func (e *NormalizeError) Kind() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return "missing_field"
	case errors.Is(e.Err, ErrInvalidField):
		return "invalid_field"
	case errors.Is(e.Err, ErrUnknownProblemType):
		return "unknown_problem_type"
	case errors.Is(e.Err, ErrUnknownLikelihood):
		return "unknown_likelihood"
	case errors.Is(e.Err, ErrUnknownSize):
		return "unknown_size"
	default:
		return "other"
	}
}
