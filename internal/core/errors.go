package core

import "fmt"

// ErrorKind is the machine-readable classification carried by every query
// error. Validation kinds are detected before any record is touched.
type ErrorKind string

const (
	ErrUnknownField       ErrorKind = "unknown_field"
	ErrTypeMismatch       ErrorKind = "type_mismatch"
	ErrInvalidRange       ErrorKind = "invalid_range"
	ErrInvalidRegex       ErrorKind = "invalid_regex"
	ErrMembershipTooLarge ErrorKind = "membership_too_large"
	ErrStoreUnavailable   ErrorKind = "store_unavailable"
	ErrEvaluationTimeout  ErrorKind = "evaluation_timeout"
)

// QueryError is a structured, client-surfaceable error describing the
// offending field and reason. Requests failing with a QueryError never
// produce partial results.
type QueryError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: field %q: %s", e.Kind, e.Field, e.Reason)
}

// Validation reports whether the error was detected during request
// validation, before query execution.
func (e *QueryError) Validation() bool {
	switch e.Kind {
	case ErrStoreUnavailable, ErrEvaluationTimeout:
		return false
	}
	return true
}

func NewUnknownField(field string) *QueryError {
	return &QueryError{Kind: ErrUnknownField, Field: field, Reason: "field is not part of the record schema"}
}

func NewTypeMismatch(field, reason string) *QueryError {
	return &QueryError{Kind: ErrTypeMismatch, Field: field, Reason: reason}
}

func NewInvalidRange(field, reason string) *QueryError {
	return &QueryError{Kind: ErrInvalidRange, Field: field, Reason: reason}
}

func NewInvalidRegex(field, reason string) *QueryError {
	return &QueryError{Kind: ErrInvalidRegex, Field: field, Reason: reason}
}

func NewMembershipTooLarge(field string, got, cap int) *QueryError {
	return &QueryError{
		Kind:   ErrMembershipTooLarge,
		Field:  field,
		Reason: fmt.Sprintf("membership list has %d values, cap is %d", got, cap),
	}
}

func NewStoreUnavailable(reason string) *QueryError {
	return &QueryError{Kind: ErrStoreUnavailable, Reason: reason}
}

func NewEvaluationTimeout(reason string) *QueryError {
	return &QueryError{Kind: ErrEvaluationTimeout, Reason: reason}
}
