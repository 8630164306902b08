package model

import (
	"errors"
	"fmt"
)

// Validation failure reasons.
const (
	ReasonRequired       = "required"
	ReasonTooShort       = "too_short"
	ReasonMalformed      = "malformed"
	ReasonOutOfRange     = "out_of_range"
	ReasonLengthMismatch = "length_mismatch"
	ReasonDuplicate      = "duplicate"
)

// ValidationError reports empty, short or malformed input. The user can
// correct it and resubmit.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	// ErrAlreadyExists is returned when registering an email that is taken.
	ErrAlreadyExists = errors.New("email already exists")

	// ErrAuthFailure is returned for any failed credential check. It never
	// says whether the email or the password was wrong.
	ErrAuthFailure = errors.New("invalid email or password")
)

// GenerationError wraps a question source failure or an unusable response.
type GenerationError struct {
	Skill string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate questions for %q: %v", e.Skill, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// EvaluationError wraps an answer evaluator failure or an unusable response.
type EvaluationError struct {
	Skill string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate answers for %q: %v", e.Skill, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// StorageError reports a record store that cannot be opened or reached.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store: %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ReportBuildError reports a report that could not be assembled. No partial
// document accompanies it.
type ReportBuildError struct {
	Stage string
	Err   error
}

func (e *ReportBuildError) Error() string {
	return fmt.Sprintf("build report (%s): %v", e.Stage, e.Err)
}

func (e *ReportBuildError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
