package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrChallengeNotFound is returned when a challenge record does not exist.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrQuestionNotFound indicates a question ID that was never stored.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAttemptNotFound is returned when no in-process attempt is running for a challenge.
	ErrAttemptNotFound = errors.New("challenge attempt not found")
	// ErrAlreadyFinalized is returned when an attempt has already been scored.
	ErrAlreadyFinalized = errors.New("challenge attempt already finalized")

	ErrValidation   = errors.New("validation failed")
	ErrPersistence  = errors.New("persistence failed")
	ErrPartialBatch = errors.New("some questions failed to store")
	ErrGeneration   = errors.New("question generation failed")
)

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field string
	// Reason is set when the field is present but malformed.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Require returns a ValidationError naming field when value is blank.
func Require(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field}
	}
	return nil
}

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persist wraps err as a PersistenceError unless it is nil or a lookup miss.
func Persist(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrChallengeNotFound) || errors.Is(err, ErrQuestionNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// QuestionFailure is one failed write inside a batch.
type QuestionFailure struct {
	QuestionID string
	Err        error
}

// PartialBatchError lists the questions of a batch that could not be stored.
// Questions that were written successfully stay stored.
type PartialBatchError struct {
	Failures []QuestionFailure
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("%s: %d failed", ErrPartialBatch.Error(), len(e.Failures))
}

func (e *PartialBatchError) Is(target error) bool { return target == ErrPartialBatch }

// IDs returns the failing question ids.
func (e *PartialBatchError) IDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.QuestionID)
	}
	return ids
}

// Details renders one message per failing question.
func (e *PartialBatchError) Details() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, fmt.Sprintf("Error with question ID %s: %v", f.QuestionID, f.Err))
	}
	return out
}

// GenerationError is returned when the question generator yields nothing usable.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrGeneration.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrGeneration.Error(), e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// FinalizeError carries the two independent write failures of a finalization.
// A failed aggregate update does not undo a history row that was written.
type FinalizeError struct {
	HistoryErr   error
	AggregateErr error
}

func (e *FinalizeError) Error() string {
	var parts []string
	if e.HistoryErr != nil {
		parts = append(parts, "history: "+e.HistoryErr.Error())
	}
	if e.AggregateErr != nil {
		parts = append(parts, "aggregate: "+e.AggregateErr.Error())
	}
	return "finalize attempt: " + strings.Join(parts, "; ")
}

func (e *FinalizeError) Unwrap() []error {
	var errs []error
	if e.HistoryErr != nil {
		errs = append(errs, e.HistoryErr)
	}
	if e.AggregateErr != nil {
		errs = append(errs, e.AggregateErr)
	}
	return errs
}
