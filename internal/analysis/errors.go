package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Stage identifies where a run failed.
type Stage string

const (
	StageLoad    Stage = "load"
	StageExecute Stage = "execute"
	StageTimeout Stage = "timeout"
	StageExtract Stage = "extract"
)

// Error is a failed run annotated with its stage.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// LoadFailed wraps a document load failure.
func LoadFailed(err error) error {
	return &Error{Stage: StageLoad, Err: err}
}

// ExecutionFailed wraps a failure raised while running the analysis.
func ExecutionFailed(err error) error {
	return &Error{Stage: StageExecute, Err: err}
}

// ExtractFailed wraps a chart payload that could not be decoded.
func ExtractFailed(err error) error {
	return &Error{Stage: StageExtract, Err: err}
}

// TimeoutError reports that the run exceeded its wall-clock budget.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out after %s", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// Timeout wraps a deadline failure.
func Timeout(d time.Duration) error {
	return &Error{Stage: StageTimeout, Err: &TimeoutError{Timeout: d}}
}

// StageOf returns the stage of err. Errors without a stage count as
// execution failures, except bare deadline errors which are timeouts.
func StageOf(err error) Stage {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Stage
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StageTimeout
	}
	return StageExecute
}
