package workflow

import (
	"errors"
	"fmt"

	"shortsflow/internal/model"
)

var (
	ErrNotFound             = model.ErrNotFound
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrExternalService      = errors.New("external service error")
	ErrTimeout              = errors.New("timeout")
)

// StepError ties a failure to the pipeline step that produced it.
// Kind is one of the package sentinels.
type StepError struct {
	Step model.Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stepErr(step model.Step, kind error, format string, args ...any) error {
	return &StepError{Step: step, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// classify wraps err as a StepError, keeping an existing classification.
func classify(step model.Step, kind error, err error) error {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return err
	}
	for _, k := range []error{ErrNotFound, ErrPreconditionFailed, ErrConfigurationMissing, ErrTimeout} {
		if errors.Is(err, k) {
			return &StepError{Step: step, Kind: k, Err: err}
		}
	}
	return &StepError{Step: step, Kind: kind, Err: err}
}

// Message returns the text persisted on failed records.
func Message(err error) string {
	var se *StepError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
