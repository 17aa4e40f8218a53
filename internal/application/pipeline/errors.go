package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidMessage marks messages that can never be processed and must not be retried.
var ErrInvalidMessage = errors.New("pipeline: invalid message")

// ProcessingError wraps a system failure with the stage that produced it.
type ProcessingError struct {
	Op     string
	Source string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func stageError(op, source string, err error) error {
	return &ProcessingError{Op: op, Source: source, Err: err}
}

// IsPermanent reports whether retrying the message cannot succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidMessage)
}
