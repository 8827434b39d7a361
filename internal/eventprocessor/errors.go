package eventprocessor

import (
	"errors"
	"fmt"
)

// ErrMalformedEventStream is returned once the event stream breaks nesting.
// The processor is unusable afterwards.
var ErrMalformedEventStream = errors.New("malformed event stream")

// MismatchedTargetError reports a TargetFinished that does not close the
// innermost running target. Expected is empty when no target was running.
type MismatchedTargetError struct {
	Expected string
	Actual   string
}

func (e *MismatchedTargetError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("%s: target %q finished but no target was running", ErrMalformedEventStream, e.Actual)
	}
	return fmt.Sprintf("%s: target %q finished while %q was running", ErrMalformedEventStream, e.Actual, e.Expected)
}

func (e *MismatchedTargetError) Unwrap() error {
	return ErrMalformedEventStream
}
