package session

import (
	"errors"
	"fmt"

	"github.com/blaubaer/audio-session/pkg/common"
)

var (
	// ErrInvalidArgument is returned by Initialize if the requested lets,
	// block size or sample rate cannot be bound. Nothing was changed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalState is returned if an operation is not allowed in the
	// current state.
	ErrIllegalState = errors.New("illegal state")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

func illegalState(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIllegalState}, args...)...)
}

// BackendError wraps a failure reported by the backend. Such failures are not
// retried.
type BackendError struct {
	Operation string
	Err       error
}

func (this *BackendError) Error() string {
	return fmt.Sprintf("backend cannot %s: %v", this.Operation, this.Err)
}

func (this *BackendError) Unwrap() error {
	return this.Err
}

func AsBackendError(err error) (*BackendError, bool) {
	return common.AsError[*BackendError](err)
}
