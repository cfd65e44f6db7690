package cli

import (
	"errors"
	"fmt"

	"github.com/rebano/rebano-go/internal/gateway"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the remote API or cache rejected the operation
	ExitCommandError = 2 // bad flags, input or configuration
	ExitUnauthorized = 3 // no valid session
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Session expiry maps to
// ExitUnauthorized; other errors to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, gateway.ErrSessionExpired) {
		return ExitUnauthorized
	}
	return ExitFailure
}
