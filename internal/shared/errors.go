package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrFileNotFound       = fmt.Errorf("file not found")

	// ML pipeline errors
	ErrUnknownMethod   = fmt.Errorf("unknown method")
	ErrWorkerInit      = fmt.Errorf("worker initialization failed")
	ErrStageFailed     = fmt.Errorf("pipeline stage failed")
	ErrFatalSync       = fmt.Errorf("fatal sync error")
	ErrAlreadyDisposed = fmt.Errorf("sync context already disposed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsFatal reports whether err belongs to the class of errors that halts
// admission of new sync tasks. Authentication failures and expired tokens are
// fatal because every remaining file would fail the same way.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatalSync) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrNotAuthenticated)
}
