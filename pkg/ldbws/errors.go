package ldbws

import (
	"errors"
	"fmt"
)

var (
	ErrAPI            = errors.New("rail API error")
	ErrAuthentication = fmt.Errorf("%w: authentication failed", ErrAPI)
	ErrInvalidStation = fmt.Errorf("%w: invalid station", ErrAPI)
	ErrRateLimit      = fmt.Errorf("%w: rate limit exceeded", ErrAPI)
)

const (
	MessageAuthentication = "Authentication failed. Please check your API key."
	MessageInvalidStation = "Invalid station code. Please use a valid 3-letter CRS code."
	MessageUnavailable    = "Rail API is currently unavailable."
	MessageRateLimit      = "API rate limit exceeded. Retrying later."
	MessageNetwork        = "Network error occurred while contacting Rail API."
)

// Error is returned by every client operation. Kind is one of the sentinel errors above so callers
// can branch with errors.Is without caring about the underlying cause.
type Error struct {
	Kind       error
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, statusCode int, err error) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Category names the error class for status reporting
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return "AuthenticationError"
	case errors.Is(err, ErrInvalidStation):
		return "InvalidStationError"
	case errors.Is(err, ErrRateLimit):
		return "RateLimitError"
	default:
		return "ApiError"
	}
}
