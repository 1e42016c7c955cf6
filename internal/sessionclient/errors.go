package sessionclient

import (
	"errors"
	"fmt"
	"net/http"

	"portfolio-api/internal/apierror"
)

// APIError is a non-2xx response decoded from the server error body.
type APIError struct {
	Status            int
	Code              apierror.Code
	Message           string
	RetryAfterMinutes int
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// ErrSessionExpired is returned, wrapping the refresh failure, when a request
// could not be recovered by refreshing the session.
var ErrSessionExpired = errors.New("session expired")

// HasCode reports whether err carries an APIError with code.
func HasCode(err error, code apierror.Code) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// recoverable lists the 401s that a refresh may fix. A 401 without a code
// comes from something in front of the API and is treated as expiry.
func recoverable(err *APIError) bool {
	if err.Status != http.StatusUnauthorized {
		return false
	}
	switch err.Code {
	case "", apierror.CodeTokenExpired, apierror.CodeTokenInvalid, apierror.CodeTokenMissing:
		return true
	default:
		return false
	}
}
