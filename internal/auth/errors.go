package auth

import (
	"errors"
	"fmt"
	"net/http"

	"portfolio-api/internal/apierror"
)

// Error is a session failure that is safe to show to the caller. Cause keeps
// the detail for server-side logs only.
type Error struct {
	Code              apierror.Code
	Status            int
	Message           string
	RetryAfterMinutes int
	Cause             error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Code so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{Code: apierror.CodeInvalidCredentials}
	ErrAccountLocked      = &Error{Code: apierror.CodeAccountLocked}
	ErrTokenMissing       = &Error{Code: apierror.CodeTokenMissing}
	ErrRefreshMismatch    = &Error{Code: apierror.CodeRefreshMismatch}
	ErrAdminUnauthorized  = &Error{Code: apierror.CodeAdminUnauthorized}
	ErrUserNotFound       = &Error{Code: apierror.CodeNotFound}
	ErrUserExists         = &Error{Code: apierror.CodeUserExists}
)

func invalidCredentials() *Error {
	return &Error{Code: apierror.CodeInvalidCredentials, Status: http.StatusBadRequest, Message: "Invalid username or password"}
}

func accountLocked(retryAfterMinutes int) *Error {
	if retryAfterMinutes <= 0 {
		return &Error{
			Code:    apierror.CodeAccountLocked,
			Status:  http.StatusForbidden,
			Message: "Account is locked. Contact an administrator to unlock it.",
		}
	}
	return &Error{
		Code:              apierror.CodeAccountLocked,
		Status:            http.StatusForbidden,
		Message:           fmt.Sprintf("Account is temporarily locked. Please try again in %d minutes.", retryAfterMinutes),
		RetryAfterMinutes: retryAfterMinutes,
	}
}

func accountLockedNow(retryAfterMinutes int) *Error {
	return &Error{
		Code:              apierror.CodeAccountLocked,
		Status:            http.StatusForbidden,
		Message:           fmt.Sprintf("Too many failed login attempts. Account is locked for %d minutes.", retryAfterMinutes),
		RetryAfterMinutes: retryAfterMinutes,
	}
}

func refreshTokenMissing() *Error {
	return &Error{Code: apierror.CodeTokenMissing, Status: http.StatusUnauthorized, Message: "Refresh token not found"}
}

func refreshTokenRejected(cause error) *Error {
	if errors.Is(cause, ErrTokenExpired) {
		return &Error{Code: apierror.CodeTokenExpired, Status: http.StatusForbidden, Message: "Refresh token expired", Cause: cause}
	}
	return &Error{Code: apierror.CodeTokenInvalid, Status: http.StatusForbidden, Message: "Invalid refresh token - validation failed", Cause: cause}
}

func refreshTokenMismatch(cause error) *Error {
	return &Error{Code: apierror.CodeRefreshMismatch, Status: http.StatusForbidden, Message: "Invalid refresh token", Cause: cause}
}

func adminUnauthorized() *Error {
	return &Error{Code: apierror.CodeAdminUnauthorized, Status: http.StatusForbidden, Message: "Not authorized to unlock accounts"}
}

func registrationUnauthorized() *Error {
	return &Error{Code: apierror.CodeAdminUnauthorized, Status: http.StatusForbidden, Message: "Not authorized to create users"}
}

func registrationIncomplete() *Error {
	return &Error{Code: apierror.CodeBadRequest, Status: http.StatusBadRequest, Message: "Username and password are required"}
}

func userExists() *Error {
	return &Error{Code: apierror.CodeUserExists, Status: http.StatusBadRequest, Message: "User already exists"}
}

func userNotFound() *Error {
	return &Error{Code: apierror.CodeNotFound, Status: http.StatusNotFound, Message: "User not found"}
}
