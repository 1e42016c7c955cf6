// Package apierror defines the error codes and JSON error body shared by the
// HTTP handlers and the session client.
package apierror

import (
	"encoding/json"
	"net/http"
)

// Code identifies the kind of failure independently of the human readable message.
type Code string

const (
	CodeBadRequest         Code = "BAD_REQUEST"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeAccountLocked      Code = "ACCOUNT_LOCKED"
	CodeTokenMissing       Code = "TOKEN_MISSING"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeRefreshMismatch    Code = "REFRESH_MISMATCH"
	CodeAdminUnauthorized  Code = "ADMIN_UNAUTHORIZED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUserExists         Code = "USER_EXISTS"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInternal           Code = "INTERNAL"
)

// Body is the JSON shape of every error response.
type Body struct {
	Message           string `json:"message"`
	Code              Code   `json:"code"`
	RetryAfterMinutes int    `json:"retryAfterMinutes,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func Write(w http.ResponseWriter, status int, code Code, message string) {
	WriteJSON(w, status, Body{Message: message, Code: code})
}
