// Package apierror defines the typed HTTP error kinds every handler in
// internal/httpapi returns instead of building ad hoc JSON bodies inline.
package apierror

import "net/http"

// Error is a typed API error carrying the HTTP status it maps to.
type Error struct {
	Kind    string `json:"-"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// JSON is the wire shape returned to clients: {"error": "...", "message": "..."}.
type JSON struct {
	ErrorKind string `json:"error"`
	Message   string `json:"message"`
}

// Body renders the error kind and message for c.JSON.
func (e *Error) Body() JSON {
	return JSON{ErrorKind: e.Kind, Message: e.Message}
}

func newErr(kind string, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Auth covers bad credentials and expired/invalid tokens. Never reveals
// whether a username exists.
func Auth(message string) *Error {
	if message == "" {
		message = "invalid credentials"
	}
	return newErr("auth_error", http.StatusUnauthorized, message)
}

// NotFound covers unknown probe ids and missing diagnostics artifacts.
func NotFound(message string) *Error {
	return newErr("not_found", http.StatusNotFound, message)
}

// Conflict covers a diagnostics collection already in progress.
func Conflict(message string) *Error {
	return newErr("conflict", http.StatusConflict, message)
}

// Validation covers malformed request bodies and bad hostname/URL syntax.
func Validation(message string) *Error {
	return newErr("validation_error", http.StatusUnprocessableEntity, message)
}

// RateLimited covers login brute-force protection.
func RateLimited(message string) *Error {
	if message == "" {
		message = "too many login attempts, try again later"
	}
	return newErr("rate_limited", http.StatusTooManyRequests, message)
}

// Internal covers unexpected failures with no leaked detail.
func Internal() *Error {
	return newErr("internal_error", http.StatusInternalServerError, "internal_error")
}
