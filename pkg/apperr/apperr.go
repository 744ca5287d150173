// Package apperr defines the typed errors the service layer returns.
// Handlers never build status codes themselves: the central Fiber error
// handler maps an *Error to its HTTP status and the JSON envelope
// {"error": code, "message": message}.
package apperr

import "fmt"

type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(400, "VALIDATION_ERROR", message)
}

func NotFound(message string) *Error {
	return New(404, "NOT_FOUND", message)
}

func Forbidden(message string) *Error {
	return New(403, "FORBIDDEN", message)
}

func Internal() *Error {
	return New(500, "INTERNAL", "Something went wrong on the server")
}

var (
	ErrInvalidCredentials = New(401, "INVALID_CREDENTIALS", "Username or password is incorrect")
	ErrDuplicateUsername  = New(409, "DUPLICATE_USERNAME", "Username already exists")
	ErrDuplicateEmail     = New(409, "DUPLICATE_EMAIL", "Email already exists")
	ErrMissingToken       = New(401, "MISSING_TOKEN", "Please provide a valid authentication token")
	ErrInvalidToken       = New(401, "INVALID_TOKEN", "Token is invalid")
	ErrTokenExpired       = New(401, "TOKEN_EXPIRED", "Token has expired")
	ErrSessionNotFound    = New(401, "SESSION_NOT_FOUND", "Session is invalid or has been revoked")
	ErrSessionExpired     = New(401, "SESSION_EXPIRED", "Session expired, please log in again")
	ErrWrongPassword      = New(401, "INCORRECT_CURRENT_PASSWORD", "Current password is incorrect")
	ErrRateLimited        = New(429, "RATE_LIMIT_EXCEEDED", "Too many submissions. Please wait before submitting again.")
	ErrNotRegistered      = New(403, "NOT_REGISTERED", "You are not registered for this contest")
	ErrContestNotStarted  = New(403, "CONTEST_NOT_STARTED", "This contest has not started yet")
	ErrContestEnded       = New(403, "CONTEST_ENDED", "This contest has already ended")
	ErrChallengeDone      = New(409, "CHALLENGE_ALREADY_COMPLETED", "Daily challenge already completed")
)
