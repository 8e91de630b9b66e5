package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("resource already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrInternalServer   = errors.New("internal server error")
	ErrInvalidReference = errors.New("invalid reference")

	// Login outcomes
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidChallenge   = errors.New("invalid challenge answer")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Sizing input
	ErrInvalidEfficiency  = errors.New("invalid efficiency factor")
	ErrInvalidBillingMode = errors.New("invalid billing mode")

	ErrInvalidToken = errors.New("invalid or expired token")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrBadRequest
}

// ConflictError is a conflict whose message is safe to show to the client.
type ConflictError struct {
	Message string
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string {
	return ErrConflict.Error() + ": " + e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
