// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Ledger errors.
	ErrInvalidIndex  = errors.New("no record at that position")
	ErrInvalidRecord = errors.New("invalid record")

	// Persistence errors.
	ErrStoreCorrupted = errors.New("record store corrupted")
	ErrUnknownBackend = errors.New("unknown store backend")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials or user not found")
	ErrNotLoggedIn        = errors.New("not logged in")

	// Import errors.
	ErrNothingToImport = errors.New("no new records to import")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
