// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Ledger errors.
	ErrNotFound             = errors.New("not found")
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrPendingNotFound      = errors.New("pending decision not found")

	// Specification errors.
	ErrSpecLoad = errors.New("specification load failed")

	// Oracle errors.
	ErrOracleUnavailable       = errors.New("oracle unavailable")
	ErrOracleContractViolation = errors.New("oracle contract violation")

	// Input errors.
	ErrInvalidInput = errors.New("invalid input")

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

// UserMessage maps a pipeline error to the message shown to whoever submitted the signal.
func UserMessage(err error) string {
	var userErr *UserError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &userErr):
		return userErr.UserMessage
	case errors.Is(err, ErrOracleUnavailable):
		return "The reasoning service is unavailable right now. Please try again."
	case errors.Is(err, ErrOracleContractViolation):
		return "Could not read a valid expense from this input. Please try again."
	case errors.Is(err, ErrPendingNotFound):
		return "This entry is no longer awaiting confirmation. Please upload it again."
	case errors.Is(err, ErrNotFound):
		return "No such entry."
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return "Processing failed."
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrOracleUnavailable) ||
		errors.Is(err, ErrOracleContractViolation) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
