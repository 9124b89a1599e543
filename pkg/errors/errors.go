// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already registered")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPredictionNotFound  = errors.New("prediction not found")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrDeviceEventNotFound = errors.New("device event not found")

	// Simulation errors
	ErrNoEligibleAccount = errors.New("no registered accounts with phone numbers found")

	// Notification errors
	ErrInvalidPhone = errors.New("phone number did not normalize to 10 digits")
	ErrNoRecipient  = errors.New("no recipient phone number provided")

	// Request errors
	ErrDuplicateRequest = errors.New("duplicate request in flight")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
