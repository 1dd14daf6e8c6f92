// Package storage provides SQLite persistence for the ledger and for pending decisions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Shlokpalrecha/Finguru/internal/common"
	"github.com/Shlokpalrecha/Finguru/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidDateRange = fmt.Errorf("%w: start date must not be after end date", common.ErrInvalidInput)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", common.ErrInvalidInput)
	ErrInvalidEntry     = fmt.Errorf("%w: invalid ledger entry", common.ErrInvalidInput)
	ErrInvalidPending   = fmt.Errorf("%w: invalid pending decision", common.ErrInvalidInput)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDate checks a YYYY-MM-DD string.
func validateDate(s string, paramName string) error {
	if _, err := time.Parse(model.DateLayout, s); err != nil {
		return fmt.Errorf("%w: %s %q", ErrInvalidDate, paramName, s)
	}
	return nil
}

// validateDateRange checks both bounds and their order.
func validateDateRange(start, end string) error {
	if err := validateDate(start, "start"); err != nil {
		return err
	}
	if err := validateDate(end, "end"); err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, start, end)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// validateEntry checks a ledger entry before it is written.
func validateEntry(e model.LedgerEntry) error {
	switch {
	case strings.TrimSpace(e.TransactionID) == "":
		return fmt.Errorf("%w: missing transaction id", ErrInvalidEntry)
	case strings.TrimSpace(e.Category) == "":
		return fmt.Errorf("%w: missing category", ErrInvalidEntry)
	case !e.Source.Valid():
		return fmt.Errorf("%w: source %q", ErrInvalidEntry, e.Source)
	case !finite(e.Amount) || e.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	case !finite(e.GSTRate) || e.GSTRate < 0 || e.GSTRate > 100:
		return fmt.Errorf("%w: gst rate must be between 0 and 100", ErrInvalidEntry)
	case !finite(e.GSTAmount) || e.GSTAmount < 0:
		return fmt.Errorf("%w: gst amount cannot be negative", ErrInvalidEntry)
	case !finite(e.Confidence) || e.Confidence < 0 || e.Confidence > 1:
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidEntry)
	case strings.TrimSpace(e.Explanation) == "":
		return fmt.Errorf("%w: missing explanation", ErrInvalidEntry)
	case strings.TrimSpace(e.CreatedAt) == "":
		return fmt.Errorf("%w: missing created_at", ErrInvalidEntry)
	}
	if err := validateDate(e.Date, "date"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return nil
}

// validatePending checks a pending decision before it is written.
func validatePending(d model.PendingDecision) error {
	switch {
	case strings.TrimSpace(d.TransactionID) == "":
		return fmt.Errorf("%w: missing transaction id", ErrInvalidPending)
	case d.ExpiresAt.IsZero():
		return fmt.Errorf("%w: missing expiry", ErrInvalidPending)
	case d.ExpiresAt.Before(d.CreatedAt):
		return fmt.Errorf("%w: expires before it was created", ErrInvalidPending)
	}
	return nil
}
