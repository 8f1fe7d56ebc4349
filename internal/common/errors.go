// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Extraction errors.
	ErrInvalidInput   = errors.New("invalid input")
	ErrQuotaExceeded  = errors.New("monthly quota exceeded")
	ErrEmptyExport    = errors.New("nothing to export")
	ErrInvalidMessage = errors.New("unparseable chat line")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// QuotaExceededError reports a feature over its monthly limit, carrying the
// numbers a caller needs to render an upgrade prompt.
type QuotaExceededError struct {
	Feature      string
	MonthKey     string
	CurrentUsage int
	Limit        int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s in %s: %d of %d used",
		e.Feature, e.MonthKey, e.CurrentUsage, e.Limit)
}

// Unwrap lets errors.Is(err, ErrQuotaExceeded) see through the details.
func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}
