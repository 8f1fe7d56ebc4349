// Package storage provides the data persistence layer for the chatledger application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketmoney/chatledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidExtraction = errors.New("invalid extraction")
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

// validateStoredExtraction validates an extraction before it hits the database.
func validateStoredExtraction(ext *model.StoredExtraction) error {
	if ext == nil {
		return fmt.Errorf("%w: extraction", ErrNilParameter)
	}
	if strings.TrimSpace(ext.UserID) == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidExtraction)
	}
	if ext.Status != model.StatusProcessed && ext.Status != model.StatusNeedsReview {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidExtraction, ext.Status)
	}
	if err := ext.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExtraction, err)
	}
	return nil
}
