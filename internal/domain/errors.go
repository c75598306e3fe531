// Package domain holds the error taxonomy shared by the store, files and
// panels packages.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - classify with errors.Is()
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage not configured")
	ErrIO         = errors.New("i/o failure")
	ErrParse      = errors.New("parse failure")
	ErrPermission = errors.New("permission denied")
	ErrDuplicate  = errors.New("duplicate content")
)

// DuplicateItem is the subset of an existing item reported by DuplicateError.
type DuplicateItem struct {
	ID       int64
	Label    string
	Path     string
	FileHash string
}

// DuplicateError reports that content with the same hash is already stored.
type DuplicateError struct {
	Existing DuplicateItem
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate content: already stored as item %d (%s)", e.Existing.ID, e.Existing.Path)
}

// Is lets errors.Is(err, ErrDuplicate) match a *DuplicateError.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalid wraps ErrValidation with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
