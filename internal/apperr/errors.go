// Package apperr holds the sentinel errors shared across packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")

	// ErrNoMedia means an edit needs the video duration before it is known.
	ErrNoMedia = fmt.Errorf("no video duration: %w", ErrInvalid)
)
