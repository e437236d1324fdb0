// Package apperr defines sentinel errors shared across the journal packages.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrAccessDenied = errors.New("access denied")
)
