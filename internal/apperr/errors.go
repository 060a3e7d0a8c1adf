// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrSuperseded is returned when an in-flight validation observes that
	// a newer edit of the same note has arrived; the stale result must be
	// discarded, not applied.
	ErrSuperseded = errors.New("superseded by newer edit")
)
