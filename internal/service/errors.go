package service

import "errors"

// Token-gated access failures are distinguished so the user-facing surface can
// render "invalid link", "expired link" and "already completed" separately.
var (
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("service: not found")
	// ErrTokenMismatch is returned when the supplied token does not match the
	// stored one. Surfaced to users as an invalid link.
	ErrTokenMismatch = errors.New("service: token mismatch")
	// ErrTokenExpired is returned when the token matched but its validity
	// window has closed.
	ErrTokenExpired = errors.New("service: token expired")
	// ErrWrongState is returned when the entity is no longer in a state that
	// permits the action. Surfaced to users as "already completed".
	ErrWrongState = errors.New("service: wrong state")
	// ErrAllItemsFailed is returned by a batch run in which every selected
	// item failed; it is the only per-item condition that fails the run.
	ErrAllItemsFailed = errors.New("service: all items failed")
)
