package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidQuantity is returned for quantities that can never be stored on a line.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrSessionExpired indicates the visitor session is gone or timed out.
	ErrSessionExpired = errors.New("session expired")
)
