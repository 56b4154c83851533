package models

import "errors"

// Domain error kinds. Handlers map these to HTTP statuses with errors.Is;
// engines wrap them with context via fmt.Errorf("...: %w", Err...).
var (
	// ErrForbidden covers every scope or role violation. It is deliberately
	// also returned for targets outside the caller's scope that do not exist,
	// so existence never leaks across scopes.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition covers illegal status moves and missing
	// transition preconditions.
	ErrInvalidTransition = errors.New("invalid transition")

	// Merge precondition failures.
	ErrAlreadyMerged     = errors.New("case already merged")
	ErrCaseClosed        = errors.New("case closed")
	ErrInsufficientCount = errors.New("insufficient case count")

	// ErrValidation covers malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is only used for records provably within the caller's own
	// scope but absent.
	ErrNotFound = errors.New("not found")
)
