package workflow

import "errors"

var (
	// ErrValidation is returned for malformed input (non-positive amounts, empty required fields)
	ErrValidation = errors.New("invalid input")

	// ErrStateConflict is returned when an operation is attempted from a status
	// outside its allowed set; the caller holds a stale view and should refresh
	ErrStateConflict = errors.New("state conflict")

	// ErrForbidden is returned when the actor's role does not match the
	// operation's required role, or the actor is not the owning employee
	ErrForbidden = errors.New("operation not permitted for role")

	// ErrNotFound is returned when the request id does not resolve to an entity
	ErrNotFound = errors.New("request not found")

	// ErrStorageUnavailable is returned when the persistence layer fails
	// unexpectedly; the whole operation may be retried
	ErrStorageUnavailable = errors.New("storage unavailable")
)
