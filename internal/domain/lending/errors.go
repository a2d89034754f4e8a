package lending

import "errors"

// Failure taxonomy. Operations wrap these with context via fmt.Errorf("%w");
// callers branch with errors.Is.
var (
	// ErrNotFound: the id is zero or references no record.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidStatus: the record exists but is in the wrong state for the
	// requested transition.
	ErrInvalidStatus = errors.New("invalid status for requested action")
	// ErrOutOfBounds: a numeric field is outside template or safe limits.
	ErrOutOfBounds = errors.New("value out of bounds")
	// ErrUnauthorized: the caller lacks the required role or is not the
	// record's borrower.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrCapacityExceeded: the pool declines to commit the requested funds.
	ErrCapacityExceeded = errors.New("pool capacity exceeded")
	// ErrReentrancy: a guarded operation was re-entered while in progress.
	ErrReentrancy = errors.New("reentrant call")
	// ErrClosed: the desk is closed for new operations.
	ErrClosed = errors.New("desk closed")
)
