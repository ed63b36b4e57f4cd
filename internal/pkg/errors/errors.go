package errors

import "errors"

var (
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks input rejected before touching storage.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLockHeld is returned when a named job lock is owned by another runner.
	ErrLockHeld = errors.New("lock held by another runner")
)
