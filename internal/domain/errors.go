package domain

import "errors"

var (
	// ErrInvalidUpdate marks malformed or out-of-range input. The event
	// is dropped without retry; malformed input is a client bug, not a
	// transient failure.
	ErrInvalidUpdate = errors.New("invalid presence update")

	// ErrStoreUnavailable marks a failed round trip to the shared store.
	// Surfaced to the caller; callers retry on their own schedule.
	ErrStoreUnavailable = errors.New("presence store unavailable")

	// ErrAlreadySubscribed marks a protocol error at the connection
	// layer: a connection binds to exactly one site for its lifetime.
	ErrAlreadySubscribed = errors.New("connection already subscribed")
)
