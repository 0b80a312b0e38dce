package pipeline

import "errors"

var (
	// ErrStatusNotFound is returned when no state is tracked for a request.
	ErrStatusNotFound = errors.New("status not found")

	// ErrTrackingDisabled is returned when no status store is configured.
	ErrTrackingDisabled = errors.New("status tracking disabled")
)
