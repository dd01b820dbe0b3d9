package device

import "errors"

var (
	// ErrNoService indicates Connect was called without any descriptors.
	ErrNoService = errors.New("device: no protocol descriptors")

	// ErrInvalidState indicates a call the current facade state does
	// not permit.
	ErrInvalidState = errors.New("device: invalid state")
)
