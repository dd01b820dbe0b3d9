package relay

import "errors"

var (
	// ErrNotSupported indicates no registered backend implements the
	// requested method. Callers should not retry.
	ErrNotSupported = errors.New("relay: not supported")

	// ErrInvalidState indicates a takeover while another is active.
	ErrInvalidState = errors.New("relay: invalid state")

	// ErrBadRegistration indicates a protocol tag or method name outside
	// the relay's configuration. This is a programming error.
	ErrBadRegistration = errors.New("relay: bad registration")
)
