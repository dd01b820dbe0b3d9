package exchange

import "errors"

var (
	// ErrNoSender indicates the engine was created without a send function.
	ErrNoSender = errors.New("exchange: no send function")

	// ErrTimeout indicates no correlated response arrived in time. The
	// connection itself may still be healthy.
	ErrTimeout = errors.New("exchange: request timed out")

	// ErrDuplicateRequest indicates a request is already pending under
	// the same correlation identifier.
	ErrDuplicateRequest = errors.New("exchange: duplicate request identifier")
)
