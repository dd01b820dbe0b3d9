package transport

import (
	"errors"
	"fmt"
)

// Transport errors.
var (
	// ErrNoHandler is returned when no message handler is configured.
	ErrNoHandler = errors.New("transport: no message handler configured")

	// ErrClosed is returned when an operation is attempted on a closed
	// transport.
	ErrClosed = errors.New("transport: closed")

	// ErrNotConnected is returned when sending before Connect.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("transport: already connected")

	// ErrFrameTooLarge is returned when a frame's declared length
	// exceeds MaxFrameSize. Fatal to the connection.
	ErrFrameTooLarge = errors.New("transport: frame exceeds maximum size")
)

// ConnectFailedError reports an OS-level connect error or timeout.
type ConnectFailedError struct {
	Addr string
	Err  error
}

func (e *ConnectFailedError) Error() string {
	return fmt.Sprintf("transport: connect to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectFailedError) Unwrap() error {
	return e.Err
}
