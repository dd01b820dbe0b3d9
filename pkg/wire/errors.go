package wire

import "errors"

// Wire errors.
var (
	// ErrInvalidKey is returned when a channel key has the wrong size.
	ErrInvalidKey = errors.New("wire: invalid key size")

	// ErrDecryptFailed is returned when an incoming frame fails
	// authentication. Fatal to the connection, never retried.
	ErrDecryptFailed = errors.New("wire: frame decryption failed")

	// ErrInvalidMessage is returned when an envelope or payload does not
	// parse.
	ErrInvalidMessage = errors.New("wire: invalid message encoding")

	// ErrNoPayload is returned when a payload decode is requested on a
	// message that carries none.
	ErrNoPayload = errors.New("wire: message has no payload")
)
