package handshake

import (
	"errors"
	"fmt"
	"time"
)

// Handshake errors.
var (
	// ErrAuthentication is returned on any proof or signature mismatch:
	// wrong key, wrong PIN derivation, or a tampered block.
	ErrAuthentication = errors.New("handshake: authentication failed")

	// ErrInvalidState is returned when a step runs out of order.
	ErrInvalidState = errors.New("handshake: invalid protocol state")

	// ErrInvalidBlock is returned when a TLV block lacks required items.
	ErrInvalidBlock = errors.New("handshake: invalid handshake block")
)

// BackOffError reports server-side rate limiting during pairing. The
// caller is expected to wait Backoff and retry; the engine never retries
// on its own.
type BackOffError struct {
	Backoff time.Duration
}

func (e *BackOffError) Error() string {
	return fmt.Sprintf("handshake: device requested back-off of %s", e.Backoff)
}

// PairingError wraps any failure of a pairing step. It is the only error
// type, besides BackOffError, that the public pairing surface produces.
type PairingError struct {
	Err error
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("handshake: pairing failed: %v", e.Err)
}

func (e *PairingError) Unwrap() error {
	return e.Err
}

// WrapPairing normalizes err into the pairing taxonomy: BackOffError
// passes through, anything else is wrapped in PairingError.
func WrapPairing(err error) error {
	if err == nil {
		return nil
	}
	var backoff *BackOffError
	if errors.As(err, &backoff) {
		return err
	}
	var pairing *PairingError
	if errors.As(err, &pairing) {
		return err
	}
	return &PairingError{Err: err}
}
