package session

import "errors"

var (
	// ErrInvalidState indicates a call the current session state does
	// not permit.
	ErrInvalidState = errors.New("session: invalid state")

	// ErrStopped resolves requests still pending when the session is
	// torn down.
	ErrStopped = errors.New("session: stopped")

	// ErrConnectionLost resolves requests still pending when the peer
	// drops the connection.
	ErrConnectionLost = errors.New("session: connection lost")

	// ErrNoAddress indicates a config with neither an address nor an
	// injected connection.
	ErrNoAddress = errors.New("session: no address")

	// ErrNoCredentials indicates verification was requested without
	// stored credentials.
	ErrNoCredentials = errors.New("session: no credentials")

	// ErrNotPaired indicates finish was called before a pairing
	// conversation reached the PIN stage.
	ErrNotPaired = errors.New("session: pairing not started")
)
