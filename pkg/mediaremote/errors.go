package mediaremote

import "errors"

var (
	// ErrCommandFailed indicates the device rejected a remote-control
	// command.
	ErrCommandFailed = errors.New("mediaremote: command failed")

	// ErrVolumeUnknown indicates no volume level has been observed yet.
	ErrVolumeUnknown = errors.New("mediaremote: volume unknown")
)
