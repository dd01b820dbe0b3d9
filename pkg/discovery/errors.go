package discovery

import "errors"

var (
	// ErrUnknownService indicates a browse request for a service type
	// this resolver does not know how to map to a protocol.
	ErrUnknownService = errors.New("discovery: unknown service type")
)
