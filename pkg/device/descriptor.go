package device

import (
	"context"

	"github.com/castkit/castkit/pkg/relay"
)

// Capability names a capability surface for takeover requests.
type Capability string

// Capability surfaces.
const (
	CapabilityRemoteControl Capability = "remote-control"
	CapabilityMetadata      Capability = "metadata"
	CapabilityPushUpdates   Capability = "push-updates"
	CapabilityPower         Capability = "power"
	CapabilityAudio         Capability = "audio"
)

// Implementations bundles one backend's capability objects with the
// method names each one actually implements. A nil object leaves that
// capability unregistered for the backend.
type Implementations struct {
	RemoteControl        RemoteControl
	RemoteControlMethods []string

	Metadata        Metadata
	MetadataMethods []string

	PushUpdates        PushUpdates
	PushUpdatesMethods []string

	Power        Power
	PowerMethods []string

	Audio        Audio
	AudioMethods []string
}

// Descriptor describes one backend protocol a facade can connect.
type Descriptor struct {
	// Protocol tags the backend. Must appear in the facade's priority
	// order.
	Protocol relay.Protocol

	// Connect establishes the backend's session. A failing connect
	// leaves the backend unregistered without failing the facade.
	Connect func(ctx context.Context) error

	// Close tears the backend down. The returned channel closes when
	// cleanup has finished; a nil channel means cleanup was synchronous.
	Close func() <-chan struct{}

	// DeviceInfo reports backend-sourced device metadata. Merged
	// first-writer-wins across backends in connect order.
	DeviceInfo func() map[string]string

	// Capabilities are the backend's capability objects.
	Capabilities Implementations

	// Features declares which feature flags this backend supports.
	Features []Feature
}
