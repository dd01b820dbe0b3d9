// Package device composes one session per backend protocol behind a
// single device handle. Capability calls are dispatched through
// priority-ordered relays; device metadata and feature support are
// aggregated across the connected backends.
package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/logging"

	"github.com/castkit/castkit/pkg/relay"
)

// State tracks the facade lifecycle.
type State int

// Facade states.
const (
	StateUnconfigured State = iota
	StateConnected
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StateConnected:
		return "Connected"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Config configures a Facade.
type Config struct {
	// Priority is the total order over protocol tags, most preferred
	// first. Required.
	Priority []relay.Protocol

	// LoggerFactory creates the facade logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Priority) == 0 {
		return fmt.Errorf("device: Priority is required")
	}
	return nil
}

// Facade is a single handle over N backend protocol sessions.
type Facade struct {
	config Config
	log    logging.LeveledLogger

	remote   *relay.Relay[RemoteControl]
	metadata *relay.Relay[Metadata]
	push     *relay.Relay[PushUpdates]
	power    *relay.Relay[Power]
	audio    *relay.Relay[Audio]

	mu          sync.Mutex
	state       State
	descriptors []Descriptor
	connected   []Descriptor
	info        map[string]string
	features    map[Feature]bool
	closeCh     chan struct{}
}

// New creates an unconfigured facade dispatching by config.Priority.
func New(config Config) (*Facade, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	f := &Facade{
		config:   config,
		remote:   relay.New[RemoteControl](RemoteControlMethods, config.Priority),
		metadata: relay.New[Metadata](MetadataMethods, config.Priority),
		push:     relay.New[PushUpdates](PushUpdatesMethods, config.Priority),
		power:    relay.New[Power](PowerMethods, config.Priority),
		audio:    relay.New[Audio](AudioMethods, config.Priority),
		info:     make(map[string]string),
		features: make(map[Feature]bool),
	}
	if config.LoggerFactory != nil {
		f.log = config.LoggerFactory.NewLogger("facade")
	}
	return f, nil
}

// AddProtocol accumulates a backend descriptor. Only valid before
// Connect.
func (f *Facade) AddProtocol(d Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateUnconfigured {
		return fmt.Errorf("%w: add protocol in state %s", ErrInvalidState, f.state)
	}
	f.descriptors = append(f.descriptors, d)
	return nil
}

// Connect connects every added backend. Backends whose connect fails
// are skipped; the facade still reports success as long as it ran (a
// facade with zero live backends answers capability calls with
// ErrNotSupported). Duplicate protocol tags beyond the first are
// ignored.
func (f *Facade) Connect(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateUnconfigured {
		f.mu.Unlock()
		return fmt.Errorf("%w: connect in state %s", ErrInvalidState, f.state)
	}
	if len(f.descriptors) == 0 {
		f.mu.Unlock()
		return ErrNoService
	}
	descriptors := append([]Descriptor(nil), f.descriptors...)
	f.mu.Unlock()

	seen := make(map[relay.Protocol]bool, len(descriptors))
	for _, d := range descriptors {
		if seen[d.Protocol] {
			continue
		}
		seen[d.Protocol] = true

		if err := d.Connect(ctx); err != nil {
			if f.log != nil {
				f.log.Warnf("backend %s failed to connect: %v", d.Protocol, err)
			}
			continue
		}
		if err := f.registerBackend(d); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.state = StateConnected
	n := len(f.connected)
	f.mu.Unlock()

	if f.log != nil {
		f.log.Infof("connected with %d of %d backends", n, len(descriptors))
	}
	return nil
}

// registerBackend wires one successfully connected backend into the
// relays and the aggregate device info.
func (f *Facade) registerBackend(d Descriptor) error {
	caps := d.Capabilities
	if caps.RemoteControl != nil {
		if err := f.remote.Register(d.Protocol, caps.RemoteControl, caps.RemoteControlMethods); err != nil {
			return err
		}
	}
	if caps.Metadata != nil {
		if err := f.metadata.Register(d.Protocol, caps.Metadata, caps.MetadataMethods); err != nil {
			return err
		}
	}
	if caps.PushUpdates != nil {
		if err := f.push.Register(d.Protocol, caps.PushUpdates, caps.PushUpdatesMethods); err != nil {
			return err
		}
	}
	if caps.Power != nil {
		if err := f.power.Register(d.Protocol, caps.Power, caps.PowerMethods); err != nil {
			return err
		}
	}
	if caps.Audio != nil {
		if err := f.audio.Register(d.Protocol, caps.Audio, caps.AudioMethods); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	// First connected backend's values win; later backends only add
	// keys that are still missing.
	if d.DeviceInfo != nil {
		for k, v := range d.DeviceInfo() {
			if _, exists := f.info[k]; !exists {
				f.info[k] = v
			}
		}
	}
	for _, feature := range d.Features {
		f.features[feature] = true
	}
	f.connected = append(f.connected, d)
	return nil
}

// Close tears down every connected backend. The returned channel closes
// once all backend cleanup has finished; calling Close again returns
// the same channel.
func (f *Facade) Close() <-chan struct{} {
	f.mu.Lock()
	if f.closeCh != nil {
		ch := f.closeCh
		f.mu.Unlock()
		return ch
	}
	f.state = StateClosed
	f.closeCh = make(chan struct{})
	ch := f.closeCh
	connected := f.connected
	f.mu.Unlock()

	go func() {
		defer close(ch)
		for _, d := range connected {
			if d.Capabilities.PushUpdates != nil {
				d.Capabilities.PushUpdates.ClearPushListener()
			}
			if d.Close == nil {
				continue
			}
			if done := d.Close(); done != nil {
				<-done
			}
		}
		if f.log != nil {
			f.log.Info("facade closed")
		}
	}()
	return ch
}

// Takeover grants tag first refusal on the named capabilities. All or
// nothing: if any capability's relay refuses, relays already taken over
// by this call are released before the error is returned.
func (f *Facade) Takeover(tag relay.Protocol, capabilities ...Capability) error {
	taken := make([]Capability, 0, len(capabilities))
	for _, c := range capabilities {
		r, err := f.relayFor(c)
		if err == nil {
			err = r.Takeover(tag)
		}
		if err != nil {
			for _, prev := range taken {
				if r, relayErr := f.relayFor(prev); relayErr == nil {
					r.Release()
				}
			}
			return err
		}
		taken = append(taken, c)
	}
	return nil
}

// Release clears takeovers on the named capabilities.
func (f *Facade) Release(capabilities ...Capability) error {
	for _, c := range capabilities {
		r, err := f.relayFor(c)
		if err != nil {
			return err
		}
		r.Release()
	}
	return nil
}

// takeoverReleaser is the takeover surface shared by all relay
// instantiations.
type takeoverReleaser interface {
	Takeover(relay.Protocol) error
	Release()
}

func (f *Facade) relayFor(c Capability) (takeoverReleaser, error) {
	switch c {
	case CapabilityRemoteControl:
		return f.remote, nil
	case CapabilityMetadata:
		return f.metadata, nil
	case CapabilityPushUpdates:
		return f.push, nil
	case CapabilityPower:
		return f.power, nil
	case CapabilityAudio:
		return f.audio, nil
	default:
		return nil, fmt.Errorf("%w: unknown capability %q", relay.ErrBadRegistration, c)
	}
}

// Remote returns the RemoteControl relay.
func (f *Facade) Remote() *relay.Relay[RemoteControl] { return f.remote }

// Metadata returns the Metadata relay.
func (f *Facade) Metadata() *relay.Relay[Metadata] { return f.metadata }

// Push returns the PushUpdates relay.
func (f *Facade) Push() *relay.Relay[PushUpdates] { return f.push }

// Power returns the Power relay.
func (f *Facade) Power() *relay.Relay[Power] { return f.power }

// Audio returns the Audio relay.
func (f *Facade) Audio() *relay.Relay[Audio] { return f.audio }

// State returns the current facade state.
func (f *Facade) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// DeviceInfo returns the aggregated device metadata.
func (f *Facade) DeviceInfo() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.info))
	for k, v := range f.info {
		out[k] = v
	}
	return out
}

// Supports reports whether any connected backend declared the feature.
func (f *Facade) Supports(feature Feature) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.features[feature]
}
