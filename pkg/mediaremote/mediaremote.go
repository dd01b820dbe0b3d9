// Package mediaremote is the backend for the encrypted remote protocol.
// It drives a session.Session and exposes the capability objects the
// device facade dispatches to.
package mediaremote

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/castkit/castkit/pkg/device"
	"github.com/castkit/castkit/pkg/handshake"
	"github.com/castkit/castkit/pkg/relay"
	"github.com/castkit/castkit/pkg/session"
	"github.com/castkit/castkit/pkg/wire"
)

// Protocol is this backend's tag in facade priority orders.
const Protocol relay.Protocol = "mediaremote"

// DefaultTimeout bounds capability round trips.
const DefaultTimeout = 5 * time.Second

// Config configures the backend.
type Config struct {
	// Addr is the device's control endpoint. Ignored when NetConn is
	// set.
	Addr string

	// NetConn is an already-established connection, mainly for tests.
	NetConn net.Conn

	// ClientID is this client's persistent pairing identifier.
	// Required.
	ClientID string

	// Name and Model identify this client to the device.
	Name  string
	Model string

	// Credentials from an earlier pairing. Required for an encrypted
	// session; without them the backend runs unauthenticated, which
	// devices typically only allow for pairing itself.
	Credentials *handshake.Credentials

	// Timeout bounds capability round trips. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// LoggerFactory creates the backend loggers. Optional.
	LoggerFactory logging.LoggerFactory
}

// Backend drives one mediaremote session and implements the capability
// interfaces.
type Backend struct {
	config  Config
	session *session.Session

	mu       sync.Mutex
	listener device.PushListener
	volume   float64
	hasVol   bool
}

// Setup builds the backend and its facade descriptor. The session is
// not connected until the facade's Connect runs the descriptor.
func Setup(config Config) (*Backend, device.Descriptor, error) {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	b := &Backend{config: config}
	sess, err := session.New(session.Config{
		Addr:          config.Addr,
		NetConn:       config.NetConn,
		ClientID:      config.ClientID,
		Name:          config.Name,
		Model:         config.Model,
		Credentials:   config.Credentials,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, device.Descriptor{}, err
	}
	b.session = sess

	// Now-playing pushes feed the explicit listener handle; volume
	// pushes keep the cached level current.
	sess.RegisterListener(wire.TypeSetState, b.onStatePush, false)
	sess.RegisterListener(wire.TypeVolumeDidChange, b.onVolumePush, false)

	descriptor := device.Descriptor{
		Protocol:   Protocol,
		Connect:    b.connect,
		Close:      b.close,
		DeviceInfo: b.deviceInfo,
		Capabilities: device.Implementations{
			RemoteControl:        b,
			RemoteControlMethods: device.RemoteControlMethods,
			Metadata:             b,
			MetadataMethods:      device.MetadataMethods,
			PushUpdates:          b,
			PushUpdatesMethods:   device.PushUpdatesMethods,
			Power:                b,
			PowerMethods:         device.PowerMethods,
			Audio:                b,
			AudioMethods:         device.AudioMethods,
		},
		Features: device.AllFeatures(),
	}
	return b, descriptor, nil
}

// Session exposes the underlying session, for pairing flows.
func (b *Backend) Session() *session.Session {
	return b.session
}

func (b *Backend) connect(ctx context.Context) error {
	return b.session.Start(ctx)
}

func (b *Backend) close() <-chan struct{} {
	b.session.Stop()
	return nil
}

func (b *Backend) deviceInfo() map[string]string {
	info := b.session.PeerInfo()
	if info == nil {
		return nil
	}
	out := map[string]string{
		"identifier": info.UniqueID,
		"name":       info.Name,
	}
	if info.Model != "" {
		out["model"] = info.Model
	}
	if info.SystemBuild != "" {
		out["build"] = info.SystemBuild
	}
	return out
}

// command sends a remote-control command and checks its result.
func (b *Backend) command(ctx context.Context, name string) error {
	msg, err := wire.NewMessage(wire.TypeCommand, &wire.CommandPayload{Command: name})
	if err != nil {
		return err
	}
	resp, err := b.session.SendAndReceive(ctx, msg, b.config.Timeout)
	if err != nil {
		return err
	}
	var result wire.CommandResultPayload
	if err := resp.DecodePayload(&result); err != nil {
		return err
	}
	if result.HandlerReturn != 0 {
		return fmt.Errorf("%w: %s (%s)", ErrCommandFailed, name, result.Detail)
	}
	return nil
}

// Up implements device.RemoteControl.
func (b *Backend) Up(ctx context.Context) error { return b.command(ctx, "up") }

// Down implements device.RemoteControl.
func (b *Backend) Down(ctx context.Context) error { return b.command(ctx, "down") }

// Left implements device.RemoteControl.
func (b *Backend) Left(ctx context.Context) error { return b.command(ctx, "left") }

// Right implements device.RemoteControl.
func (b *Backend) Right(ctx context.Context) error { return b.command(ctx, "right") }

// Select implements device.RemoteControl.
func (b *Backend) Select(ctx context.Context) error { return b.command(ctx, "select") }

// Menu implements device.RemoteControl.
func (b *Backend) Menu(ctx context.Context) error { return b.command(ctx, "menu") }

// Home implements device.RemoteControl.
func (b *Backend) Home(ctx context.Context) error { return b.command(ctx, "home") }

// Play implements device.RemoteControl.
func (b *Backend) Play(ctx context.Context) error { return b.command(ctx, "play") }

// Pause implements device.RemoteControl.
func (b *Backend) Pause(ctx context.Context) error { return b.command(ctx, "pause") }

// Next implements device.RemoteControl.
func (b *Backend) Next(ctx context.Context) error { return b.command(ctx, "nextitem") }

// Previous implements device.RemoteControl.
func (b *Backend) Previous(ctx context.Context) error { return b.command(ctx, "previtem") }

// Playing implements device.Metadata.
func (b *Backend) Playing(ctx context.Context) (*device.Playing, error) {
	msg, err := wire.NewMessage(wire.TypeGetState, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.session.SendAndReceive(ctx, msg, b.config.Timeout)
	if err != nil {
		return nil, err
	}
	var state wire.SetStatePayload
	if err := resp.DecodePayload(&state); err != nil {
		return nil, err
	}
	return playingFromState(&state), nil
}

// SetPushListener implements device.PushUpdates.
func (b *Backend) SetPushListener(fn device.PushListener) {
	b.mu.Lock()
	b.listener = fn
	b.mu.Unlock()
}

// ClearPushListener implements device.PushUpdates.
func (b *Backend) ClearPushListener() {
	b.mu.Lock()
	b.listener = nil
	b.mu.Unlock()
}

// PowerState implements device.Power.
func (b *Backend) PowerState(ctx context.Context) (wire.PowerState, error) {
	msg, err := wire.NewMessage(wire.TypePowerState, nil)
	if err != nil {
		return wire.PowerStateUnknown, err
	}
	resp, err := b.session.SendAndReceive(ctx, msg, b.config.Timeout)
	if err != nil {
		return wire.PowerStateUnknown, err
	}
	var state wire.PowerStatePayload
	if err := resp.DecodePayload(&state); err != nil {
		return wire.PowerStateUnknown, err
	}
	return state.State, nil
}

// Wake implements device.Power.
func (b *Backend) Wake(ctx context.Context) error {
	msg, err := wire.NewMessage(wire.TypeWakeDevice, nil)
	if err != nil {
		return err
	}
	return b.session.Send(msg)
}

// SetVolume implements device.Audio.
func (b *Backend) SetVolume(ctx context.Context, level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("mediaremote: volume %v out of range", level)
	}
	msg, err := wire.NewMessage(wire.TypeSetVolume, &wire.VolumePayload{Level: level})
	if err != nil {
		return err
	}
	resp, err := b.session.SendAndReceive(ctx, msg, b.config.Timeout)
	if err != nil {
		return err
	}
	var vol wire.VolumePayload
	if err := resp.DecodePayload(&vol); err != nil {
		return err
	}
	b.setVolume(vol.Level)
	return nil
}

// Volume implements device.Audio. The level comes from the device's
// volume pushes; before the first one arrives there is nothing to
// report.
func (b *Backend) Volume(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasVol {
		return 0, ErrVolumeUnknown
	}
	return b.volume, nil
}

func (b *Backend) onStatePush(msg *wire.Message) {
	var state wire.SetStatePayload
	if err := msg.DecodePayload(&state); err != nil {
		return
	}
	b.mu.Lock()
	fn := b.listener
	b.mu.Unlock()
	if fn != nil {
		fn(*playingFromState(&state))
	}
}

func (b *Backend) onVolumePush(msg *wire.Message) {
	var vol wire.VolumePayload
	if err := msg.DecodePayload(&vol); err != nil {
		return
	}
	b.setVolume(vol.Level)
}

func (b *Backend) setVolume(level float64) {
	b.mu.Lock()
	b.volume = level
	b.hasVol = true
	b.mu.Unlock()
}

func playingFromState(state *wire.SetStatePayload) *device.Playing {
	return &device.Playing{
		State:    state.State,
		Title:    state.Title,
		Artist:   state.Artist,
		Album:    state.Album,
		App:      state.App,
		Position: state.Position,
		Duration: state.Duration,
	}
}
