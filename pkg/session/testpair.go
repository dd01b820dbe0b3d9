package session

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/castkit/castkit/pkg/crypto"
	"github.com/castkit/castkit/pkg/handshake"
	"github.com/castkit/castkit/pkg/varint"
	"github.com/castkit/castkit/pkg/wire"
)

// TestDevice is a scripted device peer for end-to-end tests. It speaks
// the full wire protocol on one connection: intro exchange, pair-setup
// with a fixed PIN, pair-verify with encryption, commands, state
// queries, and pushes. Higher layers test against it as well.
type TestDevice struct {
	config TestDeviceConfig

	signing *crypto.SigningKey

	mu       sync.Mutex
	conn     net.Conn
	channel  *wire.Channel
	pairing  *handshake.ResponderPairing
	verify   *handshake.ResponderVerify
	clients  map[string][]byte
	commands []string
	volume   float64
	state    wire.SetStatePayload
}

// TestDeviceConfig configures a TestDevice.
type TestDeviceConfig struct {
	DeviceID string
	Name     string
	Model    string

	// PIN accepted during pair-setup.
	PIN string

	// Signing is the device's long-term key. Generated when nil.
	Signing *crypto.SigningKey

	// Backoff makes pair-setup reject the proof step with a back-off
	// error of this duration.
	Backoff time.Duration

	// KnownClients pre-seeds paired clients (ClientID to long-term
	// public key) so pair-verify succeeds without a pairing run.
	KnownClients map[string][]byte

	// ImmediateClose drops the connection as soon as Serve is called.
	ImmediateClose bool

	// Capabilities announced in the intro reply.
	Capabilities []string
}

// NewTestDevice creates a scripted device peer.
func NewTestDevice(config TestDeviceConfig) (*TestDevice, error) {
	signing := config.Signing
	if signing == nil {
		var err error
		signing, err = crypto.GenerateSigningKey()
		if err != nil {
			return nil, err
		}
	}
	clients := make(map[string][]byte, len(config.KnownClients))
	for id, ltpk := range config.KnownClients {
		clients[id] = ltpk
	}
	return &TestDevice{
		config:  config,
		signing: signing,
		clients: clients,
		state: wire.SetStatePayload{
			State: wire.PlayingStatePlaying,
			Title: "Test Title",
			App:   "Test App",
		},
	}, nil
}

// Signing returns the device's long-term key, for seeding a second
// device instance with the same identity.
func (d *TestDevice) Signing() *crypto.SigningKey {
	return d.signing
}

// Clients returns the paired clients learned so far.
func (d *TestDevice) Clients() map[string][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string][]byte, len(d.clients))
	for id, ltpk := range d.clients {
		out[id] = ltpk
	}
	return out
}

// Commands returns the remote-control commands received so far.
func (d *TestDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// Volume returns the last volume level set.
func (d *TestDevice) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Serve runs the device side of conn in a background goroutine until
// the connection ends.
func (d *TestDevice) Serve(conn net.Conn) {
	if d.config.ImmediateClose {
		conn.Close()
		return
	}
	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	go d.readLoop(conn)
}

// PushState sends an unsolicited now-playing update.
func (d *TestDevice) PushState(state wire.SetStatePayload) error {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
	msg, err := wire.NewMessage(wire.TypeSetState, &state)
	if err != nil {
		return err
	}
	return d.send(msg)
}

// PushNotification sends an unsolicited advisory notification.
func (d *TestDevice) PushNotification(name string) error {
	msg, err := wire.NewMessage(wire.TypeNotification, &wire.NotificationPayload{Name: name})
	if err != nil {
		return err
	}
	return d.send(msg)
}

// Close drops the connection.
func (d *TestDevice) Close() {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (d *TestDevice) readLoop(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		length, err := varint.Read(reader)
		if err != nil {
			return
		}
		payload := make([]byte, length)
		if _, err := io.ReadFull(reader, payload); err != nil {
			return
		}

		d.mu.Lock()
		channel := d.channel
		d.mu.Unlock()
		if channel != nil {
			payload, err = channel.Decrypt(payload)
			if err != nil {
				return
			}
		}

		msg, err := wire.Decode(payload)
		if err != nil {
			return
		}
		if err := d.handle(msg); err != nil {
			return
		}
	}
}

func (d *TestDevice) handle(msg *wire.Message) error {
	switch msg.Type {
	case wire.TypeDeviceInfo:
		return d.handleIntro(msg)
	case wire.TypePairingData:
		return d.handlePairing(msg)
	case wire.TypeCryptoPairing:
		return d.handleVerify(msg)
	case wire.TypeCommand:
		return d.handleCommand(msg)
	case wire.TypeGetState:
		d.mu.Lock()
		state := d.state
		d.mu.Unlock()
		return d.reply(wire.TypeSetState, msg.Identifier, &state)
	case wire.TypeSetVolume:
		var vol wire.VolumePayload
		if err := msg.DecodePayload(&vol); err != nil {
			return err
		}
		d.mu.Lock()
		d.volume = vol.Level
		d.mu.Unlock()
		return d.reply(wire.TypeVolumeDidChange, msg.Identifier, &vol)
	case wire.TypePowerState:
		return d.reply(wire.TypePowerState, msg.Identifier, &wire.PowerStatePayload{State: wire.PowerStateAwake})
	case wire.TypeWakeDevice:
		d.mu.Lock()
		d.commands = append(d.commands, "wake")
		d.mu.Unlock()
		if msg.Identifier == "" {
			return nil
		}
		return d.reply(wire.TypeCommandResult, msg.Identifier, &wire.CommandResultPayload{})
	case wire.TypeRegisterForUpdates:
		d.mu.Lock()
		state := d.state
		d.mu.Unlock()
		return d.reply(wire.TypeSetState, msg.Identifier, &state)
	default:
		return nil
	}
}

func (d *TestDevice) handleIntro(msg *wire.Message) error {
	err := d.reply(wire.TypeDeviceInfo, msg.Identifier, &wire.DeviceInfoPayload{
		UniqueID:        d.config.DeviceID,
		Name:            d.config.Name,
		Model:           d.config.Model,
		ProtocolVersion: 1,
		Capabilities:    d.config.Capabilities,
	})
	if err != nil {
		return err
	}
	// Devices push their player state shortly after introductions.
	d.mu.Lock()
	state := d.state
	d.mu.Unlock()
	push, err := wire.NewMessage(wire.TypeSetState, &state)
	if err != nil {
		return err
	}
	return d.send(push)
}

func (d *TestDevice) handlePairing(msg *wire.Message) error {
	var payload wire.PairingDataPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return err
	}

	d.mu.Lock()
	pairing := d.pairing
	d.mu.Unlock()
	if pairing == nil {
		var err error
		pairing, err = handshake.NewResponderPairing(handshake.ResponderPairingConfig{
			DeviceID: d.config.DeviceID,
			PIN:      d.config.PIN,
			Signing:  d.signing,
			Backoff:  d.config.Backoff,
		})
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.pairing = pairing
		d.mu.Unlock()
	}

	reply, done, err := pairing.HandleMessage(payload.Data)
	if err != nil {
		return err
	}
	if done {
		d.mu.Lock()
		d.clients[pairing.ClientID] = pairing.ClientLTPK
		d.pairing = nil
		d.mu.Unlock()
	}
	return d.reply(wire.TypePairingData, msg.Identifier, &wire.PairingDataPayload{Data: reply})
}

func (d *TestDevice) handleVerify(msg *wire.Message) error {
	var payload wire.CryptoPairingPayload
	if err := msg.DecodePayload(&payload); err != nil {
		return err
	}

	d.mu.Lock()
	verify := d.verify
	d.mu.Unlock()
	if verify == nil {
		verify = handshake.NewResponderVerify(handshake.ResponderVerifyConfig{
			DeviceID: d.config.DeviceID,
			Signing:  d.signing,
			LookupClient: func(clientID string) ([]byte, bool) {
				d.mu.Lock()
				defer d.mu.Unlock()
				ltpk, ok := d.clients[clientID]
				return ltpk, ok
			},
		})
		d.mu.Lock()
		d.verify = verify
		d.mu.Unlock()
	}

	reply, done, err := verify.HandleMessage(payload.Data)
	if err != nil {
		return err
	}
	if err := d.reply(wire.TypeCryptoPairing, msg.Identifier, &wire.CryptoPairingPayload{Data: reply}); err != nil {
		return err
	}
	if done {
		keys, err := verify.SessionKeys()
		if err != nil {
			return err
		}
		channel, err := wire.NewChannel(keys)
		if err != nil {
			return err
		}
		d.mu.Lock()
		d.channel = channel
		d.verify = nil
		d.mu.Unlock()
	}
	return nil
}

func (d *TestDevice) handleCommand(msg *wire.Message) error {
	var cmd wire.CommandPayload
	if err := msg.DecodePayload(&cmd); err != nil {
		return err
	}
	d.mu.Lock()
	d.commands = append(d.commands, cmd.Command)
	d.mu.Unlock()
	if msg.Identifier == "" {
		return nil
	}
	return d.reply(wire.TypeCommandResult, msg.Identifier, &wire.CommandResultPayload{})
}

func (d *TestDevice) reply(t wire.MessageType, identifier string, payload interface{}) error {
	msg, err := wire.NewMessage(t, payload)
	if err != nil {
		return err
	}
	msg.Identifier = identifier
	return d.send(msg)
}

func (d *TestDevice) send(msg *wire.Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return ErrConnectionLost
	}
	if d.channel != nil {
		payload = d.channel.Encrypt(payload)
	}
	frame := varint.Append(make([]byte, 0, varint.MaxLen+len(payload)), uint64(len(payload)))
	frame = append(frame, payload...)
	_, err = d.conn.Write(frame)
	return err
}
