// Package session implements the per-backend protocol session: it owns
// the transport connection, the correlation engine, and the handshake,
// and exposes connect, send, send-and-await-reply, and stop.
package session

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/castkit/castkit/pkg/exchange"
	"github.com/castkit/castkit/pkg/handshake"
	"github.com/castkit/castkit/pkg/transport"
	"github.com/castkit/castkit/pkg/wire"
)

const (
	// DefaultRequestTimeout bounds handshake and intro round trips
	// during Start.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultStatePushTimeout bounds the best-effort wait for the first
	// state push after the intro exchange.
	DefaultStatePushTimeout = time.Second
)

// Config configures a Session.
type Config struct {
	// Addr is the device address in host:port form. Ignored when
	// NetConn is set.
	Addr string

	// NetConn is an already-established connection, mainly for tests.
	NetConn net.Conn

	// ClientID is the persistent pairing identifier of this client.
	// Required.
	ClientID string

	// Name and Model describe this client in the intro message.
	Name  string
	Model string

	// Credentials from an earlier pairing. When set, Start runs the
	// verification handshake and encrypts the connection.
	Credentials *handshake.Credentials

	// ConnectionLost fires once if the peer drops an established
	// connection. ConnectionClosed fires once on intentional close.
	ConnectionLost   func(error)
	ConnectionClosed func()

	// RequestTimeout bounds Start's internal round trips. Defaults to
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// StatePushTimeout bounds the wait for the first state push.
	// Defaults to DefaultStatePushTimeout.
	StatePushTimeout time.Duration

	// LoggerFactory creates the session logger. Optional.
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("session: ClientID is required")
	}
	if c.Addr == "" && c.NetConn == nil {
		return ErrNoAddress
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.StatePushTimeout == 0 {
		c.StatePushTimeout = DefaultStatePushTimeout
	}
}

// Session drives one connection to one device backend.
type Session struct {
	config Config
	log    logging.LeveledLogger

	conn   *transport.Conn
	engine *exchange.Engine

	mu       sync.Mutex
	state    State
	peerInfo *wire.DeviceInfoPayload
	pairing  *handshake.ClientPairing
}

// New creates a session. The session is created but not connected;
// call Start to connect.
func New(config Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	s := &Session{
		config: config,
		state:  StateNotStarted,
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("session")
	}

	conn, err := transport.New(transport.Config{
		Addr:             config.Addr,
		NetConn:          config.NetConn,
		MessageHandler:   func(msg *wire.Message) { s.engine.Dispatch(msg) },
		ConnectionLost:   s.onConnectionLost,
		ConnectionClosed: s.onConnectionClosed,
		LoggerFactory:    config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	s.conn = conn

	engine, err := exchange.New(exchange.Config{
		Send:          conn.Send,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	s.engine = engine

	// Devices probe liveness with keepalives; answer them without
	// involving the caller.
	engine.RegisterListener(wire.TypeKeepalive, func(*wire.Message) {
		reply, err := wire.NewMessage(wire.TypeKeepalive, nil)
		if err != nil {
			return
		}
		if err := engine.Send(reply); err != nil && s.log != nil {
			s.log.Debugf("keepalive reply failed: %v", err)
		}
	}, false)

	return s, nil
}

// Start connects the transport, runs the verification handshake when
// credentials are configured, and performs the mandatory intro
// exchange. A session that is already Ready returns nil.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateNotStarted:
	default:
		s.mu.Unlock()
		return fmt.Errorf("%w: start in state %s", ErrInvalidState, s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	if err := s.conn.Connect(ctx); err != nil {
		s.fail()
		return err
	}

	// The device processes nothing before it has seen our identity, so
	// the intro is the first frame on a fresh connection, ahead of
	// pair-verify. It pushes its first player state shortly after.
	firstPush := newWaiter()
	s.engine.RegisterListener(wire.TypeSetState, func(*wire.Message) { firstPush.Done() }, true)

	if err := s.sendIntro(ctx); err != nil {
		s.fail()
		s.conn.Close()
		return err
	}

	if s.config.Credentials != nil {
		s.mu.Lock()
		s.state = StateVerifying
		s.mu.Unlock()
		if err := s.runVerify(ctx); err != nil {
			s.fail()
			s.conn.Close()
			return err
		}
	}

	if !firstPush.TryWait(s.config.StatePushTimeout) && s.log != nil {
		s.log.Debug("no initial state push, continuing without")
	}

	s.mu.Lock()
	if s.state == StateVerifying || s.state == StateConnecting {
		s.state = StateReady
	}
	state := s.state
	s.mu.Unlock()

	if state != StateReady {
		return fmt.Errorf("%w: connection ended during start", ErrInvalidState)
	}
	if s.log != nil {
		s.log.Infof("session ready (encrypted=%t)", s.config.Credentials != nil)
	}
	return nil
}

// runVerify performs the pair-verify conversation and installs the
// derived keys on the transport.
func (s *Session) runVerify(ctx context.Context) error {
	verify := handshake.NewClientVerify(s.config.Credentials)

	m1, err := verify.StartRequest()
	if err != nil {
		return err
	}
	m2, err := s.exchangeTLV(ctx, wire.TypeCryptoPairing, m1)
	if err != nil {
		return err
	}
	if err := verify.HandleStartResponse(m2); err != nil {
		return err
	}

	m3, err := verify.FinishRequest()
	if err != nil {
		return err
	}
	m4, err := s.exchangeTLV(ctx, wire.TypeCryptoPairing, m3)
	if err != nil {
		return err
	}
	if err := verify.HandleFinishResponse(m4); err != nil {
		return err
	}

	keys, err := verify.SessionKeys()
	if err != nil {
		return err
	}
	return s.conn.EnableEncryption(keys)
}

// sendIntro announces this client's identity and stores the device's
// answer.
func (s *Session) sendIntro(ctx context.Context) error {
	msg, err := wire.NewMessage(wire.TypeDeviceInfo, &wire.DeviceInfoPayload{
		UniqueID:        s.config.ClientID,
		Name:            s.config.Name,
		Model:           s.config.Model,
		ProtocolVersion: 1,
	})
	if err != nil {
		return err
	}
	resp, err := s.engine.SendAndReceive(ctx, msg, s.config.RequestTimeout)
	if err != nil {
		return err
	}

	var info wire.DeviceInfoPayload
	if err := resp.DecodePayload(&info); err != nil {
		return err
	}
	s.mu.Lock()
	s.peerInfo = &info
	s.mu.Unlock()
	return nil
}

// exchangeTLV sends a handshake TLV block inside a message of type t
// and returns the block the peer answered with.
func (s *Session) exchangeTLV(ctx context.Context, t wire.MessageType, data []byte) ([]byte, error) {
	var msg *wire.Message
	var err error
	switch t {
	case wire.TypeCryptoPairing:
		msg, err = wire.NewMessage(t, &wire.CryptoPairingPayload{Data: data})
	default:
		msg, err = wire.NewMessage(t, &wire.PairingDataPayload{Data: data})
	}
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.SendAndReceive(ctx, msg, s.config.RequestTimeout)
	if err != nil {
		return nil, err
	}

	switch t {
	case wire.TypeCryptoPairing:
		var payload wire.CryptoPairingPayload
		if err := resp.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return payload.Data, nil
	default:
		var payload wire.PairingDataPayload
		if err := resp.DecodePayload(&payload); err != nil {
			return nil, err
		}
		return payload.Data, nil
	}
}

// Send transmits msg without awaiting a reply. The session must be
// Ready.
func (s *Session) Send(msg *wire.Message) error {
	if err := s.requireReady(); err != nil {
		return err
	}
	return s.engine.Send(msg)
}

// SendAndReceive transmits msg and awaits the correlated reply. The
// session must be Ready.
func (s *Session) SendAndReceive(ctx context.Context, msg *wire.Message, timeout time.Duration) (*wire.Message, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}
	return s.engine.SendAndReceive(ctx, msg, timeout)
}

// RegisterListener registers fn for unsolicited messages of type t.
func (s *Session) RegisterListener(t wire.MessageType, fn exchange.Listener, oneShot bool) {
	s.engine.RegisterListener(t, fn, oneShot)
}

// Stop tears the session down. In-flight requests resolve with
// ErrStopped. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.mu.Unlock()

	s.conn.Close()
	s.engine.FailPending(ErrStopped)
	if s.log != nil {
		s.log.Info("session stopped")
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PeerInfo returns the device identity received during Start, or nil
// before the intro exchange completed.
func (s *Session) PeerInfo() *wire.DeviceInfoPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerInfo
}

func (s *Session) requireReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return fmt.Errorf("%w: %s", ErrInvalidState, s.state)
	}
	return nil
}

func (s *Session) fail() {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateVerifying {
		s.state = StateFailed
	}
	s.mu.Unlock()
}

func (s *Session) onConnectionLost(err error) {
	s.mu.Lock()
	if s.state != StateStopped {
		s.state = StateFailed
	}
	s.mu.Unlock()

	s.engine.FailPending(fmt.Errorf("%w: %v", ErrConnectionLost, err))
	if s.log != nil {
		s.log.Infof("connection lost: %v", err)
	}
	if s.config.ConnectionLost != nil {
		s.config.ConnectionLost(err)
	}
}

func (s *Session) onConnectionClosed() {
	if s.config.ConnectionClosed != nil {
		s.config.ConnectionClosed()
	}
}
