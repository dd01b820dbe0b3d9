// Package transport turns a TCP byte stream into discrete wire messages
// and back. Frames are a varint length prefix followed by that many
// payload bytes; once session keys are installed, payloads are encrypted
// and the prefix counts post-encryption bytes.
package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/castkit/castkit/pkg/varint"
	"github.com/castkit/castkit/pkg/wire"
)

// MaxFrameSize is the largest payload a peer may send (4 MiB).
const MaxFrameSize = 4 << 20

// DefaultDialTimeout bounds Connect when the context carries no deadline.
const DefaultDialTimeout = 10 * time.Second

// Config configures a Conn.
type Config struct {
	// Addr is the device address to dial ("host:port").
	// Ignored if NetConn is provided.
	Addr string

	// NetConn is an optional pre-established connection, used by tests
	// with in-memory pipes.
	NetConn net.Conn

	// MessageHandler is called from the read loop for each decoded
	// message. Required.
	MessageHandler func(*wire.Message)

	// ConnectionLost is called exactly once if the connection fails
	// unexpectedly. Mutually exclusive with ConnectionClosed.
	ConnectionLost func(err error)

	// ConnectionClosed is called exactly once after an intentional
	// Close. Mutually exclusive with ConnectionLost.
	ConnectionClosed func()

	// DialTimeout bounds the dial. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Conn owns the socket for one protocol session.
type Conn struct {
	config Config
	log    logging.LeveledLogger

	conn   net.Conn
	reader *bufio.Reader

	// channel encrypts frames once the handshake installs keys.
	channelMu sync.Mutex
	channel   *wire.Channel

	// writeMu serializes sends, preserving call order on the wire.
	writeMu sync.Mutex

	lifecycleOnce sync.Once

	mu        sync.Mutex
	connected bool
	closed    bool
}

// New creates a transport with the given configuration.
func New(config Config) (*Conn, error) {
	if config.MessageHandler == nil {
		return nil, ErrNoHandler
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultDialTimeout
	}

	c := &Conn{config: config}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("frame-transport")
	}
	return c, nil
}

// Connect opens the connection and starts the read loop.
// ErrConnectFailed wraps any dial error or timeout.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn := c.config.NetConn
	if conn == nil {
		dialer := net.Dialer{Timeout: c.config.DialTimeout}
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", c.config.Addr)
		if err != nil {
			return &ConnectFailedError{Addr: c.config.Addr, Err: err}
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected = true
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debugf("connected to %s", conn.RemoteAddr())
	}

	go c.readLoop()
	return nil
}

// EnableEncryption installs the session keys. All frames sent or
// received afterwards are encrypted.
func (c *Conn) EnableEncryption(keys wire.SessionKeys) error {
	channel, err := wire.NewChannel(keys)
	if err != nil {
		return err
	}
	c.channelMu.Lock()
	c.channel = channel
	c.channelMu.Unlock()
	return nil
}

// Send serializes msg, encrypts it when keys are installed, and writes
// it with a varint length prefix.
func (c *Conn) Send(msg *wire.Message) error {
	c.mu.Lock()
	if !c.connected || c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Encrypt under the write lock so counter order matches wire order.
	c.channelMu.Lock()
	if c.channel != nil {
		payload = c.channel.Encrypt(payload)
	}
	c.channelMu.Unlock()

	frame := varint.Append(make([]byte, 0, varint.MaxLen+len(payload)), uint64(len(payload)))
	frame = append(frame, payload...)

	if _, err := conn.Write(frame); err != nil {
		// A failed write means the stream is gone; report it before the
		// caller can react by closing, so the failure is not mistaken
		// for an intentional shutdown.
		c.finish(err)
		return err
	}

	if c.log != nil {
		c.log.Tracef("sent %s (%d bytes)", msg.Type, len(payload))
	}
	return nil
}

// readLoop assembles frames from the stream and dispatches decoded
// messages until the connection ends. Bytes past a complete frame stay
// buffered in the reader for the next one.
func (c *Conn) readLoop() {
	for {
		length, err := varint.Read(c.reader)
		if err != nil {
			c.finish(err)
			return
		}
		if length > MaxFrameSize {
			c.finish(ErrFrameTooLarge)
			return
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(c.reader, payload); err != nil {
			c.finish(err)
			return
		}

		c.channelMu.Lock()
		channel := c.channel
		c.channelMu.Unlock()
		if channel != nil {
			payload, err = channel.Decrypt(payload)
			if err != nil {
				// Integrity failure is fatal to the connection.
				c.finish(err)
				return
			}
		}

		msg, err := wire.Decode(payload)
		if err != nil {
			c.finish(err)
			return
		}

		if c.log != nil {
			c.log.Tracef("received %s", msg.Type)
		}
		c.config.MessageHandler(msg)
	}
}

// finish ends the read loop exactly once, reporting either an
// intentional close or a lost connection, never both.
func (c *Conn) finish(err error) {
	c.mu.Lock()
	closed := c.closed
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	// Our own Close surfaces in the read loop as a closed-connection
	// error. Any other error means the stream itself failed and must be
	// reported as lost, even when a Close raced the read loop.
	localClose := closed && (errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe))

	c.lifecycleOnce.Do(func() {
		if localClose {
			if c.log != nil {
				c.log.Debug("connection closed")
			}
			if c.config.ConnectionClosed != nil {
				c.config.ConnectionClosed()
			}
			return
		}
		if c.log != nil {
			c.log.Infof("connection lost: %v", err)
		}
		if c.config.ConnectionLost != nil {
			c.config.ConnectionLost(err)
		}
	})
}

// Close shuts the connection down. Idempotent: closing an already closed
// transport is a no-op.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	wasConnected := c.connected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if !wasConnected {
		// No read loop exists to observe the close.
		c.lifecycleOnce.Do(func() {
			if c.config.ConnectionClosed != nil {
				c.config.ConnectionClosed()
			}
		})
	}
}
