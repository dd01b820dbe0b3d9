// Package exchange correlates outgoing requests with incoming responses
// and routes unsolicited messages to registered listeners.
//
// A response is matched to its waiting caller by correlation identifier.
// Most request types carry an explicit identifier that the peer echoes
// back; a few handshake-era types correlate implicitly by message type,
// for which a synthetic identifier is derived instead.
package exchange

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/castkit/castkit/pkg/wire"
)

// SendFunc transmits an encoded message to the peer.
type SendFunc func(*wire.Message) error

// Listener receives messages of a registered type that no pending
// request claimed.
type Listener func(*wire.Message)

// Config configures an Engine.
type Config struct {
	// Send transmits outgoing messages. Required.
	Send SendFunc

	// LoggerFactory creates the engine logger. Optional.
	LoggerFactory logging.LoggerFactory
}

type pendingResult struct {
	msg *wire.Message
	err error
}

// Engine matches incoming messages against a pending-request table and
// a listener registry. Dispatch order for an incoming message: the
// pending table first, then persistent listeners for its type, then
// one-shot listeners (removed after firing). Messages matching nothing
// are dropped.
type Engine struct {
	send SendFunc
	log  logging.LeveledLogger

	mu        sync.Mutex
	pending   map[string]chan pendingResult
	listeners map[wire.MessageType][]Listener
	oneShots  map[wire.MessageType][]Listener
}

// New creates an engine sending through config.Send.
func New(config Config) (*Engine, error) {
	if config.Send == nil {
		return nil, ErrNoSender
	}
	e := &Engine{
		send:      config.Send,
		pending:   make(map[string]chan pendingResult),
		listeners: make(map[wire.MessageType][]Listener),
		oneShots:  make(map[wire.MessageType][]Listener),
	}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("exchange")
	}
	return e, nil
}

// RegisterListener registers fn for messages of type t that are not
// claimed by a pending request. A one-shot listener fires at most once
// and is then removed.
func (e *Engine) RegisterListener(t wire.MessageType, fn Listener, oneShot bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if oneShot {
		e.oneShots[t] = append(e.oneShots[t], fn)
		return
	}
	e.listeners[t] = append(e.listeners[t], fn)
}

// Send transmits msg without waiting for a response.
func (e *Engine) Send(msg *wire.Message) error {
	return e.send(msg)
}

// SendAndReceive transmits msg and blocks until the correlated response
// arrives, timeout elapses, or ctx is cancelled. A message without an
// identifier gets one assigned before transmission. Concurrent calls
// with distinct identifiers interleave freely.
//
// On timeout the pending entry is removed and ErrTimeout returned; the
// receive path is unaffected and other pending requests keep waiting.
func (e *Engine) SendAndReceive(ctx context.Context, msg *wire.Message, timeout time.Duration) (*wire.Message, error) {
	key := correlationKey(msg.Type, msg.Identifier)
	if key == "" {
		msg.Identifier = newIdentifier()
		key = msg.Identifier
	}

	ch := make(chan pendingResult, 1)
	e.mu.Lock()
	if _, exists := e.pending[key]; exists {
		e.mu.Unlock()
		return nil, ErrDuplicateRequest
	}
	e.pending[key] = ch
	e.mu.Unlock()

	if err := e.send(msg); err != nil {
		e.removePending(key)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.msg, nil
	case <-timer.C:
		e.removePending(key)
		// The response may have raced the timer.
		select {
		case res := <-ch:
			if res.err != nil {
				return nil, res.err
			}
			return res.msg, nil
		default:
		}
		return nil, ErrTimeout
	case <-ctx.Done():
		e.removePending(key)
		return nil, ctx.Err()
	}
}

// Dispatch routes one incoming message. Safe to call from the transport
// read loop; listener panics are recovered and logged so one failing
// listener cannot take down the loop.
func (e *Engine) Dispatch(msg *wire.Message) {
	key := correlationKey(msg.Type, msg.Identifier)

	e.mu.Lock()
	if ch, ok := e.pending[key]; ok {
		delete(e.pending, key)
		e.mu.Unlock()
		ch <- pendingResult{msg: msg}
		return
	}

	persistent := make([]Listener, len(e.listeners[msg.Type]))
	copy(persistent, e.listeners[msg.Type])
	once := e.oneShots[msg.Type]
	delete(e.oneShots, msg.Type)
	e.mu.Unlock()

	if len(persistent) == 0 && len(once) == 0 {
		if e.log != nil {
			e.log.Tracef("dropping unhandled %s", msg.Type)
		}
		return
	}
	for _, fn := range persistent {
		e.invoke(fn, msg)
	}
	for _, fn := range once {
		e.invoke(fn, msg)
	}
}

// FailPending resolves every outstanding request with err. Used on
// teardown so waiters fail fast instead of timing out.
func (e *Engine) FailPending(err error) {
	e.mu.Lock()
	pending := e.pending
	e.pending = make(map[string]chan pendingResult)
	e.mu.Unlock()

	for _, ch := range pending {
		ch <- pendingResult{err: err}
	}
}

func (e *Engine) removePending(key string) {
	e.mu.Lock()
	delete(e.pending, key)
	e.mu.Unlock()
}

func (e *Engine) invoke(fn Listener, msg *wire.Message) {
	defer func() {
		if r := recover(); r != nil {
			if e.log != nil {
				e.log.Errorf("listener panic on %s: %v", msg.Type, r)
			}
		}
	}()
	fn(msg)
}

// correlationKey returns the pending-table key for a message, or empty
// when the message has no identifier and its type does not correlate
// implicitly.
func correlationKey(t wire.MessageType, identifier string) string {
	if identifier != "" {
		return identifier
	}
	switch t {
	case wire.TypeDeviceInfo, wire.TypePairingData, wire.TypeCryptoPairing, wire.TypeSetState:
		// These types echo as the same type without an identifier.
		return "type:" + strconv.Itoa(int(t))
	}
	return ""
}

func newIdentifier() string {
	var buf [8]byte
	rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
