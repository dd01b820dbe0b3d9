package wire

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/castkit/castkit/pkg/crypto"
)

// SessionKeys are the per-connection directional keys produced by the
// verification handshake. They are never reused across connections.
type SessionKeys struct {
	// WriteKey encrypts outgoing frames.
	WriteKey []byte

	// ReadKey decrypts incoming frames.
	ReadKey []byte
}

// Channel encrypts and decrypts frames with two independent
// monotonically increasing nonce counters, one per direction.
//
// The nonce is a 4-byte zero prefix followed by the 8-byte little-endian
// counter value. Counters start at 0 and advance after every call, so a
// channel must live exactly as long as its connection: reconnecting
// requires fresh keys and a fresh channel.
type Channel struct {
	send    cipherState
	receive cipherState
}

type cipherState struct {
	aead    aeadCipher
	counter uint64
}

type aeadCipher interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewChannel creates a channel from the two directional keys.
// Both keys must be crypto.SymmetricKeySize bytes and distinct.
func NewChannel(keys SessionKeys) (*Channel, error) {
	if len(keys.WriteKey) != crypto.SymmetricKeySize ||
		len(keys.ReadKey) != crypto.SymmetricKeySize {
		return nil, ErrInvalidKey
	}

	sendAEAD, err := chacha20poly1305.New(keys.WriteKey)
	if err != nil {
		return nil, ErrInvalidKey
	}
	recvAEAD, err := chacha20poly1305.New(keys.ReadKey)
	if err != nil {
		return nil, ErrInvalidKey
	}

	return &Channel{
		send:    cipherState{aead: sendAEAD},
		receive: cipherState{aead: recvAEAD},
	}, nil
}

// nonce builds the 12-byte nonce for the given counter value.
func nonce(counter uint64) []byte {
	buf := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint64(buf[4:], counter)
	return buf
}

// Encrypt seals plaintext with the write key and advances the send counter.
func (c *Channel) Encrypt(plaintext []byte) []byte {
	n := nonce(c.send.counter)
	c.send.counter++
	return c.send.aead.Seal(nil, n, plaintext, nil)
}

// Decrypt opens ciphertext with the read key and advances the receive
// counter. ErrDecryptFailed is returned when the authentication tag does
// not verify (wrong key, corrupted data, or counter desynchronization);
// the counter still advances so the failure is not silently retryable.
func (c *Channel) Decrypt(ciphertext []byte) ([]byte, error) {
	n := nonce(c.receive.counter)
	c.receive.counter++
	plaintext, err := c.receive.aead.Open(nil, n, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
