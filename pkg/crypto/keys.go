package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// SigningKey is a long-term Ed25519 identity key pair.
type SigningKey struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateSigningKey creates a fresh Ed25519 key pair.
func GenerateSigningKey() (*SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &SigningKey{Public: pub, Private: priv}, nil
}

// Sign signs message with the private key.
func (k *SigningKey) Sign(message []byte) []byte {
	return ed25519.Sign(k.Private, message)
}

// Verify reports whether signature is a valid Ed25519 signature of
// message under publicKey.
func Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}

// ExchangeKey is an ephemeral X25519 key pair used during verification.
type ExchangeKey struct {
	Public  []byte
	private []byte
}

// GenerateExchangeKey creates a fresh X25519 key pair.
func GenerateExchangeKey() (*ExchangeKey, error) {
	private := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(private); err != nil {
		return nil, err
	}
	public, err := curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return &ExchangeKey{Public: public, private: private}, nil
}

// SharedSecret computes the X25519 shared secret with the peer's public key.
func (k *ExchangeKey) SharedSecret(peerPublic []byte) ([]byte, error) {
	return curve25519.X25519(k.private, peerPublic)
}
