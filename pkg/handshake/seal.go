package handshake

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// labelNonce builds a 12-byte nonce from a 4-byte zero prefix and an
// 8-character ASCII step label ("PS-Msg05", "PV-Msg02", ...). Handshake
// keys are used at most once per label, so fixed nonces are safe here.
func labelNonce(label string) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	copy(nonce[4:], label)
	return nonce
}

// sealWithLabel encrypts plaintext under key with the step label's nonce.
func sealWithLabel(key []byte, label string, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, labelNonce(label), plaintext, nil), nil
}

// openWithLabel decrypts ciphertext under key with the step label's
// nonce. Authentication failure surfaces as ErrAuthentication.
func openWithLabel(key []byte, label string, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, labelNonce(label), ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
