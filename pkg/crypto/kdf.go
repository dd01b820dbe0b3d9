// Package crypto provides the key-derivation and key-agreement helpers
// shared by the handshake and secure-channel layers.
package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SymmetricKeySize is the ChaCha20-Poly1305 key length in bytes.
const SymmetricKeySize = 32

// HKDFSHA512 derives key material using HKDF-SHA512 (RFC 5869).
//
// Parameters:
//   - inputKey: input keying material
//   - salt: optional salt value (may be nil)
//   - info: optional context string (may be nil)
//   - length: number of bytes to derive
func HKDFSHA512(inputKey, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha512.New, inputKey, salt, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeriveKey derives one symmetric key from a shared secret using the
// given salt and info strings.
func DeriveKey(sharedSecret []byte, salt, info string) ([]byte, error) {
	return HKDFSHA512(sharedSecret, []byte(salt), []byte(info), SymmetricKeySize)
}
