package handshake

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Credentials are the long-lived output of a successful pairing.
//
// The (ClientID, ClientLTPK) pair never changes for the life of a
// pairing; re-pairing produces a new pair and implicitly invalidates the
// old one on the device.
type Credentials struct {
	// ClientID is this client's persistent pairing identifier.
	ClientID string

	// ClientLTPK / ClientLTSK are the client's long-term Ed25519 keys.
	ClientLTPK []byte
	ClientLTSK []byte

	// PeerID is the device's pairing identifier.
	PeerID string

	// PeerLTPK is the device's long-term Ed25519 public key.
	PeerLTPK []byte
}

// String encodes the credentials as an opaque storable string.
// The format is internal to this package; callers persist it as-is.
func (c *Credentials) String() string {
	return strings.Join([]string{
		hex.EncodeToString([]byte(c.ClientID)),
		hex.EncodeToString(c.ClientLTPK),
		hex.EncodeToString(c.ClientLTSK),
		hex.EncodeToString([]byte(c.PeerID)),
		hex.EncodeToString(c.PeerLTPK),
	}, ":")
}

// ParseCredentials decodes a string previously produced by String.
func ParseCredentials(s string) (*Credentials, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 {
		return nil, fmt.Errorf("handshake: malformed credentials: %d fields", len(parts))
	}
	decoded := make([][]byte, len(parts))
	for i, p := range parts {
		raw, err := hex.DecodeString(p)
		if err != nil {
			return nil, fmt.Errorf("handshake: malformed credentials field %d: %w", i, err)
		}
		decoded[i] = raw
	}
	return &Credentials{
		ClientID:   string(decoded[0]),
		ClientLTPK: decoded[1],
		ClientLTSK: decoded[2],
		PeerID:     string(decoded[3]),
		PeerLTPK:   decoded[4],
	}, nil
}
