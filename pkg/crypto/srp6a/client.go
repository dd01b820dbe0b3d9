package srp6a

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math/big"
)

// Client is the PIN-holding side of the exchange.
type Client struct {
	username string
	pin      string

	private *big.Int // a
	public  *big.Int // A = g^a

	salt         []byte
	serverPublic *big.Int // B

	key     []byte // K = H(S)
	proofM1 []byte

	// Injectable randomness for tests.
	rand io.Reader
}

// NewClient creates a client for the given identity and PIN.
func NewClient(username, pin string) (*Client, error) {
	c := &Client{
		username: username,
		pin:      pin,
		rand:     rand.Reader,
	}
	if err := c.generateEphemeral(); err != nil {
		return nil, err
	}
	return c, nil
}

// generateEphemeral picks a and computes A = g^a mod N.
func (c *Client) generateEphemeral() error {
	buf := make([]byte, PrivateKeySize)
	if _, err := io.ReadFull(c.rand, buf); err != nil {
		return err
	}
	c.private = new(big.Int).SetBytes(buf)
	c.public = new(big.Int).Exp(groupG, c.private, groupN)
	return nil
}

// PublicKey returns A, the client's ephemeral public value.
func (c *Client) PublicKey() []byte {
	return pad(c.public)
}

// SetServerPublic consumes the server's salt and public value B and
// computes the shared session key and the client proof M1.
func (c *Client) SetServerPublic(salt, serverPublic []byte) error {
	if len(salt) == 0 {
		return ErrInvalidSalt
	}
	b := new(big.Int).SetBytes(serverPublic)
	if new(big.Int).Mod(b, groupN).Sign() == 0 {
		return ErrInvalidPublicKey
	}

	c.salt = append([]byte(nil), salt...)
	c.serverPublic = b

	u := scramblingU(c.public, b)
	x := credentialX(c.username, c.pin, salt)
	k := multiplierK()

	// S = (B - k * g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(groupG, x, groupN)
	kgx := new(big.Int).Mul(k, gx)
	base := new(big.Int).Sub(b, kgx)
	base.Mod(base, groupN)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.private)

	s := new(big.Int).Exp(base, exp, groupN)
	c.key = hash(s.Bytes())
	c.proofM1 = clientProof(c.username, c.salt, c.public, b, c.key)
	return nil
}

// Proof returns M1, the client's proof of the session key.
// SetServerPublic must have been called first.
func (c *Client) Proof() ([]byte, error) {
	if c.proofM1 == nil {
		return nil, ErrNotReady
	}
	return c.proofM1, nil
}

// VerifyServerProof checks the server's proof M2 against the session key.
func (c *Client) VerifyServerProof(m2 []byte) error {
	if c.key == nil {
		return ErrNotReady
	}
	expected := serverProof(c.public, c.proofM1, c.key)
	if subtle.ConstantTimeCompare(expected, m2) != 1 {
		return ErrProofMismatch
	}
	return nil
}

// SessionKey returns the shared session key K.
func (c *Client) SessionKey() ([]byte, error) {
	if c.key == nil {
		return nil, ErrNotReady
	}
	return c.key, nil
}
