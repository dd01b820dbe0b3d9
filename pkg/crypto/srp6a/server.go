package srp6a

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math/big"
)

// Server is the verifier-holding side of the exchange.
type Server struct {
	username string
	salt     []byte
	verifier *big.Int // v = g^x

	private *big.Int // b
	public  *big.Int // B = k*v + g^b

	clientPublic *big.Int // A

	key     []byte
	proofM1 []byte

	// Injectable randomness for tests.
	rand io.Reader
}

// NewServer creates a server for a stored (username, salt, verifier)
// record, as produced by ComputeVerifier.
func NewServer(username string, salt, verifier []byte) (*Server, error) {
	if len(salt) == 0 {
		return nil, ErrInvalidSalt
	}
	s := &Server{
		username: username,
		salt:     append([]byte(nil), salt...),
		verifier: new(big.Int).SetBytes(verifier),
		rand:     rand.Reader,
	}
	if err := s.generateEphemeral(); err != nil {
		return nil, err
	}
	return s, nil
}

// generateEphemeral picks b and computes B = k*v + g^b mod N.
func (s *Server) generateEphemeral() error {
	buf := make([]byte, PrivateKeySize)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return err
	}
	s.private = new(big.Int).SetBytes(buf)

	k := multiplierK()
	gb := new(big.Int).Exp(groupG, s.private, groupN)
	kv := new(big.Int).Mul(k, s.verifier)
	b := new(big.Int).Add(kv, gb)
	b.Mod(b, groupN)
	s.public = b
	return nil
}

// Salt returns the stored salt.
func (s *Server) Salt() []byte {
	return s.salt
}

// PublicKey returns B, the server's ephemeral public value.
func (s *Server) PublicKey() []byte {
	return pad(s.public)
}

// SetClientPublic consumes the client's public value A and computes the
// shared session key.
func (s *Server) SetClientPublic(clientPublic []byte) error {
	a := new(big.Int).SetBytes(clientPublic)
	if new(big.Int).Mod(a, groupN).Sign() == 0 {
		return ErrInvalidPublicKey
	}
	s.clientPublic = a

	u := scramblingU(a, s.public)

	// S = (A * v^u) ^ b mod N
	vu := new(big.Int).Exp(s.verifier, u, groupN)
	base := new(big.Int).Mul(a, vu)
	base.Mod(base, groupN)

	sec := new(big.Int).Exp(base, s.private, groupN)
	s.key = hash(sec.Bytes())
	return nil
}

// VerifyClientProof checks the client's proof M1.
func (s *Server) VerifyClientProof(m1 []byte) error {
	if s.key == nil {
		return ErrNotReady
	}
	expected := clientProof(s.username, s.salt, s.clientPublic, s.public, s.key)
	if subtle.ConstantTimeCompare(expected, m1) != 1 {
		return ErrProofMismatch
	}
	s.proofM1 = append([]byte(nil), m1...)
	return nil
}

// Proof returns M2, the server's proof of the session key.
// VerifyClientProof must have succeeded first.
func (s *Server) Proof() ([]byte, error) {
	if s.proofM1 == nil {
		return nil, ErrNotReady
	}
	return serverProof(s.clientPublic, s.proofM1, s.key), nil
}

// SessionKey returns the shared session key K.
func (s *Server) SessionKey() ([]byte, error) {
	if s.key == nil {
		return nil, ErrNotReady
	}
	return s.key, nil
}
