// Package srp6a implements the SRP-6a password-authenticated key exchange
// used by the pair-setup handshake.
//
// Only one party (the client) knows the PIN directly; the server stores a
// verifier derived from it. Both sides prove knowledge of the resulting
// session key without transmitting the PIN.
//
// This implementation follows:
//   - RFC 5054: Using the Secure Remote Password (SRP) Protocol for TLS
//     Authentication (3072-bit group)
//   - RFC 2945: The SRP Authentication and Key Exchange System
//
// The ciphersuite is SRP-6a with SHA-512.
//
// Protocol flow:
//
//	Client (knows PIN)                 Server (has verifier)
//	------------------                 ---------------------
//	NewClient(user, pin)               NewServer(user, verifier, salt)
//	                  <---salt, B---   ServerKey()
//	SetServerPublic(salt, B)
//	A = PublicKey()   ----A, M1---->   SetClientPublic(A)
//	M1 = Proof()                       VerifyClientProof(M1)
//	                  <-----M2------   M2 = Proof()
//	VerifyServerProof(M2)
//	K = SessionKey()                   K = SessionKey()
package srp6a

import (
	"crypto/sha512"
	"errors"
	"math/big"
)

// Size constants for the 3072-bit group with SHA-512.
const (
	// GroupSizeBytes is the byte length of the group prime (384 bytes).
	GroupSizeBytes = 384

	// PrivateKeySize is the byte length of ephemeral private values.
	PrivateKeySize = 32

	// HashSizeBytes is the SHA-512 output size (64 bytes).
	HashSizeBytes = sha512.Size
)

// Errors.
var (
	ErrInvalidPublicKey = errors.New("srp6a: peer public value is zero modulo N")
	ErrInvalidSalt      = errors.New("srp6a: empty salt")
	ErrProofMismatch    = errors.New("srp6a: proof verification failed")
	ErrNotReady         = errors.New("srp6a: key exchange not complete")
)

// groupN is the RFC 5054 3072-bit prime.
var groupN, _ = new(big.Int).SetString(
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74"+
		"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437"+
		"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED"+
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05"+
		"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB"+
		"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B"+
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718"+
		"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33"+
		"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7"+
		"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864"+
		"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2"+
		"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF", 16)

// groupG is the group generator.
var groupG = big.NewInt(5)

// pad left-pads v to the group size.
func pad(v *big.Int) []byte {
	return v.FillBytes(make([]byte, GroupSizeBytes))
}

// hash computes SHA-512 over the concatenation of its arguments.
func hash(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// multiplierK computes k = H(N || pad(g)).
func multiplierK() *big.Int {
	return new(big.Int).SetBytes(hash(pad(groupN), pad(groupG)))
}

// credentialX computes x = H(salt || H(username ":" pin)).
func credentialX(username, pin string, salt []byte) *big.Int {
	inner := hash([]byte(username + ":" + pin))
	return new(big.Int).SetBytes(hash(salt, inner))
}

// ComputeVerifier derives the server-side verifier v = g^x mod N for the
// given identity. The server stores (username, salt, verifier) and never
// the PIN itself.
func ComputeVerifier(username, pin string, salt []byte) []byte {
	x := credentialX(username, pin, salt)
	v := new(big.Int).Exp(groupG, x, groupN)
	return v.Bytes()
}

// scramblingU computes u = H(pad(A) || pad(B)).
func scramblingU(a, b *big.Int) *big.Int {
	return new(big.Int).SetBytes(hash(pad(a), pad(b)))
}

// clientProof computes M1 = H(H(N) xor H(g) || H(I) || salt || A || B || K).
func clientProof(username string, salt []byte, a, b *big.Int, key []byte) []byte {
	hn := hash(groupN.Bytes())
	hg := hash(groupG.Bytes())
	ngXor := make([]byte, len(hn))
	for i := range hn {
		ngXor[i] = hn[i] ^ hg[i]
	}
	return hash(ngXor, hash([]byte(username)), salt, a.Bytes(), b.Bytes(), key)
}

// serverProof computes M2 = H(A || M1 || K).
func serverProof(a *big.Int, m1, key []byte) []byte {
	return hash(a.Bytes(), m1, key)
}
