// Package handshake implements the two related state machines that
// establish trust with a device: pair-setup (first-time pairing with a
// PIN, producing long-lived Credentials) and pair-verify (every
// subsequent connect, producing per-session encryption keys).
//
// Both machines operate on flat TLV blocks (pkg/tlv8); the caller is
// responsible for carrying those blocks inside wire messages.
//
// Pair-setup flow:
//
//	Client (knows PIN)                 Device (has verifier)
//	------------------                 ---------------------
//	NewClientPairing(clientID)         NewResponderPairing(config)
//	m1 = StartRequest()   ----m1--->   HandleMessage(m1)
//	                      <---m2----   (salt, SRP public key)
//	HandleStartResponse(m2)
//	m3 = FinishRequest(pin) --m3--->   HandleMessage(m3)
//	                      <---m4----   (SRP proof | error + backoff)
//	HandleProofResponse(m4)
//	m5 = ExchangeRequest() ---m5--->   HandleMessage(m5)
//	                      <---m6----   (encrypted identity block)
//	creds = HandleExchangeResponse(m6)
//
// Pair-verify flow:
//
//	Client (has Credentials)           Device
//	------------------------           ------
//	NewClientVerify(creds)             NewResponderVerify(config)
//	m1 = StartRequest()   ----m1--->   HandleMessage(m1)
//	                      <---m2----   (ephemeral key + signed block)
//	HandleStartResponse(m2)
//	m3 = FinishRequest()  ----m3--->   HandleMessage(m3)
//	                      <---m4----
//	keys = SessionKeys()               keys
package handshake

import (
	"github.com/castkit/castkit/pkg/tlv8"
)

// TLV tags used inside pairing and verification blocks.
const (
	tagMethod     tlv8.Tag = 0x00
	tagIdentifier tlv8.Tag = 0x01
	tagSalt       tlv8.Tag = 0x02
	tagPublicKey  tlv8.Tag = 0x03
	tagProof      tlv8.Tag = 0x04
	tagEncrypted  tlv8.Tag = 0x05
	tagState      tlv8.Tag = 0x06
	tagError      tlv8.Tag = 0x07
	tagRetryDelay tlv8.Tag = 0x08
	tagSignature  tlv8.Tag = 0x0a
)

// Sequence markers (tagState values).
const (
	stateM1 byte = 0x01
	stateM2 byte = 0x02
	stateM3 byte = 0x03
	stateM4 byte = 0x04
	stateM5 byte = 0x05
	stateM6 byte = 0x06
)

// Pairing method marker (tagMethod value in M1).
const methodPairSetup byte = 0x00

// Error codes carried under tagError.
const (
	errorCodeAuthentication byte = 0x02
	errorCodeBackoff        byte = 0x03
	errorCodeUnavailable    byte = 0x06
)

// SRP identity every pairing uses; the PIN is the secret, not the name.
const srpUsername = "Pair-Setup"

// Key-derivation salt/info strings. Distinct per purpose and, for the
// transport keys, per direction.
const (
	setupEncryptSalt = "PairSetup-Encrypt-Salt"
	setupEncryptInfo = "PairSetup-Encrypt-Info"

	setupClientSignSalt = "PairSetup-Controller-Sign-Salt"
	setupClientSignInfo = "PairSetup-Controller-Sign-Info"
	setupDeviceSignSalt = "PairSetup-Accessory-Sign-Salt"
	setupDeviceSignInfo = "PairSetup-Accessory-Sign-Info"

	verifyEncryptSalt = "PairVerify-Encrypt-Salt"
	verifyEncryptInfo = "PairVerify-Encrypt-Info"

	transportSalt     = "StreamRemote-Salt"
	transportOutInfo  = "StreamRemote-Write-Encryption-Key"
	transportInInfo   = "StreamRemote-Read-Encryption-Key"
)

// errorBlock builds a TLV error reply for the given sequence marker.
func errorBlock(state, code byte) []byte {
	w := tlv8.NewWriter()
	w.PutByte(tagState, state)
	w.PutByte(tagError, code)
	return w.Bytes()
}
