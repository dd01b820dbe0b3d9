package handshake

import (
	"time"

	"github.com/castkit/castkit/pkg/crypto"
	"github.com/castkit/castkit/pkg/crypto/srp6a"
	"github.com/castkit/castkit/pkg/tlv8"
	"github.com/castkit/castkit/pkg/wire"
)

// ResponderPairingConfig configures the device side of pair-setup.
type ResponderPairingConfig struct {
	// DeviceID is the device's persistent pairing identifier. Required.
	DeviceID string

	// PIN is the code the device displays. Required.
	PIN string

	// Signing is the device's long-term key. Generated when nil.
	Signing *crypto.SigningKey

	// Backoff, when non-zero, makes the responder reject the proof step
	// with a back-off error carrying this duration. Used to exercise
	// rate-limit handling.
	Backoff time.Duration
}

// ResponderPairing is the device side of pair-setup. It exists for the
// in-package round-trip tests and the fake peers the higher layers test
// against.
type ResponderPairing struct {
	config ResponderPairingConfig
	srp    *srp6a.Server

	sessionKey []byte
	signing    *crypto.SigningKey

	// ClientLTPK is the client's long-term key learned in M5, available
	// after pairing completes.
	ClientLTPK []byte

	// ClientID is the client's pairing identifier learned in M5.
	ClientID string
}

// NewResponderPairing creates the device-side pairing machine.
func NewResponderPairing(config ResponderPairingConfig) (*ResponderPairing, error) {
	signing := config.Signing
	if signing == nil {
		var err error
		signing, err = crypto.GenerateSigningKey()
		if err != nil {
			return nil, err
		}
	}
	return &ResponderPairing{
		config:  config,
		signing: signing,
	}, nil
}

// Signing returns the device's long-term key.
func (r *ResponderPairing) Signing() *crypto.SigningKey {
	return r.signing
}

// HandleMessage consumes one client block and returns the reply block.
// done reports whether pairing completed with this message.
func (r *ResponderPairing) HandleMessage(data []byte) (reply []byte, done bool, err error) {
	block, err := tlv8.Parse(data)
	if err != nil {
		return nil, false, err
	}
	state, ok := block.Byte(tagState)
	if !ok {
		return nil, false, ErrInvalidBlock
	}

	switch state {
	case stateM1:
		return r.handleStart()
	case stateM3:
		return r.handleProof(block)
	case stateM5:
		return r.handleExchange(block)
	default:
		return nil, false, ErrInvalidState
	}
}

func (r *ResponderPairing) handleStart() ([]byte, bool, error) {
	salt := make([]byte, 16)
	copy(salt, []byte(r.config.DeviceID))

	verifier := srp6a.ComputeVerifier(srpUsername, r.config.PIN, salt)
	server, err := srp6a.NewServer(srpUsername, salt, verifier)
	if err != nil {
		return nil, false, err
	}
	r.srp = server

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM2)
	w.PutBytes(tagSalt, server.Salt())
	w.PutBytes(tagPublicKey, server.PublicKey())
	return w.Bytes(), false, nil
}

func (r *ResponderPairing) handleProof(block tlv8.Block) ([]byte, bool, error) {
	if r.srp == nil {
		return nil, false, ErrInvalidState
	}

	if r.config.Backoff > 0 {
		w := tlv8.NewWriter()
		w.PutByte(tagState, stateM4)
		w.PutByte(tagError, errorCodeBackoff)
		w.PutUint32(tagRetryDelay, uint32(r.config.Backoff/time.Second))
		return w.Bytes(), false, nil
	}

	public, okPub := block.Bytes(tagPublicKey)
	proof, okProof := block.Bytes(tagProof)
	if !okPub || !okProof {
		return nil, false, ErrInvalidBlock
	}

	if err := r.srp.SetClientPublic(public); err != nil {
		return errorBlock(stateM4, errorCodeAuthentication), false, nil
	}
	if err := r.srp.VerifyClientProof(proof); err != nil {
		return errorBlock(stateM4, errorCodeAuthentication), false, nil
	}

	key, err := r.srp.SessionKey()
	if err != nil {
		return nil, false, err
	}
	r.sessionKey = key

	m2, err := r.srp.Proof()
	if err != nil {
		return nil, false, err
	}

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM4)
	w.PutBytes(tagProof, m2)
	return w.Bytes(), false, nil
}

func (r *ResponderPairing) handleExchange(block tlv8.Block) ([]byte, bool, error) {
	if r.sessionKey == nil {
		return nil, false, ErrInvalidState
	}

	sealed, ok := block.Bytes(tagEncrypted)
	if !ok {
		return nil, false, ErrInvalidBlock
	}

	setupKey, err := crypto.DeriveKey(r.sessionKey, setupEncryptSalt, setupEncryptInfo)
	if err != nil {
		return nil, false, err
	}
	plain, err := openWithLabel(setupKey, "PS-Msg05", sealed)
	if err != nil {
		return errorBlock(stateM6, errorCodeAuthentication), false, nil
	}

	inner, err := tlv8.Parse(plain)
	if err != nil {
		return nil, false, err
	}
	clientID, okID := inner.String(tagIdentifier)
	clientLTPK, okKey := inner.Bytes(tagPublicKey)
	signature, okSig := inner.Bytes(tagSignature)
	if !okID || !okKey || !okSig {
		return nil, false, ErrInvalidBlock
	}

	signSecret, err := crypto.DeriveKey(r.sessionKey, setupClientSignSalt, setupClientSignInfo)
	if err != nil {
		return nil, false, err
	}
	signed := make([]byte, 0, len(signSecret)+len(clientID)+len(clientLTPK))
	signed = append(signed, signSecret...)
	signed = append(signed, []byte(clientID)...)
	signed = append(signed, clientLTPK...)
	if !crypto.Verify(clientLTPK, signed, signature) {
		return errorBlock(stateM6, errorCodeAuthentication), false, nil
	}
	r.ClientID = clientID
	r.ClientLTPK = clientLTPK

	// Build our own identity block.
	deviceSignSecret, err := crypto.DeriveKey(r.sessionKey, setupDeviceSignSalt, setupDeviceSignInfo)
	if err != nil {
		return nil, false, err
	}
	ownSigned := make([]byte, 0, len(deviceSignSecret)+len(r.config.DeviceID)+len(r.signing.Public))
	ownSigned = append(ownSigned, deviceSignSecret...)
	ownSigned = append(ownSigned, []byte(r.config.DeviceID)...)
	ownSigned = append(ownSigned, r.signing.Public...)

	replyInner := tlv8.NewWriter()
	replyInner.PutString(tagIdentifier, r.config.DeviceID)
	replyInner.PutBytes(tagPublicKey, r.signing.Public)
	replyInner.PutBytes(tagSignature, r.signing.Sign(ownSigned))

	resealed, err := sealWithLabel(setupKey, "PS-Msg06", replyInner.Bytes())
	if err != nil {
		return nil, false, err
	}

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM6)
	w.PutBytes(tagEncrypted, resealed)
	return w.Bytes(), true, nil
}

// ResponderVerifyConfig configures the device side of pair-verify.
type ResponderVerifyConfig struct {
	// DeviceID is the device's pairing identifier. Required.
	DeviceID string

	// Signing is the device's long-term key. Required; verification is
	// only meaningful against the key a previous pairing produced.
	Signing *crypto.SigningKey

	// LookupClient resolves a client pairing identifier to its stored
	// long-term public key. Required.
	LookupClient func(clientID string) ([]byte, bool)
}

// ResponderVerify is the device side of pair-verify.
type ResponderVerify struct {
	config ResponderVerifyConfig

	ephemeral    *crypto.ExchangeKey
	clientPublic []byte
	shared       []byte
	verified     bool
}

// NewResponderVerify creates the device-side verification machine.
func NewResponderVerify(config ResponderVerifyConfig) *ResponderVerify {
	return &ResponderVerify{config: config}
}

// HandleMessage consumes one client block and returns the reply block.
// done reports whether verification completed with this message.
func (r *ResponderVerify) HandleMessage(data []byte) (reply []byte, done bool, err error) {
	block, err := tlv8.Parse(data)
	if err != nil {
		return nil, false, err
	}
	state, ok := block.Byte(tagState)
	if !ok {
		return nil, false, ErrInvalidBlock
	}

	switch state {
	case stateM1:
		return r.handleStart(block)
	case stateM3:
		return r.handleFinish(block)
	default:
		return nil, false, ErrInvalidState
	}
}

func (r *ResponderVerify) handleStart(block tlv8.Block) ([]byte, bool, error) {
	clientPublic, ok := block.Bytes(tagPublicKey)
	if !ok {
		return nil, false, ErrInvalidBlock
	}

	ephemeral, err := crypto.GenerateExchangeKey()
	if err != nil {
		return nil, false, err
	}
	shared, err := ephemeral.SharedSecret(clientPublic)
	if err != nil {
		return nil, false, ErrAuthentication
	}
	r.ephemeral = ephemeral
	r.clientPublic = clientPublic
	r.shared = shared

	signed := verifySignedMaterial(ephemeral.Public, r.config.DeviceID, clientPublic)
	inner := tlv8.NewWriter()
	inner.PutString(tagIdentifier, r.config.DeviceID)
	inner.PutBytes(tagSignature, r.config.Signing.Sign(signed))

	verifyKey, err := crypto.DeriveKey(shared, verifyEncryptSalt, verifyEncryptInfo)
	if err != nil {
		return nil, false, err
	}
	sealed, err := sealWithLabel(verifyKey, "PV-Msg02", inner.Bytes())
	if err != nil {
		return nil, false, err
	}

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM2)
	w.PutBytes(tagPublicKey, ephemeral.Public)
	w.PutBytes(tagEncrypted, sealed)
	return w.Bytes(), false, nil
}

func (r *ResponderVerify) handleFinish(block tlv8.Block) ([]byte, bool, error) {
	if r.shared == nil {
		return nil, false, ErrInvalidState
	}

	sealed, ok := block.Bytes(tagEncrypted)
	if !ok {
		return nil, false, ErrInvalidBlock
	}

	verifyKey, err := crypto.DeriveKey(r.shared, verifyEncryptSalt, verifyEncryptInfo)
	if err != nil {
		return nil, false, err
	}
	plain, err := openWithLabel(verifyKey, "PV-Msg03", sealed)
	if err != nil {
		return errorBlock(stateM4, errorCodeAuthentication), false, nil
	}

	inner, err := tlv8.Parse(plain)
	if err != nil {
		return nil, false, err
	}
	clientID, okID := inner.String(tagIdentifier)
	signature, okSig := inner.Bytes(tagSignature)
	if !okID || !okSig {
		return nil, false, ErrInvalidBlock
	}

	clientLTPK, known := r.config.LookupClient(clientID)
	if !known {
		return errorBlock(stateM4, errorCodeAuthentication), false, nil
	}
	signed := verifySignedMaterial(r.clientPublic, clientID, r.ephemeral.Public)
	if !crypto.Verify(clientLTPK, signed, signature) {
		return errorBlock(stateM4, errorCodeAuthentication), false, nil
	}

	r.verified = true
	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM4)
	return w.Bytes(), true, nil
}

// SessionKeys returns the device's directional transport keys: its write
// key is the client's read key and vice versa.
func (r *ResponderVerify) SessionKeys() (wire.SessionKeys, error) {
	if !r.verified {
		return wire.SessionKeys{}, ErrInvalidState
	}
	writeKey, err := crypto.DeriveKey(r.shared, transportSalt, transportInInfo)
	if err != nil {
		return wire.SessionKeys{}, err
	}
	readKey, err := crypto.DeriveKey(r.shared, transportSalt, transportOutInfo)
	if err != nil {
		return wire.SessionKeys{}, err
	}
	return wire.SessionKeys{WriteKey: writeKey, ReadKey: readKey}, nil
}
