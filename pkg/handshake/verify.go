package handshake

import (
	"github.com/castkit/castkit/pkg/crypto"
	"github.com/castkit/castkit/pkg/tlv8"
	"github.com/castkit/castkit/pkg/wire"
)

// VerifyState tracks the pair-verify state machine.
type VerifyState int

// Verification states.
const (
	VerifyIdle VerifyState = iota
	VerifyStarted
	VerifyVerified
	VerifyFailed
)

// String returns the state name.
func (s VerifyState) String() string {
	switch s {
	case VerifyIdle:
		return "Idle"
	case VerifyStarted:
		return "Started"
	case VerifyVerified:
		return "Verified"
	case VerifyFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ClientVerify drives the client side of pair-verify against existing
// Credentials. A failure anywhere invalidates the connection attempt;
// the machine is not reusable afterwards.
type ClientVerify struct {
	creds *Credentials
	state VerifyState

	ephemeral  *crypto.ExchangeKey
	peerPublic []byte
	shared     []byte
}

// NewClientVerify creates a verification machine for stored credentials.
func NewClientVerify(creds *Credentials) *ClientVerify {
	return &ClientVerify{
		creds: creds,
		state: VerifyIdle,
	}
}

// State returns the current verification state.
func (v *ClientVerify) State() VerifyState {
	return v.state
}

// StartRequest produces M1 carrying a fresh ephemeral public key.
func (v *ClientVerify) StartRequest() ([]byte, error) {
	if v.state != VerifyIdle {
		return nil, ErrInvalidState
	}
	key, err := crypto.GenerateExchangeKey()
	if err != nil {
		return nil, err
	}
	v.ephemeral = key

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM1)
	w.PutBytes(tagPublicKey, key.Public)
	v.state = VerifyStarted
	return w.Bytes(), nil
}

// HandleStartResponse consumes M2: the device's ephemeral public key plus
// an encrypted block whose signature is checked against the credentials'
// long-term device key. A mismatch is ErrAuthentication.
func (v *ClientVerify) HandleStartResponse(data []byte) error {
	if v.state != VerifyStarted {
		return ErrInvalidState
	}
	block, err := tlv8.Parse(data)
	if err != nil {
		return err
	}
	if err := blockError(block); err != nil {
		v.state = VerifyFailed
		return err
	}

	peerPublic, okPub := block.Bytes(tagPublicKey)
	sealed, okEnc := block.Bytes(tagEncrypted)
	if !okPub || !okEnc {
		v.state = VerifyFailed
		return ErrInvalidBlock
	}

	shared, err := v.ephemeral.SharedSecret(peerPublic)
	if err != nil {
		v.state = VerifyFailed
		return ErrAuthentication
	}
	v.peerPublic = peerPublic
	v.shared = shared

	verifyKey, err := crypto.DeriveKey(shared, verifyEncryptSalt, verifyEncryptInfo)
	if err != nil {
		return err
	}
	plain, err := openWithLabel(verifyKey, "PV-Msg02", sealed)
	if err != nil {
		v.state = VerifyFailed
		return err
	}

	inner, err := tlv8.Parse(plain)
	if err != nil {
		v.state = VerifyFailed
		return err
	}
	peerID, okID := inner.String(tagIdentifier)
	signature, okSig := inner.Bytes(tagSignature)
	if !okID || !okSig || peerID != v.creds.PeerID {
		v.state = VerifyFailed
		return ErrAuthentication
	}

	signed := verifySignedMaterial(peerPublic, peerID, v.ephemeral.Public)
	if !crypto.Verify(v.creds.PeerLTPK, signed, signature) {
		v.state = VerifyFailed
		return ErrAuthentication
	}
	return nil
}

// FinishRequest produces M3: the client's own encrypted, signed block.
func (v *ClientVerify) FinishRequest() ([]byte, error) {
	if v.state != VerifyStarted || v.shared == nil {
		return nil, ErrInvalidState
	}

	signed := verifySignedMaterial(v.ephemeral.Public, v.creds.ClientID, v.peerPublic)
	signing := &crypto.SigningKey{Public: v.creds.ClientLTPK, Private: v.creds.ClientLTSK}
	signature := signing.Sign(signed)

	inner := tlv8.NewWriter()
	inner.PutString(tagIdentifier, v.creds.ClientID)
	inner.PutBytes(tagSignature, signature)

	verifyKey, err := crypto.DeriveKey(v.shared, verifyEncryptSalt, verifyEncryptInfo)
	if err != nil {
		return nil, err
	}
	sealed, err := sealWithLabel(verifyKey, "PV-Msg03", inner.Bytes())
	if err != nil {
		return nil, err
	}

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM3)
	w.PutBytes(tagEncrypted, sealed)
	return w.Bytes(), nil
}

// HandleFinishResponse consumes M4 and completes verification.
func (v *ClientVerify) HandleFinishResponse(data []byte) error {
	if v.state != VerifyStarted {
		return ErrInvalidState
	}
	block, err := tlv8.Parse(data)
	if err != nil {
		return err
	}
	if err := blockError(block); err != nil {
		v.state = VerifyFailed
		return err
	}
	v.state = VerifyVerified
	return nil
}

// SessionKeys derives the two directional transport keys from the shared
// secret. Valid only after HandleFinishResponse succeeded.
func (v *ClientVerify) SessionKeys() (wire.SessionKeys, error) {
	if v.state != VerifyVerified {
		return wire.SessionKeys{}, ErrInvalidState
	}
	writeKey, err := crypto.DeriveKey(v.shared, transportSalt, transportOutInfo)
	if err != nil {
		return wire.SessionKeys{}, err
	}
	readKey, err := crypto.DeriveKey(v.shared, transportSalt, transportInInfo)
	if err != nil {
		return wire.SessionKeys{}, err
	}
	return wire.SessionKeys{WriteKey: writeKey, ReadKey: readKey}, nil
}

// verifySignedMaterial is the byte string both sides sign during verify:
// the signer's ephemeral key, its pairing identifier, and the peer's
// ephemeral key.
func verifySignedMaterial(ownPublic []byte, id string, peerPublic []byte) []byte {
	signed := make([]byte, 0, len(ownPublic)+len(id)+len(peerPublic))
	signed = append(signed, ownPublic...)
	signed = append(signed, []byte(id)...)
	signed = append(signed, peerPublic...)
	return signed
}
