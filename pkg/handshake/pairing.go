package handshake

import (
	"time"

	"github.com/castkit/castkit/pkg/crypto"
	"github.com/castkit/castkit/pkg/crypto/srp6a"
	"github.com/castkit/castkit/pkg/tlv8"
)

// PairingState tracks the pair-setup state machine.
type PairingState int

// Pairing states.
const (
	PairingIdle PairingState = iota
	PairingStarted
	PairingAwaitingPIN
	PairingExchanging
	PairingFinished
	PairingFailed
)

// String returns the state name.
func (s PairingState) String() string {
	switch s {
	case PairingIdle:
		return "Idle"
	case PairingStarted:
		return "Started"
	case PairingAwaitingPIN:
		return "AwaitingPIN"
	case PairingExchanging:
		return "Exchanging"
	case PairingFinished:
		return "Finished"
	case PairingFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ClientPairing drives the client side of pair-setup. Errors from any
// step are raw; callers building a public pairing surface normalize them
// with WrapPairing.
type ClientPairing struct {
	clientID string
	state    PairingState

	srp *srp6a.Client

	salt         []byte
	serverPublic []byte

	sessionKey []byte
	signing    *crypto.SigningKey

	credentials *Credentials
}

// NewClientPairing creates a pairing machine for the given persistent
// client identifier.
func NewClientPairing(clientID string) *ClientPairing {
	return &ClientPairing{
		clientID: clientID,
		state:    PairingIdle,
	}
}

// State returns the current pairing state.
func (p *ClientPairing) State() PairingState {
	return p.state
}

// StartRequest produces the M1 block announcing the pairing method.
func (p *ClientPairing) StartRequest() ([]byte, error) {
	if p.state != PairingIdle {
		return nil, ErrInvalidState
	}
	w := tlv8.NewWriter()
	w.PutByte(tagMethod, methodPairSetup)
	w.PutByte(tagState, stateM1)
	p.state = PairingStarted
	return w.Bytes(), nil
}

// HandleStartResponse consumes M2: the device's SRP salt and public key.
// Afterwards the machine awaits the user-provided PIN.
func (p *ClientPairing) HandleStartResponse(data []byte) error {
	if p.state != PairingStarted {
		return ErrInvalidState
	}
	block, err := tlv8.Parse(data)
	if err != nil {
		return err
	}
	if err := blockError(block); err != nil {
		p.state = PairingFailed
		return err
	}

	salt, okSalt := block.Bytes(tagSalt)
	public, okPub := block.Bytes(tagPublicKey)
	if !okSalt || !okPub {
		p.state = PairingFailed
		return ErrInvalidBlock
	}

	p.salt = salt
	p.serverPublic = public
	p.state = PairingAwaitingPIN
	return nil
}

// FinishRequest derives the SRP proof from the PIN and produces M3.
func (p *ClientPairing) FinishRequest(pin string) ([]byte, error) {
	if p.state != PairingAwaitingPIN {
		return nil, ErrInvalidState
	}

	client, err := srp6a.NewClient(srpUsername, pin)
	if err != nil {
		return nil, err
	}
	if err := client.SetServerPublic(p.salt, p.serverPublic); err != nil {
		p.state = PairingFailed
		return nil, err
	}
	proof, err := client.Proof()
	if err != nil {
		return nil, err
	}
	p.srp = client

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM3)
	w.PutBytes(tagPublicKey, client.PublicKey())
	w.PutBytes(tagProof, proof)
	return w.Bytes(), nil
}

// HandleProofResponse consumes M4: the device's SRP proof, or an error
// block (authentication failure or a back-off request).
func (p *ClientPairing) HandleProofResponse(data []byte) error {
	if p.srp == nil {
		return ErrInvalidState
	}
	block, err := tlv8.Parse(data)
	if err != nil {
		return err
	}
	if err := blockError(block); err != nil {
		p.state = PairingFailed
		return err
	}

	proof, ok := block.Bytes(tagProof)
	if !ok {
		p.state = PairingFailed
		return ErrAuthentication
	}
	if err := p.srp.VerifyServerProof(proof); err != nil {
		p.state = PairingFailed
		return ErrAuthentication
	}

	key, err := p.srp.SessionKey()
	if err != nil {
		return err
	}
	p.sessionKey = key
	p.state = PairingExchanging
	return nil
}

// ExchangeRequest produces M5: the client's long-term identity (pairing
// id and Ed25519 public key), signed and encrypted under a key derived
// from the SRP session key.
func (p *ClientPairing) ExchangeRequest() ([]byte, error) {
	if p.state != PairingExchanging {
		return nil, ErrInvalidState
	}

	signing, err := crypto.GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	p.signing = signing

	signSecret, err := crypto.DeriveKey(p.sessionKey, setupClientSignSalt, setupClientSignInfo)
	if err != nil {
		return nil, err
	}

	signed := make([]byte, 0, len(signSecret)+len(p.clientID)+len(signing.Public))
	signed = append(signed, signSecret...)
	signed = append(signed, []byte(p.clientID)...)
	signed = append(signed, signing.Public...)
	signature := signing.Sign(signed)

	inner := tlv8.NewWriter()
	inner.PutString(tagIdentifier, p.clientID)
	inner.PutBytes(tagPublicKey, signing.Public)
	inner.PutBytes(tagSignature, signature)

	setupKey, err := crypto.DeriveKey(p.sessionKey, setupEncryptSalt, setupEncryptInfo)
	if err != nil {
		return nil, err
	}
	sealed, err := sealWithLabel(setupKey, "PS-Msg05", inner.Bytes())
	if err != nil {
		return nil, err
	}

	w := tlv8.NewWriter()
	w.PutByte(tagState, stateM5)
	w.PutBytes(tagEncrypted, sealed)
	return w.Bytes(), nil
}

// HandleExchangeResponse consumes M6, verifies the device's signed
// identity block and returns the completed Credentials.
func (p *ClientPairing) HandleExchangeResponse(data []byte) (*Credentials, error) {
	if p.state != PairingExchanging || p.signing == nil {
		return nil, ErrInvalidState
	}
	block, err := tlv8.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := blockError(block); err != nil {
		p.state = PairingFailed
		return nil, err
	}

	sealed, ok := block.Bytes(tagEncrypted)
	if !ok {
		p.state = PairingFailed
		return nil, ErrInvalidBlock
	}

	setupKey, err := crypto.DeriveKey(p.sessionKey, setupEncryptSalt, setupEncryptInfo)
	if err != nil {
		return nil, err
	}
	plain, err := openWithLabel(setupKey, "PS-Msg06", sealed)
	if err != nil {
		p.state = PairingFailed
		return nil, err
	}

	inner, err := tlv8.Parse(plain)
	if err != nil {
		p.state = PairingFailed
		return nil, err
	}
	peerID, okID := inner.String(tagIdentifier)
	peerLTPK, okKey := inner.Bytes(tagPublicKey)
	signature, okSig := inner.Bytes(tagSignature)
	if !okID || !okKey || !okSig {
		p.state = PairingFailed
		return nil, ErrInvalidBlock
	}

	signSecret, err := crypto.DeriveKey(p.sessionKey, setupDeviceSignSalt, setupDeviceSignInfo)
	if err != nil {
		return nil, err
	}
	signed := make([]byte, 0, len(signSecret)+len(peerID)+len(peerLTPK))
	signed = append(signed, signSecret...)
	signed = append(signed, []byte(peerID)...)
	signed = append(signed, peerLTPK...)
	if !crypto.Verify(peerLTPK, signed, signature) {
		p.state = PairingFailed
		return nil, ErrAuthentication
	}

	p.credentials = &Credentials{
		ClientID:   p.clientID,
		ClientLTPK: p.signing.Public,
		ClientLTSK: p.signing.Private,
		PeerID:     peerID,
		PeerLTPK:   peerLTPK,
	}
	p.state = PairingFinished
	return p.credentials, nil
}

// blockError maps an error TLV item to the handshake taxonomy.
func blockError(block tlv8.Block) error {
	code, ok := block.Byte(tagError)
	if !ok {
		return nil
	}
	switch code {
	case errorCodeBackoff:
		seconds, _ := block.Uint32(tagRetryDelay)
		return &BackOffError{Backoff: time.Duration(seconds) * time.Second}
	case errorCodeAuthentication:
		return ErrAuthentication
	default:
		return ErrInvalidBlock
	}
}
