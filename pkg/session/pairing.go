package session

import (
	"context"

	"github.com/castkit/castkit/pkg/handshake"
	"github.com/castkit/castkit/pkg/wire"
)

// StartPairing opens a pairing conversation with the device. It runs
// on an unencrypted session and stops once the device expects the PIN
// it is showing on screen; call FinishPairing with that PIN.
func (s *Session) StartPairing(ctx context.Context) error {
	if err := s.requireReady(); err != nil {
		return err
	}

	pairing := handshake.NewClientPairing(s.config.ClientID)
	m1, err := pairing.StartRequest()
	if err != nil {
		return handshake.WrapPairing(err)
	}
	m2, err := s.exchangeTLV(ctx, wire.TypePairingData, m1)
	if err != nil {
		return handshake.WrapPairing(err)
	}
	if err := pairing.HandleStartResponse(m2); err != nil {
		return handshake.WrapPairing(err)
	}

	s.mu.Lock()
	s.pairing = pairing
	s.mu.Unlock()
	return nil
}

// FinishPairing completes the pairing conversation with the on-screen
// PIN and returns the long-term credentials. The caller persists them;
// the session does not.
func (s *Session) FinishPairing(ctx context.Context, pin string) (*handshake.Credentials, error) {
	if err := s.requireReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	pairing := s.pairing
	s.mu.Unlock()
	if pairing == nil || pairing.State() != handshake.PairingAwaitingPIN {
		return nil, ErrNotPaired
	}

	m3, err := pairing.FinishRequest(pin)
	if err != nil {
		return nil, handshake.WrapPairing(err)
	}
	m4, err := s.exchangeTLV(ctx, wire.TypePairingData, m3)
	if err != nil {
		return nil, handshake.WrapPairing(err)
	}
	if err := pairing.HandleProofResponse(m4); err != nil {
		return nil, handshake.WrapPairing(err)
	}

	m5, err := pairing.ExchangeRequest()
	if err != nil {
		return nil, handshake.WrapPairing(err)
	}
	m6, err := s.exchangeTLV(ctx, wire.TypePairingData, m5)
	if err != nil {
		return nil, handshake.WrapPairing(err)
	}
	creds, err := pairing.HandleExchangeResponse(m6)
	if err != nil {
		return nil, handshake.WrapPairing(err)
	}

	s.mu.Lock()
	s.pairing = nil
	s.mu.Unlock()
	if s.log != nil {
		s.log.Infof("paired as %s", creds.ClientID)
	}
	return creds, nil
}
