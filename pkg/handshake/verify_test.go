package handshake

import (
	"bytes"
	"errors"
	"testing"

	"github.com/castkit/castkit/pkg/crypto"
)

// pairedSetup produces matching credentials and a device-side verify
// responder, as if a pairing had happened earlier.
func pairedSetup(t *testing.T) (*Credentials, *ResponderVerify) {
	t.Helper()

	responder, err := NewResponderPairing(ResponderPairingConfig{
		DeviceID: "device-99",
		PIN:      "1234",
	})
	if err != nil {
		t.Fatalf("NewResponderPairing() error = %v", err)
	}
	creds, err := runPairing(t, responder, "1234")
	if err != nil {
		t.Fatalf("pairing error = %v", err)
	}

	verify := NewResponderVerify(ResponderVerifyConfig{
		DeviceID: "device-99",
		Signing:  responder.Signing(),
		LookupClient: func(clientID string) ([]byte, bool) {
			if clientID == creds.ClientID {
				return responder.ClientLTPK, true
			}
			return nil, false
		},
	})
	return creds, verify
}

func runVerify(t *testing.T, client *ClientVerify, device *ResponderVerify) error {
	t.Helper()

	m1, err := client.StartRequest()
	if err != nil {
		t.Fatalf("StartRequest() error = %v", err)
	}
	m2, _, err := device.HandleMessage(m1)
	if err != nil {
		t.Fatalf("device M1 error = %v", err)
	}
	if err := client.HandleStartResponse(m2); err != nil {
		return err
	}

	m3, err := client.FinishRequest()
	if err != nil {
		return err
	}
	m4, done, err := device.HandleMessage(m3)
	if err != nil {
		t.Fatalf("device M3 error = %v", err)
	}
	if err := client.HandleFinishResponse(m4); err != nil {
		return err
	}
	if !done {
		t.Fatal("device did not report verification complete")
	}
	return nil
}

func TestVerifyDerivesMirroredKeys(t *testing.T) {
	creds, device := pairedSetup(t)
	client := NewClientVerify(creds)

	if err := runVerify(t, client, device); err != nil {
		t.Fatalf("verify error = %v", err)
	}
	if client.State() != VerifyVerified {
		t.Fatalf("state = %v, want Verified", client.State())
	}

	clientKeys, err := client.SessionKeys()
	if err != nil {
		t.Fatalf("client SessionKeys() error = %v", err)
	}
	deviceKeys, err := device.SessionKeys()
	if err != nil {
		t.Fatalf("device SessionKeys() error = %v", err)
	}

	if !bytes.Equal(clientKeys.WriteKey, deviceKeys.ReadKey) {
		t.Error("client write key != device read key")
	}
	if !bytes.Equal(clientKeys.ReadKey, deviceKeys.WriteKey) {
		t.Error("client read key != device write key")
	}
	if bytes.Equal(clientKeys.WriteKey, clientKeys.ReadKey) {
		t.Error("directional keys are identical")
	}
}

func TestVerifyWrongDeviceKey(t *testing.T) {
	creds, device := pairedSetup(t)

	// Tamper with the stored long-term device key.
	other, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey() error = %v", err)
	}
	creds.PeerLTPK = other.Public

	client := NewClientVerify(creds)
	if err := runVerify(t, client, device); !errors.Is(err, ErrAuthentication) {
		t.Errorf("verify with wrong device key error = %v, want ErrAuthentication", err)
	}
	if client.State() != VerifyFailed {
		t.Errorf("state = %v, want Failed", client.State())
	}
}

func TestVerifyUnknownClient(t *testing.T) {
	creds, _ := pairedSetup(t)

	// A device that does not know this client.
	signing, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey() error = %v", err)
	}
	creds.PeerLTPK = signing.Public
	device := NewResponderVerify(ResponderVerifyConfig{
		DeviceID: "device-99",
		Signing:  signing,
		LookupClient: func(string) ([]byte, bool) {
			return nil, false
		},
	})

	client := NewClientVerify(creds)
	if err := runVerify(t, client, device); !errors.Is(err, ErrAuthentication) {
		t.Errorf("verify against unknown client error = %v, want ErrAuthentication", err)
	}
}

func TestVerifyKeysBeforeCompletion(t *testing.T) {
	creds, _ := pairedSetup(t)
	client := NewClientVerify(creds)
	if _, err := client.SessionKeys(); err != ErrInvalidState {
		t.Errorf("SessionKeys() before completion error = %v, want ErrInvalidState", err)
	}
}
