// Package wire defines the application-level message envelope, its
// serialization, and the encrypted channel the envelope travels over once
// a handshake has completed.
package wire

import (
	"github.com/fxamacker/cbor/v2"
)

// MessageType identifies the payload schema of a message.
type MessageType uint8

// Message types spoken by the encrypted remote protocol.
const (
	TypeDeviceInfo         MessageType = 1
	TypePairingData        MessageType = 2
	TypeCryptoPairing      MessageType = 3
	TypeSetConnectionState MessageType = 4
	TypeCommand            MessageType = 5
	TypeCommandResult      MessageType = 6
	TypeGetState           MessageType = 7
	TypeSetState           MessageType = 8
	TypeRegisterForUpdates MessageType = 9
	TypeNotification       MessageType = 10
	TypeSetVolume          MessageType = 11
	TypeVolumeDidChange    MessageType = 12
	TypePowerState         MessageType = 13
	TypeWakeDevice         MessageType = 14
	TypeKeepalive          MessageType = 15
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case TypeDeviceInfo:
		return "DeviceInfo"
	case TypePairingData:
		return "PairingData"
	case TypeCryptoPairing:
		return "CryptoPairing"
	case TypeSetConnectionState:
		return "SetConnectionState"
	case TypeCommand:
		return "Command"
	case TypeCommandResult:
		return "CommandResult"
	case TypeGetState:
		return "GetState"
	case TypeSetState:
		return "SetState"
	case TypeRegisterForUpdates:
		return "RegisterForUpdates"
	case TypeNotification:
		return "Notification"
	case TypeSetVolume:
		return "SetVolume"
	case TypeVolumeDidChange:
		return "VolumeDidChange"
	case TypePowerState:
		return "PowerState"
	case TypeWakeDevice:
		return "WakeDevice"
	case TypeKeepalive:
		return "Keepalive"
	default:
		return "Unknown"
	}
}

// Message is one discrete application-level unit exchanged over the wire.
//
// Identifier carries the correlation value for request/response pairs and
// is empty for fire-and-forget messages.
type Message struct {
	Type       MessageType     `cbor:"1,keyasint"`
	Identifier string          `cbor:"2,keyasint,omitempty"`
	Payload    cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// NewMessage creates a message of the given type carrying payload.
// A nil payload produces a message without one.
func NewMessage(t MessageType, payload interface{}) (*Message, error) {
	msg := &Message{Type: t}
	if payload != nil {
		raw, err := cbor.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return msg, nil
}

// Encode serializes the envelope.
func (m *Message) Encode() ([]byte, error) {
	return cbor.Marshal(m)
}

// Decode parses an envelope from data.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}

// DecodePayload parses the type-specific payload into out.
func (m *Message) DecodePayload(out interface{}) error {
	if len(m.Payload) == 0 {
		return ErrNoPayload
	}
	if err := cbor.Unmarshal(m.Payload, out); err != nil {
		return ErrInvalidMessage
	}
	return nil
}
