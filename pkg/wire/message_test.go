package wire

import (
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeCommand, &CommandPayload{Command: "menu", Pressed: true})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	msg.Identifier = "req-1"

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Type != TypeCommand {
		t.Errorf("Type = %v, want %v", decoded.Type, TypeCommand)
	}
	if decoded.Identifier != "req-1" {
		t.Errorf("Identifier = %q, want %q", decoded.Identifier, "req-1")
	}

	var payload CommandPayload
	if err := decoded.DecodePayload(&payload); err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	if payload.Command != "menu" || !payload.Pressed {
		t.Errorf("payload = %+v", payload)
	}
}

func TestMessageNoIdentifierOmitted(t *testing.T) {
	msg, err := NewMessage(TypeKeepalive, nil)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Identifier != "" {
		t.Errorf("Identifier = %q, want empty", decoded.Identifier)
	}
	if err := decoded.DecodePayload(&struct{}{}); err != ErrNoPayload {
		t.Errorf("DecodePayload() error = %v, want ErrNoPayload", err)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x00, 0x13}); err != ErrInvalidMessage {
		t.Errorf("Decode() error = %v, want ErrInvalidMessage", err)
	}
}
