package tlv8

import (
	"bytes"
	"testing"
)

func TestWriteParseRoundTrip(t *testing.T) {
	w := NewWriter()
	w.PutByte(0x00, 0x03)
	w.PutBytes(0x01, []byte("identifier"))
	w.PutUint32(0x08, 0x12345678)
	w.PutString(0x09, "hello")

	block, err := Parse(w.Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if v, ok := block.Byte(0x00); !ok || v != 0x03 {
		t.Errorf("Byte(0x00) = %v, %v", v, ok)
	}
	if v, ok := block.Bytes(0x01); !ok || !bytes.Equal(v, []byte("identifier")) {
		t.Errorf("Bytes(0x01) = %q, %v", v, ok)
	}
	if v, ok := block.Uint32(0x08); !ok || v != 0x12345678 {
		t.Errorf("Uint32(0x08) = %#x, %v", v, ok)
	}
	if v, ok := block.String(0x09); !ok || v != "hello" {
		t.Errorf("String(0x09) = %q, %v", v, ok)
	}
}

func TestLargeValueFragmenting(t *testing.T) {
	// 600 bytes must be split into 255 + 255 + 90 entries.
	value := bytes.Repeat([]byte{0xab}, 600)

	w := NewWriter()
	w.PutBytes(0x06, value)

	encoded := w.Bytes()
	wantLen := 600 + 3*2 // three entry headers
	if len(encoded) != wantLen {
		t.Fatalf("encoded length = %d, want %d", len(encoded), wantLen)
	}

	block, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got, ok := block.Bytes(0x06)
	if !ok || !bytes.Equal(got, value) {
		t.Errorf("fragmented value did not merge back (len=%d, ok=%v)", len(got), ok)
	}
}

func TestEmptyValue(t *testing.T) {
	w := NewWriter()
	w.PutBytes(0x0b, nil)

	block, err := Parse(w.Bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v, ok := block.Bytes(0x0b); !ok || len(v) != 0 {
		t.Errorf("empty value lost: %v, %v", v, ok)
	}
}

func TestParseTruncated(t *testing.T) {
	cases := [][]byte{
		{0x01},             // tag without length
		{0x01, 0x05, 0xaa}, // declared 5, only 1 present
	}
	for _, data := range cases {
		if _, err := Parse(data); err != ErrTruncated {
			t.Errorf("Parse(%v) error = %v, want ErrTruncated", data, err)
		}
	}
}

func TestParseNonConsecutiveDuplicate(t *testing.T) {
	data := []byte{
		0x01, 0x01, 0xaa,
		0x02, 0x01, 0xbb,
		0x01, 0x01, 0xcc,
	}
	if _, err := Parse(data); err != ErrDuplicateTag {
		t.Errorf("Parse() error = %v, want ErrDuplicateTag", err)
	}
}
