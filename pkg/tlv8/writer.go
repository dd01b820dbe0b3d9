package tlv8

import (
	"bytes"
	"encoding/binary"
)

// Writer builds an encoded block.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// PutBytes appends value under tag, splitting it across consecutive
// entries when it exceeds 255 bytes. An empty value still produces one
// zero-length entry so the tag's presence survives a round trip.
func (w *Writer) PutBytes(tag Tag, value []byte) {
	if len(value) == 0 {
		w.buf.WriteByte(byte(tag))
		w.buf.WriteByte(0)
		return
	}
	for len(value) > 0 {
		n := len(value)
		if n > maxFragment {
			n = maxFragment
		}
		w.buf.WriteByte(byte(tag))
		w.buf.WriteByte(byte(n))
		w.buf.Write(value[:n])
		value = value[n:]
	}
}

// PutByte appends a single-byte value under tag.
func (w *Writer) PutByte(tag Tag, v byte) {
	w.PutBytes(tag, []byte{v})
}

// PutUint32 appends a little-endian 32-bit value under tag.
func (w *Writer) PutUint32(tag Tag, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.PutBytes(tag, buf[:])
}

// PutString appends a UTF-8 string value under tag.
func (w *Writer) PutString(tag Tag, s string) {
	w.PutBytes(tag, []byte(s))
}

// Bytes returns the encoded block.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}
