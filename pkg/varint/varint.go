// Package varint implements the variable-length unsigned integer encoding
// used to frame messages on the wire.
//
// Values are encoded as base-128 little-endian groups: each byte carries
// seven data bits, and the high bit is a continuation flag that is set on
// every byte except the last. Zero encodes as a single zero byte.
package varint

import (
	"bufio"
)

// MaxLen is the maximum encoded length of a 64-bit value (10 bytes).
const MaxLen = 10

// Encode returns the encoding of v.
func Encode(v uint64) []byte {
	buf := make([]byte, 0, MaxLen)
	return Append(buf, v)
}

// Append appends the encoding of v to buf and returns the extended slice.
func Append(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// Decode reads one encoded value from the front of data.
// It returns the value and the remaining bytes after it.
//
// ErrMalformedLength is returned if data is exhausted before a byte with
// the continuation bit clear is found, or if the value overflows 64 bits.
func Decode(data []byte) (uint64, []byte, error) {
	var v uint64
	var shift uint
	for i, b := range data {
		// The tenth byte may only carry the single remaining bit.
		if shift >= 64 || (shift == 63 && b > 1) {
			return 0, nil, ErrMalformedLength
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, data[i+1:], nil
		}
		shift += 7
	}
	return 0, nil, ErrMalformedLength
}

// Read reads one encoded value from r, consuming exactly the bytes that
// belong to it. Read errors from r are returned as-is; a value that
// overflows 64 bits returns ErrMalformedLength.
func Read(r *bufio.Reader) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift >= 64 || (shift == 63 && b > 1) {
			return 0, ErrMalformedLength
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}
