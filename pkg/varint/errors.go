package varint

import "errors"

// ErrMalformedLength is returned when input ends before a terminal byte
// (continuation bit clear) is found, or the encoded value does not fit
// in 64 bits.
var ErrMalformedLength = errors.New("varint: malformed length encoding")
