// Package tlv8 implements the flat tag-length-value encoding carried inside
// handshake messages.
//
// A block is a sequence of <1-byte tag><1-byte length><value> entries.
// Values longer than 255 bytes are split into consecutive entries sharing
// the same tag; a reader concatenates them back together.
package tlv8

// Tag identifies one item inside a block.
type Tag uint8

// maxFragment is the largest value one entry can carry.
const maxFragment = 255
