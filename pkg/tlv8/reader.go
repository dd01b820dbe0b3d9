package tlv8

import "encoding/binary"

// Block holds the decoded items of one TLV block.
type Block map[Tag][]byte

// Parse decodes data into a Block, concatenating consecutive entries that
// share a tag. ErrTruncated is returned when an entry's declared length
// exceeds the remaining input.
func Parse(data []byte) (Block, error) {
	block := make(Block)
	var lastTag Tag
	var haveLast bool

	for len(data) > 0 {
		if len(data) < 2 {
			return nil, ErrTruncated
		}
		tag := Tag(data[0])
		length := int(data[1])
		data = data[2:]
		if len(data) < length {
			return nil, ErrTruncated
		}
		value := data[:length]
		data = data[length:]

		if haveLast && tag == lastTag {
			block[tag] = append(block[tag], value...)
		} else {
			if _, dup := block[tag]; dup {
				return nil, ErrDuplicateTag
			}
			block[tag] = append([]byte(nil), value...)
		}
		lastTag = tag
		haveLast = true
	}
	return block, nil
}

// Bytes returns the value stored under tag.
func (b Block) Bytes(tag Tag) ([]byte, bool) {
	v, ok := b[tag]
	return v, ok
}

// Byte returns a single-byte value stored under tag.
func (b Block) Byte(tag Tag) (byte, bool) {
	v, ok := b[tag]
	if !ok || len(v) != 1 {
		return 0, false
	}
	return v[0], true
}

// Uint32 returns a little-endian integer value of up to four bytes
// stored under tag.
func (b Block) Uint32(tag Tag) (uint32, bool) {
	v, ok := b[tag]
	if !ok || len(v) == 0 || len(v) > 4 {
		return 0, false
	}
	var buf [4]byte
	copy(buf[:], v)
	return binary.LittleEndian.Uint32(buf[:]), true
}

// String returns a UTF-8 string value stored under tag.
func (b Block) String(tag Tag) (string, bool) {
	v, ok := b[tag]
	if !ok {
		return "", false
	}
	return string(v), true
}
