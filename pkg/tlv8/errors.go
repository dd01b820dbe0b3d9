package tlv8

import "errors"

// TLV decoding errors.
var (
	// ErrTruncated is returned when an entry's declared length runs past
	// the end of the input.
	ErrTruncated = errors.New("tlv8: truncated block")

	// ErrDuplicateTag is returned when a tag reappears after an
	// intervening entry with a different tag. Only consecutive entries
	// may share a tag (value fragmenting).
	ErrDuplicateTag = errors.New("tlv8: non-consecutive duplicate tag")
)
