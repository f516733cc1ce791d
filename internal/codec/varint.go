// Package codec implements the binary formats of the index: a
// ZigZag/variable-byte integer codec and the delta-compressed postings
// blob built on top of it.
package codec

import (
	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

// AppendUint appends n in variable-byte form: 7-bit groups least
// significant first, high bit set on every group except the last. Zero
// encodes as a single 0x00 byte.
func AppendUint(buf []byte, n uint64) []byte {
	if n == 0 {
		return append(buf, 0)
	}
	for n > 0 {
		b := byte(n & 0x7F)
		n >>= 7
		if n > 0 {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// DecodeUint decodes a variable-byte unsigned integer starting at pos and
// returns the value together with the position of the next unread byte.
func DecodeUint(data []byte, pos int) (uint64, int, error) {
	var result uint64
	var shift uint
	for {
		if pos >= len(data) {
			return 0, pos, errors.New(errors.ErrCorruptData, "truncated varint")
		}
		b := data[pos]
		pos++
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, pos, nil
		}
		shift += 7
		if shift > 63 {
			return 0, pos, errors.New(errors.ErrCorruptData, "varint overflows 64 bits")
		}
	}
}

// AppendInt appends a signed integer using ZigZag then variable-byte
// encoding, so small negative deltas stay small on disk.
func AppendInt(buf []byte, n int64) []byte {
	return AppendUint(buf, zigzag(n))
}

// DecodeInt decodes a ZigZag variable-byte signed integer starting at pos.
func DecodeInt(data []byte, pos int) (int64, int, error) {
	u, next, err := DecodeUint(data, pos)
	if err != nil {
		return 0, next, err
	}
	return unzigzag(u), next, nil
}

// zigzag interleaves signed values into unsigned ones: 0, -1, 1, -2, 2
// become 0, 1, 2, 3, 4.
func zigzag(n int64) uint64 {
	return uint64(n<<1) ^ uint64(n>>63)
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
