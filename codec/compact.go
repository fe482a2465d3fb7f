package codec

import "math/bits"

// CompactU64Len returns the number of bytes AppendCompactU64 writes for v.
func CompactU64Len(v uint64) int {
	return (bits.Len64(v) + 7) / 8
}

// AppendCompactU64 appends v big-endian with leading zero bytes dropped.
// Zero encodes as no bytes at all.
func AppendCompactU64(buf []byte, v uint64) []byte {
	n := CompactU64Len(v)
	off, buf := grow(buf, n)
	for i := 0; i < n; i++ {
		buf[off+i] = byte(v >> (8 * (n - 1 - i)))
	}
	return buf
}

// DecodeCompactU64 is the inverse of AppendCompactU64. The encoding is
// canonical: a leading zero byte is rejected.
func DecodeCompactU64(b []byte) (uint64, error) {
	if len(b) > 8 {
		return 0, DataErrf(b, 0, ErrInvalidLength, "compact uint64 is %d bytes", len(b))
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, DataErrf(b, 0, ErrInvalidEncoding, "compact uint64 has a leading zero byte")
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// TrimmedLen returns the length of the big-endian number b without its
// leading zero bytes.
func TrimmedLen(b []byte) int {
	for i, c := range b {
		if c != 0 {
			return len(b) - i
		}
	}
	return 0
}

// AppendTrimmed appends the big-endian number b without leading zero bytes.
// Used for 256-bit quantities.
func AppendTrimmed(buf []byte, b []byte) []byte {
	return append(buf, b[len(b)-TrimmedLen(b):]...)
}

// DecodeTrimmed right-aligns src into dst and zeroes the rest of dst.
func DecodeTrimmed(dst []byte, src []byte) error {
	if len(src) > len(dst) {
		return DataErrf(src, 0, ErrInvalidLength, "compact number is %d bytes, max %d", len(src), len(dst))
	}
	if len(src) > 0 && src[0] == 0 {
		return DataErrf(src, 0, ErrInvalidEncoding, "compact number has a leading zero byte")
	}
	pad := len(dst) - len(src)
	clear(dst[:pad])
	copy(dst[pad:], src)
	return nil
}
