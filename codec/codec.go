package codec

import (
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Codec converts values of T to bytes and back. Decode must copy anything
// it keeps from data.
type Codec[T any] interface {
	Append(buf []byte, v T) []byte
	Decode(data []byte) (T, error)
}

// KeyCodec is a Codec whose encoding sorts like the values themselves.
type KeyCodec[T any] interface {
	Codec[T]

	// Width returns the encoded size in bytes, or 0 if it varies.
	Width() int
}

// Parser is implemented by codecs that can read a value typed by a human.
type Parser[T any] interface {
	Parse(s string) (T, error)
}

type CompactMarshaler interface {
	MarshalCompact(buf []byte) []byte
}

type CompactUnmarshaler interface {
	UnmarshalCompact(data []byte) error
}

type KeyMarshaler interface {
	MarshalKey(buf []byte) []byte
	KeyWidth() int
}

type KeyUnmarshaler interface {
	UnmarshalKey(data []byte) error
}

type compactCodec[T any, PT interface {
	*T
	CompactMarshaler
	CompactUnmarshaler
}] struct{}

// Compact adapts a type with MarshalCompact and UnmarshalCompact methods.
func Compact[T any, PT interface {
	*T
	CompactMarshaler
	CompactUnmarshaler
}]() Codec[T] {
	return compactCodec[T, PT]{}
}

func (compactCodec[T, PT]) Append(buf []byte, v T) []byte {
	return PT(&v).MarshalCompact(buf)
}

func (compactCodec[T, PT]) Decode(data []byte) (T, error) {
	var v T
	err := PT(&v).UnmarshalCompact(data)
	return v, err
}

type keyCodec[T any, PT interface {
	*T
	KeyMarshaler
	KeyUnmarshaler
}] struct{}

// Key adapts a fixed-width key type with MarshalKey, UnmarshalKey and
// KeyWidth methods. If *T implements encoding.TextUnmarshaler, the codec
// also implements Parser.
func Key[T any, PT interface {
	*T
	KeyMarshaler
	KeyUnmarshaler
}]() KeyCodec[T] {
	return keyCodec[T, PT]{}
}

func (keyCodec[T, PT]) Append(buf []byte, v T) []byte {
	return PT(&v).MarshalKey(buf)
}

func (keyCodec[T, PT]) Decode(data []byte) (T, error) {
	var v T
	if w := PT(&v).KeyWidth(); w > 0 && len(data) != w {
		return v, DataErrf(data, 0, ErrInvalidLength, "%T key must be %d bytes", v, w)
	}
	err := PT(&v).UnmarshalKey(data)
	return v, err
}

func (keyCodec[T, PT]) Width() int {
	var v T
	return PT(&v).KeyWidth()
}

func (keyCodec[T, PT]) Parse(s string) (T, error) {
	var v T
	if tu, ok := any(PT(&v)).(encoding.TextUnmarshaler); ok {
		err := tu.UnmarshalText([]byte(s))
		return v, err
	}
	return v, fmt.Errorf("%T keys cannot be parsed from text", v)
}

type u64Key[T ~uint64] struct{}

// U64Key encodes as 8 bytes big-endian.
func U64Key[T ~uint64]() KeyCodec[T] {
	return u64Key[T]{}
}

func (u64Key[T]) Append(buf []byte, v T) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v))
}

func (u64Key[T]) Decode(data []byte) (T, error) {
	if len(data) != 8 {
		return 0, DataErrf(data, 0, ErrInvalidLength, "uint64 key must be 8 bytes")
	}
	return T(binary.BigEndian.Uint64(data)), nil
}

func (u64Key[T]) Width() int { return 8 }

func (u64Key[T]) Parse(s string) (T, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	return T(v), err
}

type u32Key[T ~uint32] struct{}

// U32Key encodes as 4 bytes big-endian.
func U32Key[T ~uint32]() KeyCodec[T] {
	return u32Key[T]{}
}

func (u32Key[T]) Append(buf []byte, v T) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(v))
}

func (u32Key[T]) Decode(data []byte) (T, error) {
	if len(data) != 4 {
		return 0, DataErrf(data, 0, ErrInvalidLength, "uint32 key must be 4 bytes")
	}
	return T(binary.BigEndian.Uint32(data)), nil
}

func (u32Key[T]) Width() int { return 4 }

func (u32Key[T]) Parse(s string) (T, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return T(v), err
}

type i64Key[T ~int64] struct{}

// I64Key encodes as 8 bytes big-endian with the sign bit flipped, so that
// negative values sort first.
func I64Key[T ~int64]() KeyCodec[T] {
	return i64Key[T]{}
}

func (i64Key[T]) Append(buf []byte, v T) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(v)^(1<<63))
}

func (i64Key[T]) Decode(data []byte) (T, error) {
	if len(data) != 8 {
		return 0, DataErrf(data, 0, ErrInvalidLength, "int64 key must be 8 bytes")
	}
	return T(int64(binary.BigEndian.Uint64(data) ^ (1 << 63))), nil
}

func (i64Key[T]) Width() int { return 8 }

func (i64Key[T]) Parse(s string) (T, error) {
	v, err := strconv.ParseInt(s, 0, 64)
	return T(v), err
}

type timeKey struct{}

// TimeKey encodes a time as its Unix nanoseconds through I64Key. Decoded
// times are in UTC.
func TimeKey() KeyCodec[time.Time] {
	return timeKey{}
}

func (timeKey) Append(buf []byte, v time.Time) []byte {
	return i64Key[int64]{}.Append(buf, v.UnixNano())
}

func (timeKey) Decode(data []byte) (time.Time, error) {
	n, err := i64Key[int64]{}.Decode(data)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

func (timeKey) Width() int { return 8 }

func (timeKey) Parse(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type orderedU64[T ~uint64] struct{}

// OrderedU64 encodes a length byte followed by the compact bytes. Shorter
// encodings hold smaller numbers, so byte order matches numeric order.
func OrderedU64[T ~uint64]() KeyCodec[T] {
	return orderedU64[T]{}
}

func (orderedU64[T]) Append(buf []byte, v T) []byte {
	buf = append(buf, byte(CompactU64Len(uint64(v))))
	return AppendCompactU64(buf, uint64(v))
}

func (orderedU64[T]) Decode(data []byte) (T, error) {
	if len(data) == 0 {
		return 0, DataErrf(data, 0, ErrInvalidLength, "empty ordered uint64")
	}
	n := int(data[0])
	if n > 8 || len(data) != 1+n {
		return 0, DataErrf(data, 0, ErrInvalidLength, "ordered uint64 length byte %d", n)
	}
	v, err := DecodeCompactU64(data[1:])
	if err != nil {
		return 0, DataErrf(data, 1, err, "ordered uint64")
	}
	return T(v), nil
}

func (orderedU64[T]) Width() int { return 0 }

func (orderedU64[T]) Parse(s string) (T, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	return T(v), err
}

type compactU64[T ~uint64] struct{}

// CompactU64 is a standalone compact unsigned integer value: the whole
// buffer is the number.
func CompactU64[T ~uint64]() Codec[T] {
	return compactU64[T]{}
}

func (compactU64[T]) Append(buf []byte, v T) []byte {
	return AppendCompactU64(buf, uint64(v))
}

func (compactU64[T]) Decode(data []byte) (T, error) {
	v, err := DecodeCompactU64(data)
	return T(v), err
}

type stringCodec[T ~string] struct{}

// String stores raw UTF-8 bytes. As a key it sorts bytewise.
func String[T ~string]() KeyCodec[T] {
	return stringCodec[T]{}
}

func (stringCodec[T]) Append(buf []byte, v T) []byte {
	return append(buf, v...)
}

func (stringCodec[T]) Decode(data []byte) (T, error) {
	return T(data), nil
}

func (stringCodec[T]) Width() int { return 0 }

func (stringCodec[T]) Parse(s string) (T, error) {
	return T(s), nil
}

type bytesCodec struct{}

// Bytes stores a byte slice as is.
func Bytes() KeyCodec[[]byte] {
	return bytesCodec{}
}

func (bytesCodec) Append(buf []byte, v []byte) []byte {
	return append(buf, v...)
}

func (bytesCodec) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (bytesCodec) Width() int { return 0 }

func (bytesCodec) Parse(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
