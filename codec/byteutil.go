package codec

import (
	"encoding/binary"
	"math"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

// AppendUvarint appends v in unsigned LEB128 form.
func AppendUvarint(buf []byte, v uint64) []byte {
	off, buf := grow(buf, binary.MaxVarintLen64)
	off += binary.PutUvarint(buf[off:], v)
	return buf[:off]
}

// AppendVarBytes appends a uvarint length followed by v.
func AppendVarBytes(buf []byte, v []byte) []byte {
	n := len(v)
	off, buf := grow(buf, binary.MaxVarintLen64+n)
	off += binary.PutUvarint(buf[off:], uint64(n))
	copy(buf[off:], v)
	return buf[:off+n]
}

// Decoder reads fields sequentially from a buffer. Every accessor that
// returns bytes returns a copy.
type Decoder struct {
	Orig []byte
	Buf  []byte
}

func NewDecoder(buf []byte) Decoder {
	return Decoder{buf, buf}
}

func (d *Decoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *Decoder) Remaining() int {
	return len(d.Buf)
}

func (d *Decoder) Errorf(err error, format string, args ...any) error {
	return DataErrf(d.Orig, d.Off(), err, format, args...)
}

func (d *Decoder) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.Buf)
	if n == 0 {
		return 0, d.Errorf(ErrInvalidLength, "truncated uvarint")
	} else if n < 0 {
		return 0, d.Errorf(ErrInvalidEncoding, "uvarint overflows 64 bits")
	}
	var tmp [binary.MaxVarintLen64]byte
	if binary.PutUvarint(tmp[:], v) != n {
		return 0, d.Errorf(ErrInvalidEncoding, "non-minimal uvarint")
	}
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *Decoder) Uvarinti() (int, error) {
	v, err := d.Uvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, d.Errorf(ErrInvalidLength, "length too large: %d", v)
	}
	return int(v), nil
}

// Raw returns the next n bytes without copying. Callers must not retain them.
func (d *Decoder) Raw(n int) ([]byte, error) {
	if n < 0 || len(d.Buf) < n {
		return nil, d.Errorf(ErrInvalidLength, "not enough data: %d bytes remaining, %d wanted", len(d.Buf), n)
	}
	v := d.Buf[:n]
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *Decoder) Byte() (byte, error) {
	b, err := d.Raw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Fixed fills dst from the next len(dst) bytes.
func (d *Decoder) Fixed(dst []byte) error {
	b, err := d.Raw(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// Bytes returns a copy of the next n bytes, or nil when n is zero.
func (d *Decoder) Bytes(n int) ([]byte, error) {
	b, err := d.Raw(n)
	if err != nil || n == 0 {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (d *Decoder) VarBytes() ([]byte, error) {
	n, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	return d.Bytes(n)
}

// CompactU64 reads an n-byte compact unsigned integer, where n comes from a
// header slot.
func (d *Decoder) CompactU64(n int) (uint64, error) {
	off := d.Off()
	b, err := d.Raw(n)
	if err != nil {
		return 0, err
	}
	v, err := DecodeCompactU64(b)
	if err != nil {
		return 0, DataErrf(d.Orig, off, err, "compact uint")
	}
	return v, nil
}

// Trimmed reads an n-byte compact big-endian number into dst (see AppendTrimmed).
func (d *Decoder) Trimmed(dst []byte, n int) error {
	off := d.Off()
	b, err := d.Raw(n)
	if err != nil {
		return err
	}
	if err := DecodeTrimmed(dst, b); err != nil {
		return DataErrf(d.Orig, off, err, "compact number")
	}
	return nil
}

// Rest returns a copy of everything that remains, or nil if nothing does,
// so an empty trailing field reads back as nil.
func (d *Decoder) Rest() []byte {
	if len(d.Buf) == 0 {
		return nil
	}
	v := append([]byte(nil), d.Buf...)
	d.Buf = d.Buf[len(d.Buf):]
	return v
}

// Finish fails if any bytes remain.
func (d *Decoder) Finish() error {
	if len(d.Buf) != 0 {
		return d.Errorf(ErrInvalidLength, "%d trailing bytes", len(d.Buf))
	}
	return nil
}
