package codec

import "fmt"

// Bitfield packs small fields LSB-first into a little-endian header of
// ceil(bits/8) bytes. At most 64 bits.
type Bitfield struct {
	bits  uint64
	width int
}

// Put appends a width-bit field. A value that does not fit is a programming
// error.
func (bf *Bitfield) Put(width int, v uint64) {
	if width <= 0 || bf.width+width > 64 {
		panic(fmt.Errorf("bitfield overflow: %d + %d bits", bf.width, width))
	}
	if width < 64 && v>>width != 0 {
		panic(fmt.Errorf("value %d does not fit into %d bits", v, width))
	}
	bf.bits |= v << bf.width
	bf.width += width
}

func (bf *Bitfield) PutBool(v bool) {
	if v {
		bf.Put(1, 1)
	} else {
		bf.Put(1, 0)
	}
}

func (bf *Bitfield) Width() int {
	return bf.width
}

func (bf *Bitfield) Len() int {
	return (bf.width + 7) / 8
}

func (bf *Bitfield) Append(buf []byte) []byte {
	n := bf.Len()
	for i := 0; i < n; i++ {
		buf = append(buf, byte(bf.bits>>(8*i)))
	}
	return buf
}

// BitReader reads fields back in the order they were put.
type BitReader struct {
	bits uint64
	pos  int
}

// ReadBitfield consumes a header of the given width in bits. Set bits past
// width mean the data was written by a different layout.
func ReadBitfield(d *Decoder, width int) (BitReader, error) {
	n := (width + 7) / 8
	off := d.Off()
	b, err := d.Raw(n)
	if err != nil {
		return BitReader{}, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	if width < 64 && v>>width != 0 {
		return BitReader{}, DataErrf(d.Orig, off, ErrUnexpectedVariant, "unused header bits set: %#x", v>>width)
	}
	return BitReader{bits: v}, nil
}

func (r *BitReader) Uint(width int) uint64 {
	v := r.bits >> r.pos
	if width < 64 {
		v &= 1<<width - 1
	}
	r.pos += width
	return v
}

func (r *BitReader) Int(width int) int {
	return int(r.Uint(width))
}

func (r *BitReader) Bool() bool {
	return r.Uint(1) != 0
}
