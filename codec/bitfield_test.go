package codec

import (
	"testing"
)

func TestBitfield(t *testing.T) {
	var bf Bitfield
	bf.Put(4, 2)
	bf.PutBool(true)
	bf.Put(6, 32)
	deepEqual(t, bf.Width(), 11)
	deepEqual(t, bf.Len(), 2)
	// 0010 | 1<<4 | 32<<5 = 0x0412
	deepEqual(t, bf.Append(nil), x("1204"))

	d := NewDecoder(x("1204 ff"))
	r, err := ReadBitfield(&d, 11)
	if err != nil {
		t.Fatal(err)
	}
	deepEqual(t, r.Int(4), 2)
	deepEqual(t, r.Bool(), true)
	deepEqual(t, r.Uint(6), uint64(32))
	deepEqual(t, d.Remaining(), 1)
}

func TestBitfield_UnusedBits(t *testing.T) {
	d := NewDecoder(x("1208"))
	_, err := ReadBitfield(&d, 11)
	isErr(t, err, ErrUnexpectedVariant)

	d = NewDecoder(x("12"))
	_, err = ReadBitfield(&d, 11)
	isErr(t, err, ErrInvalidLength)
}

func TestBitfield_Overflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var bf Bitfield
	bf.Put(3, 8)
}

func TestBitfield_Empty(t *testing.T) {
	var bf Bitfield
	deepEqual(t, len(bf.Append(nil)), 0)
	d := NewDecoder(nil)
	_, err := ReadBitfield(&d, 0)
	deepEqual(t, err, nil)
}
