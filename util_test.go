package stagedb

import (
	"testing"
)

func TestInc(t *testing.T) {
	tests := []struct {
		in, out string
		ok      bool
	}{
		{"00", "01", true},
		{"0aff", "0b00", true},
		{"01ffff", "020000", true},
		{"ffff", "ffff", false},
	}
	for _, test := range tests {
		b := x(test.in)
		ok := inc(b)
		deepEqual(t, ok, test.ok)
		deepEqual(t, hexstr(b), test.out)
	}
}

func TestHexHelpers(t *testing.T) {
	deepEqual(t, hexstr(nil), "<nil>")
	deepEqual(t, hexstr([]byte{}), "<empty>")
	deepEqual(t, hexstr([]byte{1, 0xff}), "01ff")
	deepEqual(t, hexAttr("k", []byte{2}).Value.String(), "02")
}
