package codec

import (
	"bytes"
	"testing"
)

type meta struct {
	Cursor  string                       `msgpack:"c"`
	Batches int                          `msgpack:"b"`
	Extra   map[string]uint64            `msgpack:"x"`
	ByBlock map[uint64][]string          `msgpack:"n"`
	Nested  map[string]map[string]string `msgpack:"m"`
}

func TestMsgPack(t *testing.T) {
	c := MsgPack[meta]()
	m := meta{
		Cursor:  "abc",
		Batches: 7,
		Extra:   map[string]uint64{"z": 1, "a": 2, "m": 3, "q": 4, "b": 5},
		ByBlock: map[uint64][]string{300: {"x"}, 1: {"y", "z"}, 70000: nil},
		Nested:  map[string]map[string]string{"k": {"y": "1", "b": "2"}, "a": {}},
	}
	a := c.Append(nil, m)
	for i := 0; i < 20; i++ {
		if b := c.Append(nil, m); !bytes.Equal(a, b) {
			t.Fatalf("** msgpack encoding is not deterministic: %x vs %x", a, b)
		}
	}
	d, err := c.Decode(a)
	deepEqual(t, err, nil)
	deepEqual(t, d, m)

	_, err = c.Decode(append(a, 0xc0))
	isErr(t, err, ErrInvalidLength)

	_, err = c.Decode(x("c1"))
	isErr(t, err, ErrInvalidEncoding)
}

func TestMsgPack_SortedEntries(t *testing.T) {
	c := MsgPack[map[string]bool]()
	// fixmap(2), "a" => true, "b" => false
	deepEqual(t, c.Append(nil, map[string]bool{"b": false, "a": true}), x("82 a161 c3 a162 c2"))
	deepEqual(t, c.Append(x("ff"), map[string]bool{}), x("ff 80"))
	deepEqual(t, c.Append(nil, nil), x("c0"))
}
