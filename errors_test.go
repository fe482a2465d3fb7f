package stagedb

import (
	"errors"
	"testing"

	"github.com/andreyvit/stagedb/codec"
)

func TestTableError_ErrorAndUnwrap(t *testing.T) {
	inner := codec.DataErrf([]byte{1, 2}, 1, codec.ErrInvalidLength, "short")
	key := []byte{0xab}
	err := tableErrf(itemsTable, "decode", key, inner, "value")
	key[0] = 0

	var te *TableError
	if !errors.As(err, &te) {
		t.Fatalf("err = %T, wanted *TableError", err)
	}
	deepEqual(t, te.Key, []byte{0xab})
	isErr(t, err, codec.ErrInvalidLength)
	deepEqual(t, err.Error(), "Items.decode/ab: value: "+inner.Error())

	deepEqual(t, tableErrf(itemsTable, "", nil, ErrReadOnly, "").Error(), "Items: read-only transaction")
	deepEqual(t, tableErrf(itemsTable, "put", []byte{}, nil, "odd %d", 1).Error(), "Items.put/<empty>: odd 1")
}
