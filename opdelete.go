package stagedb

import (
	"bytes"
)

// Delete removes k and reports whether it existed. In a DupSort table it
// removes every value of k.
func Delete[K, V any](txh Txish, tbl *Table[K, V], k K) (bool, error) {
	tx := txh.DBTx()
	if err := tx.checkWritable(tbl, "delete"); err != nil {
		return false, err
	}
	rawKey, err := tbl.appendKey(nil, k)
	if err != nil {
		return false, err
	}
	b, err := tx.bucket(tbl)
	if err != nil {
		return false, err
	}

	var keys [][]byte
	if tbl.isDup() {
		keys = collectPrefix(b, rawKey)
	} else {
		_, found, err := b.Get(rawKey)
		if err != nil {
			return false, tableErrf(tbl, "delete", rawKey, err, "")
		}
		if found {
			keys = [][]byte{rawKey}
		}
	}
	if len(keys) == 0 {
		tx.logOp("DELETE.NOOP", tbl, rawKey)
		return false, nil
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return false, tableErrf(tbl, "delete", k, err, "")
		}
		tx.notify(tbl, OpDelete, k, nil)
	}
	tx.markWritten()
	tx.logOp("DELETE", tbl, rawKey)
	return true, nil
}

// DeleteDup removes the single value v of k from a DupSort table. The
// stored value must match v exactly.
func DeleteDup[K, V any](txh Txish, tbl *Table[K, V], k K, v V) (bool, error) {
	tx := txh.DBTx()
	if err := tx.checkWritable(tbl, "delete"); err != nil {
		return false, err
	}
	if !tbl.isDup() {
		return false, tableErrf(tbl, "delete", nil, ErrNotDupSort, "")
	}
	rawKey, rawVal, err := tbl.encodeRecord(k, v)
	if err != nil {
		return false, err
	}
	b, err := tx.bucket(tbl)
	if err != nil {
		return false, err
	}
	stored, found, err := b.Get(rawKey)
	if err != nil {
		return false, tableErrf(tbl, "delete", rawKey, err, "")
	}
	if !found || !bytes.Equal(stored, rawVal) {
		tx.logOp("DELETE_DUP.NOOP", tbl, rawKey)
		return false, nil
	}
	if err := b.Delete(rawKey); err != nil {
		return false, tableErrf(tbl, "delete", rawKey, err, "")
	}
	tx.notify(tbl, OpDelete, rawKey, nil)
	tx.markWritten()
	tx.logOp("DELETE_DUP", tbl, rawKey)
	return true, nil
}

// Clear removes every entry of the table.
func Clear(txh Txish, tbl AnyTable) error {
	tx := txh.DBTx()
	if err := tx.checkWritable(tbl, "clear"); err != nil {
		return err
	}
	if err := tx.stx.ClearBucket(tbl.Name()); err != nil {
		return tableErrf(tbl, "clear", nil, err, "")
	}
	tx.markWritten()
	tx.notify(tbl, OpClear, nil, nil)
	tx.logOp("CLEAR", tbl, nil)
	return nil
}

// collectPrefix copies out every key starting with prefix.
func collectPrefix(b storageBucket, prefix []byte) [][]byte {
	c := b.Cursor()
	defer c.Close()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	return keys
}
