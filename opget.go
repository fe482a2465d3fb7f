package stagedb

import (
	"log/slog"
)

// Get returns the value stored under k. For a DupSort table it returns the
// value with the smallest sub-key.
func Get[K, V any](txh Txish, tbl *Table[K, V], k K) (V, bool, error) {
	tx := txh.DBTx()
	var zero V
	if err := tx.checkTable(tbl); err != nil {
		return zero, false, err
	}
	keyBuf := keyBytesPool.Get().([]byte)
	defer releaseKeyBytes(keyBuf)
	rawKey, err := tbl.appendKey(keyBuf[:0], k)
	if err != nil {
		return zero, false, err
	}

	rk, rv, found, err := tx.lookup(tbl, rawKey)
	if err != nil {
		return zero, false, err
	}
	if !found {
		tx.logOp("GET.NOTFOUND", tbl, rawKey)
		return zero, false, nil
	}
	v, err := tbl.decodeValue(rk, rv)
	if err != nil {
		return zero, false, err
	}
	if tx.db.verbose {
		tx.logOp("GET", tbl, rawKey, slog.String("value", tbl.FormatValue(rk, rv)))
	}
	return v, true, nil
}

// Has reports whether k has a value.
func Has[K, V any](txh Txish, tbl *Table[K, V], k K) (bool, error) {
	tx := txh.DBTx()
	if err := tx.checkTable(tbl); err != nil {
		return false, err
	}
	keyBuf := keyBytesPool.Get().([]byte)
	defer releaseKeyBytes(keyBuf)
	rawKey, err := tbl.appendKey(keyBuf[:0], k)
	if err != nil {
		return false, err
	}
	_, _, found, err := tx.lookup(tbl, rawKey)
	if err != nil {
		return false, err
	}
	tx.logOp("EXISTS", tbl, rawKey, slog.Bool("found", found))
	return found, nil
}

// Count returns the number of entries in the table. Each value of a
// DupSort table counts separately.
func Count(txh Txish, tbl AnyTable) (int, error) {
	tx := txh.DBTx()
	if err := tx.checkTable(tbl); err != nil {
		return 0, err
	}
	b, err := tx.bucket(tbl)
	if err != nil {
		return 0, err
	}
	return b.KeyCount(), nil
}

// lookup finds the raw record for an encoded primary key. For DupSort
// tables it is the first record whose engine key starts with rawKey.
func (tx *Tx) lookup(tbl AnyTable, rawKey []byte) (rk, rv []byte, found bool, err error) {
	b, err := tx.bucket(tbl)
	if err != nil {
		return nil, nil, false, err
	}
	if tbl.DupMode() != DupSort {
		rv, found, err = b.Get(rawKey)
		if err != nil {
			return nil, nil, false, tableErrf(tbl, "get", rawKey, err, "")
		}
		return rawKey, rv, found, nil
	}
	c := b.Cursor()
	defer c.Close()
	k, v := c.Seek(rawKey)
	if k == nil || !hasPrefix(k, rawKey) || len(k) != len(rawKey)+tbl.SubKeyWidth() {
		return nil, nil, false, nil
	}
	return append([]byte(nil), k...), append([]byte(nil), v...), true, nil
}
