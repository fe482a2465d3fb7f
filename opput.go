package stagedb

import (
	"log/slog"
)

// Put stores v under k, replacing the previous value. In a DupSort table it
// adds v to the values of k, replacing only a value with the same sub-key.
func Put[K, V any](txh Txish, tbl *Table[K, V], k K, v V) error {
	tx := txh.DBTx()
	if err := tx.checkWritable(tbl, "put"); err != nil {
		return err
	}
	rawKey, rawVal, err := tbl.encodeRecord(k, v)
	if err != nil {
		return err
	}
	return tx.putRaw(tbl, rawKey, rawVal)
}

func (tx *Tx) putRaw(tbl AnyTable, rawKey, rawVal []byte) error {
	b, err := tx.bucket(tbl)
	if err != nil {
		return err
	}
	if err := b.Put(rawKey, rawVal); err != nil {
		return tableErrf(tbl, "put", rawKey, err, "")
	}
	tx.markWritten()
	tx.notify(tbl, OpPut, rawKey, rawVal)
	if tx.db.verbose {
		tx.logOp("PUT", tbl, rawKey, slog.String("value", tbl.FormatValue(rawKey, rawVal)))
	}
	return nil
}
