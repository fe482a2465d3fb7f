package tables

import (
	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/chain"
)

// WriteHeader stores h as the canonical header of its block.
func WriteHeader(tx *stagedb.Tx, hash chain.Hash, h *chain.Header) error {
	if err := stagedb.Put(tx, Headers, h.Number, *h); err != nil {
		return err
	}
	if err := stagedb.Put(tx, CanonicalHeaders, h.Number, hash); err != nil {
		return err
	}
	return stagedb.Put(tx, HeaderNumbers, hash, h.Number)
}

// HeaderByHash resolves hash through HeaderNumbers. A hash whose block
// number has no header yields ok == false.
func HeaderByHash(tx *stagedb.Tx, hash chain.Hash) (h chain.Header, ok bool, err error) {
	num, ok, err := stagedb.Get(tx, HeaderNumbers, hash)
	if err != nil || !ok {
		return chain.Header{}, false, err
	}
	return stagedb.Get(tx, Headers, num)
}

// WriteBody stores the signed transactions of block num after the last
// stored transaction and indexes them by hash. hashes[i] is the hash of txs[i].
func WriteBody(tx *stagedb.Tx, num chain.BlockNumber, txs [][]byte, hashes []chain.Hash) (chain.BodyIndices, error) {
	if len(txs) != len(hashes) {
		panic("WriteBody: txs and hashes differ in length")
	}
	first, err := nextTxNum(tx)
	if err != nil {
		return chain.BodyIndices{}, err
	}
	body := chain.BodyIndices{FirstTxNum: first, TxCount: uint64(len(txs))}
	for i, raw := range txs {
		n := first + chain.TxNumber(i)
		if err := stagedb.Put(tx, Transactions, n, raw); err != nil {
			return body, err
		}
		if err := stagedb.Put(tx, TransactionHashNumbers, hashes[i], n); err != nil {
			return body, err
		}
	}
	return body, stagedb.Put(tx, BlockBodyIndices, num, body)
}

// BodyTransactions returns the signed transactions of block num, or
// ok == false if the block has no stored body.
func BodyTransactions(tx *stagedb.Tx, num chain.BlockNumber) (txs [][]byte, ok bool, err error) {
	body, ok, err := stagedb.Get(tx, BlockBodyIndices, num)
	if err != nil || !ok {
		return nil, false, err
	}
	if body.IsEmpty() {
		return nil, true, nil
	}
	c, err := stagedb.OpenCursor(tx, Transactions)
	if err != nil {
		return nil, false, err
	}
	defer c.Close()
	first, last := body.FirstTxNum, body.NextTxNum()
	w := c.WalkRange(&first, &last)
	for w.Next() {
		txs = append(txs, w.Value())
	}
	if err := w.Err(); err != nil {
		return nil, false, err
	}
	return txs, true, nil
}

func nextTxNum(tx *stagedb.Tx) (chain.TxNumber, error) {
	c, err := stagedb.OpenCursor(tx, Transactions)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	n, _, ok, err := c.Last()
	if err != nil || !ok {
		return 0, err
	}
	return n + 1, nil
}

// StorageAt returns the value of a contract's storage slot. Missing slots
// read as zero.
func StorageAt(tx *stagedb.Tx, addr chain.Address, slot chain.Hash) (chain.U256, error) {
	c, err := stagedb.OpenDupCursor(tx, PlainStorageState)
	if err != nil {
		return chain.U256{}, err
	}
	defer c.Close()
	_, e, ok, err := c.SeekBySubKey(addr, slot[:])
	if err != nil || !ok || e.Key != slot {
		return chain.U256{}, err
	}
	return e.Value, nil
}
