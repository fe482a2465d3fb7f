package tables

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/chain"
	"github.com/andreyvit/stagedb/stages"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *stagedb.DB {
	t.Helper()
	db, err := stagedb.Open(path, Schema, stagedb.Options{IsTesting: true})
	require.NoError(t, err)
	return db
}

func hash(b byte) chain.Hash {
	var h chain.Hash
	h[0], h[31] = 0xab, b
	return h
}

func addr(b byte) chain.Address {
	var a chain.Address
	a[19] = b
	return a
}

func TestSchema(t *testing.T) {
	var names []string
	for _, tbl := range Schema.Tables() {
		names = append(names, tbl.Name())
	}
	require.Equal(t, []string{
		"CanonicalHeaders", "HeaderNumbers", "Headers", "BlockBodyIndices",
		"Transactions", "TransactionHashNumbers", "Receipts",
		"PlainAccountState", "PlainStorageState", "AccountChangeSets",
		stages.TableName,
	}, names)

	require.Equal(t, stagedb.DupSort, PlainStorageState.DupMode())
	require.Equal(t, chain.HashLength, PlainStorageState.SubKeyWidth())
	require.Equal(t, stagedb.DupSort, AccountChangeSets.DupMode())
	require.Equal(t, stagedb.Snappy, Transactions.Compression())
	require.Equal(t, stagedb.Zstd, Receipts.Compression())
	require.Equal(t, stagedb.AnyTable(Stages.Table()), Schema.TableNamed(stages.TableName))
}

func TestHeaders_PersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.db")
	fee := uint64(7)
	h := chain.Header{
		ParentHash: hash(1),
		Number:     42,
		GasLimit:   30_000_000,
		Timestamp:  1_700_000_000,
		BaseFee:    &fee,
		ExtraData:  []byte("extra"),
	}

	db := open(t, path)
	require.NoError(t, db.Update(context.Background(), func(tx *stagedb.Tx) error {
		return WriteHeader(tx, hash(42), &h)
	}))
	require.NoError(t, db.Close())

	db = open(t, path)
	defer db.Close()
	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		got, ok, err := stagedb.Get(tx, Headers, 42)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, h, got)

		canon, ok, err := stagedb.Get(tx, CanonicalHeaders, 42)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, hash(42), canon)

		got, ok, err = HeaderByHash(tx, hash(42))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, chain.BlockNumber(42), got.Number)

		_, ok, err = HeaderByHash(tx, hash(43))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestGenesisHeaderNumber(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "node.db"))
	defer db.Close()
	require.NoError(t, db.Update(context.Background(), func(tx *stagedb.Tx) error {
		return WriteHeader(tx, hash(0), &chain.Header{})
	}))
	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		num, ok, err := stagedb.Get(tx, HeaderNumbers, hash(0))
		require.NoError(t, err)
		require.True(t, ok, "block 0 encodes as an empty value but is still present")
		require.Equal(t, chain.BlockNumber(0), num)
		return nil
	}))
}

func TestBodies(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "node.db"))
	defer db.Close()
	big := bytes.Repeat([]byte("signed transaction "), 20)

	require.NoError(t, db.Update(context.Background(), func(tx *stagedb.Tx) error {
		b1, err := WriteBody(tx, 1, [][]byte{[]byte("a"), big}, []chain.Hash{hash(0xa1), hash(0xa2)})
		require.NoError(t, err)
		require.Equal(t, chain.BodyIndices{FirstTxNum: 0, TxCount: 2}, b1)

		b2, err := WriteBody(tx, 2, nil, nil)
		require.NoError(t, err)
		require.True(t, b2.IsEmpty())

		b3, err := WriteBody(tx, 3, [][]byte{[]byte("c")}, []chain.Hash{hash(0xc1)})
		require.NoError(t, err)
		require.Equal(t, chain.BodyIndices{FirstTxNum: 2, TxCount: 1}, b3)
		return nil
	}))

	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		txs, ok, err := BodyTransactions(tx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, [][]byte{[]byte("a"), big}, txs)

		txs, ok, err = BodyTransactions(tx, 2)
		require.NoError(t, err)
		require.True(t, ok)
		require.Empty(t, txs)

		_, ok, err = BodyTransactions(tx, 4)
		require.NoError(t, err)
		require.False(t, ok)

		n, ok, err := stagedb.Get(tx, TransactionHashNumbers, hash(0xc1))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, chain.TxNumber(2), n)

		c := stagedb.ScanRaw(tx, Transactions, stagedb.RawOO())
		defer c.Close()
		require.True(t, c.Next())
		require.True(t, c.Next())
		require.Equal(t, byte(stagedb.Snappy), c.Value()[0])
		require.Less(t, len(c.Value()), len(big))
		return nil
	}))
}

func TestReceipts(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "node.db"))
	defer db.Close()
	r := chain.Receipt{
		TxType:            chain.DynamicFeeTxType,
		Success:           true,
		CumulativeGasUsed: 21000,
	}
	for i := 0; i < 8; i++ {
		r.Logs = append(r.Logs, chain.Log{Address: addr(1), Topics: []chain.Hash{hash(1), hash(2)}, Data: make([]byte, 32)})
	}
	require.NoError(t, db.Update(context.Background(), func(tx *stagedb.Tx) error {
		return stagedb.Put(tx, Receipts, 5, r)
	}))
	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		got, ok, err := stagedb.Get(tx, Receipts, 5)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, r, got)
		return nil
	}))
}

func TestPlainState(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "node.db"))
	defer db.Close()
	code := hash(0xcc)
	slot := func(b byte) chain.Hash {
		var h chain.Hash
		h[31] = b
		return h
	}

	require.NoError(t, db.Update(context.Background(), func(tx *stagedb.Tx) error {
		require.NoError(t, stagedb.Put(tx, PlainAccountState, addr(1), chain.Account{Nonce: 3, Balance: chain.U256From(1000), CodeHash: &code}))
		for _, s := range []byte{3, 1, 2} {
			require.NoError(t, stagedb.Put(tx, PlainStorageState, addr(1), chain.StorageEntry{Key: slot(s), Value: chain.U256From(uint64(s) * 100)}))
		}
		require.NoError(t, stagedb.Put(tx, PlainStorageState, addr(2), chain.StorageEntry{Key: slot(9), Value: chain.U256From(9)}))
		require.NoError(t, stagedb.Put(tx, AccountChangeSets, 10, chain.AccountBeforeTx{Address: addr(2)}))
		return stagedb.Put(tx, AccountChangeSets, 10, chain.AccountBeforeTx{Address: addr(1), Info: &chain.Account{Nonce: 2}})
	}))

	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		acc, ok, err := stagedb.Get(tx, PlainAccountState, addr(1))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(3), acc.Nonce)
		require.Equal(t, code, *acc.CodeHash)

		v, err := StorageAt(tx, addr(1), slot(2))
		require.NoError(t, err)
		require.Equal(t, chain.U256From(200), v)
		v, err = StorageAt(tx, addr(1), slot(4))
		require.NoError(t, err)
		require.Equal(t, chain.U256{}, v)

		c, err := stagedb.OpenDupCursor(tx, PlainStorageState)
		require.NoError(t, err)
		defer c.Close()
		var slots []byte
		for _, e := range c.WalkDup(addr(1)).All() {
			slots = append(slots, e.Key[31])
		}
		require.Equal(t, []byte{1, 2, 3}, slots)

		cs, err := stagedb.OpenDupCursor(tx, AccountChangeSets)
		require.NoError(t, err)
		defer cs.Close()
		_, first, ok, err := cs.Seek(10)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, addr(1), first.Address)
		require.Equal(t, uint64(2), first.Info.Nonce)
		_, second, ok, err := cs.NextDup()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, addr(2), second.Address)
		require.Nil(t, second.Info)
		return nil
	}))
}

func TestStagesCheckpoint(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "node.db"))
	defer db.Close()
	cp, err := Stages.Commit(context.Background(), db, stages.Headers, func(tx *stagedb.Tx, prev stages.Checkpoint) (stages.Checkpoint, error) {
		return stages.Checkpoint{BlockNumber: 42}, WriteHeader(tx, hash(42), &chain.Header{Number: 42})
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), cp.Revision)

	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		all, err := Stages.All(tx)
		require.NoError(t, err)
		require.Equal(t, []stages.Progress{{Stage: stages.Headers, Checkpoint: cp}}, all)
		return nil
	}))
}
