package stagedb

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	ldbopt "github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB has a single keyspace, so each table gets the key prefix name+"\x00".
// Buckets exist implicitly. Read transactions are snapshots, write
// transactions are leveldb.Transaction.
type levelStorage struct {
	ldb *leveldb.DB
}

var errLevelReadOnly = errors.New("leveldb snapshot is read-only")

func newLevelStorage(ldb *leveldb.DB) storage {
	return &levelStorage{ldb: ldb}
}

func openLevelStorage(path string, noSync bool) (storage, error) {
	ldb, err := leveldb.OpenFile(path, &ldbopt.Options{
		NoSync: noSync,
	})
	if err != nil {
		return nil, err
	}
	return newLevelStorage(ldb), nil
}

func (s *levelStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		tr, err := s.ldb.OpenTransaction()
		if err != nil {
			return nil, err
		}
		return &levelTx{r: tr, tr: tr}, nil
	}
	snap, err := s.ldb.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &levelTx{r: snap, snap: snap}, nil
}

func (s *levelStorage) Close() error {
	return s.ldb.Close()
}

// levelReader is implemented by both *leveldb.Snapshot and *leveldb.Transaction.
type levelReader interface {
	Get(key []byte, ro *ldbopt.ReadOptions) ([]byte, error)
	NewIterator(slice *ldbutil.Range, ro *ldbopt.ReadOptions) iterator.Iterator
}

type levelTx struct {
	r      levelReader
	tr     *leveldb.Transaction
	snap   *leveldb.Snapshot
	closed bool
}

func (tx *levelTx) Writable() bool { return tx.tr != nil }

func (tx *levelTx) Bucket(name string) storageBucket {
	return levelBucket{tx: tx, prefix: levelPrefix(name)}
}

func (tx *levelTx) CreateBucket(name string) (storageBucket, error) {
	return tx.Bucket(name), nil
}

func (tx *levelTx) ClearBucket(name string) error {
	if tx.tr == nil {
		return errLevelReadOnly
	}
	it := tx.tr.NewIterator(ldbutil.BytesPrefix(levelPrefix(name)), nil)
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.tr.Delete(k, nil); err != nil {
			return err
		}
	}
	return nil
}

func (tx *levelTx) Commit() error {
	if tx.tr == nil {
		return errLevelReadOnly
	}
	if err := tx.tr.Commit(); err != nil {
		return err
	}
	tx.closed = true
	return nil
}

func (tx *levelTx) Rollback() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	if tx.tr != nil {
		tx.tr.Discard()
	} else {
		tx.snap.Release()
	}
	return nil
}

func (tx *levelTx) Size() int64 { return 0 }

func levelPrefix(name string) []byte {
	p := make([]byte, 0, len(name)+1)
	p = append(p, name...)
	return append(p, 0)
}

type levelBucket struct {
	tx     *levelTx
	prefix []byte
}

func (b levelBucket) key(k []byte) []byte {
	buf := make([]byte, 0, len(b.prefix)+len(k))
	buf = append(buf, b.prefix...)
	return append(buf, k...)
}

func (b levelBucket) Get(key []byte) ([]byte, bool, error) {
	v, err := b.tx.r.Get(b.key(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b levelBucket) Put(key, value []byte) error {
	if b.tx.tr == nil {
		return errLevelReadOnly
	}
	return b.tx.tr.Put(b.key(key), value, nil)
}

func (b levelBucket) Delete(key []byte) error {
	if b.tx.tr == nil {
		return errLevelReadOnly
	}
	return b.tx.tr.Delete(b.key(key), nil)
}

func (b levelBucket) Cursor() storageCursor {
	return &levelCursor{
		b:  b,
		it: b.tx.r.NewIterator(ldbutil.BytesPrefix(b.prefix), nil),
	}
}

func (b levelBucket) Stats() bucketStats {
	var st bucketStats
	it := b.tx.r.NewIterator(ldbutil.BytesPrefix(b.prefix), nil)
	defer it.Release()
	for it.Next() {
		st.KeyN++
		st.LeafInuse += int64(len(it.Key()) - len(b.prefix) + len(it.Value()))
	}
	st.LeafAlloc = st.LeafInuse
	return st
}

func (b levelBucket) KeyCount() int {
	return b.Stats().KeyN
}

type levelCursor struct {
	b  levelBucket
	it iterator.Iterator
}

func (c *levelCursor) entry(ok bool) ([]byte, []byte) {
	if !ok {
		return nil, nil
	}
	return c.it.Key()[len(c.b.prefix):], c.it.Value()
}

func (c *levelCursor) First() ([]byte, []byte) { return c.entry(c.it.First()) }

func (c *levelCursor) Last() ([]byte, []byte) { return c.entry(c.it.Last()) }

func (c *levelCursor) Seek(seek []byte) ([]byte, []byte) {
	return c.entry(c.it.Seek(c.b.key(seek)))
}

func (c *levelCursor) SeekLast(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return c.Last()
	}
	limit := append([]byte(nil), prefix...)
	if inc(limit) {
		if !c.it.Seek(c.b.key(limit)) {
			return c.Last()
		}
		return c.Prev()
	}
	return seekLastByScan(c, prefix)
}

func (c *levelCursor) Next() ([]byte, []byte) { return c.entry(c.it.Next()) }

func (c *levelCursor) Prev() ([]byte, []byte) { return c.entry(c.it.Prev()) }

func (c *levelCursor) Close() { c.it.Release() }
