package stagedb

import (
	"bytes"
	"errors"
	"slices"
	"sync"
)

var (
	errMemClosed   = errors.New("memory store closed")
	errMemReadOnly = errors.New("memory tx is read-only")
	errMemTxDone   = errors.New("memory tx already finished")
)

// memStorage keeps every bucket as a sorted slice. Committed buckets are
// never modified: a write transaction copies a bucket the first time it
// touches it, and Commit publishes the new bucket set. Readers therefore
// share the committed slices without copying.
type memStorage struct {
	mu      sync.Mutex
	buckets map[string]*memBucket
	closed  bool

	writer chan struct{}
}

func newMemStorage() storage {
	return &memStorage{
		buckets: make(map[string]*memBucket),
		writer:  make(chan struct{}, 1),
	}
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.writer <- struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if writable {
			<-s.writer
		}
		return nil, errMemClosed
	}
	tx := &memTx{store: s, writable: writable, snap: s.buckets}
	if writable {
		tx.dirty = make(map[string]*memBucket)
	}
	return tx, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	return nil
}

type memBucket struct {
	items []memKV
}

type memKV struct {
	key, value []byte
}

func (b *memBucket) find(key []byte) (int, bool) {
	return slices.BinarySearchFunc(b.items, key, func(kv memKV, k []byte) int {
		return bytes.Compare(kv.key, k)
	})
}

func (b *memBucket) size() int64 {
	var n int64
	for _, kv := range b.items {
		n += int64(len(kv.key) + len(kv.value))
	}
	return n
}

type memTx struct {
	store    *memStorage
	writable bool
	done     bool

	snap  map[string]*memBucket // committed state at begin
	dirty map[string]*memBucket // private copies, write tx only
}

func (tx *memTx) Writable() bool { return tx.writable }

// lookup returns the bucket as this transaction sees it.
func (tx *memTx) lookup(name string) *memBucket {
	if b, ok := tx.dirty[name]; ok {
		return b
	}
	return tx.snap[name]
}

// own returns a private, modifiable copy of the bucket.
func (tx *memTx) own(name string) *memBucket {
	if b, ok := tx.dirty[name]; ok && b != nil {
		return b
	}
	b := &memBucket{}
	if old := tx.snap[name]; old != nil {
		b.items = slices.Clone(old.items)
	}
	tx.dirty[name] = b
	return b
}

func (tx *memTx) Bucket(name string) storageBucket {
	if tx.done {
		panic("stagedb: memory tx used after it finished")
	}
	if tx.lookup(name) == nil {
		return nil
	}
	return memBucketHandle{tx: tx, name: name}
}

func (tx *memTx) CreateBucket(name string) (storageBucket, error) {
	if tx.done {
		return nil, errMemTxDone
	}
	if !tx.writable {
		return nil, errMemReadOnly
	}
	if tx.lookup(name) == nil {
		tx.dirty[name] = &memBucket{}
	}
	return memBucketHandle{tx: tx, name: name}, nil
}

func (tx *memTx) ClearBucket(name string) error {
	if tx.done {
		return errMemTxDone
	}
	if !tx.writable {
		return errMemReadOnly
	}
	if tx.lookup(name) == nil {
		return ErrBucketNotFound
	}
	tx.dirty[name] = &memBucket{}
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return errMemTxDone
	}
	if !tx.writable {
		return errMemReadOnly
	}
	s := tx.store
	s.mu.Lock()
	closed := s.closed
	if !closed {
		next := make(map[string]*memBucket, len(s.buckets)+len(tx.dirty))
		for name, b := range s.buckets {
			next[name] = b
		}
		for name, b := range tx.dirty {
			next[name] = b
		}
		s.buckets = next
	}
	s.mu.Unlock()
	tx.finish()
	if closed {
		return errMemClosed
	}
	return nil
}

func (tx *memTx) Rollback() error {
	if !tx.done {
		tx.finish()
	}
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	tx.snap, tx.dirty = nil, nil
	if tx.writable {
		<-tx.store.writer
	}
}

func (tx *memTx) Size() int64 {
	var n int64
	for name := range tx.snap {
		if _, ok := tx.dirty[name]; !ok {
			n += tx.snap[name].size()
		}
	}
	for _, b := range tx.dirty {
		n += b.size()
	}
	return n
}

// memBucketHandle resolves the bucket on every call, so it keeps working
// after the transaction has copied the bucket on write.
type memBucketHandle struct {
	tx   *memTx
	name string
}

func (h memBucketHandle) bucket() *memBucket {
	if b := h.tx.lookup(h.name); b != nil {
		return b
	}
	return &memBucket{}
}

func (h memBucketHandle) Get(key []byte) ([]byte, bool, error) {
	b := h.bucket()
	i, ok := b.find(key)
	if !ok {
		return nil, false, nil
	}
	return b.items[i].value, true, nil
}

func (h memBucketHandle) Put(key, value []byte) error {
	if !h.tx.writable {
		return errMemReadOnly
	}
	b := h.tx.own(h.name)
	kv := memKV{key: slices.Clone(key), value: slices.Clone(value)}
	if kv.value == nil {
		kv.value = []byte{}
	}
	if i, ok := b.find(key); ok {
		b.items[i] = kv
	} else {
		b.items = slices.Insert(b.items, i, kv)
	}
	return nil
}

func (h memBucketHandle) Delete(key []byte) error {
	if !h.tx.writable {
		return errMemReadOnly
	}
	if _, ok := h.bucket().find(key); !ok {
		return nil
	}
	b := h.tx.own(h.name)
	i, _ := b.find(key)
	b.items = slices.Delete(b.items, i, i+1)
	return nil
}

func (h memBucketHandle) Cursor() storageCursor {
	return &memCursor{items: h.bucket().items, pos: -1}
}

func (h memBucketHandle) Stats() bucketStats {
	b := h.bucket()
	n := b.size()
	return bucketStats{KeyN: len(b.items), LeafInuse: n, LeafAlloc: n}
}

func (h memBucketHandle) KeyCount() int { return len(h.bucket().items) }

// memCursor walks a slice captured when it was opened; writes replace the
// slice, which matches the engine rule that cursors die on write.
type memCursor struct {
	items []memKV
	pos   int
}

func (c *memCursor) at(i int) ([]byte, []byte) {
	if i < 0 || i >= len(c.items) {
		if i >= len(c.items) {
			c.pos = len(c.items)
		} else {
			c.pos = -1
		}
		return nil, nil
	}
	c.pos = i
	return c.items[i].key, c.items[i].value
}

func (c *memCursor) search(key []byte) int {
	i, _ := slices.BinarySearchFunc(c.items, key, func(kv memKV, k []byte) int {
		return bytes.Compare(kv.key, k)
	})
	return i
}

func (c *memCursor) First() ([]byte, []byte) { return c.at(0) }

func (c *memCursor) Last() ([]byte, []byte) { return c.at(len(c.items) - 1) }

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) { return c.at(c.search(seek)) }

func (c *memCursor) SeekLast(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return c.Last()
	}
	limit := append([]byte(nil), prefix...)
	if !inc(limit) {
		return seekLastByScan(c, prefix)
	}
	return c.at(c.search(limit) - 1)
}

func (c *memCursor) Next() ([]byte, []byte) {
	if c.pos >= len(c.items) {
		return nil, nil
	}
	return c.at(c.pos + 1)
}

func (c *memCursor) Prev() ([]byte, []byte) {
	if c.pos < 0 {
		return nil, nil
	}
	return c.at(c.pos - 1)
}

func (c *memCursor) Close() {}
