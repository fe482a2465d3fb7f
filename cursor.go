package stagedb

import (
	"bytes"
	"log/slog"
)

type cursorState uint8

const (
	unpositioned cursorState = iota
	positioned
	pastEnd
	beforeStart
)

// rawCursor is a byte-level cursor over one table that survives writes to
// its transaction. Engine cursors are invalidated by writes, so rawCursor
// remembers the key it is on and seeks back to it when the transaction's
// write generation has moved on.
type rawCursor struct {
	tx     *Tx
	tbl    AnyTable
	bc     storageCursor
	gen    uint64
	state  cursorState
	key    []byte
	synced bool // bc sits exactly on key
	closed bool
}

func (tx *Tx) newRawCursor(tbl AnyTable) *rawCursor {
	c := &rawCursor{tx: tx, tbl: tbl}
	tx.cursors = append(tx.cursors, c)
	return c
}

func (c *rawCursor) check() error {
	if c.tx.closed {
		return ErrTxClosed
	}
	if c.closed {
		return ErrCursorClosed
	}
	return nil
}

func (c *rawCursor) engine() storageCursor {
	if c.bc != nil && c.gen == c.tx.gen {
		return c.bc
	}
	if c.bc != nil {
		c.bc.Close()
	}
	b := c.tx.stx.Bucket(c.tbl.Name())
	if b == nil {
		panic(tableErrf(c.tbl, "cursor", nil, ErrBucketNotFound, ""))
	}
	c.bc = b.Cursor()
	c.gen = c.tx.gen
	c.synced = false
	return c.bc
}

func (c *rawCursor) land(k, v []byte, miss cursorState) ([]byte, []byte) {
	if k == nil {
		c.state = miss
		c.synced = false
		return nil, nil
	}
	c.state = positioned
	c.key = append(c.key[:0], k...)
	c.synced = true
	return k, v
}

func (c *rawCursor) first() ([]byte, []byte) {
	k, v := c.engine().First()
	return c.land(k, v, pastEnd)
}

func (c *rawCursor) last() ([]byte, []byte) {
	k, v := c.engine().Last()
	return c.land(k, v, beforeStart)
}

func (c *rawCursor) seek(k []byte) ([]byte, []byte) {
	k, v := c.engine().Seek(k)
	return c.land(k, v, pastEnd)
}

func (c *rawCursor) seekLast(prefix []byte) ([]byte, []byte) {
	k, v := c.engine().SeekLast(prefix)
	return c.land(k, v, beforeStart)
}

func (c *rawCursor) next() ([]byte, []byte) {
	bc := c.engine()
	switch c.state {
	case unpositioned, beforeStart:
		k, v := bc.First()
		return c.land(k, v, pastEnd)
	case pastEnd:
		return nil, nil
	}
	if !c.synced {
		k, v := bc.Seek(c.key)
		if k == nil || !bytes.Equal(k, c.key) {
			// the entry we were on is gone, its successor is next
			return c.land(k, v, pastEnd)
		}
	}
	k, v := bc.Next()
	return c.land(k, v, pastEnd)
}

func (c *rawCursor) prev() ([]byte, []byte) {
	bc := c.engine()
	switch c.state {
	case unpositioned, pastEnd:
		k, v := bc.Last()
		return c.land(k, v, beforeStart)
	case beforeStart:
		return nil, nil
	}
	if !c.synced {
		if k, _ := bc.Seek(c.key); k == nil {
			k, v := bc.Last()
			return c.land(k, v, beforeStart)
		}
	}
	k, v := bc.Prev()
	return c.land(k, v, beforeStart)
}

// current re-reads the entry under the cursor. Returns nil if the cursor
// is not positioned or the entry has been deleted.
func (c *rawCursor) current() ([]byte, []byte) {
	if c.state != positioned {
		return nil, nil
	}
	bc := c.engine()
	k, v := bc.Seek(c.key)
	if k == nil || !bytes.Equal(k, c.key) {
		c.synced = false
		return nil, nil
	}
	c.synced = true
	return k, v
}

func (c *rawCursor) unposition() {
	c.state = unpositioned
	c.synced = false
}

func (c *rawCursor) bucket() (storageBucket, error) {
	return c.tx.bucket(c.tbl)
}

// put stores a record and moves the cursor onto it. rawKey and rawVal must
// not be modified afterwards.
func (c *rawCursor) put(rawKey, rawVal []byte) error {
	if err := c.tx.putRaw(c.tbl, rawKey, rawVal); err != nil {
		return err
	}
	c.state = positioned
	c.key = append(c.key[:0], rawKey...)
	c.synced = false
	return nil
}

// deleteCurrent removes the entry under the cursor. The cursor keeps its
// place, so Next continues with the following entry and Prev with the
// preceding one.
func (c *rawCursor) deleteCurrent() error {
	if c.state != positioned {
		return tableErrf(c.tbl, "delete", nil, ErrNotPositioned, "")
	}
	b, err := c.bucket()
	if err != nil {
		return err
	}
	if err := b.Delete(c.key); err != nil {
		return tableErrf(c.tbl, "delete", c.key, err, "")
	}
	c.tx.notify(c.tbl, OpDelete, append([]byte(nil), c.key...), nil)
	c.tx.markWritten()
	c.tx.logOp("CURSOR.DELETE", c.tbl, c.key)
	return nil
}

func (c *rawCursor) release() {
	if c.bc != nil {
		c.bc.Close()
		c.bc = nil
	}
	c.closed = true
}

func (c *rawCursor) close() {
	if c.closed {
		return
	}
	c.release()
	cursors := c.tx.cursors
	for i, other := range cursors {
		if other == c {
			n := len(cursors) - 1
			cursors[i] = cursors[n]
			cursors[n] = nil
			c.tx.cursors = cursors[:n]
			break
		}
	}
}

// Cursor is a typed cursor over one table. Every move returns the entry it
// lands on, or ok == false if there is none. On a DupSort table Next and
// Prev step between primary keys and land on the first value of a key; use
// OpenDupCursor to move within the values of one key.
//
// A cursor belongs to its transaction and is closed when the transaction
// ends. Decoded keys and values never alias engine memory.
type Cursor[K, V any] struct {
	tbl *Table[K, V]
	raw *rawCursor
}

// OpenCursor opens a cursor over tbl. The cursor starts unpositioned.
func OpenCursor[K, V any](txh Txish, tbl *Table[K, V]) (*Cursor[K, V], error) {
	tx := txh.DBTx()
	if err := tx.checkTable(tbl); err != nil {
		return nil, err
	}
	if _, err := tx.bucket(tbl); err != nil {
		return nil, err
	}
	return &Cursor[K, V]{tbl: tbl, raw: tx.newRawCursor(tbl)}, nil
}

func (c *Cursor[K, V]) Table() *Table[K, V] {
	return c.tbl
}

// Close releases the cursor. Closing twice is fine.
func (c *Cursor[K, V]) Close() {
	c.raw.close()
}

func (c *Cursor[K, V]) entry(k, v []byte) (K, V, bool, error) {
	var zk K
	var zv V
	if k == nil {
		return zk, zv, false, nil
	}
	key, val, err := c.tbl.decodeEntry(k, v)
	if err != nil {
		return zk, zv, false, err
	}
	return key, val, true, nil
}

func (c *Cursor[K, V]) fail(err error) (K, V, bool, error) {
	var zk K
	var zv V
	return zk, zv, false, err
}

func (c *Cursor[K, V]) First() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	return c.entry(c.raw.first())
}

// Last moves to the last key. On a DupSort table that is the first value
// of the last key.
func (c *Cursor[K, V]) Last() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	k, v := c.raw.last()
	if c.tbl.isDup() {
		k, v = c.groupStart(k, v)
	}
	return c.entry(k, v)
}

// Seek moves to the first entry whose key is >= k.
func (c *Cursor[K, V]) Seek(k K) (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	rawKey, err := c.tbl.appendKey(nil, k)
	if err != nil {
		return c.fail(err)
	}
	rk, rv := c.raw.seek(rawKey)
	c.raw.tx.logOp("SEEK", c.tbl, rawKey, slog.Bool("found", rk != nil))
	return c.entry(rk, rv)
}

// SeekExact moves to k. If k is absent, the cursor is left unpositioned and
// a following Next behaves like First.
func (c *Cursor[K, V]) SeekExact(k K) (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	rawKey, err := c.tbl.appendKey(nil, k)
	if err != nil {
		return c.fail(err)
	}
	rk, rv := c.raw.seek(rawKey)
	if rk == nil || !bytes.Equal(c.tbl.primaryKey(rk), rawKey) {
		c.raw.unposition()
		c.raw.tx.logOp("SEEK_EXACT.NOTFOUND", c.tbl, rawKey)
		return c.fail(nil)
	}
	c.raw.tx.logOp("SEEK_EXACT", c.tbl, rawKey)
	return c.entry(rk, rv)
}

func (c *Cursor[K, V]) Next() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	if c.tbl.isDup() {
		return c.entry(c.nextKey())
	}
	return c.entry(c.raw.next())
}

func (c *Cursor[K, V]) Prev() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	if c.tbl.isDup() {
		return c.entry(c.prevKey())
	}
	return c.entry(c.raw.prev())
}

// Current returns the entry under the cursor. ok is false when the cursor
// is not positioned or its entry has been deleted.
func (c *Cursor[K, V]) Current() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	return c.entry(c.raw.current())
}

// Put stores v under k and moves the cursor onto the new entry.
func (c *Cursor[K, V]) Put(k K, v V) error {
	if err := c.raw.check(); err != nil {
		return err
	}
	if err := c.raw.tx.checkWritable(c.tbl, "put"); err != nil {
		return err
	}
	rawKey, rawVal, err := c.tbl.encodeRecord(k, v)
	if err != nil {
		return err
	}
	return c.raw.put(rawKey, rawVal)
}

// DeleteCurrent removes the entry under the cursor; on a DupSort table,
// only the current value. Iteration continues with the following entry.
func (c *Cursor[K, V]) DeleteCurrent() error {
	if err := c.raw.check(); err != nil {
		return err
	}
	if err := c.raw.tx.checkWritable(c.tbl, "delete"); err != nil {
		return err
	}
	return c.raw.deleteCurrent()
}

// nextKey moves to the first value of the next primary key.
func (c *Cursor[K, V]) nextKey() ([]byte, []byte) {
	r := c.raw
	w := c.tbl.keyWidth
	if r.state != positioned || len(r.key) < w {
		return r.next()
	}
	succ := append([]byte(nil), r.key[:w]...)
	if inc(succ) {
		return r.seek(succ)
	}
	for {
		k, v := r.next()
		if k == nil || !hasPrefix(k, succ) {
			return k, v
		}
	}
}

// prevKey moves to the first value of the previous primary key.
func (c *Cursor[K, V]) prevKey() ([]byte, []byte) {
	r := c.raw
	if r.state == positioned && len(r.key) >= c.tbl.keyWidth {
		r.seek(append([]byte(nil), r.key[:c.tbl.keyWidth]...))
	}
	k, v := r.prev()
	return c.groupStart(k, v)
}

func (c *Cursor[K, V]) groupStart(k, v []byte) ([]byte, []byte) {
	w := c.tbl.keyWidth
	if k == nil || len(k) < w {
		return k, v
	}
	return c.raw.seek(append([]byte(nil), k[:w]...))
}
