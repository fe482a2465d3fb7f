package stagedb

import (
	"bytes"
)

// DupCursor is a cursor over a DupSort table that can also move between
// the values of one key. Next and Prev still step between keys.
type DupCursor[K, V any] struct {
	*Cursor[K, V]
}

// OpenDupCursor opens a cursor over a DupSort table. It fails with
// ErrNotDupSort for other tables.
func OpenDupCursor[K, V any](txh Txish, tbl *Table[K, V]) (*DupCursor[K, V], error) {
	if !tbl.isDup() {
		return nil, tableErrf(tbl, "cursor", nil, ErrNotDupSort, "")
	}
	c, err := OpenCursor(txh, tbl)
	if err != nil {
		return nil, err
	}
	return &DupCursor[K, V]{c}, nil
}

// currentKey returns a copy of the encoded primary key under the cursor.
func (c *DupCursor[K, V]) currentKey() ([]byte, error) {
	r := c.raw
	if r.state != positioned {
		return nil, tableErrf(c.tbl, "dup", nil, ErrNotPositioned, "")
	}
	w := c.tbl.keyWidth
	if len(r.key) < w {
		return nil, tableErrf(c.tbl, "dup", r.key, ErrNotPositioned, "short key")
	}
	return append([]byte(nil), r.key[:w]...), nil
}

// NextDup moves to the next value of the current key. At the end of the
// group it returns ok == false and stays on the last value.
func (c *DupCursor[K, V]) NextDup() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	pk, err := c.currentKey()
	if err != nil {
		return c.fail(err)
	}
	here := append([]byte(nil), c.raw.key...)
	k, v := c.raw.next()
	if k == nil || !hasPrefix(k, pk) {
		c.restore(here)
		return c.fail(nil)
	}
	return c.entry(k, v)
}

// restore moves back onto key, or next to where it was if it has since
// been deleted.
func (c *DupCursor[K, V]) restore(key []byte) {
	r := c.raw
	k, _ := r.seek(key)
	if k == nil || !bytes.Equal(k, key) {
		r.state = positioned
		r.key = append(r.key[:0], key...)
		r.synced = false
	}
}

// LastDup moves to the last value of the current key.
func (c *DupCursor[K, V]) LastDup() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	pk, err := c.currentKey()
	if err != nil {
		return c.fail(err)
	}
	k, v := c.raw.seekLast(pk)
	if k == nil || !hasPrefix(k, pk) {
		return c.fail(nil)
	}
	return c.entry(k, v)
}

// SeekBySubKey moves to the first value of k whose sub-key is >= sub. If
// there is none, the cursor is left unpositioned.
func (c *DupCursor[K, V]) SeekBySubKey(k K, sub []byte) (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	if len(sub) > c.tbl.subKeyWidth {
		return c.fail(tableErrf(c.tbl, "seek", sub, ErrInvalidSubKey, "%d bytes, want at most %d", len(sub), c.tbl.subKeyWidth))
	}
	pk, err := c.tbl.appendKey(nil, k)
	if err != nil {
		return c.fail(err)
	}
	target := append(append([]byte(nil), pk...), sub...)
	rk, rv := c.raw.seek(target)
	if rk == nil || !hasPrefix(rk, pk) {
		c.raw.unposition()
		c.raw.tx.logOp("SEEK_SUBKEY.NOTFOUND", c.tbl, target)
		return c.fail(nil)
	}
	c.raw.tx.logOp("SEEK_SUBKEY", c.tbl, target)
	return c.entry(rk, rv)
}

// NextEntry moves to the next value, crossing into the next key when the
// current one is exhausted.
func (c *DupCursor[K, V]) NextEntry() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	return c.entry(c.raw.next())
}

// PrevEntry moves to the previous value, crossing into the previous key.
func (c *DupCursor[K, V]) PrevEntry() (K, V, bool, error) {
	if err := c.raw.check(); err != nil {
		return c.fail(err)
	}
	return c.entry(c.raw.prev())
}

// CountDups returns the number of values of the current key without
// moving the cursor.
func (c *DupCursor[K, V]) CountDups() (int, error) {
	if err := c.raw.check(); err != nil {
		return 0, err
	}
	pk, err := c.currentKey()
	if err != nil {
		return 0, err
	}
	b, err := c.raw.bucket()
	if err != nil {
		return 0, err
	}
	bc := b.Cursor()
	defer bc.Close()
	var n int
	for k, _ := bc.Seek(pk); k != nil && hasPrefix(k, pk); k, _ = bc.Next() {
		n++
	}
	return n, nil
}

// DeleteCurrentDups removes every value of the current key. Next then
// moves to the following key.
func (c *DupCursor[K, V]) DeleteCurrentDups() error {
	if err := c.raw.check(); err != nil {
		return err
	}
	if err := c.raw.tx.checkWritable(c.tbl, "delete"); err != nil {
		return err
	}
	pk, err := c.currentKey()
	if err != nil {
		return err
	}
	b, err := c.raw.bucket()
	if err != nil {
		return err
	}
	keys := collectPrefix(b, pk)
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return tableErrf(c.tbl, "delete", k, err, "")
		}
		c.raw.tx.notify(c.tbl, OpDelete, k, nil)
	}
	c.raw.tx.markWritten()
	c.raw.tx.logOp("CURSOR.DELETE_DUPS", c.tbl, pk)
	return nil
}

// WalkDup walks the values of k in sub-key order.
func (c *DupCursor[K, V]) WalkDup(k K) *Walker[K, V] {
	pk, err := c.tbl.appendKey(nil, k)
	if err != nil {
		return &Walker[K, V]{c: c.Cursor, err: err, done: true}
	}
	return c.walker(RawPrefix(pk))
}
