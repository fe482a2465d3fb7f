package stagedb

import (
	"iter"
)

// Walker is a one-shot iteration over a range of a table. It moves the
// cursor it was created from, so DeleteCurrent and Put on that cursor are
// allowed between calls to Next. On a DupSort table a Walker visits every
// value of every key.
type Walker[K, V any] struct {
	c    *Cursor[K, V]
	rang RawRange
	init bool
	done bool
	k    K
	v    V
	err  error
}

func (c *Cursor[K, V]) walker(rang RawRange) *Walker[K, V] {
	if c.tbl.isDup() {
		rang.keyLen = c.tbl.keyWidth
	}
	return &Walker[K, V]{c: c, rang: rang}
}

func (c *Cursor[K, V]) bound(k *K) ([]byte, error) {
	if k == nil {
		return nil, nil
	}
	return c.tbl.appendKey(nil, *k)
}

// Walk iterates forward from start, or from the beginning of the table if
// start is nil.
func (c *Cursor[K, V]) Walk(start *K) *Walker[K, V] {
	return c.WalkRange(start, nil)
}

// WalkRange iterates forward over start <= key < end. A nil bound is open.
func (c *Cursor[K, V]) WalkRange(start, end *K) *Walker[K, V] {
	lower, err := c.bound(start)
	if err != nil {
		return &Walker[K, V]{c: c, err: err, done: true}
	}
	upper, err := c.bound(end)
	if err != nil {
		return &Walker[K, V]{c: c, err: err, done: true}
	}
	return c.walker(RawRange{Lower: lower, Upper: upper, LowerInc: true})
}

// ReverseWalk iterates backward from start, or from the end of the table if
// start is nil.
func (c *Cursor[K, V]) ReverseWalk(start *K) *Walker[K, V] {
	upper, err := c.bound(start)
	if err != nil {
		return &Walker[K, V]{c: c, err: err, done: true}
	}
	return c.walker(RawRange{Upper: upper, UpperInc: true, Reverse: true})
}

func (w *Walker[K, V]) Next() bool {
	if w.done {
		return false
	}
	r := w.c.raw
	if err := r.check(); err != nil {
		w.err = err
		w.done = true
		return false
	}
	var k, v []byte
	if w.init {
		k, v = w.rang.next(r, r.tx.db.logger)
	} else {
		w.init = true
		k, v = w.rang.start(r, r.tx.db.logger)
	}
	if k == nil {
		w.done = true
		return false
	}
	w.k, w.v, w.err = w.c.tbl.decodeEntry(k, v)
	if w.err != nil {
		w.done = true
		return false
	}
	return true
}

func (w *Walker[K, V]) Key() K {
	return w.k
}

func (w *Walker[K, V]) Value() V {
	return w.v
}

// Err returns the error that stopped the walk, if any.
func (w *Walker[K, V]) Err() error {
	return w.err
}

// All adapts the walker to a range-over-func loop. Check Err afterwards.
func (w *Walker[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for w.Next() {
			if !yield(w.k, w.v) {
				return
			}
		}
	}
}

// Collect drains the walker.
func (w *Walker[K, V]) Collect() ([]K, []V, error) {
	var keys []K
	var vals []V
	for w.Next() {
		keys = append(keys, w.k)
		vals = append(vals, w.v)
	}
	return keys, vals, w.err
}
