package stagedb

import (
	"bytes"
	"context"
	"log/slog"
)

const (
	debugLogRawScans = false
)

// RawRange defines a range of byte strings. The constructors use mnemonics:
// O means open, I means inclusive, E means exclusive; the first letter is for
// the lower bound, the second for the upper bound.
type RawRange struct {
	Prefix   []byte
	Lower    []byte
	Upper    []byte
	LowerInc bool
	UpperInc bool
	Reverse  bool

	// keyLen, when non-zero, limits bound comparisons to the first keyLen
	// bytes of each key. DupSort walks compare primary keys only.
	keyLen int
}

func RawOO() RawRange            { return RawRange{} }
func RawIO(l []byte) RawRange    { return RawRange{Lower: l, LowerInc: true} }
func RawEO(l []byte) RawRange    { return RawRange{Lower: l, LowerInc: false} }
func RawOI(u []byte) RawRange    { return RawRange{Upper: u, UpperInc: true} }
func RawOE(u []byte) RawRange    { return RawRange{Upper: u, UpperInc: false} }
func RawII(l, u []byte) RawRange { return RawRange{Lower: l, Upper: u, LowerInc: true, UpperInc: true} }
func RawIE(l, u []byte) RawRange {
	return RawRange{Lower: l, Upper: u, LowerInc: true, UpperInc: false}
}
func RawPrefix(p []byte) RawRange                { return RawRange{Prefix: p} }
func (rang RawRange) Prefixed(p []byte) RawRange { rang.Prefix = p; return rang }
func (rang RawRange) Reversed() RawRange         { rang.Reverse = true; return rang }

// rangeCursor is the set of moves a range scan needs. *rawCursor
// implements it; typed cursors and walkers reach it through their rawCursor.
type rangeCursor interface {
	first() ([]byte, []byte)
	last() ([]byte, []byte)
	seek(k []byte) ([]byte, []byte)
	seekLast(prefix []byte) ([]byte, []byte)
	next() ([]byte, []byte)
	prev() ([]byte, []byte)
}

var _ rangeCursor = (*rawCursor)(nil)

func (r *RawRange) cmp(k, bound []byte) int {
	if r.keyLen > 0 && len(k) > r.keyLen {
		k = k[:r.keyLen]
	}
	return bytes.Compare(k, bound)
}

// beforeStart reports whether k lies before the range in scan direction.
func (r *RawRange) beforeStart(k []byte) bool {
	if r.Reverse {
		if r.Upper == nil {
			return false
		}
		c := r.cmp(k, r.Upper)
		return c > 0 || (c == 0 && !r.UpperInc)
	} else {
		if r.Lower == nil {
			return false
		}
		c := r.cmp(k, r.Lower)
		return c < 0 || (c == 0 && !r.LowerInc)
	}
}

func (r *RawRange) start(cur rangeCursor, logger *slog.Logger) ([]byte, []byte) {
	var k, v []byte
	if r.Reverse {
		upper := r.Upper
		if upper != nil {
			if r.Prefix != nil && !bytes.HasPrefix(upper, r.Prefix) {
				panic("upper bound does not match prefix")
			}
		} else if r.Prefix != nil {
			upper = r.Prefix
		}
		if upper != nil {
			k, v = cur.seekLast(upper)
			if debugLogRawScans {
				logger.LogAttrs(context.Background(), slog.LevelDebug, "SEEK to upper", hexAttr("upper", upper), hexAttr("key", k), hexAttr("val", v))
			}
		} else {
			k, v = cur.last()
		}
		for k != nil && r.beforeStart(k) {
			k, v = cur.prev()
		}
	} else {
		lower := r.Lower
		if lower != nil {
			if r.Prefix != nil && !bytes.HasPrefix(lower, r.Prefix) {
				panic("lower bound does not match prefix")
			}
		} else if r.Prefix != nil {
			lower = r.Prefix
		}
		if lower != nil {
			k, v = cur.seek(lower)
			if debugLogRawScans {
				logger.LogAttrs(context.Background(), slog.LevelDebug, "SEEK to lower", hexAttr("lower", lower), hexAttr("key", k), hexAttr("val", v))
			}
		} else {
			k, v = cur.first()
		}
		for k != nil && r.beforeStart(k) {
			k, v = cur.next()
		}
	}
	if k != nil && r.match(k, v, logger) {
		return k, v
	} else {
		return nil, nil
	}
}

func (r *RawRange) next(cur rangeCursor, logger *slog.Logger) ([]byte, []byte) {
	var k, v []byte
	if r.Reverse {
		k, v = cur.prev()
		if debugLogRawScans {
			logger.LogAttrs(context.Background(), slog.LevelDebug, "PREV", hexAttr("key", k), hexAttr("val", v))
		}
	} else {
		k, v = cur.next()
		if debugLogRawScans {
			logger.LogAttrs(context.Background(), slog.LevelDebug, "NEXT", hexAttr("key", k), hexAttr("val", v))
		}
	}
	if k != nil && r.match(k, v, logger) {
		return k, v
	} else {
		return nil, nil
	}
}

func (r *RawRange) match(k, v []byte, logger *slog.Logger) bool {
	if r.Prefix != nil && !bytes.HasPrefix(k, r.Prefix) {
		if debugLogRawScans {
			logger.LogAttrs(context.Background(), slog.LevelDebug, "BAIL on prefix", hexAttr("prefix", r.Prefix), hexAttr("key", k), hexAttr("val", v))
		}
		return false
	}
	if r.Reverse {
		if lower := r.Lower; lower != nil {
			cmp := r.cmp(k, lower)
			if cmp == -1 || (cmp == 0 && !r.LowerInc) {
				return false
			}
		}
	} else {
		if upper := r.Upper; upper != nil {
			cmp := r.cmp(k, upper)
			if cmp == 1 || (cmp == 0 && !r.UpperInc) {
				return false
			}
		}
	}
	return true
}

// RawRangeCursor walks raw engine entries of one table, without decoding.
type RawRangeCursor struct {
	rang   RawRange
	cur    *rawCursor
	logger *slog.Logger
	k, v   []byte
	init   bool
	err    error
}

// ScanRaw iterates over the raw entries of tbl within rang. Each DupSort
// value is a separate entry.
func ScanRaw(txh Txish, tbl AnyTable, rang RawRange) *RawRangeCursor {
	tx := txh.DBTx()
	rc := &RawRangeCursor{rang: rang, logger: tx.db.logger}
	if err := tx.checkTable(tbl); err != nil {
		rc.err = err
		rc.init = true
		return rc
	}
	rc.cur = tx.newRawCursor(tbl)
	return rc
}

func (c *RawRangeCursor) Next() bool {
	if c.err != nil || (c.init && c.k == nil) {
		return false
	}
	if err := c.cur.check(); err != nil {
		c.err = err
		return false
	}
	if c.init {
		c.k, c.v = c.rang.next(c.cur, c.logger)
	} else {
		c.init = true
		c.k, c.v = c.rang.start(c.cur, c.logger)
	}
	if c.k == nil {
		c.cur.close()
	}
	return c.k != nil
}

// Key and Value are valid until the next call to Next.
func (c *RawRangeCursor) Key() []byte   { return c.k }
func (c *RawRangeCursor) Value() []byte { return c.v }
func (c *RawRangeCursor) Err() error    { return c.err }

func (c *RawRangeCursor) Close() {
	if c.cur != nil {
		c.cur.close()
	}
}
