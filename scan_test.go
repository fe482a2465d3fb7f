package stagedb

import (
	"context"
	"encoding/hex"
	"testing"
)

func TestRawRange_ConstructorsAndModifiers(t *testing.T) {
	l := []byte{1}
	u := []byte{2}

	deepEqual(t, RawOO(), RawRange{})
	deepEqual(t, RawIO(l), RawRange{Lower: l, LowerInc: true})
	deepEqual(t, RawEO(l), RawRange{Lower: l})
	deepEqual(t, RawOI(u), RawRange{Upper: u, UpperInc: true})
	deepEqual(t, RawOE(u), RawRange{Upper: u})
	deepEqual(t, RawII(l, u), RawRange{Lower: l, Upper: u, LowerInc: true, UpperInc: true})
	deepEqual(t, RawIE(l, u), RawRange{Lower: l, Upper: u, LowerInc: true})

	r := RawPrefix([]byte{9})
	deepEqual(t, r.Prefix, []byte{9})
	r2 := r.Prefixed([]byte{8}).Reversed()
	if !r2.Reverse || len(r2.Prefix) != 1 || r2.Prefix[0] != 8 {
		t.Fatalf("Prefixed/Reversed returned unexpected range: %+v", r2)
	}
}

func scanRaw(t testing.TB, tx *Tx, rang RawRange, exp ...string) {
	t.Helper()
	var out []string
	c := ScanRaw(tx, namesTable, rang)
	defer c.Close()
	for c.Next() {
		out = append(out, hex.EncodeToString(c.Key()))
	}
	ensure(c.Err())
	deepEqual(t, out, exp)
}

func TestScanRaw(t *testing.T) {
	eachEngine(t, func(t *testing.T, db *DB) {
		write(t, db, func(tx *Tx) {
			for _, k := range []string{"\x10\x01", "\x10\x02", "\x10\x03", "\x11\x01", "\x12"} {
				ensure(Put(tx, namesTable, k, 1))
			}
		})

		read(t, db, func(tx *Tx) {
			scanRaw(t, tx, RawOO(), "1001", "1002", "1003", "1101", "12")
			scanRaw(t, tx, RawOO().Reversed(), "12", "1101", "1003", "1002", "1001")
			scanRaw(t, tx, RawPrefix(x("10")), "1001", "1002", "1003")
			scanRaw(t, tx, RawPrefix(x("10")).Reversed(), "1003", "1002", "1001")
			scanRaw(t, tx, RawEO(x("1001")), "1002", "1003", "1101", "12")
			scanRaw(t, tx, RawIO(x("1001")), "1001", "1002", "1003", "1101", "12")
			scanRaw(t, tx, RawOE(x("1003")).Reversed(), "1002", "1001")
			scanRaw(t, tx, RawOI(x("1003")).Reversed(), "1003", "1002", "1001")
			scanRaw(t, tx, RawII(x("1002"), x("1101")), "1002", "1003", "1101")
			scanRaw(t, tx, RawIE(x("1002"), x("1101")), "1002", "1003")
			scanRaw(t, tx, RawIE(x("1002"), x("1101")).Reversed(), "1003", "1002")
			scanRaw(t, tx, RawIO(x("1004")).Prefixed(x("10")))
			scanRaw(t, tx, RawOE(x("10")).Reversed())
			scanRaw(t, tx, RawIO(x("ff")))
		})
	})
}

func TestScanRaw_PrefixMismatchPanics(t *testing.T) {
	db := setup(t, basicSchema, Memory)
	read(t, db, func(tx *Tx) {
		assertPanics(t, func() {
			ScanRaw(tx, namesTable, RawRange{Prefix: []byte{0x10}, Lower: []byte{0x11}, LowerInc: true}).Next()
		})
		assertPanics(t, func() {
			ScanRaw(tx, namesTable, RawRange{Prefix: []byte{0x10}, Upper: []byte{0x11}, UpperInc: true, Reverse: true}).Next()
		})
	})
}

func TestScanRaw_ClosedTx(t *testing.T) {
	db := setup(t, basicSchema, Memory)
	tx := must(db.BeginRead(context.Background()))
	ensure(tx.Abort())
	c := ScanRaw(tx, namesTable, RawOO())
	deepEqual(t, c.Next(), false)
	isErr(t, c.Err(), ErrTxClosed)
}
