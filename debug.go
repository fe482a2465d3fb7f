package stagedb

import (
	"fmt"
	"io"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders every table of the schema for humans.
func (tx *Tx) Dump(f DumpFlags) string {
	var buf strings.Builder
	for _, tbl := range tx.db.schema.tables {
		if err := tx.DumpTable(&buf, f, tbl, 0); err != nil {
			fmt.Fprintf(&buf, "%s: ** ERROR: %v\n", tbl.Name(), err)
		}
	}
	return buf.String()
}

// DumpTable renders the entries of one table, at most limit rows when
// limit is positive.
func (tx *Tx) DumpTable(w io.Writer, f DumpFlags, tbl AnyTable, limit int) error {
	s, err := tx.TableStats(tbl)
	if err != nil {
		return err
	}
	prefix := tbl.Name()

	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d entries, %s)\n", prefix, s.Entries, tbl.DupMode())
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(w, "%s.stats: data_size = %d, data_alloc = %d, compression = %v\n", prefix, s.DataSize, s.DataAlloc, tbl.Compression())
	}

	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(w, dumpSep2)
		}
		c := ScanRaw(tx, tbl, RawOO())
		defer c.Close()
		var rowPos int
		for c.Next() {
			rowPos++
			if limit > 0 && rowPos > limit {
				fmt.Fprintf(w, "%s: ...\n", prefix)
				break
			}
			fmt.Fprintf(w, "%s.%d: %s = %s\n", prefix, rowPos, tbl.FormatKey(c.Key()), tbl.FormatValue(c.Key(), c.Value()))
		}
		if err := c.Err(); err != nil {
			return err
		}
	}
	return nil
}
