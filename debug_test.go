package stagedb

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableStatsAndDump(t *testing.T) {
	eachEngine(t, func(t *testing.T, db *DB) {
		putItems(t, db, 1, 2)
		write(t, db, func(tx *Tx) {
			ensure(Put(tx, dupsTable, 3, Dup{1, "a"}))
			ensure(Put(tx, dupsTable, 3, Dup{2, "b"}))
		})

		read(t, db, func(tx *Tx) {
			ts := must(tx.TableStats(itemsTable))
			deepEqual(t, ts.Entries, 2)
			if ts.DataSize == 0 {
				t.Fatalf("TableStats = %+v, wanted DataSize > 0", ts)
			}

			if !DumpTableHeaders.Contains(DumpTableHeaders) || DumpTableHeaders.Contains(DumpRows) {
				t.Fatalf("DumpFlags.Contains returned unexpected results")
			}

			out := tx.Dump(DumpAll)
			for _, s := range []string{"Items (2 entries, single)", `Items.2: 2 = {"Name":"item","Size":2}`, "Dups (2 entries, dupsort)", `Dups.2: 3 = {"Sub":2,"Data":"b"}`} {
				if !strings.Contains(out, s) {
					t.Errorf("Dump output missing %q; got:\n%s", s, out)
				}
			}

			var buf bytes.Buffer
			ensure(tx.DumpTable(&buf, DumpRows, itemsTable, 1))
			deepEqual(t, buf.String(), "Items.1: 1 = {\"Name\":\"item\",\"Size\":1}\nItems: ...\n")
		})
	})
}

func TestWriteMetrics(t *testing.T) {
	db := setup(t, basicSchema, Memory)
	putItems(t, db, 1)
	read(t, db, func(tx *Tx) {
		ensure(tx.RecordTableStats())
	})

	var buf bytes.Buffer
	WriteMetrics(&buf)
	for _, s := range []string{
		"stagedb_tx_commit_total",
		`stagedb_tx_begin_total{mode="write"}`,
		`stagedb_table_entries{table="Items"} 1`,
		`stagedb_table_entries{table="Dups"} 0`,
		`stagedb_table_size_bytes{table="Items"}`,
	} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("metrics missing %q; got:\n%s", s, buf.String())
		}
	}
}
