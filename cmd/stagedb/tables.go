package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/tables"
)

var errNotFound = errors.New("not found")

var (
	tablesCmd = &cobra.Command{
		Use:   "tables",
		Short: "List tables with their entry counts",
		Args:  cobra.NoArgs,
		RunE:  runTables,
	}

	listCmd = &cobra.Command{
		Use:   "list <table>",
		Short: "Print the rows of a table in key order",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}

	getCmd = &cobra.Command{
		Use:   "get <table> <key>",
		Short: "Print the value (or, for DupSort tables, every value) of a key",
		Args:  cobra.ExactArgs(2),
		RunE:  runGet,
	}

	dumpCmd = &cobra.Command{
		Use:   "dump [table...]",
		Short: "Dump tables with headers, stats and rows",
		RunE:  runDump,
	}
)

func init() {
	key := "start"
	listCmd.Flags().String(key, "", WrapString("Start at this key (inclusive), written the way get accepts it"))
	key = "limit"
	listCmd.Flags().Int(key, 100, WrapString("Print at most this many rows, 0 for all"))
	key = "reverse"
	listCmd.Flags().Bool(key, false, WrapString("Walk backwards from --start, or from the last key"))

	key = "limit"
	dumpCmd.Flags().Int(key, 20, WrapString("Print at most this many rows per table, 0 for all"))
}

func lookupTable(name string) (stagedb.AnyTable, error) {
	tbl := tables.Schema.TableNamed(name)
	if tbl == nil {
		var names []string
		for _, t := range tables.Schema.Tables() {
			names = append(names, t.Name())
		}
		return nil, fmt.Errorf("unknown table %q, known tables: %s", name, strings.Join(names, ", "))
	}
	return tbl, nil
}

func runTables(cmd *cobra.Command, _ []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tENTRIES\tMODE\tCOMPRESSION")
	err = db.View(cmd.Context(), func(tx *stagedb.Tx) error {
		for _, tbl := range tables.Schema.Tables() {
			n, err := stagedb.Count(tx, tbl)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", tbl.Name(), n, tbl.DupMode(), tbl.Compression())
		}
		return nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	tbl, err := lookupTable(args[0])
	if err != nil {
		return err
	}
	start, _ := cmd.Flags().GetString("start")
	limit, _ := cmd.Flags().GetInt("limit")
	reverse, _ := cmd.Flags().GetBool("reverse")

	rang := stagedb.RawOO()
	if start != "" {
		raw, err := tbl.ParseKey(start)
		if err != nil {
			return err
		}
		if reverse {
			if tbl.DupMode() == stagedb.DupSort {
				raw = append(raw, bytes.Repeat([]byte{0xff}, tbl.SubKeyWidth())...)
			}
			rang = stagedb.RawOI(raw)
		} else {
			rang = stagedb.RawIO(raw)
		}
	}
	if reverse {
		rang = rang.Reversed()
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	return db.View(cmd.Context(), func(tx *stagedb.Tx) error {
		c := stagedb.ScanRaw(tx, tbl, rang)
		defer c.Close()
		var n int
		for c.Next() {
			if limit > 0 && n == limit {
				fmt.Fprintln(out, "...")
				break
			}
			n++
			fmt.Fprintf(out, "%s = %s\n", tbl.FormatKey(c.Key()), tbl.FormatValue(c.Key(), c.Value()))
		}
		return c.Err()
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	tbl, err := lookupTable(args[0])
	if err != nil {
		return err
	}
	raw, err := tbl.ParseKey(args[1])
	if err != nil {
		return err
	}
	rang := stagedb.RawII(raw, raw)
	if tbl.DupMode() == stagedb.DupSort {
		rang = stagedb.RawPrefix(raw)
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	return db.View(cmd.Context(), func(tx *stagedb.Tx) error {
		c := stagedb.ScanRaw(tx, tbl, rang)
		defer c.Close()
		var found bool
		for c.Next() {
			found = true
			fmt.Fprintln(out, tbl.FormatValue(c.Key(), c.Value()))
		}
		if err := c.Err(); err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s/%s: %w", tbl.Name(), args[1], errNotFound)
		}
		return nil
	})
}

func runDump(cmd *cobra.Command, args []string) error {
	var tbls []stagedb.AnyTable
	for _, name := range args {
		tbl, err := lookupTable(name)
		if err != nil {
			return err
		}
		tbls = append(tbls, tbl)
	}
	if len(tbls) == 0 {
		tbls = tables.Schema.Tables()
	}
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.View(cmd.Context(), func(tx *stagedb.Tx) error {
		for _, tbl := range tbls {
			if err := tx.DumpTable(cmd.OutOrStdout(), stagedb.DumpAll, tbl, limit); err != nil {
				return err
			}
		}
		return nil
	})
}
