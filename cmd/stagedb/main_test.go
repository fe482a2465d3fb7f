package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/chain"
	"github.com/andreyvit/stagedb/stages"
	"github.com/andreyvit/stagedb/tables"
)

func hash(b byte) chain.Hash {
	var h chain.Hash
	h[31] = b
	return h
}

func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db, err := stagedb.Open(dbPath(dir, stagedb.Bolt), tables.Schema, stagedb.Options{IsTesting: true})
	require.NoError(t, err)
	defer db.Close()

	_, err = tables.Stages.Commit(context.Background(), db, stages.Headers, func(tx *stagedb.Tx, prev stages.Checkpoint) (stages.Checkpoint, error) {
		for n := chain.BlockNumber(1); n <= 3; n++ {
			if err := tables.WriteHeader(tx, hash(byte(n)), &chain.Header{Number: n, GasLimit: 1000}); err != nil {
				return stages.Checkpoint{}, err
			}
		}
		return stages.Checkpoint{BlockNumber: 3}, nil
	})
	require.NoError(t, err)
	return dir
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "stagedb v"+Version+"\n", out)
}

func TestTablesAndRows(t *testing.T) {
	dir := seed(t)

	out, err := run(t, "tables", "--datadir", dir)
	require.NoError(t, err)
	require.Regexp(t, `(?m)^Headers\s+3\s+single\s+none$`, out)
	require.Regexp(t, `(?m)^Transactions\s+0\s+single\s+snappy$`, out)
	require.Regexp(t, `(?m)^PlainStorageState\s+0\s+dupsort\s+none$`, out)

	out, err = run(t, "list", "CanonicalHeaders", "--datadir", dir, "--start", "2")
	require.NoError(t, err)
	require.Equal(t, `2 = "`+hash(2).String()+`"`+"\n"+`3 = "`+hash(3).String()+`"`+"\n", out)

	out, err = run(t, "list", "canonicalheaders", "--datadir", dir, "--limit", "1", "--reverse")
	require.NoError(t, err)
	require.Equal(t, `3 = "`+hash(3).String()+`"`+"\n...\n", out)

	out, err = run(t, "get", "HeaderNumbers", hash(2).String(), "--datadir", dir)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)

	_, err = run(t, "get", "HeaderNumbers", hash(9).String(), "--datadir", dir)
	require.ErrorIs(t, err, errNotFound)

	_, err = run(t, "list", "Bogus", "--datadir", dir)
	require.ErrorContains(t, err, "unknown table")

	out, err = run(t, "dump", "Headers", "--datadir", dir, "--limit", "2")
	require.NoError(t, err)
	require.Contains(t, out, "Headers (3 entries, single)")
	require.Contains(t, out, "Headers.2: 2 = ")
	require.Contains(t, out, "Headers: ...")
}

func TestStagesCommands(t *testing.T) {
	dir := seed(t)

	out, err := run(t, "stages", "list", "--datadir", dir)
	require.NoError(t, err)
	require.Regexp(t, `(?m)^Headers\s+3\s+1$`, out)
	require.Regexp(t, `(?m)^Bodies\s+-\s+-$`, out)

	_, err = run(t, "stages", "reset", "Bogus", "--datadir", dir)
	require.ErrorContains(t, err, "unknown stage")

	out, err = run(t, "stages", "reset", "Headers", "--datadir", dir)
	require.NoError(t, err)
	require.Equal(t, "stage Headers reset\n", out)

	out, err = run(t, "stages", "list", "--datadir", dir)
	require.NoError(t, err)
	require.Regexp(t, `(?m)^Headers\s+-\s+-$`, out)
}

func TestMetrics(t *testing.T) {
	dir := seed(t)
	out, err := run(t, "metrics", "--datadir", dir)
	require.NoError(t, err)
	require.Contains(t, out, `stagedb_tx_begin_total{mode="read"}`)
	require.Contains(t, out, `stagedb_table_entries{table="Headers"} 3`)
	require.Contains(t, out, `stagedb_table_entries{table="StageCheckpoints"} 1`)
}

func TestConfigErrors(t *testing.T) {
	_, err := run(t, "tables")
	require.ErrorContains(t, err, "--datadir is required")

	_, err = run(t, "tables", "--datadir", t.TempDir(), "--engine", "memory")
	require.ErrorContains(t, err, "invalid engine")

	_, err = run(t, "tables", "--datadir", t.TempDir(), "--log-level", "loud")
	require.ErrorContains(t, err, "invalid log level")
}

func TestWrapString(t *testing.T) {
	require.Equal(t, "", WrapString("  "))
	require.Equal(t, "short text", WrapString("short   text"))
	long := strings.Repeat("word ", 20)
	for _, line := range strings.Split(WrapString(long), "\n") {
		require.LessOrEqual(t, len(line), Wrap)
	}
}
