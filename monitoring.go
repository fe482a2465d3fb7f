package stagedb

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

var (
	txBeginReadTotal    = metrics.NewCounter(`stagedb_tx_begin_total{mode="read"}`)
	txBeginWriteTotal   = metrics.NewCounter(`stagedb_tx_begin_total{mode="write"}`)
	txCommitTotal       = metrics.NewCounter(`stagedb_tx_commit_total`)
	txCommitFailedTotal = metrics.NewCounter(`stagedb_tx_commit_failed_total`)
	txAbortTotal        = metrics.NewCounter(`stagedb_tx_abort_total`)
	txCommitDuration    = metrics.NewHistogram(`stagedb_tx_commit_duration_seconds`)
	txWriterWait        = metrics.NewHistogram(`stagedb_tx_writer_wait_seconds`)
	decodeErrorsTotal   = metrics.NewCounter(`stagedb_decode_errors_total`)
)

// tableGauges holds the last recorded value of each per-table gauge.
var tableGauges = xsync.NewMapOf[string, *atomic.Int64]()

func tableGauge(family string, tbl AnyTable) *atomic.Int64 {
	name := fmt.Sprintf(`%s{table=%q}`, family, tbl.Name())
	v, _ := tableGauges.LoadOrCompute(name, func() *atomic.Int64 {
		n := new(atomic.Int64)
		metrics.GetOrCreateGauge(name, func() float64 { return float64(n.Load()) })
		return n
	})
	return v
}

// RecordTableStats publishes stagedb_table_entries and
// stagedb_table_size_bytes for every table of the schema, as seen by tx.
func (tx *Tx) RecordTableStats() error {
	for _, tbl := range tx.Schema().Tables() {
		ts, err := tx.TableStats(tbl)
		if err != nil {
			return err
		}
		tableGauge("stagedb_table_entries", tbl).Store(int64(ts.Entries))
		tableGauge("stagedb_table_size_bytes", tbl).Store(ts.DataSize)
	}
	return nil
}

// WriteMetrics writes all process metrics in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}

type TableStats struct {
	Entries int

	DataSize  int64
	DataAlloc int64
}

func (tx *Tx) TableStats(tbl AnyTable) (TableStats, error) {
	if err := tx.checkTable(tbl); err != nil {
		return TableStats{}, err
	}
	b, err := tx.bucket(tbl)
	if err != nil {
		return TableStats{}, err
	}
	bs := b.Stats()
	return TableStats{
		Entries:   b.KeyCount(),
		DataSize:  bs.LeafInuse,
		DataAlloc: bs.TotalAlloc(),
	}, nil
}
