package stagedb

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Txish is implemented by anything that carries a transaction.
type Txish interface {
	DBTx() *Tx
}

// Tx is a read-only or read-write transaction. A Tx and its cursors belong
// to one goroutine.
type Tx struct {
	db        *DB
	stx       storageTx
	id        uint64
	writable  bool
	closed    bool
	startTime time.Time
	stack     string

	// gen is bumped by every write; cursors created before a write
	// reposition themselves before their next move.
	gen     uint64
	cursors []*rawCursor
}

func (db *DB) newTx(stx storageTx, writable bool) *Tx {
	tx := &Tx{
		db:        db,
		stx:       stx,
		id:        db.lastTxID.Add(1),
		writable:  writable,
		startTime: time.Now(),
	}
	if db.verbose {
		tx.stack = string(debug.Stack())
	}
	db.addTx(tx)
	return tx
}

// DBTx implements Txish
func (tx *Tx) DBTx() *Tx {
	return tx
}

func (tx *Tx) DB() *DB {
	return tx.db
}

func (tx *Tx) Schema() *Schema {
	return tx.db.schema
}

func (tx *Tx) IsWritable() bool {
	return tx.writable
}

func (tx *Tx) IsClosed() bool {
	return tx.closed
}

// Size returns the size of the database as seen by this transaction, when
// the engine knows it.
func (tx *Tx) Size() int64 {
	if tx.closed {
		return 0
	}
	return tx.stx.Size()
}

// BeginRead opens a read-only transaction on a snapshot of the latest
// committed state. It blocks only when Options.MaxReaders transactions are
// already open.
func (db *DB) BeginRead(ctx context.Context) (*Tx, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	if db.readers != nil {
		if err := db.readers.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("stagedb: waiting for a reader slot: %w", err)
		}
	}
	stx, err := db.stg.BeginTx(false)
	if err != nil {
		if db.readers != nil {
			db.readers.Release(1)
		}
		return nil, fmt.Errorf("stagedb: begin read: %w", err)
	}
	txBeginReadTotal.Inc()
	db.ReaderCount.Add(1)
	db.ReadCount.Add(1)
	return db.newTx(stx, false), nil
}

// BeginWrite opens the database's single read-write transaction, waiting
// until the current writer commits or aborts, or until ctx is done.
func (db *DB) BeginWrite(ctx context.Context) (*Tx, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	db.PendingWriterCount.Add(1)
	err := db.writer.Acquire(ctx, 1)
	db.PendingWriterCount.Add(-1)
	if err != nil {
		return nil, fmt.Errorf("stagedb: waiting for the writer slot: %w", err)
	}
	txWriterWait.UpdateDuration(start)
	if db.closed.Load() {
		db.writer.Release(1)
		return nil, ErrClosed
	}
	stx, err := db.stg.BeginTx(true)
	if err != nil {
		db.writer.Release(1)
		return nil, fmt.Errorf("stagedb: begin write: %w", err)
	}
	txBeginWriteTotal.Inc()
	db.WriterCount.Add(1)
	db.WriteCount.Add(1)
	return db.newTx(stx, true), nil
}

// View runs f in a read-only transaction.
func (db *DB) View(ctx context.Context, f func(tx *Tx) error) error {
	tx, err := db.BeginRead(ctx)
	if err != nil {
		return err
	}
	defer tx.Abort()
	return safelyCall(f, tx)
}

// Update runs f in a read-write transaction and commits if f returns nil.
// A panic in f aborts the transaction and is returned as an error.
func (db *DB) Update(ctx context.Context, f func(tx *Tx) error) error {
	tx, err := db.BeginWrite(ctx)
	if err != nil {
		return err
	}
	err = safelyCall(f, tx)
	if err != nil {
		tx.Abort()
		return err
	}
	return tx.Commit()
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

// Commit makes the writes of the transaction durable and visible to
// transactions started afterwards. On failure nothing is applied and the
// transaction is aborted.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	if !tx.writable {
		return ErrReadOnly
	}
	tx.closeCursors()
	start := time.Now()
	err := tx.stx.Commit()
	if err != nil {
		_ = tx.stx.Rollback()
		tx.finish()
		txCommitFailedTotal.Inc()
		tx.db.logger.Warn("db: commit failed", "tx", tx.id, "err", err)
		return fmt.Errorf("stagedb: commit: %w", err)
	}
	txCommitDuration.UpdateDuration(start)
	txCommitTotal.Inc()
	tx.finish()
	return nil
}

// Abort discards the writes of the transaction, or releases the snapshot
// of a read-only one. Aborting a finished transaction does nothing.
func (tx *Tx) Abort() error {
	if tx.closed {
		return nil
	}
	tx.closeCursors()
	err := tx.stx.Rollback()
	if tx.writable {
		txAbortTotal.Inc()
	}
	tx.finish()
	if err != nil {
		return fmt.Errorf("stagedb: abort: %w", err)
	}
	return nil
}

func (tx *Tx) finish() {
	tx.closed = true
	tx.db.removeTx(tx)
	if tx.writable {
		tx.db.WriterCount.Add(-1)
		tx.db.writer.Release(1)
	} else {
		tx.db.ReaderCount.Add(-1)
		if tx.db.readers != nil {
			tx.db.readers.Release(1)
		}
	}
}

func (tx *Tx) closeCursors() {
	for _, c := range tx.cursors {
		c.release()
	}
	tx.cursors = nil
}

func (tx *Tx) checkTable(tbl AnyTable) error {
	if tx.closed {
		return ErrTxClosed
	}
	if tbl.Schema() != tx.db.schema {
		return tableErrf(tbl, "", nil, ErrSchemaMismatch, "")
	}
	return nil
}

func (tx *Tx) checkWritable(tbl AnyTable, op string) error {
	if err := tx.checkTable(tbl); err != nil {
		return err
	}
	if !tx.writable {
		return tableErrf(tbl, op, nil, ErrReadOnly, "")
	}
	return nil
}

func (tx *Tx) bucket(tbl AnyTable) (storageBucket, error) {
	b := tx.stx.Bucket(tbl.Name())
	if b == nil {
		return nil, tableErrf(tbl, "", nil, ErrBucketNotFound, "")
	}
	return b, nil
}

func (tx *Tx) markWritten() {
	tx.gen++
}

func (tx *Tx) logOp(op string, tbl AnyTable, rawKey []byte, attrs ...slog.Attr) {
	if !tx.db.verbose {
		return
	}
	all := make([]slog.Attr, 0, 3+len(attrs))
	all = append(all, slog.Uint64("tx", tx.id), slog.String("table", tbl.Name()), hexAttr("key", rawKey))
	all = append(all, attrs...)
	tx.db.logger.LogAttrs(context.Background(), slog.LevelDebug, "db: "+op, all...)
}
