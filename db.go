package stagedb

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.etcd.io/bbolt"
	"golang.org/x/sync/semaphore"
)

// Engine names a storage backend.
type Engine string

const (
	Bolt    Engine = "bolt"
	LevelDB Engine = "leveldb"
	Memory  Engine = "memory"
)

type DB struct {
	stg     storage
	engine  Engine
	schema  *Schema
	logger  *slog.Logger
	verbose bool

	readers *semaphore.Weighted // nil when unbounded
	writer  *semaphore.Weighted

	ReaderCount        atomic.Int64
	WriterCount        atomic.Int64
	PendingWriterCount atomic.Int64
	ReadCount          atomic.Uint64
	WriteCount         atomic.Uint64

	onChange func(tx *Tx, chg *Change)

	lastTxID atomic.Uint64
	txns     *xsync.MapOf[uint64, *Tx]
	closed   atomic.Bool
}

type Options struct {
	// Engine defaults to Bolt.
	Engine Engine

	// MaxSize is the initial memory map size of a Bolt database.
	MaxSize int

	// MaxReaders bounds the number of concurrently open read transactions.
	// Zero means no limit.
	MaxReaders int

	// NoSync skips fsync on commit. Durability is lost on power failure.
	NoSync bool

	// Timeout bounds waiting for the Bolt file lock.
	Timeout time.Duration

	Logger *slog.Logger

	// Verbose logs every table operation at debug level.
	Verbose bool

	// OnChange is called for every write, inside the writing transaction.
	OnChange func(tx *Tx, chg *Change)

	IsTesting bool
}

// Open opens the database at path, creating a bucket for every table of the
// schema. The schema cannot be extended afterwards. The Memory engine ignores
// path.
func Open(path string, schema *Schema, opt Options) (*DB, error) {
	if opt.Engine == "" {
		opt.Engine = Bolt
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stg, err := openStorage(path, opt)
	if err != nil {
		return nil, fmt.Errorf("stagedb: %w", err)
	}

	db := &DB{
		stg:      stg,
		engine:   opt.Engine,
		schema:   schema,
		logger:   logger,
		verbose:  opt.Verbose,
		onChange: opt.OnChange,
		writer:   semaphore.NewWeighted(1),
		txns:     xsync.NewMapOf[uint64, *Tx](),
	}
	if opt.MaxReaders > 0 {
		db.readers = semaphore.NewWeighted(int64(opt.MaxReaders))
	}
	schema.seal()

	err = db.Update(context.Background(), func(tx *Tx) error {
		for _, tbl := range schema.tables {
			if _, err := tx.stx.CreateBucket(tbl.Name()); err != nil {
				return fmt.Errorf("creating bucket %s: %w", tbl.Name(), err)
			}
		}
		return nil
	})
	if err != nil {
		stg.Close()
		return nil, fmt.Errorf("stagedb: %w", err)
	}

	logger.Info("db: opened", "engine", string(opt.Engine), "path", path, "tables", len(schema.tables))
	return db, nil
}

func openStorage(path string, opt Options) (storage, error) {
	switch opt.Engine {
	case Bolt:
		bopt := *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.Timeout != 0 {
			bopt.Timeout = opt.Timeout
		}
		bopt.NoSync = opt.NoSync
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024 * 5
		} else {
			bopt.InitialMmapSize = 1024 * 1024 * 1024
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MaxSize != 0 {
			bopt.InitialMmapSize = opt.MaxSize
		}
		bdb, err := bbolt.Open(path, 0666, &bopt)
		if err != nil {
			return nil, err
		}
		return newBoltStorage(bdb), nil
	case LevelDB:
		return openLevelStorage(path, opt.NoSync || opt.IsTesting)
	case Memory:
		return newMemStorage(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", opt.Engine)
	}
}

func (db *DB) Schema() *Schema {
	return db.schema
}

func (db *DB) Engine() Engine {
	return db.engine
}

func (db *DB) Logger() *slog.Logger {
	return db.logger
}

// Close closes the engine. Transactions still open at this point block it
// (Bolt) or fail afterwards.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if n := db.txns.Size(); n > 0 {
		db.logger.Warn("db: closing with open transactions", "count", n)
	}
	err := db.stg.Close()
	if err != nil {
		return fmt.Errorf("stagedb: closing: %w", err)
	}
	db.logger.Info("db: closed", "engine", string(db.engine))
	return nil
}

func (db *DB) addTx(tx *Tx) {
	db.txns.Store(tx.id, tx)
}

func (db *DB) removeTx(tx *Tx) {
	db.txns.Delete(tx.id)
}

// DescribeOpenTxns lists open transactions, oldest first. Stacks are
// captured only in verbose mode.
func (db *DB) DescribeOpenTxns() string {
	var txns []*Tx
	db.txns.Range(func(_ uint64, tx *Tx) bool {
		txns = append(txns, tx)
		return true
	})

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b *Tx) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		mode := "read"
		if tx.writable {
			mode = "write"
		}
		ms := now.Sub(tx.startTime).Milliseconds()
		if ms < 100 || tx.stack == "" {
			fmt.Fprintf(&buf, "\n---\n#%d %s open for %d ms\n", tx.id, mode, ms)
		} else {
			fmt.Fprintf(&buf, "\n---\n#%d %s open for %d ms:\n%s", tx.id, mode, ms, tx.stack)
		}
	}

	return buf.String()
}
