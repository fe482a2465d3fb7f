package stagedb

import "errors"

// ErrBucketNotFound is returned by storageTx.ClearBucket when the table has no bucket.
var ErrBucketNotFound = errors.New("bucket not found")

// storage is the contract every engine adapter (Bolt, LevelDB, in-memory) implements.
// Keys and values are opaque byte strings ordered bytewise.
type storage interface {
	// BeginTx starts a new transaction. Read transactions see a stable
	// snapshot; at most one writable transaction is open at a time.
	BeginTx(writable bool) (storageTx, error)
	// Close closes the storage.
	Close() error
}

// storageTx represents a storage transaction.
type storageTx interface {
	Writable() bool

	// Bucket returns the named bucket, or nil if it doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket returns the named bucket, creating it on first use.
	CreateBucket(name string) (storageBucket, error)

	// ClearBucket removes every key of an existing bucket.
	ClearBucket(name string) error

	// Commit publishes the writes. A failed commit leaves nothing behind.
	Commit() error

	// Rollback discards the transaction. Repeated calls are no-ops.
	Rollback() error

	// Size reports the bytes the engine holds for this snapshot, or 0.
	Size() int64
}

// storageBucket is one table's ordered key space.
type storageBucket interface {
	// Get retrieves a value by key. Values may be empty, so presence is
	// reported separately.
	Get(key []byte) (value []byte, found bool, err error)

	Put(key, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Cursor returns a cursor for iteration. The cursor is invalid after
	// any write to the transaction.
	Cursor() storageCursor

	// Stats reports allocation figures where the engine tracks them.
	Stats() bucketStats

	// KeyCount returns the number of keys in the bucket.
	KeyCount() int
}

type bucketStats struct {
	KeyN        int
	LeafInuse   int64
	LeafAlloc   int64
	BranchAlloc int64
}

func (s bucketStats) TotalAlloc() int64 { return s.BranchAlloc + s.LeafAlloc }

// storageCursor iterates over a sorted bucket. Returned slices are only
// valid until the next call.
type storageCursor interface {
	First() (key, value []byte)

	Last() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// SeekLast moves to the last key that is <= every key having the given prefix,
	// i.e. the last key with the prefix or, failing that, the last key before it.
	SeekLast(prefix []byte) (key, value []byte)

	Next() (key, value []byte)

	Prev() (key, value []byte)

	// Close releases engine iterators. Bolt cursors need nothing.
	Close()
}

// seekLastByScan implements SeekLast for an all-0xFF prefix, which has no successor.
func seekLastByScan(c storageCursor, prefix []byte) ([]byte, []byte) {
	k, _ := c.Seek(prefix)
	if k == nil {
		return c.Last()
	}
	for k != nil && hasPrefix(k, prefix) {
		k, _ = c.Next()
	}
	if k == nil {
		return c.Last()
	}
	return c.Prev()
}
