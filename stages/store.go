package stages

import (
	"context"
	"errors"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/codec"
)

// TableName is the name of the checkpoint table.
const TableName = "StageCheckpoints"

// Store reads and writes checkpoints. Obtain one with Define.
type Store struct {
	tbl *stagedb.Table[StageID, Checkpoint]
}

// Progress is a stage together with its checkpoint.
type Progress struct {
	Stage StageID
	Checkpoint
}

// Define registers the checkpoint table in scm.
func Define(scm *stagedb.Schema) *Store {
	return &Store{
		tbl: stagedb.DefineTable(scm, TableName, codec.String[StageID](), codec.Compact[Checkpoint]()),
	}
}

func (s *Store) Table() *stagedb.Table[StageID, Checkpoint] {
	return s.tbl
}

// Load returns the checkpoint of id, or ok == false if the stage has never
// saved one. An unreadable record fails with *CorruptCheckpointError.
func (s *Store) Load(txh stagedb.Txish, id StageID) (cp Checkpoint, ok bool, err error) {
	cp, ok, err = stagedb.Get(txh, s.tbl, id)
	if err != nil {
		return Checkpoint{}, false, corrupted(id, err)
	}
	return cp, ok, nil
}

// Save stores cp as the checkpoint of id, setting its revision to one past
// the stored one. txh must be a write transaction.
func (s *Store) Save(txh stagedb.Txish, id StageID, cp Checkpoint) error {
	prev, _, err := s.Load(txh, id)
	if err != nil {
		return err
	}
	cp.Revision = prev.Revision + 1
	return stagedb.Put(txh, s.tbl, id, cp)
}

// Reset removes the checkpoint of id, so the stage starts over. Resetting a
// corrupt record is the way to recover from it.
func (s *Store) Reset(txh stagedb.Txish, id StageID) error {
	_, err := stagedb.Delete(txh, s.tbl, id)
	return err
}

// All returns every saved checkpoint ordered by stage id.
func (s *Store) All(txh stagedb.Txish) ([]Progress, error) {
	c, err := stagedb.OpenCursor(txh, s.tbl)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var result []Progress
	w := c.Walk(nil)
	for w.Next() {
		result = append(result, Progress{w.Key(), w.Value()})
	}
	if err := w.Err(); err != nil {
		var te *stagedb.TableError
		if errors.As(err, &te) {
			return nil, corrupted(StageID(te.Key), err)
		}
		return nil, err
	}
	return result, nil
}

// Commit runs one unit of stage work and saves the checkpoint f returns in
// the same write transaction. If f fails, neither its writes nor the new
// checkpoint are applied and the previous checkpoint stays in place.
func (s *Store) Commit(ctx context.Context, db *stagedb.DB, id StageID, f func(tx *stagedb.Tx, prev Checkpoint) (Checkpoint, error)) (Checkpoint, error) {
	var saved Checkpoint
	err := db.Update(ctx, func(tx *stagedb.Tx) error {
		prev, _, err := s.Load(tx, id)
		if err != nil {
			return err
		}
		next, err := f(tx, prev)
		if err != nil {
			return err
		}
		if err := s.Save(tx, id, next); err != nil {
			return err
		}
		saved = next
		saved.Revision = prev.Revision + 1
		return nil
	})
	if err != nil {
		db.Logger().Warn("stages: commit failed", "stage", string(id), "err", err)
		return Checkpoint{}, err
	}
	db.Logger().Debug("stages: committed", "stage", string(id), "block", saved.BlockNumber, "rev", saved.Revision)
	return saved, nil
}

func corrupted(id StageID, err error) error {
	if codec.IsDecodeError(err) {
		return &CorruptCheckpointError{id, err}
	}
	return err
}
