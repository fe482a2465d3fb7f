package stages

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/andreyvit/stagedb"
	"github.com/andreyvit/stagedb/codec"
	"github.com/stretchr/testify/require"
)

var (
	testSchema  = stagedb.NewSchema()
	testStore   = Define(testSchema)
	bodiesTable = stagedb.DefineTable[uint64, []byte](testSchema, "Bodies", codec.U64Key[uint64](), codec.Bytes())
)

var errStageFailed = errors.New("stage failed")

func open(t *testing.T, path string, engine stagedb.Engine) *stagedb.DB {
	t.Helper()
	db, err := stagedb.Open(path, testSchema, stagedb.Options{Engine: engine, IsTesting: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func setup(t *testing.T) *stagedb.DB {
	return open(t, filepath.Join(t.TempDir(), "stages.db"), stagedb.Bolt)
}

func TestStore_LoadMissing(t *testing.T) {
	db := setup(t)
	err := db.View(context.Background(), func(tx *stagedb.Tx) error {
		cp, ok, err := testStore.Load(tx, Headers)
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, Checkpoint{}, cp)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_SaveBumpsRevision(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	for i, block := range []uint64{100, 200, 300} {
		err := db.Update(ctx, func(tx *stagedb.Tx) error {
			return testStore.Save(tx, Headers, Checkpoint{BlockNumber: block, Revision: 99})
		})
		require.NoError(t, err)

		err = db.View(ctx, func(tx *stagedb.Tx) error {
			cp, ok, err := testStore.Load(tx, Headers)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, block, cp.BlockNumber)
			require.Equal(t, uint64(i+1), cp.Revision)
			return nil
		})
		require.NoError(t, err)
	}
}

func TestStore_SaveNeedsWriteTx(t *testing.T) {
	db := setup(t)
	err := db.View(context.Background(), func(tx *stagedb.Tx) error {
		return testStore.Save(tx, Headers, Checkpoint{BlockNumber: 1})
	})
	require.ErrorIs(t, err, stagedb.ErrReadOnly)
}

func TestStore_ResetAndAll(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	require.NoError(t, db.Update(ctx, func(tx *stagedb.Tx) error {
		require.NoError(t, testStore.Save(tx, Headers, Checkpoint{BlockNumber: 10}))
		require.NoError(t, testStore.Save(tx, Bodies, Checkpoint{BlockNumber: 5, Meta: EncodeMeta("m")}))
		return testStore.Save(tx, Execution, Checkpoint{BlockNumber: 3})
	}))

	require.NoError(t, db.Update(ctx, func(tx *stagedb.Tx) error {
		return testStore.Reset(tx, Execution)
	}))

	require.NoError(t, db.View(ctx, func(tx *stagedb.Tx) error {
		all, err := testStore.All(tx)
		require.NoError(t, err)
		require.Equal(t, []Progress{
			{Bodies, Checkpoint{BlockNumber: 5, Revision: 1, Meta: EncodeMeta("m")}},
			{Headers, Checkpoint{BlockNumber: 10, Revision: 1}},
		}, all)

		_, ok, err := testStore.Load(tx, Execution)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestStore_CommitAtomic(t *testing.T) {
	for _, engine := range []stagedb.Engine{stagedb.Bolt, stagedb.LevelDB, stagedb.Memory} {
		t.Run(string(engine), func(t *testing.T) {
			db := open(t, filepath.Join(t.TempDir(), "stages.db"), engine)
			ctx := context.Background()

			cp, err := testStore.Commit(ctx, db, Bodies, func(tx *stagedb.Tx, prev Checkpoint) (Checkpoint, error) {
				require.Equal(t, Checkpoint{}, prev)
				for n := uint64(1); n <= 400; n++ {
					if err := stagedb.Put(tx, bodiesTable, n, []byte{byte(n)}); err != nil {
						return Checkpoint{}, err
					}
				}
				return Checkpoint{BlockNumber: 400}, nil
			})
			require.NoError(t, err)
			require.Equal(t, Checkpoint{BlockNumber: 400, Revision: 1}, cp)

			_, err = testStore.Commit(ctx, db, Bodies, func(tx *stagedb.Tx, prev Checkpoint) (Checkpoint, error) {
				require.Equal(t, uint64(400), prev.BlockNumber)
				for n := prev.BlockNumber + 1; n <= 500; n++ {
					if err := stagedb.Put(tx, bodiesTable, n, []byte{byte(n)}); err != nil {
						return Checkpoint{}, err
					}
				}
				return Checkpoint{}, errStageFailed
			})
			require.ErrorIs(t, err, errStageFailed)

			require.NoError(t, db.View(ctx, func(tx *stagedb.Tx) error {
				cp, ok, err := testStore.Load(tx, Bodies)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, Checkpoint{BlockNumber: 400, Revision: 1}, cp)

				for n := uint64(401); n <= 500; n++ {
					found, err := stagedb.Has(tx, bodiesTable, n)
					require.NoError(t, err)
					require.False(t, found, "body %d", n)
				}
				found, err := stagedb.Has(tx, bodiesTable, 400)
				require.NoError(t, err)
				require.True(t, found)
				return nil
			}))
		})
	}
}

func TestStore_CommitPanic(t *testing.T) {
	db := setup(t)
	_, err := testStore.Commit(context.Background(), db, Headers, func(tx *stagedb.Tx, prev Checkpoint) (Checkpoint, error) {
		panic("boom")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")

	require.NoError(t, db.View(context.Background(), func(tx *stagedb.Tx) error {
		_, ok, err := testStore.Load(tx, Headers)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")

	rawSchema := stagedb.NewSchema()
	rawTable := stagedb.DefineTable[StageID, []byte](rawSchema, TableName, codec.String[StageID](), codec.Bytes())
	raw, err := stagedb.Open(path, rawSchema, stagedb.Options{IsTesting: true})
	require.NoError(t, err)
	require.NoError(t, raw.Update(context.Background(), func(tx *stagedb.Tx) error {
		good := (&Checkpoint{BlockNumber: 1, Revision: 1}).MarshalCompact(nil)
		require.NoError(t, stagedb.Put(tx, rawTable, Headers, good))
		return stagedb.Put(tx, rawTable, Bodies, []byte("garbage garbage"))
	}))
	require.NoError(t, raw.Close())

	db := open(t, path, stagedb.Bolt)
	ctx := context.Background()
	require.NoError(t, db.View(ctx, func(tx *stagedb.Tx) error {
		_, _, err := testStore.Load(tx, Bodies)
		require.ErrorIs(t, err, ErrCorruptCheckpoint)
		var cce *CorruptCheckpointError
		require.ErrorAs(t, err, &cce)
		require.Equal(t, Bodies, cce.Stage)
		require.True(t, codec.IsDecodeError(err))

		_, err = testStore.All(tx)
		require.ErrorIs(t, err, ErrCorruptCheckpoint)
		require.ErrorAs(t, err, &cce)
		require.Equal(t, Bodies, cce.Stage)

		cp, ok, err := testStore.Load(tx, Headers)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(1), cp.BlockNumber)
		return nil
	}))

	err = db.Update(ctx, func(tx *stagedb.Tx) error {
		return testStore.Save(tx, Bodies, Checkpoint{BlockNumber: 2})
	})
	require.ErrorIs(t, err, ErrCorruptCheckpoint, "a corrupt record is never overwritten silently")

	require.NoError(t, db.Update(ctx, func(tx *stagedb.Tx) error {
		if err := testStore.Reset(tx, Bodies); err != nil {
			return err
		}
		return testStore.Save(tx, Bodies, Checkpoint{BlockNumber: 2})
	}))
	require.NoError(t, db.View(ctx, func(tx *stagedb.Tx) error {
		cp, _, err := testStore.Load(tx, Bodies)
		require.NoError(t, err)
		require.Equal(t, Checkpoint{BlockNumber: 2, Revision: 1}, cp)
		return nil
	}))
}

func TestStageID(t *testing.T) {
	require.Len(t, AllStages, 11)
	require.Equal(t, Headers, AllStages[0])
	require.Equal(t, Finish, AllStages[len(AllStages)-1])
	require.True(t, Execution.IsKnown())
	require.False(t, StageID("Bogus").IsKnown())
	require.Equal(t, "Bodies", Bodies.String())
}
