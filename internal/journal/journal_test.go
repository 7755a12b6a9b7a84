package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/txpump/internal/storage"
	"github.com/Klingon-tech/txpump/internal/utxo"
	"github.com/Klingon-tech/txpump/pkg/types"
)

func id(b byte, index uint32) types.UtxoID {
	return types.UtxoID{TxHash: types.Hash{b}, Index: index}
}

func stores(t *testing.T) map[string]storage.DB {
	t.Helper()
	bdb, err := storage.NewBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { bdb.Close() })
	return map[string]storage.DB{
		"memory": storage.NewMemory(),
		"badger": bdb,
	}
}

func fixedClock(j *Journal) time.Time {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j.now = func() time.Time { return at }
	return at
}

func TestRecordAndEntries(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			j, err := New(db)
			require.NoError(t, err)
			at := fixedClock(j)

			for i := byte(1); i <= 3; i++ {
				e, err := j.Record(Entry{
					Hash:     types.Hash{0xf0 + i},
					Fee:      170_000,
					Consumed: []types.UtxoID{id(i, 0)},
					Produced: []types.UtxoID{{TxHash: types.Hash{0xf0 + i}, Index: 1}},
				})
				require.NoError(t, err)
				assert.Equal(t, uint64(i), e.Seq)
				assert.Equal(t, at, e.AcceptedAt)
			}

			entries, err := j.Entries()
			require.NoError(t, err)
			require.Len(t, entries, 3)
			for i, e := range entries {
				assert.Equal(t, uint64(i+1), e.Seq)
				assert.Equal(t, types.Hash{0xf1 + byte(i)}, e.Hash)
				assert.Equal(t, []types.UtxoID{id(byte(i+1), 0)}, e.Consumed)
				assert.True(t, at.Equal(e.AcceptedAt))
			}
		})
	}
}

func TestNew_ContinuesSequence(t *testing.T) {
	db := storage.NewMemory()
	j, err := New(db)
	require.NoError(t, err)
	_, err = j.Record(Entry{Hash: types.Hash{1}})
	require.NoError(t, err)
	_, err = j.Record(Entry{Hash: types.Hash{2}})
	require.NoError(t, err)

	reopened, err := New(db)
	require.NoError(t, err)
	e, err := reopened.Record(Entry{Hash: types.Hash{3}})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), e.Seq)
}

func TestReset(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			j, err := New(db)
			require.NoError(t, err)
			_, err = j.Record(Entry{Hash: types.Hash{1}})
			require.NoError(t, err)

			require.NoError(t, j.Reset())
			n, err := j.Len()
			require.NoError(t, err)
			assert.Zero(t, n)

			e, err := j.Record(Entry{Hash: types.Hash{2}})
			require.NoError(t, err)
			assert.Equal(t, uint64(2), e.Seq, "sequence survives reset")
		})
	}
}

func TestReconcile(t *testing.T) {
	for name, db := range stores(t) {
		t.Run(name, func(t *testing.T) {
			j, err := New(db)
			require.NoError(t, err)

			// Its input is gone from the ledger: confirmed.
			_, err = j.Record(Entry{Hash: types.Hash{0xa1}, Consumed: []types.UtxoID{id(1, 0)}})
			require.NoError(t, err)
			// One input still unspent: pending.
			_, err = j.Record(Entry{Hash: types.Hash{0xa2}, Consumed: []types.UtxoID{id(2, 0), id(3, 0)}})
			require.NoError(t, err)

			snapshot, err := utxo.NewSet(types.Utxo{
				ID:      id(3, 0),
				Balance: types.Balance{Lovelace: 5_000_000},
			})
			require.NoError(t, err)

			rep, err := j.Reconcile(snapshot)
			require.NoError(t, err)
			require.Len(t, rep.Confirmed, 1)
			require.Len(t, rep.Pending, 1)
			assert.Equal(t, types.Hash{0xa1}, rep.Confirmed[0].Hash)
			assert.Equal(t, types.Hash{0xa2}, rep.Pending[0].Hash)
			assert.Equal(t, utxo.Commitment(snapshot), rep.Commitment)

			left, err := j.Entries()
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, types.Hash{0xa2}, left[0].Hash)
		})
	}
}

func TestReconcile_Empty(t *testing.T) {
	j, err := New(storage.NewMemory())
	require.NoError(t, err)
	rep, err := j.Reconcile(utxo.Empty())
	require.NoError(t, err)
	assert.Empty(t, rep.Confirmed)
	assert.Empty(t, rep.Pending)
}
