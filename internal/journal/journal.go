// Package journal records the transactions the submit endpoint accepted
// since the last sync, so a forced resync can report which of them the
// ledger has seen.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/internal/storage"
	"github.com/Klingon-tech/txpump/internal/utxo"
	"github.com/Klingon-tech/txpump/pkg/types"
)

var txPrefix = []byte("journal/tx/")

// Entry is one accepted transaction.
type Entry struct {
	Seq        uint64         `json:"seq"`
	Hash       types.Hash     `json:"hash"`
	Fee        uint64         `json:"fee"`
	Consumed   []types.UtxoID `json:"consumed"`
	Produced   []types.UtxoID `json:"produced"`
	AcceptedAt time.Time      `json:"accepted_at"`
}

// Journal is an append-only list of entries kept in a storage.DB.
type Journal struct {
	mu  sync.Mutex
	db  *storage.PrefixDB
	seq uint64
	now func() time.Time
}

// New opens a journal over db. Entries already in db are kept and new
// ones are numbered after them.
func New(db storage.DB) (*Journal, error) {
	j := &Journal{
		db:  storage.NewPrefixDB(db, txPrefix),
		now: time.Now,
	}
	err := j.db.ForEach(nil, func(key, _ []byte) error {
		if len(key) != 8 {
			return fmt.Errorf("journal key %x: bad length", key)
		}
		j.seq = binary.BigEndian.Uint64(key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// Record appends e, assigning its sequence number and, when unset, its
// acceptance time. The stored entry is returned.
func (j *Journal) Record(e Entry) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Seq = j.seq + 1
	if e.AcceptedAt.IsZero() {
		e.AcceptedAt = j.now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode journal entry: %w", err)
	}
	if err := j.db.Put(seqKey(e.Seq), data); err != nil {
		return Entry{}, fmt.Errorf("write journal entry: %w", err)
	}
	j.seq = e.Seq

	log.Journal.Debug().
		Uint64("seq", e.Seq).
		Str("tx", e.Hash.String()).
		Uint64("fee", e.Fee).
		Int("consumed", len(e.Consumed)).
		Msg("Recorded accepted transaction")
	return e, nil
}

// Entries returns every entry in acceptance order.
func (j *Journal) Entries() ([]Entry, error) {
	var out []Entry
	err := j.db.ForEach(nil, func(key, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode journal entry %x: %w", key, err)
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the number of entries.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.ForEach(nil, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// Reset removes every entry. Sequence numbers keep increasing.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.db.DeleteAll(); err != nil {
		return fmt.Errorf("reset journal: %w", err)
	}
	return nil
}

// Report is the outcome of reconciling the journal with a ledger view.
type Report struct {
	Confirmed  []Entry
	Pending    []Entry
	Commitment types.Hash
}

// Reconcile classifies entries against a fresh ledger snapshot. An entry is
// pending while any of its inputs is still unspent in the snapshot and
// confirmed otherwise. Confirmed entries are removed from the journal in a
// single batch.
func (j *Journal) Reconcile(snapshot *utxo.Set) (*Report, error) {
	entries, err := j.Entries()
	if err != nil {
		return nil, err
	}

	rep := &Report{Commitment: utxo.Commitment(snapshot)}
	for _, e := range entries {
		if stillUnspent(snapshot, e.Consumed) {
			rep.Pending = append(rep.Pending, e)
		} else {
			rep.Confirmed = append(rep.Confirmed, e)
		}
	}

	if len(rep.Confirmed) > 0 {
		j.mu.Lock()
		defer j.mu.Unlock()
		b := j.db.NewBatch()
		for _, e := range rep.Confirmed {
			if err := b.Delete(seqKey(e.Seq)); err != nil {
				return nil, fmt.Errorf("prune journal: %w", err)
			}
		}
		if err := b.Commit(); err != nil {
			return nil, fmt.Errorf("prune journal: %w", err)
		}
	}
	return rep, nil
}

func stillUnspent(s *utxo.Set, ids []types.UtxoID) bool {
	for _, id := range ids {
		if s.Contains(id) {
			return true
		}
	}
	return false
}
