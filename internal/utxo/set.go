// Package utxo manages the driver's view of its spendable outputs.
package utxo

import (
	"fmt"
	"sort"

	"github.com/Klingon-tech/txpump/internal/fault"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Set is an immutable collection of UTXOs with unique identities, sorted
// by (tx hash, index). That order is the input order of built transactions.
type Set struct {
	items []types.Utxo
	index map[types.UtxoID]int
}

// Empty returns a set with no entries.
func Empty() *Set {
	return &Set{index: map[types.UtxoID]int{}}
}

// NewSet builds a set from utxos. Duplicate identities are rejected.
func NewSet(utxos ...types.Utxo) (*Set, error) {
	items := make([]types.Utxo, len(utxos))
	copy(items, utxos)
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID.Compare(items[j].ID) < 0
	})

	index := make(map[types.UtxoID]int, len(items))
	for i, u := range items {
		if _, dup := index[u.ID]; dup {
			return nil, fmt.Errorf("duplicate utxo %s", u.ID)
		}
		index[u.ID] = i
	}
	return &Set{items: items, index: index}, nil
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the set has no entries.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

// Items returns a copy of the entries in canonical order.
func (s *Set) Items() []types.Utxo {
	if s == nil {
		return nil
	}
	out := make([]types.Utxo, len(s.items))
	copy(out, s.items)
	return out
}

// IDs returns the identities in canonical order.
func (s *Set) IDs() []types.UtxoID {
	if s == nil {
		return nil
	}
	out := make([]types.UtxoID, len(s.items))
	for i, u := range s.items {
		out[i] = u.ID
	}
	return out
}

// Contains reports whether id is in the set.
func (s *Set) Contains(id types.UtxoID) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Get returns the entry for id.
func (s *Set) Get(id types.UtxoID) (types.Utxo, bool) {
	if s == nil {
		return types.Utxo{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return types.Utxo{}, false
	}
	return s.items[i], true
}

// TotalLovelace sums lovelace over the set. ok is false on overflow.
func (s *Set) TotalLovelace() (uint64, bool) {
	if s == nil {
		return 0, true
	}
	return types.TotalLovelace(s.items)
}

// Apply returns a new set with consumed removed and produced added. The
// receiver is unchanged. A consumed identity that is absent, or a produced
// identity that collides with a surviving entry, is a ConsistencyError.
func (s *Set) Apply(consumed []types.UtxoID, produced []types.Utxo) (*Set, error) {
	const op = "utxo apply"

	removed := make(map[types.UtxoID]bool, len(consumed))
	for _, id := range consumed {
		if !s.Contains(id) {
			return nil, fault.Newf(fault.ConsistencyError, op, "consumed utxo %s not in set", id)
		}
		if removed[id] {
			return nil, fault.Newf(fault.ConsistencyError, op, "utxo %s consumed twice", id)
		}
		removed[id] = true
	}

	next := make([]types.Utxo, 0, s.Len()-len(consumed)+len(produced))
	for _, u := range s.Items() {
		if !removed[u.ID] {
			next = append(next, u)
		}
	}
	for _, u := range produced {
		if s.Contains(u.ID) && !removed[u.ID] {
			return nil, fault.Newf(fault.ConsistencyError, op, "produced utxo %s already in set", u.ID)
		}
		next = append(next, u)
	}

	out, err := NewSet(next...)
	if err != nil {
		return nil, fault.New(fault.ConsistencyError, op, err)
	}
	return out, nil
}
