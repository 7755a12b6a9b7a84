package utxo

import "github.com/Klingon-tech/txpump/pkg/types"

// Manager holds the current set. It is owned by a single goroutine and is
// not safe for concurrent use.
type Manager struct {
	current *Set
}

// NewManager creates a manager holding an empty set.
func NewManager() *Manager {
	return &Manager{current: Empty()}
}

// Current returns the current set.
func (m *Manager) Current() *Set {
	return m.current
}

// Replace discards the current state and installs snapshot.
func (m *Manager) Replace(snapshot *Set) {
	if snapshot == nil {
		snapshot = Empty()
	}
	m.current = snapshot
}

// Apply removes consumed and adds produced. The new set is installed only
// if the whole update succeeds; on error the current set is unchanged.
func (m *Manager) Apply(consumed []types.UtxoID, produced []types.Utxo) (*Set, error) {
	next, err := m.current.Apply(consumed, produced)
	if err != nil {
		return nil, err
	}
	m.current = next
	return next, nil
}
