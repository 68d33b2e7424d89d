package filetree

import "sync"

// Store holds the current tree snapshot. Mutations go through Update so
// concurrent readers always observe a consistent snapshot.
type Store struct {
	mu   sync.RWMutex
	tree Tree
}

// NewStore creates a store seeded with the given snapshot.
func NewStore(tree Tree) *Store {
	if tree.files == nil {
		tree = New()
	}
	return &Store{tree: tree}
}

// Snapshot returns the current tree. The returned value is immutable.
func (s *Store) Snapshot() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// Replace swaps in a new snapshot wholesale.
func (s *Store) Replace(tree Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
}

// Update applies fn to the current snapshot and installs the result.
// If fn returns an error the snapshot is left unchanged.
func (s *Store) Update(fn func(Tree) (Tree, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.tree)
	if err != nil {
		return err
	}
	s.tree = next
	return nil
}
