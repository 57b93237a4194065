// Package checkpoint stores named, restorable snapshots of the evaluator's
// environment and step counter. Checkpoints are created automatically at
// observation points, so retention is bounded: the store keeps a capped
// number of entries and evicts oldest-first.
package checkpoint

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"cogni/internal/value"
)

// DefaultCap bounds retained checkpoints when no capacity is configured.
const DefaultCap = 64

// Resume identifies where evaluation picks up after a restore: a statement
// slot in a parser-assigned block. Rerun re-executes the statement at
// Index; otherwise evaluation continues with it as the next statement.
type Resume struct {
	BlockID int
	Index   int
	Rerun   bool
}

// Entry is one named snapshot. Env is owned by the store and deep-copied
// on the way in and out; callers never alias stored state.
type Entry struct {
	Name   string
	Env    *value.Env
	Step   int
	At     time.Time
	Resume Resume
}

// Store is the checkpoint arena, keyed by name. Same-name saves overwrite.
type Store struct {
	entries *lru.Cache[string, Entry]
}

// NewStore creates a store retaining at most capacity entries.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	c, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("checkpoint store: %w", err)
	}
	return &Store{entries: c}, nil
}

// Save snapshots env under name, overwriting any prior entry of the same
// name. The snapshot is a deep copy; later mutation of the live
// environment cannot corrupt it.
func (s *Store) Save(name string, env *value.Env, step int, resume Resume) {
	s.entries.Add(name, Entry{
		Name:   name,
		Env:    env.Snapshot(),
		Step:   step,
		At:     time.Now().UTC(),
		Resume: resume,
	})
}

// Restore returns a copy of the named entry. The returned environment is
// itself a deep copy, so restoring twice from the same name always yields
// the same state regardless of what happened to earlier restores.
func (s *Store) Restore(name string) (Entry, bool) {
	e, ok := s.entries.Get(name)
	if !ok {
		return Entry{}, false
	}
	e.Env = e.Env.Snapshot()
	return e, true
}

// Names lists currently available checkpoint names, oldest first. This is
// the only view the oracle sees, so it can only reference checkpoints that
// exist.
func (s *Store) Names() []string {
	return s.entries.Keys()
}

// Len reports the number of retained checkpoints.
func (s *Store) Len() int { return s.entries.Len() }
