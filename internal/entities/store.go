// Package entities holds the per-call entity graph: typed entities with
// attributes and a parent-of membership relation, plus ancestor queries
// over it.
package entities

import (
	"sync"

	"github.com/authz-engine/policy-core/pkg/types"
)

// Store is an immutable entity graph built once per decision call. The
// membership relation may contain cycles; ancestor queries tolerate them.
// Ancestor closures are memoized, and the memo is guarded so one store may
// serve concurrent decisions over the same request batch.
type Store struct {
	entities map[types.EntityUID]types.Entity

	mu        sync.Mutex
	ancestors map[types.EntityUID]map[types.EntityUID]struct{}
}

// NewStore builds a Store from the given entities. Later duplicates of a
// UID win, matching last-writer semantics of the input order.
func NewStore(entities []types.Entity) *Store {
	byUID := make(map[types.EntityUID]types.Entity, len(entities))
	for _, e := range entities {
		byUID[e.UID] = e
	}
	return &Store{
		entities:  byUID,
		ancestors: make(map[types.EntityUID]map[types.EntityUID]struct{}),
	}
}

// Get returns the entity with the given UID, if present.
func (s *Store) Get(uid types.EntityUID) (types.Entity, bool) {
	e, ok := s.entities[uid]
	return e, ok
}

// Len returns the number of entities in the store.
func (s *Store) Len() int {
	return len(s.entities)
}

// Ancestors returns the transitive closure of the parent relation from
// uid: every entity reachable by one or more membership edges. The walk
// is breadth-first with a visited set, so cyclic graphs terminate and the
// result is finite and deduplicated. An entity inside a cycle reaches
// itself and appears in its own closure.
func (s *Store) Ancestors(uid types.EntityUID) map[types.EntityUID]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if memo, ok := s.ancestors[uid]; ok {
		return memo
	}

	closure := make(map[types.EntityUID]struct{})
	queue := make([]types.EntityUID, 0, 4)
	if e, ok := s.entities[uid]; ok {
		queue = append(queue, e.Parents...)
	}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		if _, seen := closure[parent]; seen {
			continue
		}
		closure[parent] = struct{}{}
		if e, ok := s.entities[parent]; ok {
			queue = append(queue, e.Parents...)
		}
	}

	s.ancestors[uid] = closure
	return closure
}

// IsDescendantOf reports the hierarchy membership test a `in` b: true when
// a equals b or b is in a's ancestor closure.
func (s *Store) IsDescendantOf(a, b types.EntityUID) bool {
	if a == b {
		return true
	}
	_, ok := s.Ancestors(a)[b]
	return ok
}
