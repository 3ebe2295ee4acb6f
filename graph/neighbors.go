// Package graph implements the per-slot neighbour lists (C3) and the
// distance-ordered candidate set shared by greedy search (C5) and robust
// prune (C6).
package graph

import "sync"

// List is one slot's outbound edge list, fine-grained locked so that
// concurrent searches and the insert/consolidate writers rarely contend
// (spec §5, "per-slot edge_lock").
type List struct {
	mu    sync.RWMutex
	edges []int32
}

// NewList returns an empty neighbour list with capacity for maxDegree
// edges.
func NewList(maxDegree int) *List {
	return &List{edges: make([]int32, 0, maxDegree)}
}

// Snapshot copies out the current edges under a read lock, so callers
// always see a consistent (no self-loop, no duplicate) list even while
// another goroutine rewrites it mid-traversal.
func (l *List) Snapshot() []int32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]int32, len(l.edges))
	copy(out, l.edges)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.edges)
}

// Replace overwrites the edge list wholesale, used after a robust prune.
func (l *List) Replace(edges []int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edges = edges
}

// AppendIfAbsent adds neighbour to the list unless it is already present or
// is a self-loop, returning the resulting length (used by the insert
// engine's back-edge step to decide whether the candidate cap C is
// breached).
func (l *List) AppendIfAbsent(slot, self int32) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot == self {
		return len(l.edges)
	}
	for _, e := range l.edges {
		if e == slot {
			return len(l.edges)
		}
	}
	l.edges = append(l.edges, slot)
	return len(l.edges)
}

// Store holds one List per slot across the whole capacity (regular slots
// plus frozen slots).
type Store struct {
	lists     []*List
	maxDegree int
}

// NewStore allocates a Store sized to capacity slots, each bounded to
// maxDegree outbound edges.
func NewStore(capacity, maxDegree int) *Store {
	lists := make([]*List, capacity)
	for i := range lists {
		lists[i] = NewList(maxDegree)
	}
	return &Store{lists: lists, maxDegree: maxDegree}
}

// Get returns the neighbour list for slot.
func (s *Store) Get(slot int32) *List {
	return s.lists[slot]
}

func (s *Store) MaxDegree() int {
	return s.maxDegree
}
