package graph

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// visitBitSetSizes mirrors the teacher's tiered bitset pool: big enough to
// cover realistic slot counts without wasting memory on tiny indices, and a
// map fallback above the largest tier.
var visitBitSetSizes = []uint{110_000, 520_000, 2_600_000, 10_500_000}

var globalSetPool map[uint]*sync.Pool

func init() {
	globalSetPool = make(map[uint]*sync.Pool, len(visitBitSetSizes))
	for _, size := range visitBitSetSizes {
		numBits := size
		globalSetPool[size] = &sync.Pool{
			New: func() any {
				return bitset.New(numBits)
			},
		}
	}
}

type visitedSet interface {
	CheckAndVisit(slot int32) bool
	Release()
}

// mapVisited is used for small searches, or when the slot space exceeds the
// largest pooled bitset tier: allocating/deallocating a map is cheap enough
// at that scale and avoids unbounded bitset growth.
type mapVisited struct {
	seen map[int32]struct{}
}

func newMapVisited(capacity int) *mapVisited {
	return &mapVisited{seen: make(map[int32]struct{}, capacity)}
}

func (m *mapVisited) CheckAndVisit(slot int32) bool {
	if _, ok := m.seen[slot]; ok {
		return true
	}
	m.seen[slot] = struct{}{}
	return false
}

func (m *mapVisited) Release() {
	m.seen = nil
}

type bitsetVisited struct {
	bits *bitset.BitSet
	pool *sync.Pool
}

func newBitsetVisited(pool *sync.Pool) *bitsetVisited {
	bits := pool.Get().(*bitset.BitSet)
	bits.ClearAll()
	return &bitsetVisited{bits: bits, pool: pool}
}

func (b *bitsetVisited) CheckAndVisit(slot int32) bool {
	idx := uint(slot)
	if b.bits.Test(idx) {
		return true
	}
	b.bits.Set(idx)
	return false
}

func (b *bitsetVisited) Release() {
	b.pool.Put(b.bits)
	b.bits = nil
}

func newVisitedSet(capacity, maxSlot int) visitedSet {
	if maxSlot <= 0 {
		return newMapVisited(capacity)
	}
	for _, size := range visitBitSetSizes {
		if uint(maxSlot) <= size {
			return newBitsetVisited(globalSetPool[size])
		}
	}
	return newMapVisited(capacity)
}

// ---------------------------

// Candidate is a single scored slot discovered during greedy search or
// offered to robust prune.
type Candidate struct {
	Slot         int32
	Dist         float32
	Visited      bool
	PruneRemoved bool
}

// less orders candidates by ascending distance, breaking ties on the
// smaller slot id, per spec §4.1's determinism requirement.
func less(a, b Candidate) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Slot < b.Slot
}

// DistFn scores a slot against whatever pivot the caller fixed (a query
// vector or another slot).
type DistFn func(slot int32) float32

// CandidateSet is a distance-ordered, dedup-on-insert set of candidates. It
// is used both for the search beam (bounded by L, via AddWithLimit) and for
// the unlimited candidate superset handed to robust prune (via Add).
//
// This data structure is exclusively used by search and robust pruning and
// optimises for those access patterns; treat it as a package-private detail
// of the graph/search/prune trio, not a general-purpose container.
type CandidateSet struct {
	items       []Candidate
	set         visitedSet
	distFn      DistFn
	sortedUntil int
}

// NewCandidateSet creates a set with room for capacity items. maxSlot (the
// largest slot id that may ever be visited) selects a bitset tier or falls
// back to a map; 0 always picks the map.
func NewCandidateSet(capacity, maxSlot int, distFn DistFn) CandidateSet {
	return CandidateSet{
		items:  make([]Candidate, 0, capacity),
		set:    newVisitedSet(capacity, maxSlot),
		distFn: distFn,
	}
}

func (cs *CandidateSet) Len() int { return len(cs.items) }

func (cs *CandidateSet) Release() {
	cs.set.Release()
	cs.set = nil
}

// AddWithLimit admits slots into the bounded beam, skipping already-seen
// slots and slots no closer than the current worst kept candidate.
func (cs *CandidateSet) AddWithLimit(slots ...int32) {
	for _, slot := range slots {
		if cs.set.CheckAndVisit(slot) {
			continue
		}
		dist := cs.distFn(slot)
		limit := cap(cs.items)
		newElem := Candidate{Slot: slot, Dist: dist}
		if len(cs.items) == limit && !less(newElem, cs.items[limit-1]) {
			continue
		}
		if len(cs.items) < limit {
			cs.items = append(cs.items, newElem)
			cs.sortedUntil++
		} else {
			cs.items[len(cs.items)-1] = newElem
		}
		for i := len(cs.items) - 1; i > 0 && less(cs.items[i], cs.items[i-1]); i-- {
			cs.items[i], cs.items[i-1] = cs.items[i-1], cs.items[i]
		}
	}
}

// Add admits slots without any capacity bound, computing distance only for
// slots never seen before. Used to build the unbounded candidate superset
// handed to robust prune.
func (cs *CandidateSet) Add(slots ...int32) {
	for _, slot := range slots {
		if cs.set.CheckAndVisit(slot) {
			continue
		}
		cs.items = append(cs.items, Candidate{Slot: slot, Dist: cs.distFn(slot)})
	}
}

// AddAlreadyUnique appends items known not to be duplicates of anything
// already present, skipping the visited-set check entirely.
func (cs *CandidateSet) AddAlreadyUnique(items ...Candidate) {
	cs.items = append(cs.items, items...)
}

// Items exposes the underlying slice for iteration by search/prune.
func (cs *CandidateSet) Items() []Candidate {
	return cs.items
}

// Sort performs an insertion sort over the unsorted suffix, relying on the
// fact that new entries are always appended, so the prefix stays sorted.
func (cs *CandidateSet) Sort() {
	for i := cs.sortedUntil; i < len(cs.items); i++ {
		for j := i; j > 0 && less(cs.items[j], cs.items[j-1]); j-- {
			cs.items[j], cs.items[j-1] = cs.items[j-1], cs.items[j]
		}
	}
	cs.sortedUntil = len(cs.items)
}
