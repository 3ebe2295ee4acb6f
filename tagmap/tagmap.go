// Package tagmap implements the bidirectional tag<->slot mapping with a free
// list (C2), plus the lazy-delete set that sits alongside it in the lock
// hierarchy: both are guarded by the same short tag-map lock (spec §5).
package tagmap

import (
	"sync"

	"github.com/vamanadb/streamvamana/models"
)

// Map is the tag<->slot indirection for the regular (non-frozen) slot
// space [0, capacity).
type Map struct {
	mu sync.Mutex

	capacity  int
	nextSlot  int
	freeSlots []int

	tagToSlot map[uint32]int
	slotToTag map[int]uint32
	deleteSet map[int]struct{}
}

// New creates a tag map over capacity regular slots.
func New(capacity int) *Map {
	return &Map{
		capacity:  capacity,
		tagToSlot: make(map[uint32]int),
		slotToTag: make(map[int]uint32),
		deleteSet: make(map[int]struct{}),
	}
}

// AllocateSlot reserves a slot for a new point, preferring a reused free
// slot over extending the occupied range. Fails with Capacity if none is
// available. Callers must hold the structural lock exclusively while
// calling this, per the lock hierarchy in spec §5.
func (m *Map) AllocateSlot() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.freeSlots); n > 0 {
		slot := m.freeSlots[n-1]
		m.freeSlots = m.freeSlots[:n-1]
		return slot, nil
	}
	if m.nextSlot >= m.capacity {
		return 0, models.NewError(models.ErrCapacity, "no free slots in capacity %d", m.capacity)
	}
	slot := m.nextSlot
	m.nextSlot++
	return slot, nil
}

// Bind publishes tag -> slot. This is the last step of insert (spec §4.3
// step 6): readers never see a slot that lacks a tag mapping before its
// edges exist, because Bind only runs once the graph wiring is complete.
func (m *Map) Bind(tag uint32, slot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tagToSlot[tag]; exists {
		return models.NewError(models.ErrDuplicateTag, "tag %d already bound", tag)
	}
	m.tagToSlot[tag] = slot
	m.slotToTag[slot] = tag
	return nil
}

// Lookup resolves a tag to its slot.
func (m *Map) Lookup(tag uint32) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.tagToSlot[tag]
	return slot, ok
}

// TagOf resolves a slot back to its tag.
func (m *Map) TagOf(slot int) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tag, ok := m.slotToTag[slot]
	return tag, ok
}

// LazyDelete moves tag's slot into the delete set and removes the tag<->slot
// binding, without touching the vector, edges or inbound references (C8.1).
// Fails with UnknownTag if tag is not currently bound.
func (m *Map) LazyDelete(tag uint32) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.tagToSlot[tag]
	if !ok {
		return 0, models.NewError(models.ErrUnknownTag, "tag %d not found", tag)
	}
	delete(m.tagToSlot, tag)
	delete(m.slotToTag, slot)
	m.deleteSet[slot] = struct{}{}
	return slot, nil
}

// IsDeleted reports whether slot is currently lazy-deleted.
func (m *Map) IsDeleted(slot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.deleteSet[slot]
	return ok
}

// DeletedSlots returns a snapshot of the current delete set, sorted is not
// required by callers (consolidation processes them order-independently).
func (m *Map) DeletedSlots() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := make([]int, 0, len(m.deleteSet))
	for slot := range m.deleteSet {
		slots = append(slots, slot)
	}
	return slots
}

// Release moves slots from the delete set to the free list. Called once
// consolidation has rewritten every neighbour list that referenced them.
func (m *Map) Release(slots []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range slots {
		delete(m.deleteSet, slot)
		m.freeSlots = append(m.freeSlots, slot)
	}
}

// Stats reports the counts used in the consolidation report and tests.
func (m *Map) Stats() (active, free, deleted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tagToSlot), len(m.freeSlots), len(m.deleteSet)
}

// Entry is one live tag<->slot binding, as handed to the snapshot writer.
type Entry struct {
	Tag  uint32
	Slot int32
}

// Entries snapshots every live tag<->slot binding, for the tag map artifact
// a snapshot writes alongside the graph and vectors (spec §4.9/§6).
func (m *Map) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]Entry, 0, len(m.tagToSlot))
	for tag, slot := range m.tagToSlot {
		entries = append(entries, Entry{Tag: tag, Slot: int32(slot)})
	}
	return entries
}
