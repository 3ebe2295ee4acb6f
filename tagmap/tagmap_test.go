package tagmap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vamanadb/streamvamana/models"
)

func TestAllocateBindLookup(t *testing.T) {
	m := New(4)
	slot, err := m.AllocateSlot()
	require.NoError(t, err)
	require.Equal(t, 0, slot)
	require.NoError(t, m.Bind(42, slot))
	got, ok := m.Lookup(42)
	require.True(t, ok)
	require.Equal(t, slot, got)
	tag, ok := m.TagOf(slot)
	require.True(t, ok)
	require.Equal(t, uint32(42), tag)
}

func TestDuplicateTag(t *testing.T) {
	m := New(4)
	s1, _ := m.AllocateSlot()
	require.NoError(t, m.Bind(1, s1))
	s2, _ := m.AllocateSlot()
	err := m.Bind(1, s2)
	require.Error(t, err)
	require.True(t, models.Is(err, models.ErrDuplicateTag))
}

func TestCapacityExhausted(t *testing.T) {
	m := New(2)
	_, err := m.AllocateSlot()
	require.NoError(t, err)
	_, err = m.AllocateSlot()
	require.NoError(t, err)
	_, err = m.AllocateSlot()
	require.Error(t, err)
	require.True(t, models.Is(err, models.ErrCapacity))
}

func TestLazyDeleteUnknownTag(t *testing.T) {
	m := New(2)
	_, err := m.LazyDelete(99)
	require.Error(t, err)
	require.True(t, models.Is(err, models.ErrUnknownTag))
}

func TestLazyDeleteAndConsolidateRoundTrip(t *testing.T) {
	m := New(4)
	slot, _ := m.AllocateSlot()
	require.NoError(t, m.Bind(7, slot))
	active, free, deleted := m.Stats()
	require.Equal(t, 1, active)
	require.Equal(t, 0, free)
	require.Equal(t, 0, deleted)
	// ---------------------------
	deletedSlot, err := m.LazyDelete(7)
	require.NoError(t, err)
	require.Equal(t, slot, deletedSlot)
	require.True(t, m.IsDeleted(slot))
	_, ok := m.Lookup(7)
	require.False(t, ok)
	active, free, deleted = m.Stats()
	require.Equal(t, 0, active)
	require.Equal(t, 0, free)
	require.Equal(t, 1, deleted)
	// ---------------------------
	m.Release(m.DeletedSlots())
	active, free, deleted = m.Stats()
	require.Equal(t, 0, active)
	require.Equal(t, 1, free)
	require.Equal(t, 0, deleted)
	// Slot is reusable.
	reused, err := m.AllocateSlot()
	require.NoError(t, err)
	require.Equal(t, slot, reused)
}

func TestEntriesReflectsLiveBindingsOnly(t *testing.T) {
	m := New(4)
	s1, _ := m.AllocateSlot()
	require.NoError(t, m.Bind(10, s1))
	s2, _ := m.AllocateSlot()
	require.NoError(t, m.Bind(20, s2))
	_, err := m.LazyDelete(10)
	require.NoError(t, err)

	entries := m.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, Entry{Tag: 20, Slot: int32(s2)}, entries[0])
}

func TestFreeSlotReusedBeforeExtendingRange(t *testing.T) {
	m := New(2)
	s1, _ := m.AllocateSlot()
	m.Bind(1, s1)
	m.LazyDelete(1)
	m.Release(m.DeletedSlots())
	s2, err := m.AllocateSlot()
	require.NoError(t, err)
	require.Equal(t, s1, s2, "freed slot should be reused before extending range")
}
