package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListAppendIfAbsent(t *testing.T) {
	l := NewList(4)
	require.Equal(t, 1, l.AppendIfAbsent(5, 1))
	require.Equal(t, 1, l.AppendIfAbsent(5, 1), "duplicate should not grow the list")
	require.Equal(t, 1, l.AppendIfAbsent(1, 1), "self-loop should not be added")
	require.Equal(t, 2, l.AppendIfAbsent(6, 1))
	require.Equal(t, []int32{5, 6}, l.Snapshot())
}

func TestListReplace(t *testing.T) {
	l := NewList(4)
	l.AppendIfAbsent(1, 0)
	l.Replace([]int32{9, 8, 7})
	require.Equal(t, []int32{9, 8, 7}, l.Snapshot())
}

func TestStoreGet(t *testing.T) {
	s := NewStore(4, 2)
	require.Equal(t, 2, s.MaxDegree())
	s.Get(0).AppendIfAbsent(1, 0)
	require.Equal(t, []int32{1}, s.Get(0).Snapshot())
	require.Equal(t, 0, s.Get(1).Len())
}

func vectorDist(vecs map[int32]float32, pivot float32) DistFn {
	return func(slot int32) float32 {
		d := vecs[slot] - pivot
		if d < 0 {
			d = -d
		}
		return d
	}
}

func TestCandidateSetAddWithLimitOrdersByDistance(t *testing.T) {
	vecs := map[int32]float32{1: 10, 2: 1, 3: 5, 4: 5}
	cs := NewCandidateSet(2, 8, vectorDist(vecs, 0))
	cs.AddWithLimit(1, 2, 3, 4)
	require.Equal(t, 2, cs.Len())
	require.Equal(t, int32(2), cs.Items()[0].Slot)
	require.Equal(t, int32(3), cs.Items()[1].Slot, "slot 3 should win the tie-break over slot 4 on equal distance")
	cs.Release()
}

func TestCandidateSetDedup(t *testing.T) {
	vecs := map[int32]float32{1: 1}
	cs := NewCandidateSet(4, 8, vectorDist(vecs, 0))
	cs.AddWithLimit(1, 1, 1)
	require.Equal(t, 1, cs.Len())
	cs.Release()
}

func TestCandidateSetAddUnbounded(t *testing.T) {
	vecs := map[int32]float32{1: 3, 2: 1, 3: 2}
	cs := NewCandidateSet(1, 8, vectorDist(vecs, 0))
	cs.Add(1, 2, 3)
	require.Equal(t, 3, cs.Len(), "Add has no capacity bound unlike AddWithLimit")
	cs.Sort()
	require.Equal(t, int32(2), cs.Items()[0].Slot)
	require.Equal(t, int32(3), cs.Items()[1].Slot)
	require.Equal(t, int32(1), cs.Items()[2].Slot)
	cs.Release()
}
