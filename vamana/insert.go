package vamana

import (
	"fmt"

	"github.com/vamanadb/streamvamana/graph"
	"github.com/vamanadb/streamvamana/models"
)

// InsertPoint adds a single point to the index under tag, following spec
// §4.6's per-point steps: allocate a slot, store the vector, greedy-search
// from the frozen entry points, robust-prune the visited superset down to
// the out-degree bound, install p's neighbour list, add back-edges (with a
// candidate-cap reprune on any neighbour whose list overflows), and only
// then publish the tag. A caller never observes a tag bound to a slot whose
// edges are not yet fully wired.
func (idx *Index) InsertPoint(tag uint32, vector []float32) error {
	if len(vector) != idx.params.Dim {
		return models.NewError(models.ErrDimensionMismatch, "expected dim %d, got %d", idx.params.Dim, len(vector))
	}

	idx.lockAlloc()
	slot, err := idx.tags.AllocateSlot()
	idx.unlockAlloc()
	if err != nil {
		return fmt.Errorf("could not allocate slot for tag %d: %w", tag, err)
	}

	if err := idx.vecs.Set(slot, vector); err != nil {
		return fmt.Errorf("could not store vector for tag %d: %w", tag, err)
	}

	p := int32(slot)
	beam, superset, err := idx.greedySearch(vector, idx.params.SearchSize, idx.frozenSlots)
	if err != nil {
		return fmt.Errorf("could not perform graph search while inserting tag %d: %w", tag, err)
	}
	beam.Release()

	neighbours := idx.robustPrune(p, superset.Items())
	superset.Release()

	idx.edges.Get(p).Replace(neighbours)

	for _, n := range neighbours {
		idx.addBackEdge(n, p)
	}

	if err := idx.tags.Bind(tag, slot); err != nil {
		return fmt.Errorf("could not bind tag %d to slot %d: %w", tag, slot, err)
	}
	return nil
}

// addBackEdge adds the back-edge n -> p (p already points at n), then reprunes
// n's list down to the degree bound if it has grown past the candidate
// cap C (spec §4.6 step 6).
func (idx *Index) addBackEdge(n, p int32) {
	list := idx.edges.Get(n)
	length := list.AppendIfAbsent(p, n)
	if length <= idx.params.CandidateCap {
		return
	}

	current := list.Snapshot()
	candidates := make([]graph.Candidate, 0, len(current))
	for _, slot := range current {
		candidates = append(candidates, graph.Candidate{Slot: slot})
	}
	pruned := idx.robustPrune(n, candidates)
	list.Replace(pruned)
}
