package vamana

import (
	"fmt"

	"github.com/vamanadb/streamvamana/graph"
	"github.com/vamanadb/streamvamana/models"
)

// Build constructs the initial batch (spec §4.6 step 1, "beginning_index_size"):
// every point is inserted via search-then-prune, but back-edges are only
// appended, never reprune-capped, so that an early point doesn't get a
// lopsided, order-dependent neighbourhood. Once every point has been
// inserted once, a single global prune pass trims every slot that ended up
// over the degree bound. tags and vectors must be the same length and are
// inserted in the order given; callers wanting a randomised build order
// should shuffle both slices together before calling Build.
//
// Build assumes a frozen entry point has already been configured via
// SetupFrozenRandom or SetupFrozenMedoid.
func (idx *Index) Build(tags []uint32, vectors [][]float32) error {
	if len(tags) != len(vectors) {
		return models.NewError(models.ErrInvalidConfig, "tags (%d) and vectors (%d) length mismatch", len(tags), len(vectors))
	}

	slots := make([]int32, len(tags))
	for i, vector := range vectors {
		if len(vector) != idx.params.Dim {
			return models.NewError(models.ErrDimensionMismatch, "point %d: expected dim %d, got %d", i, idx.params.Dim, len(vector))
		}

		idx.lockAlloc()
		slot, err := idx.tags.AllocateSlot()
		idx.unlockAlloc()
		if err != nil {
			return fmt.Errorf("could not allocate slot for initial batch point %d: %w", i, err)
		}
		slots[i] = int32(slot)

		if err := idx.vecs.Set(slot, vector); err != nil {
			return fmt.Errorf("could not store vector for initial batch point %d: %w", i, err)
		}

		p := int32(slot)
		beam, superset, err := idx.greedySearch(vector, idx.params.SearchSize, idx.frozenSlots)
		if err != nil {
			return fmt.Errorf("could not perform graph search for initial batch point %d: %w", i, err)
		}
		beam.Release()

		neighbours := idx.robustPrune(p, superset.Items())
		superset.Release()
		idx.edges.Get(p).Replace(neighbours)

		for _, n := range neighbours {
			idx.edges.Get(n).AppendIfAbsent(p, n)
		}
	}

	for _, p := range append(append([]int32{}, slots...), idx.frozenSlots...) {
		list := idx.edges.Get(p)
		if list.Len() <= idx.params.DegreeBound {
			continue
		}
		current := list.Snapshot()
		candidates := make([]graph.Candidate, 0, len(current))
		for _, slot := range current {
			candidates = append(candidates, graph.Candidate{Slot: slot})
		}
		list.Replace(idx.robustPrune(p, candidates))
	}

	for i, tag := range tags {
		if err := idx.tags.Bind(tag, int(slots[i])); err != nil {
			return fmt.Errorf("could not bind tag %d for initial batch point %d: %w", tag, i, err)
		}
	}
	return nil
}
