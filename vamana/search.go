package vamana

import "github.com/vamanadb/streamvamana/graph"

// greedySearch walks the graph from starts towards query, mirroring the
// scan-from-zero traversal: repeatedly take the nearest not-yet-expanded
// candidate, expand its neighbours into the beam, and restart the scan,
// until every kept candidate has been expanded (spec §4.4, C5).
//
// It returns two sets: beam, the L-bounded best-so-far candidates (what a
// caller wants as search results), and superset, every slot that was
// expanded (had its neighbours read) across the whole walk, unbounded and
// used as robust prune's candidate pool during insert. Slots that were
// scored but never expanded are not in superset.
func (idx *Index) greedySearch(query []float32, L int, starts []int32) (beam graph.CandidateSet, superset graph.CandidateSet, err error) {
	maxSlot := idx.params.Capacity + idx.params.NumFrozenPoints
	distTo := func(slot int32) float32 {
		return idx.distFn(query, idx.vecs.Vector(int(slot)))
	}
	beam = graph.NewCandidateSet(L, maxSlot, distTo)
	superset = graph.NewCandidateSet(0, 0, distTo)

	beam.AddWithLimit(starts...)

	for {
		items := beam.Items()
		next := -1
		for i := range items {
			if !items[i].Visited {
				next = i
				break
			}
		}
		if next == -1 {
			break
		}
		items[next].Visited = true
		slot := items[next].Slot

		superset.AddAlreadyUnique(graph.Candidate{Slot: slot, Dist: items[next].Dist})

		neighbours := idx.edges.Get(slot).Snapshot()
		beam.AddWithLimit(neighbours...)
	}
	return beam, superset, nil
}
