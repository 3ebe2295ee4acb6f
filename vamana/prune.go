package vamana

import "github.com/vamanadb/streamvamana/graph"

// robustPrune selects at most R neighbours for p out of candidates (which
// must not include p itself), applying the alpha-RNG diversity rule: once a
// candidate q is kept, any remaining candidate r with alpha*dist(q,r) <=
// dist(p,r) is discarded as redundant (spec §4.5, C6).
func (idx *Index) robustPrune(p int32, candidates []graph.Candidate) []int32 {
	pVec := idx.vecs.Vector(int(p))
	maxSlot := idx.params.Capacity + idx.params.NumFrozenPoints

	pool := graph.NewCandidateSet(len(candidates), maxSlot, func(slot int32) float32 {
		return idx.distFn(pVec, idx.vecs.Vector(int(slot)))
	})
	for _, c := range candidates {
		if c.Slot == p {
			continue
		}
		pool.Add(c.Slot)
	}
	pool.Sort()
	defer pool.Release()

	items := pool.Items()
	result := make([]int32, 0, idx.params.DegreeBound)

	for len(result) < idx.params.DegreeBound {
		next := -1
		for i := range items {
			if !items[i].PruneRemoved {
				next = i
				break
			}
		}
		if next == -1 {
			break
		}
		q := items[next]
		items[next].PruneRemoved = true
		result = append(result, q.Slot)

		qVec := idx.vecs.Vector(int(q.Slot))
		for i := next + 1; i < len(items); i++ {
			if items[i].PruneRemoved {
				continue
			}
			rVec := idx.vecs.Vector(int(items[i].Slot))
			distQR := idx.distFn(qVec, rVec)
			distPR := items[i].Dist
			if idx.params.Alpha*distQR <= distPR {
				items[i].PruneRemoved = true
			}
		}
	}
	return result
}
