// Package vamana implements the streaming Vamana graph index core: greedy
// search (C5), robust prune (C6), the insert engine (C7) and the delete /
// consolidate engine (C8), tied together over the vector store, tag map and
// neighbour lists.
package vamana

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vamanadb/streamvamana/distance"
	"github.com/vamanadb/streamvamana/graph"
	"github.com/vamanadb/streamvamana/models"
	"github.com/vamanadb/streamvamana/tagmap"
	"github.com/vamanadb/streamvamana/vectorstore"
	"gonum.org/v1/gonum/blas/blas32"
)

// Index is the in-memory streaming Vamana graph index.
type Index struct {
	params Params
	distFn distance.DistFunc

	vecs  *vectorstore.Store
	tags  *tagmap.Map
	edges *graph.Store

	// allocMu realises the structural lock's exclusive obligations (spec
	// §5): it excludes slot allocation from an in-flight consolidation and
	// excludes re-entrant consolidation. Search and the non-allocation
	// steps of insert (2-6) never acquire it, so they may freely overlap a
	// running consolidation, per spec §9's tightened concurrency note.
	allocMu chan struct{}

	frozenSlots []int32

	logger zerolog.Logger
}

// New builds an empty index. Callers must call SetupFrozenRandom or
// SetupFrozenMedoid before any Search/InsertPoint call.
func New(params Params) (*Index, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	distFn, err := distance.GetDistanceFn(params.DistanceMetric)
	if err != nil {
		return nil, models.WrapError(models.ErrInvalidConfig, err)
	}
	total := params.Capacity + params.NumFrozenPoints
	idx := &Index{
		params:  params,
		distFn:  distFn,
		vecs:    vectorstore.New(total, params.Dim),
		tags:    tagmap.New(params.Capacity),
		edges:   graph.NewStore(total, params.DegreeBound),
		allocMu: make(chan struct{}, 1),
		logger:  log.With().Str("component", "vamana").Logger(),
	}
	idx.allocMu <- struct{}{}
	idx.frozenSlots = make([]int32, params.NumFrozenPoints)
	for i := range idx.frozenSlots {
		idx.frozenSlots[i] = int32(params.Capacity + i)
	}
	return idx, nil
}

func (idx *Index) lockAlloc()   { <-idx.allocMu }
func (idx *Index) unlockAlloc() { idx.allocMu <- struct{}{} }

// FrozenSlots returns the permanent entry-point slot ids.
func (idx *Index) FrozenSlots() []int32 {
	out := make([]int32, len(idx.frozenSlots))
	copy(out, idx.frozenSlots)
	return out
}

// Params returns a copy of the index's configured parameters.
func (idx *Index) Params() Params { return idx.params }

// SetupFrozenRandom initialises every frozen slot with a random unit vector
// scaled to StartPointNorm. Used when there is no initial batch to compute a
// medoid from (spec §4.6 step 1, beginning_index_size == 0).
func (idx *Index) SetupFrozenRandom() error {
	if idx.params.StartPointNorm <= 0 {
		return models.NewError(models.ErrInvalidConfig, "start_point_norm must be > 0 when beginning_index_size is 0")
	}
	for _, slot := range idx.frozenSlots {
		vec := randomUnitVector(idx.params.Dim)
		blas32.Scal(idx.params.StartPointNorm, blas32.Vector{N: len(vec), Inc: 1, Data: vec})
		if err := idx.vecs.Set(int(slot), vec); err != nil {
			return err
		}
	}
	return nil
}

// SetupFrozenMedoid initialises the first frozen slot with the (approximate)
// medoid of the initial batch: the batch point nearest to the batch
// centroid. Any additional frozen slots fall back to random unit vectors.
func (idx *Index) SetupFrozenMedoid(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("cannot compute medoid of an empty batch")
	}
	centroid := make([]float32, idx.params.Dim)
	centroidVec := blas32.Vector{N: idx.params.Dim, Inc: 1, Data: centroid}
	for _, v := range vectors {
		blas32.Axpy(1, blas32.Vector{N: len(v), Inc: 1, Data: v}, centroidVec)
	}
	blas32.Scal(1/float32(len(vectors)), centroidVec)
	best, bestDist := 0, float32(math.MaxFloat32)
	for i, v := range vectors {
		d := idx.distFn(centroid, v)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if err := idx.vecs.Set(int(idx.frozenSlots[0]), vectors[best]); err != nil {
		return err
	}
	for _, slot := range idx.frozenSlots[1:] {
		vec := randomUnitVector(idx.params.Dim)
		if err := idx.vecs.Set(int(slot), vec); err != nil {
			return err
		}
	}
	return nil
}

func randomUnitVector(dim int) []float32 {
	vec := make([]float32, dim)
	var sumSq float32
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
		sumSq += vec[i] * vec[i]
	}
	norm := float32(1 / math.Sqrt(float64(sumSq)))
	for i := range vec {
		vec[i] *= norm
	}
	return vec
}

// Search runs greedy search from the frozen entry points and returns the k
// closest user points, excluding frozen points and lazy-deleted slots (which
// are still traversed, but never returned).
func (idx *Index) Search(query []float32, k int) ([]models.SearchResult, error) {
	if len(query) != idx.params.Dim {
		return nil, models.NewError(models.ErrDimensionMismatch, "expected dim %d, got %d", idx.params.Dim, len(query))
	}
	L := idx.params.SearchSize
	if L < k {
		L = k
	}
	beam, superset, err := idx.greedySearch(query, L, idx.frozenSlots)
	if err != nil {
		return nil, fmt.Errorf("could not perform graph search: %w", err)
	}
	defer beam.Release()
	defer superset.Release()
	results := make([]models.SearchResult, 0, k)
	for _, c := range beam.Items() {
		if len(results) >= k {
			break
		}
		if idx.isFrozen(c.Slot) {
			continue
		}
		tag, ok := idx.tags.TagOf(int(c.Slot))
		if !ok {
			// Lazily deleted: traversable but not a valid result.
			continue
		}
		results = append(results, models.SearchResult{Tag: tag, Distance: c.Dist})
	}
	return results, nil
}

func (idx *Index) isFrozen(slot int32) bool {
	for _, f := range idx.frozenSlots {
		if f == slot {
			return true
		}
	}
	return false
}

// Stats mirrors the fields consolidation reports on, useful outside of a
// consolidate_deletes call too (e.g. for the driver's progress logging).
func (idx *Index) Stats() (active, free, deleted int) {
	return idx.tags.Stats()
}

// EdgesForSnapshot exposes the neighbour-list store for the snapshot writer.
func (idx *Index) EdgesForSnapshot() *graph.Store { return idx.edges }

// VectorsForSnapshot exposes the vector store for the snapshot writer.
func (idx *Index) VectorsForSnapshot() *vectorstore.Store { return idx.vecs }

// TagsForSnapshot exposes the tag map for the snapshot writer.
func (idx *Index) TagsForSnapshot() *tagmap.Map { return idx.tags }
