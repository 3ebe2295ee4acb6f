package vamana

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/vamanadb/streamvamana/graph"
	"github.com/vamanadb/streamvamana/models"
	"github.com/vamanadb/streamvamana/utils"
)

// LazyDelete marks tag for deletion without touching its vector or edges
// (spec §4.7, C8.1). The slot remains traversable by search and consolidate
// until a ConsolidateDeletes pass repairs the graph and releases it.
func (idx *Index) LazyDelete(tag uint32) error {
	_, err := idx.tags.LazyDelete(tag)
	if err != nil {
		return fmt.Errorf("could not lazy-delete tag %d: %w", tag, err)
	}
	return nil
}

// ConsolidateDeletes repairs the neighbour list of every active point and
// every frozen point, then releases the deleted slots back to the free list
// (spec §4.8, C8.2). It holds allocMu for the whole pass: no new slot may be
// allocated, and no second consolidation may run, while this one is live.
// Search and insert's non-allocation steps are not blocked by allocMu and
// may freely interleave with a running pass.
func (idx *Index) ConsolidateDeletes(ctx context.Context, concurrent bool) (*models.ConsolidateReport, error) {
	start := time.Now()
	idx.lockAlloc()
	defer idx.unlockAlloc()

	deleted := idx.tags.DeletedSlots()
	deletedSet := make(map[int32]struct{}, len(deleted))
	for _, s := range deleted {
		deletedSet[int32(s)] = struct{}{}
	}

	active := idx.activeSlots(deletedSet)
	toRepair := append(append([]int32{}, active...), idx.frozenSlots...)

	repair := func(p int32) error {
		idx.expand(p, deletedSet)
		return nil
	}

	var err error
	if concurrent {
		err = idx.repairConcurrent(ctx, toRepair, repair)
	} else {
		err = idx.repairSequential(ctx, toRepair, repair)
	}
	if err != nil {
		return nil, fmt.Errorf("could not consolidate deletes: %w", err)
	}

	idx.rescueStragglers(active)
	idx.tags.Release(deleted)

	activePoints, freeSlots, deleteSetSize := idx.tags.Stats()
	return &models.ConsolidateReport{
		ActivePoints:  activePoints,
		MaxPoints:     idx.params.Capacity,
		EmptySlots:    freeSlots,
		SlotsReleased: len(deleted),
		DeleteSetSize: deleteSetSize,
		Time:          time.Since(start),
	}, nil
}

// activeSlots lists every regular slot that currently holds a live tag,
// i.e. everything except free slots and the delete set itself.
func (idx *Index) activeSlots(deletedSet map[int32]struct{}) []int32 {
	slots := make([]int32, 0, idx.params.Capacity)
	for slot := 0; slot < idx.params.Capacity; slot++ {
		if _, isDeleted := deletedSet[int32(slot)]; isDeleted {
			continue
		}
		if _, ok := idx.tags.TagOf(slot); ok {
			slots = append(slots, int32(slot))
		}
	}
	return slots
}

// expand implements the two-hop repair rule (C8.2): p's new neighbour list
// is its surviving (non-deleted) neighbours union the neighbours of each
// deleted neighbour, excluding p itself and any still-deleted slot, pruned
// back to the degree bound only if it has more than DegreeBound members.
func (idx *Index) expand(p int32, deletedSet map[int32]struct{}) {
	old := idx.edges.Get(p).Snapshot()

	merged := make(map[int32]struct{}, len(old))
	for _, n := range old {
		if n == p {
			continue
		}
		if _, isDeleted := deletedSet[n]; !isDeleted {
			merged[n] = struct{}{}
			continue
		}
		for _, hop2 := range idx.edges.Get(n).Snapshot() {
			if hop2 == p {
				continue
			}
			if _, stillDeleted := deletedSet[hop2]; stillDeleted {
				continue
			}
			merged[hop2] = struct{}{}
		}
	}

	if len(merged) <= idx.params.DegreeBound {
		repaired := make([]int32, 0, len(merged))
		for slot := range merged {
			repaired = append(repaired, slot)
		}
		idx.edges.Get(p).Replace(repaired)
		return
	}

	candidates := make([]graph.Candidate, 0, len(merged))
	for slot := range merged {
		candidates = append(candidates, graph.Candidate{Slot: slot})
	}
	idx.edges.Get(p).Replace(idx.robustPrune(p, candidates))
}

// rescueStragglers reconnects any active point left with zero inbound edges
// after the repair pass back to the first frozen start point. expand only
// repairs a point's own outbound list from its 2-hop neighbourhood, so a
// point whose entire inbound set was deleted can end up unreachable from the
// start point even though its own outbound edges are fine; this one-level
// scan catches those stragglers the way the teacher's removeInboundEdges
// "toSave" pass does, without recursing into a full reachability sweep.
func (idx *Index) rescueStragglers(active []int32) {
	hasInbound := make(map[int32]struct{}, len(active))
	for _, p := range active {
		for _, n := range idx.edges.Get(p).Snapshot() {
			hasInbound[n] = struct{}{}
		}
	}
	start := idx.frozenSlots[0]
	for _, p := range active {
		if _, ok := hasInbound[p]; ok {
			continue
		}
		idx.edges.Get(start).AppendIfAbsent(p, start)
	}
}

func (idx *Index) repairSequential(ctx context.Context, active []int32, repair func(int32) error) error {
	for _, p := range active {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := repair(p); err != nil {
			return err
		}
	}
	return nil
}

// repairConcurrent fans the repair work for each active slot out across a
// worker pool sized to the host, using the same produce/sink pipeline shape
// the driver uses for checkpointed inserts.
func (idx *Index) repairConcurrent(ctx context.Context, active []int32, repair func(int32) error) error {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(active) && len(active) > 0 {
		workers = len(active)
	}
	if workers <= 0 {
		workers = 1
	}

	in := utils.ProduceWithContext(ctx, active)
	errCs := make([]<-chan error, workers)
	for i := 0; i < workers; i++ {
		errCs[i] = utils.SinkWithContext(ctx, in, repair)
	}
	return <-utils.MergeErrorsWithContext(ctx, errCs...)
}
