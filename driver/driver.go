// Package driver implements the streaming insert/delete/snapshot schedule
// (spec §4.6-§4.9, C9) on top of a vamana.Index: an initial batch build,
// checkpointed inserts, an optional delete window with consolidation, and
// periodic snapshots. Grounded on the teacher's cache-flush progress-bar
// idiom (collection/cache.go) and its zerolog component logger pattern.
package driver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/vamanadb/streamvamana/models"
	"github.com/vamanadb/streamvamana/snapshot"
	"github.com/vamanadb/streamvamana/vamana"
	"github.com/vamanadb/streamvamana/vectorio"
)

// Config is the streaming run's schedule (spec §6's option table).
type Config struct {
	R, L                        int
	Alpha                       float32
	NumThreads                  int
	PointsToSkip                int
	MaxPointsToInsert           int
	BeginningIndexSize          int
	PointsPerCheckpoint         int
	CheckpointsPerSnapshot      int
	PointsToDeleteFromBeginning int
	DoConcurrent                bool
	StartDeletesAfter           int
	StartPointNorm              float32
	DataType                    vectorio.DataType
	DistFn                      string
	DataPath                    string
	IndexPathPrefix             string
}

// Validate applies spec §6's cross-field rules, clamping where the spec
// calls for a clamp-and-warn rather than a hard failure.
func (c *Config) Validate(logger zerolog.Logger) error {
	if c.MaxPointsToInsert > 0 && c.BeginningIndexSize > c.MaxPointsToInsert {
		logger.Warn().
			Int("beginning_index_size", c.BeginningIndexSize).
			Int("max_points_to_insert", c.MaxPointsToInsert).
			Msg("beginning_index_size exceeds max_points_to_insert, clamping")
		c.BeginningIndexSize = c.MaxPointsToInsert
	}
	if c.BeginningIndexSize == 0 && c.StartPointNorm <= 0 {
		return models.NewError(models.ErrInvalidConfig, "start_point_norm must be > 0 when beginning_index_size is 0")
	}
	if c.PointsToDeleteFromBeginning > c.BeginningIndexSize && c.StartDeletesAfter == 0 {
		return models.NewError(models.ErrInvalidConfig, "points_to_delete_from_beginning (%d) exceeds beginning_index_size (%d)", c.PointsToDeleteFromBeginning, c.BeginningIndexSize)
	}
	return nil
}

// Driver owns the index and runs its configured schedule end to end.
type Driver struct {
	cfg    Config
	index  *vamana.Index
	logger zerolog.Logger
}

// New validates cfg and constructs the (not yet built) index behind it.
func New(cfg Config, dim, capacity int) (*Driver, error) {
	logger := log.With().Str("component", "driver").Logger()
	if err := cfg.Validate(logger); err != nil {
		return nil, err
	}

	params := vamana.DefaultParams(dim, capacity)
	params.DegreeBound = orDefault(cfg.R, params.DegreeBound)
	params.SearchSize = orDefault(cfg.L, params.SearchSize)
	if cfg.Alpha > 0 {
		params.Alpha = cfg.Alpha
	}
	params.StartPointNorm = cfg.StartPointNorm
	if cfg.DistFn != "" {
		params.DistanceMetric = cfg.DistFn
	}

	index, err := vamana.New(params)
	if err != nil {
		return nil, fmt.Errorf("could not construct index: %w", err)
	}
	return &Driver{cfg: cfg, index: index, logger: logger}, nil
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Index exposes the underlying index, mainly for tests and for the final
// snapshot step once Run completes.
func (d *Driver) Index() *vamana.Index { return d.index }

// Run executes the full streaming schedule against the configured data
// file: initial batch, checkpointed inserts, delete window + consolidate,
// periodic snapshots (spec §4.6-§4.9).
func (d *Driver) Run(ctx context.Context) error {
	reader, err := vectorio.Open(d.cfg.DataPath, d.cfg.DataType, d.cfg.PointsToSkip)
	if err != nil {
		return fmt.Errorf("could not open data file: %w", err)
	}
	defer reader.Close()

	maxToInsert := d.cfg.MaxPointsToInsert
	if maxToInsert <= 0 || maxToInsert > reader.Header().NumPoints {
		maxToInsert = reader.Header().NumPoints
	}

	nextTag := uint32(d.cfg.PointsToSkip) + 1

	if d.cfg.BeginningIndexSize > 0 {
		vectors, err := reader.ReadN(d.cfg.BeginningIndexSize)
		if err != nil {
			return fmt.Errorf("could not read initial batch: %w", err)
		}
		if err := d.index.SetupFrozenMedoid(vectors); err != nil {
			return fmt.Errorf("could not set up frozen medoid: %w", err)
		}
		tags := make([]uint32, len(vectors))
		for i := range tags {
			tags[i] = nextTag
			nextTag++
		}
		d.logger.Info().Int("count", len(vectors)).Msg("building initial batch")
		if err := d.index.Build(tags, vectors); err != nil {
			return fmt.Errorf("could not build initial batch: %w", err)
		}
	} else {
		if err := d.index.SetupFrozenRandom(); err != nil {
			return fmt.Errorf("could not set up random frozen point: %w", err)
		}
	}

	remaining := maxToInsert - d.cfg.BeginningIndexSize
	if remaining < 0 {
		remaining = 0
	}

	bar := progressbar.Default(int64(remaining))
	inserted := 0
	checkpointsSinceSnapshot := 0
	deletesStarted := d.cfg.StartDeletesAfter == 0

	for inserted < remaining {
		batchSize := d.cfg.PointsPerCheckpoint
		if batchSize <= 0 || batchSize > remaining-inserted {
			batchSize = remaining - inserted
		}
		vectors, err := reader.ReadN(batchSize)
		if err != nil {
			return fmt.Errorf("could not read checkpoint batch: %w", err)
		}
		if len(vectors) == 0 {
			break
		}

		if err := d.insertCheckpoint(ctx, nextTag, vectors); err != nil {
			return err
		}
		for range vectors {
			bar.Add(1)
		}
		inserted += len(vectors)
		nextTag += uint32(len(vectors))
		checkpointsSinceSnapshot++

		if !deletesStarted && inserted >= d.cfg.StartDeletesAfter {
			deletesStarted = true
		}
		if deletesStarted && d.cfg.PointsToDeleteFromBeginning > 0 {
			if err := d.deleteAndConsolidate(ctx); err != nil {
				return err
			}
			d.cfg.PointsToDeleteFromBeginning = 0 // a one-shot deletion window, per spec §4.7
		}

		if d.cfg.CheckpointsPerSnapshot > 0 && checkpointsSinceSnapshot >= d.cfg.CheckpointsPerSnapshot {
			if err := d.writeSnapshot(snapshot.StageIncremental); err != nil {
				return err
			}
			checkpointsSinceSnapshot = 0
		}
	}

	return d.writeSnapshot(snapshot.StageIncremental)
}

// insertCheckpoint inserts a batch of freshly-read vectors either
// sequentially or fanned out across NumThreads goroutines, matching the
// concurrent/non-concurrent split spec §5's concurrency model requires.
func (d *Driver) insertCheckpoint(ctx context.Context, startTag uint32, vectors [][]float32) error {
	if !d.cfg.DoConcurrent || d.cfg.NumThreads <= 1 {
		for i, v := range vectors {
			if err := d.index.InsertPoint(startTag+uint32(i), v); err != nil {
				return fmt.Errorf("could not insert point tag %d: %w", startTag+uint32(i), err)
			}
		}
		return nil
	}

	type job struct {
		tag uint32
		vec []float32
	}
	jobs := make(chan job)
	errC := make(chan error, d.cfg.NumThreads)
	done := make(chan struct{})

	go func() {
		defer close(jobs)
		for i, v := range vectors {
			select {
			case jobs <- job{tag: startTag + uint32(i), vec: v}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for w := 0; w < d.cfg.NumThreads; w++ {
		go func() {
			for j := range jobs {
				if err := d.index.InsertPoint(j.tag, j.vec); err != nil {
					select {
					case errC <- err:
					default:
					}
				}
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < d.cfg.NumThreads; w++ {
		<-done
	}
	select {
	case err := <-errC:
		return fmt.Errorf("could not insert concurrent checkpoint: %w", err)
	default:
		return nil
	}
}

// deleteAndConsolidate lazy-deletes the configured count of earliest tags
// and runs one consolidation pass (spec §4.7-§4.8).
func (d *Driver) deleteAndConsolidate(ctx context.Context) error {
	d.logger.Info().Int("count", d.cfg.PointsToDeleteFromBeginning).Msg("deleting points from beginning of stream")
	for i := 0; i < d.cfg.PointsToDeleteFromBeginning; i++ {
		tag := uint32(d.cfg.PointsToSkip) + uint32(i) + 1
		if err := d.index.LazyDelete(tag); err != nil {
			return fmt.Errorf("could not lazy-delete tag %d: %w", tag, err)
		}
	}
	report, err := d.index.ConsolidateDeletes(ctx, d.cfg.DoConcurrent)
	if err != nil {
		return fmt.Errorf("could not consolidate deletes: %w", err)
	}
	d.logger.Info().
		Int("active_points", report.ActivePoints).
		Int("slots_released", report.SlotsReleased).
		Dur("elapsed", report.Time).
		Msg("consolidation complete")

	stage := snapshot.StageAfterDelete
	if d.cfg.DoConcurrent {
		stage = snapshot.StageAfterConcurrentDelete
	}
	return d.writeSnapshot(stage)
}

func (d *Driver) writeSnapshot(stage snapshot.Stage) error {
	if d.cfg.IndexPathPrefix == "" {
		return nil
	}
	active, free, deleted := d.index.Stats()
	prefix := snapshot.Name(d.cfg.IndexPathPrefix, stage, d.cfg.PointsToSkip, d.cfg.PointsToDeleteFromBeginning, active)
	d.logger.Info().Str("prefix", prefix).Int("free_slots", free).Int("delete_set", deleted).Msg("writing snapshot")

	total := d.index.Params().Capacity + d.index.Params().NumFrozenPoints
	if err := snapshot.WriteGraph(prefix+".graph", d.index.EdgesForSnapshot(), total); err != nil {
		return fmt.Errorf("could not write graph snapshot: %w", err)
	}
	if err := snapshot.WriteVectors(prefix+".vecs", d.index.VectorsForSnapshot(), total); err != nil {
		return fmt.Errorf("could not write vector snapshot: %w", err)
	}
	entries := d.index.TagsForSnapshot().Entries()
	tagEntries := make([]snapshot.TagMapEntry, len(entries))
	for i, e := range entries {
		tagEntries[i] = snapshot.TagMapEntry{Tag: e.Tag, Slot: e.Slot}
	}
	if err := snapshot.WriteTagMap(prefix+".tags", tagEntries); err != nil {
		return fmt.Errorf("could not write tag map snapshot: %w", err)
	}
	return nil
}
