// Package snapshot writes and reads the three on-disk artifacts a streaming
// run checkpoints to (spec §6, §7): the neighbour lists, the tag<->slot map,
// and the aligned vector store. Tag map encoding follows the teacher's
// msgpack.Marshal/Unmarshal idiom for on-disk structures (collection.go,
// kvstore/replog.go); the graph and vector artifacts are raw little-endian
// binary, in the spirit of the sift example's persist.go.
package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/vamanadb/streamvamana/graph"
	"github.com/vamanadb/streamvamana/models"
	"github.com/vamanadb/streamvamana/vectorstore"
	"github.com/vmihailenco/msgpack/v5"
)

// Stage names the point in the streaming schedule a snapshot was taken at,
// embedded in its filename (spec §7's naming convention).
type Stage string

const (
	StageIncremental           Stage = "inc"
	StageAfterDelete           Stage = "after-delete"
	StageAfterConcurrentDelete Stage = "after-concurrent-delete"
)

// Name builds the artifact filename prefix: <prefix>.<stage>-skip<S>-del<D>-<threshold>
// (spec §7). Callers append ".graph", ".tags" or ".vecs".
func Name(prefix string, stage Stage, pointsToSkip, pointsDeleted, threshold int) string {
	return fmt.Sprintf("%s.%s-skip%d-del%d-%d", prefix, stage, pointsToSkip, pointsDeleted, threshold)
}

// TagMapEntry is the msgpack-encoded unit of the tag map artifact.
type TagMapEntry struct {
	Tag  uint32
	Slot int32
}

// RunID mints a fresh random (UUID) identifier, the way a new replication
// log entry gets a fresh id in the teacher's kvstore. None of the artifacts
// written by this package embeds it.
func RunID() string {
	return uuid.NewString()
}

// WriteGraph serialises every slot's neighbour list, little-endian: a
// [uint32 numSlots] header, then for each slot in order
// [uint16 degree][int32 neighbour]*degree.
func WriteGraph(path string, edges *graph.Store, numSlots int) error {
	f, err := os.Create(path)
	if err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("create %s: %w", path, err))
	}
	defer f.Close()

	w := &binWriter{w: f}
	w.writeU32(uint32(numSlots))
	for slot := 0; slot < numSlots; slot++ {
		list := edges.Get(int32(slot)).Snapshot()
		w.writeU16(uint16(len(list)))
		for _, n := range list {
			w.writeI32(n)
		}
	}
	if w.err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("write graph %s: %w", path, w.err))
	}
	return nil
}

// ReadGraph replays a graph artifact into edges, which must already be sized
// to at least the stored slot count.
func ReadGraph(path string, edges *graph.Store) error {
	f, err := os.Open(path)
	if err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	r := &binReader{r: f}
	numSlots := int(r.readU32())
	for slot := 0; slot < numSlots; slot++ {
		degree := int(r.readU16())
		neighbours := make([]int32, degree)
		for i := range neighbours {
			neighbours[i] = r.readI32()
		}
		if r.err != nil {
			break
		}
		edges.Get(int32(slot)).Replace(neighbours)
	}
	if r.err != nil && r.err != io.EOF {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("read graph %s: %w", path, r.err))
	}
	return nil
}

// WriteTagMap msgpack-encodes the live tag<->slot bindings.
func WriteTagMap(path string, entries []TagMapEntry) error {
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("marshal tag map: %w", err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// ReadTagMap decodes a tag map artifact written by WriteTagMap.
func ReadTagMap(path string) ([]TagMapEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.WrapError(models.ErrIOFailure, fmt.Errorf("read %s: %w", path, err))
	}
	var entries []TagMapEntry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, models.WrapError(models.ErrIOFailure, fmt.Errorf("unmarshal tag map %s: %w", path, err))
	}
	return entries, nil
}

// WriteVectors writes the store's raw aligned buffer: [int32 numSlots]
// [int32 alignedDim] followed by numSlots*alignedDim float32 scalars.
func WriteVectors(path string, store *vectorstore.Store, numSlots int) error {
	f, err := os.Create(path)
	if err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("create %s: %w", path, err))
	}
	defer f.Close()

	w := &binWriter{w: f}
	w.writeU32(uint32(numSlots))
	w.writeU32(uint32(store.AlignedDim()))
	for slot := 0; slot < numSlots; slot++ {
		row := store.Vector(slot)
		for i := 0; i < store.AlignedDim(); i++ {
			if i < len(row) {
				w.writeF32(row[i])
			} else {
				w.writeF32(0)
			}
		}
	}
	if w.err != nil {
		return models.WrapError(models.ErrIOFailure, fmt.Errorf("write vectors %s: %w", path, w.err))
	}
	return nil
}

// binWriter accumulates the first write error, mirroring the sift example's
// persist.go helper.
type binWriter struct {
	w   io.Writer
	err error
}

func (w *binWriter) write(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}
func (w *binWriter) writeU16(v uint16) { w.write(v) }
func (w *binWriter) writeU32(v uint32) { w.write(v) }
func (w *binWriter) writeI32(v int32)  { w.write(v) }
func (w *binWriter) writeF32(v float32) { w.write(v) }

type binReader struct {
	r   io.Reader
	err error
}

func (r *binReader) read(v any) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}
func (r *binReader) readU16() uint16 {
	var v uint16
	r.read(&v)
	return v
}
func (r *binReader) readU32() uint32 {
	var v uint32
	r.read(&v)
	return v
}
func (r *binReader) readI32() int32 {
	var v int32
	r.read(&v)
	return v
}
