package driver

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vamanadb/streamvamana/snapshot"
	"github.com/vamanadb/streamvamana/vectorio"
)

func writeVectorFile(t *testing.T, dir string, n, dim int) string {
	t.Helper()
	path := filepath.Join(dir, "vecs.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, binary.Write(f, binary.LittleEndian, int32(n)))
	require.NoError(t, binary.Write(f, binary.LittleEndian, int32(dim)))
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			v := float32(0)
			if j == 0 {
				v = float32(i)
			}
			require.NoError(t, binary.Write(f, binary.LittleEndian, v))
		}
	}
	return path
}

func TestRunBuildsAndInsertsStreamed(t *testing.T) {
	dir := t.TempDir()
	path := writeVectorFile(t, dir, 30, 2)

	cfg := Config{
		R: 4, L: 8, Alpha: 1.2,
		NumThreads:             1,
		MaxPointsToInsert:      30,
		BeginningIndexSize:     10,
		PointsPerCheckpoint:    5,
		CheckpointsPerSnapshot: 0,
		DataType:               vectorio.TypeFloat32,
		DataPath:               path,
	}
	d, err := New(cfg, 2, 30)
	require.NoError(t, err)

	require.NoError(t, d.Run(context.Background()))

	active, _, _ := d.Index().Stats()
	require.Equal(t, 30, active)

	results, err := d.Index().Search([]float32{15, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, uint32(16), results[0].Tag)
}

func TestRunWithDeleteWindowConsolidates(t *testing.T) {
	dir := t.TempDir()
	path := writeVectorFile(t, dir, 20, 2)

	cfg := Config{
		R: 4, L: 8, Alpha: 1.2,
		NumThreads:                  2,
		MaxPointsToInsert:           20,
		BeginningIndexSize:          10,
		PointsPerCheckpoint:         5,
		PointsToDeleteFromBeginning: 3,
		StartDeletesAfter:           8,
		DoConcurrent:                true,
		DataType:                    vectorio.TypeFloat32,
		DataPath:                    path,
	}
	d, err := New(cfg, 2, 20)
	require.NoError(t, err)

	require.NoError(t, d.Run(context.Background()))

	active, _, deleted := d.Index().Stats()
	require.Equal(t, 17, active)
	require.Equal(t, 0, deleted)
}

func TestRunWithSnapshotWritesAllThreeArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := writeVectorFile(t, dir, 20, 2)
	prefix := filepath.Join(dir, "snap")

	cfg := Config{
		R: 4, L: 8, Alpha: 1.2,
		NumThreads:             1,
		MaxPointsToInsert:      20,
		BeginningIndexSize:     10,
		PointsPerCheckpoint:    5,
		CheckpointsPerSnapshot: 1,
		DataType:               vectorio.TypeFloat32,
		DataPath:               path,
		IndexPathPrefix:        prefix,
	}
	d, err := New(cfg, 2, 20)
	require.NoError(t, err)
	require.NoError(t, d.Run(context.Background()))

	active, _, _ := d.Index().Stats()
	name := snapshot.Name(prefix, snapshot.StageIncremental, 0, 0, active)

	for _, ext := range []string{".graph", ".vecs", ".tags"} {
		_, err := os.Stat(name + ext)
		require.NoError(t, err, "expected snapshot artifact %s to exist", ext)
	}

	entries, err := snapshot.ReadTagMap(name + ".tags")
	require.NoError(t, err)
	require.Len(t, entries, active)

	want := make(map[uint32]struct{}, active)
	for i := 0; i < active; i++ {
		want[uint32(i+1)] = struct{}{}
	}
	for _, e := range entries {
		_, ok := want[e.Tag]
		require.True(t, ok, fmt.Sprintf("unexpected tag %d in tag map artifact", e.Tag))
	}
}

func TestValidateRejectsMissingStartPointNorm(t *testing.T) {
	cfg := Config{MaxPointsToInsert: 10}
	_, err := New(cfg, 2, 10)
	require.Error(t, err)
}

func TestValidateClampsBeginningIndexSize(t *testing.T) {
	dir := t.TempDir()
	path := writeVectorFile(t, dir, 5, 2)
	cfg := Config{
		R: 4, L: 8, Alpha: 1.2,
		MaxPointsToInsert:  3,
		BeginningIndexSize: 5,
		DataType:            vectorio.TypeFloat32,
		DataPath:            path,
	}
	d, err := New(cfg, 2, 5)
	require.NoError(t, err)
	require.Equal(t, 3, d.cfg.BeginningIndexSize)
}
