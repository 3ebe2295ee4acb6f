package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vamanadb/streamvamana/models"
	"github.com/vamanadb/streamvamana/vectorstore"
)

func TestSetAndVectorRoundTrip(t *testing.T) {
	s := vectorstore.New(4, 3)
	require.NoError(t, s.Set(0, []float32{1, 2, 3}))
	require.NoError(t, s.Set(1, []float32{4, 5, 6}))
	require.Equal(t, []float32{1, 2, 3}, s.Vector(0))
	require.Equal(t, []float32{4, 5, 6}, s.Vector(1))
}

func TestSetRejectsDimensionMismatch(t *testing.T) {
	s := vectorstore.New(2, 3)
	err := s.Set(0, []float32{1, 2})
	require.Error(t, err)
	require.True(t, models.Is(err, models.ErrDimensionMismatch))
}

func TestSetRejectsOutOfRangeSlot(t *testing.T) {
	s := vectorstore.New(2, 3)
	require.Error(t, s.Set(-1, []float32{1, 2, 3}))
	require.Error(t, s.Set(2, []float32{1, 2, 3}))
}

func TestAlignedDimRoundsUpToEight(t *testing.T) {
	s := vectorstore.New(1, 3)
	require.Equal(t, 3, s.Dim())
	require.Equal(t, 8, s.AlignedDim())

	exact := vectorstore.New(1, 16)
	require.Equal(t, 16, exact.AlignedDim())
}

func TestVectorReturnsUnpaddedView(t *testing.T) {
	s := vectorstore.New(1, 3)
	require.NoError(t, s.Set(0, []float32{1, 2, 3}))
	row := s.Vector(0)
	require.Len(t, row, 3)

	require.NoError(t, s.Set(0, []float32{9, 9, 9}))
	require.Equal(t, []float32{9, 9, 9}, s.Vector(0))
}
