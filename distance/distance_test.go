package distance

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredEuclidean(t *testing.T) {
	x := []float32{1, 2, 3}
	y := []float32{4, 5, 6}
	got := squaredEuclideanDistancePureGo(x, y)
	want := float32(27)
	assert.Equal(t, want, got)
}

func TestMIPSDistance(t *testing.T) {
	x := []float32{1, 2, 3}
	y := []float32{4, 5, 6}
	got := mipsDistance(x, y)
	want := float32(-32)
	assert.Equal(t, want, got)
}

func TestGetDistanceFn(t *testing.T) {
	_, err := GetDistanceFn(MetricL2)
	require.NoError(t, err)
	_, err = GetDistanceFn(MetricMIPS)
	require.NoError(t, err)
	_, err = GetDistanceFn("unknown")
	require.Error(t, err)
}

var benchSizes = []int{128, 768}

func randVector(size int) []float32 {
	vector := make([]float32, size)
	for i := 0; i < size; i++ {
		vector[i] = rand.Float32()
	}
	return vector
}

func BenchmarkDist(b *testing.B) {
	for _, size := range benchSizes {
		x := randVector(size)
		y := randVector(size)
		b.Run(fmt.Sprintf("SquaredEuclidean-%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				squaredEuclideanDistancePureGo(x, y)
			}
		})
	}
}
