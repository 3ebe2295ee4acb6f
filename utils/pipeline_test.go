package utils_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vamanadb/streamvamana/utils"
)

func TestProduceWithContextDeliversAll(t *testing.T) {
	ctx := context.Background()
	out := utils.ProduceWithContext(ctx, []int{1, 2, 3})
	var got []int
	for v := range out {
		got = append(got, v)
	}
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestProduceWithContextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	out := utils.ProduceWithContext(ctx, []int{1, 2, 3})
	cancel()
	count := 0
	for range out {
		count++
	}
	require.LessOrEqual(t, count, 3)
}

func TestSinkWithContextCollectsAllValues(t *testing.T) {
	ctx := context.Background()
	in := utils.ProduceWithContext(ctx, []int{1, 2, 3})
	var sum int
	errC := utils.SinkWithContext(ctx, in, func(a int) error {
		sum += a
		return nil
	})
	require.NoError(t, <-errC)
	require.Equal(t, 6, sum)
}

func TestSinkWithContextPropagatesError(t *testing.T) {
	ctx := context.Background()
	in := utils.ProduceWithContext(ctx, []int{1, 2, 3})
	boom := fmt.Errorf("boom")
	errC := utils.SinkWithContext(ctx, in, func(a int) error {
		if a == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, <-errC, boom)
}

func TestMergeErrorsWithContextReturnsNilWhenAllSucceed(t *testing.T) {
	ctx := context.Background()
	a := utils.SinkWithContext(ctx, utils.ProduceWithContext(ctx, []int{1}), func(int) error { return nil })
	b := utils.SinkWithContext(ctx, utils.ProduceWithContext(ctx, []int{2}), func(int) error { return nil })
	require.NoError(t, <-utils.MergeErrorsWithContext(ctx, a, b))
}

func TestMergeErrorsWithContextReturnsFirstError(t *testing.T) {
	ctx := context.Background()
	boom := fmt.Errorf("boom")
	a := utils.SinkWithContext(ctx, utils.ProduceWithContext(ctx, []int{1}), func(int) error { return nil })
	b := utils.SinkWithContext(ctx, utils.ProduceWithContext(ctx, []int{2}), func(int) error { return boom })
	require.ErrorIs(t, <-utils.MergeErrorsWithContext(ctx, a, b), boom)
}
