package source

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/loadbench/internal/metrics"
)

func TestMulberry32_RangeAndDeterminism(t *testing.T) {
	a := mulberry32(43)
	b := mulberry32(43)
	for i := 0; i < 1000; i++ {
		x, y := a(), b()
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x, 0.0)
		require.Less(t, x, 1.0)
	}

	c := mulberry32(44)
	assert.NotEqual(t, mulberry32(43)(), c())
}

func TestSyntheticRaw_Reproducible(t *testing.T) {
	for run := 1; run <= 5; run++ {
		first, err := json.Marshal(SyntheticRaw(run))
		require.NoError(t, err)
		second, err := json.Marshal(SyntheticRaw(run))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second), "run %d", run)
	}

	one, _ := json.Marshal(SyntheticRaw(1))
	two, _ := json.Marshal(SyntheticRaw(2))
	assert.NotEqual(t, string(one), string(two))
}

func TestSyntheticRaw_Ranges(t *testing.T) {
	for run := 1; run <= 50; run++ {
		raw := SyntheticRaw(run)
		require.NotNil(t, raw.FirstFrameDelta)
		require.NotNil(t, raw.FirstFps)

		assert.Equal(t, 0.0, *raw.GameHTMLStart)
		boot := *raw.GameLoadStart - *raw.GameHTMLStart
		assert.GreaterOrEqual(t, boot, 120.0)
		assert.Less(t, boot, 180.0)
		loading := *raw.GameReadyAt - *raw.GameLoadStart
		assert.GreaterOrEqual(t, loading, 900.0)
		assert.Less(t, loading, 1300.0)
		delay := *raw.FirstFrameAt - *raw.GameReadyAt
		assert.GreaterOrEqual(t, delay, 40.0)
		assert.Less(t, delay, 70.0)

		assert.GreaterOrEqual(t, *raw.FirstFrameDelta, 16.0)
		assert.Less(t, *raw.FirstFrameDelta, 20.0)
		assert.Greater(t, *raw.FirstFps, 50.0)
		assert.LessOrEqual(t, *raw.FirstFps, 62.5)
		assert.InDelta(t, 1000 / *raw.FirstFrameDelta, *raw.FirstFps, 1e-9)

		assert.GreaterOrEqual(t, *raw.ChunkLoadingTime, 250.0)
		assert.Less(t, *raw.ChunkLoadingTime, 370.0)
		assert.GreaterOrEqual(t, *raw.RenderCaching5, 60.0)
		assert.Less(t, *raw.RenderCaching5, 100.0)
		assert.GreaterOrEqual(t, *raw.AvgChunkLoad, 4.0)
		assert.Less(t, *raw.AvgChunkLoad, 7.0)
	}
}

func TestSynthetic_TrialMatchesComputeRun(t *testing.T) {
	src := NewSynthetic()
	r := Trial(context.Background(), src, 7)
	assert.Equal(t, 7, r.Run)
	assert.False(t, r.Failed())

	want := metrics.ComputeRun(7, SyntheticRaw(7))
	got, _ := json.Marshal(r)
	exp, _ := json.Marshal(want)
	assert.Equal(t, string(exp), string(got))

	id := src.Identity()
	assert.Equal(t, "synthetic", id.Browser)
	assert.NotEmpty(t, id.UserAgent)
}
