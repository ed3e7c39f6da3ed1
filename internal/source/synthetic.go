// internal/source/synthetic.go
// Package: source
package source

import (
	"context"

	"github.com/mwiater/loadbench/internal/metrics"
	"github.com/mwiater/loadbench/internal/stats"
)

const baseSeed = 42

// jitter ranges (base, spread) in milliseconds, drawn in this order.
var syntheticRanges = struct {
	boot, loading, firstFrameDelay, chunkCache, renderCache, avgChunk, frameDelta [2]float64
}{
	boot:            [2]float64{120, 60},
	loading:         [2]float64{900, 400},
	firstFrameDelay: [2]float64{40, 30},
	chunkCache:      [2]float64{250, 120},
	renderCache:     [2]float64{60, 40},
	avgChunk:        [2]float64{4, 3},
	frameDelta:      [2]float64{16, 4},
}

// Synthetic generates deterministic raw metrics without a browser. The same
// run index always yields the same values.
type Synthetic struct{}

// NewSynthetic returns the mock-mode source.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Identity reports the fixed mock browser identity.
func (s *Synthetic) Identity() Identity {
	return Identity{Browser: "synthetic", UserAgent: "loadbench-mock"}
}

// Produce ignores ctx; generation cannot block.
func (s *Synthetic) Produce(_ context.Context, run int) (metrics.Raw, error) {
	return SyntheticRaw(run), nil
}

// SyntheticRaw builds the raw metrics of run from a mulberry32 stream
// seeded with 42+run.
func SyntheticRaw(run int) metrics.Raw {
	rng := mulberry32(uint32(baseSeed + run))
	jitter := func(r [2]float64) float64 {
		return r[0] + rng()*r[1]
	}

	boot := jitter(syntheticRanges.boot)
	loading := jitter(syntheticRanges.loading)
	firstFrameDelay := jitter(syntheticRanges.firstFrameDelay)
	chunkCache := jitter(syntheticRanges.chunkCache)
	renderCache := jitter(syntheticRanges.renderCache)
	avgChunk := jitter(syntheticRanges.avgChunk)
	frameDelta := jitter(syntheticRanges.frameDelta)

	var fps *float64
	if frameDelta > 0 {
		fps = stats.Ptr(1000 / frameDelta)
	}

	htmlStart := 0.0
	loadStart := htmlStart + boot
	readyAt := loadStart + loading
	firstFrameAt := readyAt + firstFrameDelay

	return metrics.Raw{
		GameHTMLStart:    stats.Ptr(htmlStart),
		GameLoadStart:    stats.Ptr(loadStart),
		GameReadyAt:      stats.Ptr(readyAt),
		FirstFrameAt:     stats.Ptr(firstFrameAt),
		FirstFrameDelta:  stats.Ptr(frameDelta),
		FirstFps:         fps,
		ChunkLoadingTime: stats.Ptr(chunkCache),
		RenderCaching5:   stats.Ptr(renderCache),
		AvgChunkLoad:     stats.Ptr(avgChunk),
	}
}

// mulberry32 returns a 32-bit mixing generator uniform in [0,1).
func mulberry32(seed uint32) func() float64 {
	a := seed
	return func() float64 {
		a += 0x6D2B79F5
		t := a
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296
	}
}
