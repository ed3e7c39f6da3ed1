// internal/source/source.go
// Package: source

// Package source produces the raw page metrics of one trial, either from a
// live Chrome tab or from a seeded generator.
package source

import (
	"context"

	"github.com/mwiater/loadbench/internal/metrics"
)

// Identity describes the browser that produced the measurements.
type Identity struct {
	Browser   string `json:"browser"`
	UserAgent string `json:"userAgent"`
}

// RunSource yields the raw metrics of trial run (1-based). Implementations
// must not retain state that changes the output for a given run, apart from
// identity capture.
type RunSource interface {
	Produce(ctx context.Context, run int) (metrics.Raw, error)
	Identity() Identity
}

// Trial runs src for one trial and converts the outcome into a RunResult.
// Errors never escape; they are recorded on the result.
func Trial(ctx context.Context, src RunSource, run int) metrics.RunResult {
	raw, err := src.Produce(ctx, run)
	if err != nil {
		return metrics.FailedRun(run, err)
	}
	return metrics.ComputeRun(run, raw)
}
