// internal/stats/stats.go
// Package: stats
package stats

import (
	"math"
	"slices"
)

// Summary holds the descriptive statistics of one metric across trials.
// Every statistic is nil when Count is zero.
type Summary struct {
	Unit   string   `json:"unit"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	P95    *float64 `json:"p95"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Stddev *float64 `json:"stddev"`
}

// Percentile returns the rank-quantile (0..1) of an ascending slice using
// linear interpolation between the closest ranks. It returns nil for an
// empty slice.
func Percentile(sorted []float64, rank float64) *float64 {
	if len(sorted) == 0 {
		return nil
	}
	if rank <= 0 || math.IsNaN(rank) {
		return Ptr(sorted[0])
	}
	if rank >= 1 {
		return Ptr(sorted[len(sorted)-1])
	}
	pos := float64(len(sorted)-1) * rank
	l := int(math.Floor(pos))
	r := int(math.Ceil(pos))
	if l == r {
		return Ptr(sorted[l])
	}
	frac := pos - float64(l)
	return Ptr(sorted[l] + (sorted[r]-sorted[l])*frac)
}

// Finite drops nil, NaN and infinite entries.
func Finite(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && IsFinite(*v) {
			out = append(out, *v)
		}
	}
	return out
}

// Summarize computes the summary of the finite values. Standard deviation is
// the population form (divides by n).
func Summarize(values []*float64, unit string) Summary {
	cp := Finite(values)
	if len(cp) == 0 {
		return Summary{Unit: unit}
	}
	slices.Sort(cp)

	mean, std := meanStd(cp)
	return Summary{
		Unit:   unit,
		Count:  len(cp),
		Mean:   Ptr(mean),
		Median: Ptr(median(cp)),
		P95:    Percentile(cp, 0.95),
		Min:    Ptr(cp[0]),
		Max:    Ptr(cp[len(cp)-1]),
		Stddev: Ptr(std),
	}
}

func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n
	var varsum float64
	for _, v := range values {
		d := v - mean
		varsum += d * d
	}
	std = math.Sqrt(varsum / n)
	return
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Ptr returns a pointer to a copy of v.
func Ptr(v float64) *float64 {
	return &v
}
