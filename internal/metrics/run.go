// internal/metrics/run.go
// Package: metrics
package metrics

import (
	"bytes"
	"encoding/json"

	"github.com/mwiater/loadbench/internal/stats"
)

// Raw is the metrics object exposed by the page under test (or synthesized
// in mock mode). Absent markers are nil.
type Raw struct {
	GameHTMLStart    *float64 `json:"gameHtmlStart"`
	GameLoadStart    *float64 `json:"gameLoadStart"`
	GameReadyAt      *float64 `json:"gameReadyAt"`
	FirstFrameAt     *float64 `json:"firstFrameAt"`
	FirstFrameDelta  *float64 `json:"firstFrameDelta"`
	FirstFps         *float64 `json:"firstFps"`
	ChunkLoadingTime *float64 `json:"chunkLoadingTime"`
	RenderCaching5   *float64 `json:"renderCaching5"`
	AvgChunkLoad     *float64 `json:"avgChunkLoad"`
}

// Points maps timestamp marker names to milliseconds. JSON output follows
// marker order.
type Points map[string]*float64

// Values maps metric keys to derived values. JSON output follows registry
// order.
type Values map[string]*float64

// RunResult is the record of one trial. A failed trial carries Error and
// empty Points/Values.
type RunResult struct {
	Run    int    `json:"run"`
	Points Points `json:"points"`
	Values Values `json:"values"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the trial ended in an error.
func (r RunResult) Failed() bool {
	return r.Error != ""
}

// FailedRun builds the record of a trial that did not produce metrics.
func FailedRun(run int, err error) RunResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return RunResult{Run: run, Points: Points{}, Values: Values{}, Error: msg}
}

// Diff returns a-b when both are finite, nil otherwise.
func Diff(a, b *float64) *float64 {
	a, b = finite(a), finite(b)
	if a == nil || b == nil {
		return nil
	}
	return stats.Ptr(*a - *b)
}

// ComputeRun derives the registered metrics from raw markers. Missing or
// non-finite inputs yield nil values; it never fails.
func ComputeRun(run int, raw Raw) RunResult {
	points := Points{
		MarkerGameHTMLStart: finite(raw.GameHTMLStart),
		MarkerGameLoadStart: finite(raw.GameLoadStart),
		MarkerGameReadyAt:   finite(raw.GameReadyAt),
		MarkerFirstFrameAt:  finite(raw.FirstFrameAt),
	}

	delta := finite(raw.FirstFrameDelta)
	fps := finite(raw.FirstFps)
	if fps == nil && delta != nil && *delta > 0 {
		fps = stats.Ptr(1000 / *delta)
	}

	values := Values{
		LoadScreenBoot:    Diff(raw.GameLoadStart, raw.GameHTMLStart),
		LoadingScreen:     Diff(raw.GameReadyAt, raw.GameLoadStart),
		LoadingFirstFrame: Diff(raw.FirstFrameAt, raw.GameReadyAt),
		FirstFrameDelta:   delta,
		FirstFps:          fps,
		ChunkLoadingTime:  finite(raw.ChunkLoadingTime),
		RenderCaching5:    finite(raw.RenderCaching5),
		AvgChunkLoad:      finite(raw.AvgChunkLoad),
	}

	return RunResult{Run: run, Points: points, Values: values}
}

func finite(v *float64) *float64 {
	if v == nil || !stats.IsFinite(*v) {
		return nil
	}
	return stats.Ptr(*v)
}

func (p Points) MarshalJSON() ([]byte, error) {
	return marshalOrdered(markerKeys, p)
}

func (v Values) MarshalJSON() ([]byte, error) {
	return marshalOrdered(Keys(), v)
}

// marshalOrdered writes the entries of m in keys order. Keys absent from m
// are skipped.
func marshalOrdered[V any](keys []string, m map[string]V) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
