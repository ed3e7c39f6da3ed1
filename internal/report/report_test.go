package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwiater/loadbench/internal/bench"
	"github.com/mwiater/loadbench/internal/metrics"
	"github.com/mwiater/loadbench/internal/source"
	"github.com/mwiater/loadbench/internal/stats"
)

func f(v float64) *float64 { return stats.Ptr(v) }

func samplePayload() bench.Payload {
	return bench.Payload{
		GeneratedAt: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
		Mode:        "playwright",
		Runs:        3,
		URL:         "http://127.0.0.1:8080/",
		Environment: bench.Environment{
			Platform: "linux", Arch: "amd64", CPUs: 8, GoVersion: "go1.24.0",
			Hostname: "bench-01", Browser: "HeadlessChrome/126.0", UserAgent: "Mozilla/5.0",
		},
		Metrics: bench.PerRun{PerRun: []metrics.RunResult{
			metrics.ComputeRun(1, source.SyntheticRaw(1)),
			metrics.FailedRun(2, errors.New("wait for gameReady: timed out | after 120s")),
			metrics.ComputeRun(3, source.SyntheticRaw(3)),
		}},
		Aggregates: metrics.Aggregates{
			metrics.LoadScreenBoot: stats.Summary{Unit: "ms", Count: 3, Mean: f(42.123), Median: f(40), P95: f(55), Min: f(38), Max: f(60)},
		},
	}
}

func TestMarkdown_AggregateRow(t *testing.T) {
	md := Markdown(samplePayload())
	assert.Contains(t, md, "| Load screen boot | 42.12 | 40.00 | 55.00 | 38.00 | 60.00 | ms |")
	// absent aggregates render as dashes with the registry unit
	assert.Contains(t, md, "| First frame FPS | - | - | - | - | - | fps |")
	assert.Contains(t, md, "| Metric | Mean | Median | P95 | Min | Max | Unit |")
}

func TestMarkdown_AggregateOrder(t *testing.T) {
	md := Markdown(samplePayload())
	prev := -1
	for _, d := range metrics.Definitions() {
		idx := strings.Index(md, "| "+d.Label+" |")
		require.Greater(t, idx, prev, d.Label)
		prev = idx
	}
}

func TestMarkdown_FailedRunRow(t *testing.T) {
	md := Markdown(samplePayload())
	want := "| 2 | - | - | - | - | - | - | - | - | wait for gameReady: timed out \\| after 120s |"
	assert.Contains(t, md, want)

	var okRow string
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "| 1 |") {
			okRow = line
		}
	}
	require.NotEmpty(t, okRow)
	assert.True(t, strings.HasSuffix(okRow, "| - |"), okRow)
	cells := strings.Split(strings.Trim(okRow, "| "), " | ")
	assert.Len(t, cells, 10)
}

func TestMarkdown_Environment(t *testing.T) {
	md := Markdown(samplePayload())
	assert.Contains(t, md, "- Generated: 2026-10-19T09:30:00Z")
	assert.Contains(t, md, "- Mode: playwright")
	assert.Contains(t, md, "- Runs: 3 (2 succeeded)")
	assert.Contains(t, md, "- Platform: linux/amd64")
	assert.Contains(t, md, "- Browser: HeadlessChrome/126.0")
}

func TestMarkdown_Pure(t *testing.T) {
	p := samplePayload()
	assert.Equal(t, Markdown(p), Markdown(p))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "-", Num(nil))
	assert.Equal(t, "42.12", Num(f(42.123)))
	assert.Equal(t, "0.00", Num(f(0)))
	assert.Equal(t, "62.50", Num(f(62.5)))
}

func TestJSON_RoundTripsAndKeepsOrder(t *testing.T) {
	b, err := JSON(samplePayload())
	require.NoError(t, err)
	s := string(b)
	assert.True(t, strings.HasPrefix(s, "{\n  \"generatedAt\": \"2026-10-19T09:30:00Z\",\n  \"mode\": \"playwright\","), s)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	perRun := decoded["metrics"].(map[string]any)["perRun"].([]any)
	require.Len(t, perRun, 3)
	failed := perRun[1].(map[string]any)
	assert.Equal(t, map[string]any{}, failed["values"])
	assert.Contains(t, failed["error"], "gameReady")
}

func TestWrite_Overwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p := samplePayload()

	jsonPath, mdPath, err := Write(dir, p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, JSONFile), jsonPath)
	assert.Equal(t, filepath.Join(dir, MarkdownFile), mdPath)

	p.Mode = "mock"
	_, _, err = Write(dir, p)
	require.NoError(t, err)

	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mode": "mock"`)
	assert.NotContains(t, string(b), `"mode": "playwright"`)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, Markdown(p), string(md))
}

func TestConsole(t *testing.T) {
	out := Console(samplePayload())
	assert.Contains(t, out, "Load-time benchmark (playwright)")
	assert.Contains(t, out, "2/3 trials succeeded")
	assert.Contains(t, out, "Load screen boot")
	assert.Contains(t, out, "42.12")
	assert.Contains(t, out, "run 2: wait for gameReady")
}
