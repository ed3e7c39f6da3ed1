// internal/bench/types.go
// Package: bench
package bench

import (
	"time"

	"github.com/mwiater/loadbench/internal/metrics"
)

// Environment describes the machine and browser the benchmark ran on.
type Environment struct {
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	CPUs      int    `json:"cpus"`
	GoVersion string `json:"goVersion"`
	Hostname  string `json:"hostname"`
	Browser   string `json:"browser"`
	UserAgent string `json:"userAgent"`
}

// PerRun wraps the ordered run list.
type PerRun struct {
	PerRun []metrics.RunResult `json:"perRun"`
}

// Payload is the persisted result of one harness invocation.
type Payload struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Mode        string             `json:"mode"`
	Runs        int                `json:"runs"`
	URL         string             `json:"url"`
	Environment Environment        `json:"environment"`
	Metrics     PerRun             `json:"metrics"`
	Aggregates  metrics.Aggregates `json:"aggregates"`
}

// Succeeded counts runs that produced metrics.
func (p Payload) Succeeded() int {
	n := 0
	for _, r := range p.Metrics.PerRun {
		if !r.Failed() {
			n++
		}
	}
	return n
}
