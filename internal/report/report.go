// internal/report/report.go
// Package: report

// Package report renders a benchmark payload as JSON, Markdown and a
// terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/loadbench/internal/bench"
	"github.com/mwiater/loadbench/internal/metrics"
)

// Default file names inside the output directory.
const (
	JSONFile     = "load-metrics.json"
	MarkdownFile = "load-metrics.md"
)

// JSON renders the payload indented, keys in construction order.
func JSON(p bench.Payload) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Markdown renders the human-readable summary.
func Markdown(p bench.Payload) string {
	var b strings.Builder
	defs := metrics.Definitions()

	b.WriteString("# Load-time benchmark\n\n")
	fmt.Fprintf(&b, "- Generated: %s\n", p.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "- Runs: %d (%d succeeded)\n", p.Runs, p.Succeeded())
	fmt.Fprintf(&b, "- URL: %s\n", orDash(p.URL))

	env := p.Environment
	b.WriteString("\n## Environment\n\n")
	fmt.Fprintf(&b, "- Platform: %s/%s\n", orDash(env.Platform), orDash(env.Arch))
	fmt.Fprintf(&b, "- CPUs: %d\n", env.CPUs)
	fmt.Fprintf(&b, "- Go: %s\n", orDash(env.GoVersion))
	fmt.Fprintf(&b, "- Host: %s\n", orDash(env.Hostname))
	fmt.Fprintf(&b, "- Browser: %s\n", orDash(env.Browser))
	fmt.Fprintf(&b, "- User agent: %s\n", orDash(env.UserAgent))

	b.WriteString("\n## Aggregates\n\n")
	writeRow(&b, "Metric", "Mean", "Median", "P95", "Min", "Max", "Unit")
	writeRule(&b, 7)
	for _, d := range defs {
		s := p.Aggregates[d.Key]
		unit := s.Unit
		if unit == "" {
			unit = string(d.Unit)
		}
		writeRow(&b, d.Label, Num(s.Mean), Num(s.Median), Num(s.P95), Num(s.Min), Num(s.Max), unit)
	}

	b.WriteString("\n## Per run\n\n")
	header := []string{"Run"}
	for _, d := range defs {
		header = append(header, fmt.Sprintf("%s (%s)", d.Label, d.Unit))
	}
	header = append(header, "Error")
	writeRow(&b, header...)
	writeRule(&b, len(header))
	for _, r := range p.Metrics.PerRun {
		row := []string{fmt.Sprintf("%d", r.Run)}
		for _, d := range defs {
			if r.Failed() {
				row = append(row, "-")
				continue
			}
			row = append(row, Num(r.Values[d.Key]))
		}
		if r.Failed() {
			row = append(row, cell(r.Error))
		} else {
			row = append(row, "-")
		}
		writeRow(&b, row...)
	}
	return b.String()
}

// Num formats a value with two decimals, "-" when absent.
func Num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func writeRow(b *strings.Builder, cells ...string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func writeRule(b *strings.Builder, n int) {
	b.WriteString("|")
	b.WriteString(strings.Repeat(" --- |", n))
	b.WriteString("\n")
}

// cell keeps free text from breaking the table.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return cell(s)
}

// Write renders both reports into dir, replacing earlier files, and returns
// their paths.
func Write(dir string, p bench.Payload) (jsonPath, mdPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := JSON(p)
	if err != nil {
		return "", "", fmt.Errorf("encode json report: %w", err)
	}
	jsonPath = filepath.Join(dir, JSONFile)
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}
	mdPath = filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(mdPath, []byte(Markdown(p)), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}
	return jsonPath, mdPath, nil
}
