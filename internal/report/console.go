// internal/report/console.go
// Package: report
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mwiater/loadbench/internal/bench"
	"github.com/mwiater/loadbench/internal/metrics"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Padding(0, 1)
	numberStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

// Console renders the aggregate table and the failed trials for the
// terminal.
func Console(p bench.Payload) string {
	var b strings.Builder

	status := okStyle.Render(fmt.Sprintf("%d/%d trials succeeded", p.Succeeded(), len(p.Metrics.PerRun)))
	if p.Succeeded() < len(p.Metrics.PerRun) {
		status = failStyle.Render(fmt.Sprintf("%d/%d trials succeeded", p.Succeeded(), len(p.Metrics.PerRun)))
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Load-time benchmark (%s)", p.Mode)))
	b.WriteString("  " + status + "\n")

	rows := make([][]string, 0, len(p.Aggregates))
	for _, d := range metrics.Definitions() {
		s := p.Aggregates[d.Key]
		rows = append(rows, []string{d.Label, Num(s.Mean), Num(s.Median), Num(s.P95), Num(s.Min), Num(s.Max), Num(s.Stddev), string(d.Unit), fmt.Sprintf("%d", s.Count)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("244"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return labelStyle
			}
			return numberStyle
		}).
		Headers("Metric", "Mean", "Median", "P95", "Min", "Max", "Stddev", "Unit", "N").
		Rows(rows...)
	b.WriteString(t.Render())
	b.WriteString("\n")

	for _, r := range p.Metrics.PerRun {
		if r.Failed() {
			b.WriteString(failStyle.Render(fmt.Sprintf("  run %d: %s", r.Run, r.Error)))
			b.WriteString("\n")
		}
	}
	return b.String()
}
