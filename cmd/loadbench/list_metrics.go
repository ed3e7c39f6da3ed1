// cmd/loadbench/list_metrics.go
package loadbench

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mwiater/loadbench/internal/metrics"
)

// listMetricsCmd implements 'list metrics', which prints the metric
// registry in report order.
var listMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the reported load-time metrics",
	Long:  `The 'metrics' subcommand lists every derived metric with its report key, label and unit, in the order used by the JSON and Markdown reports.`,
	Run: func(cmd *cobra.Command, args []string) {
		listMetrics(cmd.OutOrStdout())
	},
}

func init() {
	listCmd.AddCommand(listMetricsCmd)
}

func listMetrics(w io.Writer) {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	rows := make([][]string, 0, len(metrics.Keys()))
	for _, d := range metrics.Definitions() {
		rows = append(rows, []string{d.Key, d.Label, string(d.Unit)})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
		Headers("Key", "Label", "Unit").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}
