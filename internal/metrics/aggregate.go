// internal/metrics/aggregate.go
// Package: metrics
package metrics

import "github.com/mwiater/loadbench/internal/stats"

// Aggregates maps metric keys to their cross-run summary. JSON output
// follows registry order.
type Aggregates map[string]stats.Summary

func (a Aggregates) MarshalJSON() ([]byte, error) {
	return marshalOrdered(Keys(), a)
}

// BuildAggregates summarizes every registered metric across runs. Failed
// runs carry no values and therefore contribute nothing.
func BuildAggregates(runs []RunResult) Aggregates {
	out := make(Aggregates, len(definitions))
	for _, def := range definitions {
		column := make([]*float64, 0, len(runs))
		for _, r := range runs {
			column = append(column, r.Values[def.Key])
		}
		out[def.Key] = stats.Summarize(column, string(def.Unit))
	}
	return out
}
