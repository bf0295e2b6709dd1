// Package aggregate folds per-file metric pairs into per-commit means.
package aggregate

import (
	"math"

	"github.com/kaizenlab/codedrift/internal/pymetrics"
	"github.com/kaizenlab/codedrift/internal/store"
)

// FileDelta couples the before and after measurements of one changed
// file. A nil side means the snapshot was missing or unparseable.
type FileDelta struct {
	Path   string
	Before *pymetrics.MetricSet
	After  *pymetrics.MetricSet
}

// Accumulate drops deltas with an undefined side and computes, per
// metric, the exact mean of before values and of after values over the
// survivors. Pairs whose Halstead family is undefined on either side
// are skipped for those metrics; a metric no pair defines becomes NaN.
// No survivors means no summary.
func Accumulate(repoURL, sha string, deltas []FileDelta) (*store.Summary, bool) {
	n := len(pymetrics.MetricNames)

	beforeSum := make([]float64, n)
	afterSum := make([]float64, n)
	counts := make([]int, n)
	survivors := 0

	for _, d := range deltas {
		if d.Before == nil || d.After == nil {
			continue
		}

		survivors++

		bv, av := d.Before.Values(), d.After.Values()

		for i := range n {
			if math.IsNaN(bv[i]) || math.IsNaN(av[i]) {
				continue
			}

			beforeSum[i] += bv[i]
			afterSum[i] += av[i]
			counts[i]++
		}
	}

	if survivors == 0 {
		return nil, false
	}

	before := make([]float64, n)
	after := make([]float64, n)

	for i := range n {
		if counts[i] == 0 {
			before[i], after[i] = math.NaN(), math.NaN()

			continue
		}

		before[i] = beforeSum[i] / float64(counts[i])
		after[i] = afterSum[i] / float64(counts[i])
	}

	return &store.Summary{RepoURL: repoURL, SHA: sha, Before: before, After: after}, true
}
