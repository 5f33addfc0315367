// Package stability implements C9: plan volatility scoring from per-node
// estimate/actual deviations.
package stability

import (
	"regexp"

	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/planparse"
)

var reHint = regexp.MustCompile(`(?i)\b(force index|use index|straight_join)\b`)

// Label is the coarse volatility band.
type Label string

const (
	LabelStable   Label = "stable"
	LabelModerate Label = "moderate"
	LabelVolatile Label = "volatile"
)

// Result is the full C9 output.
type Result struct {
	Volatility       int
	Label            Label
	DriftContributors []string
	Findings         []finding.Finding
}

// Analyze runs C9. sql is the raw SQL text (used for hint detection);
// driftResult is optional (nil if C8 was skipped).
func Analyze(tree *planparse.Tree, sql string, driftResult *drift.Result) Result {
	score := 0.0

	if tree != nil {
		tree.Walk(func(n *planparse.PlanNode) {
			if !n.HasEstimate || !n.HasMeasurement {
				return
			}
			est := n.EstimatedRows
			act := n.ActualRows
			if est <= 0 && act <= 0 {
				return
			}
			lo := minF(est, act)
			if lo < 1 {
				lo = 1
			}
			factor := maxF(est, act) / lo
			contribution := factor * 5
			if contribution > 25 {
				contribution = 25
			}
			score += contribution
		})
	}

	if reHint.MatchString(sql) {
		score -= 20
	}

	var contributors []string
	if driftResult != nil {
		score += round(driftResult.CompositeDrift * 30)
		for _, td := range driftResult.PerTable {
			if td.Drift > 0.5 {
				contributors = append(contributors, td.Table)
			}
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	volatility := int(score)

	label := LabelStable
	switch {
	case volatility >= 60:
		label = LabelVolatile
	case volatility >= 30:
		label = LabelModerate
	}

	res := Result{Volatility: volatility, Label: label, DriftContributors: contributors}
	if label == LabelVolatile {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Low,
			Category:    finding.CategoryStability,
			Title:       "Volatile execution plan",
			Description: "Row estimates deviate sharply from actuals across this plan, so the chosen access path may change between runs.",
			Recommendation: "Refresh table statistics and review any usage of FORCE INDEX/STRAIGHT_JOIN that may be masking the real cost.",
		})
	}
	return res
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int(f - 0.5))
	}
	return float64(int(f + 0.5))
}
