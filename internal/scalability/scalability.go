// Package scalability implements C5: fixed/variable cost separation and
// dataset-size projection.
package scalability

import (
	"fmt"
	"math"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/sqllite"
)

// LinearSubtype further classifies Linear-complexity queries per spec
// §4.4, since "O(n)" alone conflates very different risk profiles.
type LinearSubtype string

const (
	SubtypeExportLinear      LinearSubtype = "EXPORT_LINEAR"
	SubtypeAnalyticalLinear  LinearSubtype = "ANALYTICAL_LINEAR"
	SubtypeIndexMissedLinear LinearSubtype = "INDEX_MISSED_LINEAR"
	SubtypePathological      LinearSubtype = "PATHOLOGICAL_LINEAR"
)

// LimitProjection is one {100,500,1000} LIMIT-sensitivity estimate.
type LimitProjection struct {
	Limit       int
	ProjectedMs float64
}

// Result is the full C5 output.
type Result struct {
	FixedMs    float64
	VariableMs float64

	TargetRows      int64
	ProjectedMs     float64
	ProjectedLowerMs float64
	ProjectedUpperMs float64
	Confidence      string

	Risk string

	LimitProjections []LimitProjection
	LinearSubtype    LinearSubtype

	Findings []finding.Finding
}

// Analyze runs C5 for the given current-row count and a target size to
// project to.
func Analyze(m *metrics.Metrics, sqlInfo *sqllite.Info, currentRows, targetRows int64) Result {
	fixedRatio := fixedRatio(currentRows)
	fixedMs := m.ExecutionTimeMs * fixedRatio
	variableMs := m.ExecutionTimeMs * (1 - fixedRatio)

	factor := pageFactor(currentRows, targetRows)
	growth := growthFactor(m.Complexity, factor, currentRows, targetRows)
	projected := fixedMs + variableMs*growth

	confidence, uncertainty := confidenceFor(currentRows, targetRows)
	lower := projected * (1 - uncertainty)
	upper := projected * (1 + uncertainty)

	risk := riskFor(m, currentRows)

	res := Result{
		FixedMs:          fixedMs,
		VariableMs:       variableMs,
		TargetRows:       targetRows,
		ProjectedMs:      projected,
		ProjectedLowerMs: lower,
		ProjectedUpperMs: upper,
		Confidence:       confidence,
		Risk:             risk,
	}

	hasOrderBy := sqlInfo != nil && sqlInfo.HasOrderBy
	for _, limit := range []int{100, 500, 1000} {
		res.LimitProjections = append(res.LimitProjections, limitProjection(m, hasOrderBy, limit))
	}

	if m.Complexity == metrics.ComplexityLinear {
		res.LinearSubtype = linearSubtype(m, sqlInfo)
	}

	if risk == "HIGH" {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Medium,
			Category:    finding.CategoryScalability,
			Title:       "High scalability risk",
			Description: fmt.Sprintf("Projected cost at %d rows grows at %s complexity.", targetRows, m.Complexity.Label()),
			Recommendation: "Add a covering index or bound the scan with a selective predicate before this query runs against a larger dataset.",
			Metadata: map[string]string{"target_rows": fmt.Sprint(targetRows), "projected_ms": fmt.Sprintf("%.2f", projected)},
		})
	}

	return res
}

func fixedRatio(currentRows int64) float64 {
	switch {
	case currentRows <= 1:
		return 0.95
	case currentRows <= 100:
		return 0.5
	case currentRows <= 1000:
		return 0.2
	case currentRows <= 10000:
		return 0.1
	default:
		return 0.05
	}
}

func pageFactor(current, target int64) float64 {
	c := math.Max(math.Ceil(float64(current)/100), 1)
	t := math.Ceil(float64(target) / 100)
	return t / c
}

func growthFactor(c metrics.ComplexityClass, factor float64, current, target int64) float64 {
	switch c {
	case metrics.ComplexityConstant:
		return 1
	case metrics.ComplexityLogarithmic:
		return math.Log2(math.Max(factor, 1)) + 1
	case metrics.ComplexityLogRange:
		return math.Sqrt(math.Max(factor, 0))
	case metrics.ComplexityLinear:
		return factor
	case metrics.ComplexityLinearithmic:
		logTarget := math.Log2(math.Max(float64(target), 2))
		logCurrent := math.Max(math.Log2(math.Max(float64(current), 2)), 1)
		return factor * (logTarget / logCurrent)
	case metrics.ComplexityQuadratic:
		return factor * factor
	default:
		return factor
	}
}

func confidenceFor(current, target int64) (string, float64) {
	if current <= 0 {
		return "low", 0.6
	}
	r := float64(target) / float64(current)
	switch {
	case r <= 10:
		return "high", 0.1
	case r <= 1000:
		return "moderate", 0.3
	default:
		return "low", 0.6
	}
}

func riskFor(m *metrics.Metrics, currentRows int64) string {
	var risk string
	switch m.Complexity {
	case metrics.ComplexityConstant, metrics.ComplexityLogarithmic, metrics.ComplexityLogRange:
		return "LOW"
	case metrics.ComplexityQuadratic:
		risk = "HIGH"
	default: // Linear, Linearithmic
		risk = "MEDIUM"
		switch {
		case currentRows == 0 || (m.IsIntentionalScan && currentRows <= 1000):
			risk = "LOW"
		case m.HasTableScan && !m.IsIntentionalScan && currentRows > 10000:
			risk = "HIGH"
		}
	}
	if m.IsIntentionalScan && risk == "HIGH" {
		risk = "MEDIUM"
	}
	return risk
}

func limitProjection(m *metrics.Metrics, hasOrderBy bool, limit int) LimitProjection {
	if !hasOrderBy && (m.IsIntentionalScan || m.HasEarlyTermination) {
		ratio := float64(limit) / math.Max(float64(m.RowsExamined), 1)
		if ratio > 1 {
			ratio = 1
		}
		if ratio < 0.01 {
			ratio = 0.01
		}
		return LimitProjection{Limit: limit, ProjectedMs: m.ExecutionTimeMs * ratio}
	}
	return LimitProjection{Limit: limit, ProjectedMs: m.ExecutionTimeMs}
}

func linearSubtype(m *metrics.Metrics, sqlInfo *sqllite.Info) LinearSubtype {
	hasConcreteSelect := sqlInfo != nil && !sqlInfo.HasStar && len(sqlInfo.SelectColumns) > 0
	if m.IsIntentionalScan && hasConcreteSelect {
		return SubtypeExportLinear
	}
	if sqlInfo != nil && (sqlInfo.HasGroupBy || sqlInfo.HasAggregation) {
		return SubtypeAnalyticalLinear
	}
	hasEquality := sqlInfo != nil && hasEqualityPredicate(sqlInfo.Predicates)
	if m.HasTableScan && hasEquality {
		return SubtypeIndexMissedLinear
	}
	return SubtypePathological
}

func hasEqualityPredicate(preds []sqllite.Predicate) bool {
	for _, p := range preds {
		if p.Kind == sqllite.PredicateEquality {
			return true
		}
	}
	return false
}
