package scalability

import (
	"testing"

	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/sqllite"
)

func TestAnalyzeConstantComplexityIsLowRisk(t *testing.T) {
	m := &metrics.Metrics{
		Complexity:      metrics.ComplexityConstant,
		ExecutionTimeMs: 1.0,
	}
	res := Analyze(m, nil, 1, 1_000_000)
	if res.Risk != "LOW" {
		t.Errorf("Risk = %q, want LOW", res.Risk)
	}
	if len(res.Findings) != 0 {
		t.Errorf("expected no findings for constant complexity, got %d", len(res.Findings))
	}
	if len(res.LimitProjections) != 3 {
		t.Errorf("expected 3 limit projections, got %d", len(res.LimitProjections))
	}
}

func TestAnalyzeLargeUnindexedScanIsHighRisk(t *testing.T) {
	m := &metrics.Metrics{
		Complexity:        metrics.ComplexityLinear,
		ExecutionTimeMs:   500.0,
		HasTableScan:      true,
		IsIntentionalScan: false,
	}
	res := Analyze(m, nil, 50_000, 5_000_000)
	if res.Risk != "HIGH" {
		t.Errorf("Risk = %q, want HIGH", res.Risk)
	}
	if len(res.Findings) == 0 {
		t.Fatal("expected a scalability finding for a high-risk projection")
	}
	if res.Findings[0].Category != "scalability" {
		t.Errorf("Category = %q, want scalability", res.Findings[0].Category)
	}
}

func TestAnalyzeIntentionalScanDowngradesHighToMedium(t *testing.T) {
	m := &metrics.Metrics{
		Complexity:        metrics.ComplexityLinear,
		ExecutionTimeMs:   500.0,
		HasTableScan:      true,
		IsIntentionalScan: true,
	}
	res := Analyze(m, nil, 50_000, 5_000_000)
	if res.Risk != "MEDIUM" {
		t.Errorf("Risk = %q, want MEDIUM for an intentional scan", res.Risk)
	}
}

func TestAnalyzeQuadraticComplexityIsHighRisk(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityQuadratic, ExecutionTimeMs: 10}
	res := Analyze(m, nil, 1000, 10000)
	if res.Risk != "HIGH" {
		t.Errorf("Risk = %q, want HIGH", res.Risk)
	}
}

func TestAnalyzeProjectedMsGrowsWithTargetRows(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityLinear, ExecutionTimeMs: 100}
	small := Analyze(m, nil, 1000, 2000)
	large := Analyze(m, nil, 1000, 1_000_000)
	if large.ProjectedMs <= small.ProjectedMs {
		t.Errorf("expected a larger target to project a larger cost: small=%v large=%v", small.ProjectedMs, large.ProjectedMs)
	}
}

func TestAnalyzeConfidenceDegradesWithProjectionDistance(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityLinear, ExecutionTimeMs: 100}
	near := Analyze(m, nil, 1000, 5000)
	far := Analyze(m, nil, 1000, 10_000_000)
	if near.Confidence != "high" {
		t.Errorf("near projection Confidence = %q, want high", near.Confidence)
	}
	if far.Confidence != "low" {
		t.Errorf("far projection Confidence = %q, want low", far.Confidence)
	}
}

func TestLinearSubtypeExportLinear(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityLinear, IsIntentionalScan: true}
	info := &sqllite.Info{SelectColumns: map[string][]string{"t": {"a"}}}
	res := Analyze(m, info, 1000, 1000)
	if res.LinearSubtype != SubtypeExportLinear {
		t.Errorf("LinearSubtype = %q, want %q", res.LinearSubtype, SubtypeExportLinear)
	}
}

func TestLinearSubtypeAnalyticalLinear(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityLinear}
	info := &sqllite.Info{HasGroupBy: true}
	res := Analyze(m, info, 1000, 1000)
	if res.LinearSubtype != SubtypeAnalyticalLinear {
		t.Errorf("LinearSubtype = %q, want %q", res.LinearSubtype, SubtypeAnalyticalLinear)
	}
}

func TestLinearSubtypeIndexMissedLinear(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityLinear, HasTableScan: true}
	info := &sqllite.Info{Predicates: []sqllite.Predicate{{Kind: sqllite.PredicateEquality}}}
	res := Analyze(m, info, 1000, 1000)
	if res.LinearSubtype != SubtypeIndexMissedLinear {
		t.Errorf("LinearSubtype = %q, want %q", res.LinearSubtype, SubtypeIndexMissedLinear)
	}
}

func TestLinearSubtypePathologicalFallback(t *testing.T) {
	m := &metrics.Metrics{Complexity: metrics.ComplexityLinear}
	res := Analyze(m, nil, 1000, 1000)
	if res.LinearSubtype != SubtypePathological {
		t.Errorf("LinearSubtype = %q, want %q", res.LinearSubtype, SubtypePathological)
	}
}

func TestLimitProjectionCapsAtOriginalCostWithOrderBy(t *testing.T) {
	m := &metrics.Metrics{
		Complexity:        metrics.ComplexityLinear,
		ExecutionTimeMs:   1000,
		RowsExamined:      1_000_000,
		IsIntentionalScan: true,
	}
	info := &sqllite.Info{HasOrderBy: true}
	res := Analyze(m, info, 1_000_000, 1_000_000)
	for _, p := range res.LimitProjections {
		if p.ProjectedMs != m.ExecutionTimeMs {
			t.Errorf("limit=%d ProjectedMs = %v, want unchanged %v when ORDER BY prevents early termination", p.Limit, p.ProjectedMs, m.ExecutionTimeMs)
		}
	}
}
