package drift

import (
	"testing"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

func newMetrics(table string, estimated, actual float64) *metrics.Metrics {
	return &metrics.Metrics{
		PerTableEstimates: map[string]metrics.TableEstimate{
			table: {Table: table, EstimatedRows: estimated, ActualRows: actual},
		},
	}
}

func TestAnalyzeAccurateEstimateNoFinding(t *testing.T) {
	m := newMetrics("users", 1000, 1010)
	res := Analyze(m, DefaultConfig())
	if len(res.Findings) != 0 {
		t.Errorf("expected no findings for a near-accurate estimate, got %d", len(res.Findings))
	}
	if len(res.PerTable) != 1 {
		t.Fatalf("expected 1 per-table record, got %d", len(res.PerTable))
	}
	if res.PerTable[0].Severity != SeverityInfo {
		t.Errorf("Severity = %q, want info", res.PerTable[0].Severity)
	}
}

func TestAnalyzeSevereDriftIsCritical(t *testing.T) {
	m := newMetrics("orders", 100, 100_000)
	res := Analyze(m, DefaultConfig())
	if len(res.PerTable) != 1 || res.PerTable[0].Severity != SeverityCritical {
		t.Fatalf("expected SeverityCritical, got %+v", res.PerTable)
	}
	if res.PerTable[0].Direction != DirectionUnder {
		t.Errorf("Direction = %q, want under (actual >> estimated)", res.PerTable[0].Direction)
	}
	if len(res.TablesNeedingAnalyze) != 1 || res.TablesNeedingAnalyze[0] != "orders" {
		t.Errorf("TablesNeedingAnalyze = %v, want [orders]", res.TablesNeedingAnalyze)
	}
	var found bool
	for _, f := range res.Findings {
		if f.Category == finding.CategoryDrift && f.Severity == finding.Critical {
			found = true
		}
	}
	if !found {
		t.Error("expected a critical drift finding")
	}
}

func TestAnalyzeOverEstimateDirection(t *testing.T) {
	m := newMetrics("archive", 1_000_000, 10)
	res := Analyze(m, DefaultConfig())
	if res.PerTable[0].Direction != DirectionOver {
		t.Errorf("Direction = %q, want over", res.PerTable[0].Direction)
	}
}

func TestAnalyzeCompositeDriftIsActualWeighted(t *testing.T) {
	m := &metrics.Metrics{
		PerTableEstimates: map[string]metrics.TableEstimate{
			"small": {Table: "small", EstimatedRows: 10, ActualRows: 10},
			"big":   {Table: "big", EstimatedRows: 10, ActualRows: 1_000_000},
		},
	}
	res := Analyze(m, DefaultConfig())
	// the high-drift, high-actual-weight table should dominate the composite.
	if res.CompositeDrift < 0.9 {
		t.Errorf("CompositeDrift = %v, want close to 1 given the dominant large-actual table", res.CompositeDrift)
	}
}

func TestClassifySeverityThresholds(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		d    float64
		want Severity
	}{
		{0.1, SeverityInfo},
		{0.3, SeverityOptimization},
		{0.6, SeverityWarning},
		{0.95, SeverityCritical},
	}
	for _, tt := range tests {
		if got := classifySeverity(tt.d, cfg); got != tt.want {
			t.Errorf("classifySeverity(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
