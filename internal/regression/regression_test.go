package regression

import (
	"testing"

	"github.com/mpaulson/sqlsentinel/internal/baseline"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

func newStore(t *testing.T) baseline.Store {
	t.Helper()
	store, err := baseline.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestAnalyzeNoBaselineHistoryIsUnknownTrend(t *testing.T) {
	store := newStore(t)
	m := &metrics.Metrics{ExecutionTimeMs: 10, RowsExamined: 100}
	res, err := Analyze(store, "h1", m, 90, nil, 1, DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.HasBaseline {
		t.Error("expected HasBaseline=false with no prior snapshots")
	}
	if res.Trend != TrendUnknown {
		t.Errorf("Trend = %q, want unknown", res.Trend)
	}
	if len(res.Findings) != 0 {
		t.Errorf("expected no findings, got %+v", res.Findings)
	}

	snaps, err := store.Load("h1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snaps) != 1 {
		t.Errorf("expected Analyze to save a snapshot even with no prior baseline, got %d", len(snaps))
	}
}

func TestAnalyzeScoreRegressionDetected(t *testing.T) {
	store := newStore(t)
	store.Save("h2", baseline.Snapshot{CompositeScore: 100, ExecutionTimeMs: 1}, 0)

	m := &metrics.Metrics{ExecutionTimeMs: 1, RowsExamined: 100}
	res, err := Analyze(store, "h2", m, 70, nil, 1, DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.HasBaseline {
		t.Fatal("expected HasBaseline=true")
	}
	var found bool
	for _, f := range res.Findings {
		if f.Title == "Composite score regression" {
			found = true
			if f.Severity != finding.High {
				t.Errorf("Severity = %v, want high for a 30%% composite drop", f.Severity)
			}
		}
	}
	if !found {
		t.Errorf("expected a 'Composite score regression' finding, got %+v", res.Findings)
	}
}

func TestAnalyzeExecutionTimeRegressionDetected(t *testing.T) {
	store := newStore(t)
	store.Save("h3", baseline.Snapshot{CompositeScore: 90, ExecutionTimeMs: 10, RowsExamined: 100}, 0)

	m := &metrics.Metrics{ExecutionTimeMs: 50, RowsExamined: 100}
	res, err := Analyze(store, "h3", m, 90, nil, 1, DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var found bool
	for _, f := range res.Findings {
		if f.Title == "Execution time regression" {
			found = true
			if f.Severity != finding.High {
				t.Errorf("Severity = %v, want high for a 400%% time increase", f.Severity)
			}
		}
	}
	if !found {
		t.Errorf("expected an 'Execution time regression' finding, got %+v", res.Findings)
	}
}

func TestAnalyzeDataGrowthNotQueryRegression(t *testing.T) {
	store := newStore(t)
	store.Save("h4", baseline.Snapshot{CompositeScore: 90, ExecutionTimeMs: 10, RowsExamined: 100}, 0)

	// rows tripled (200% growth), execution time tripled too: per-row cost is flat.
	m := &metrics.Metrics{ExecutionTimeMs: 30, RowsExamined: 300}
	res, err := Analyze(store, "h4", m, 90, nil, 1, DefaultConfig(), 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var growth, regression bool
	for _, f := range res.Findings {
		if f.Title == "Execution time grew with the data, not the query" {
			growth = true
			if f.Severity != finding.Info {
				t.Errorf("Severity = %v, want info for a data-growth explanation", f.Severity)
			}
			if f.Metadata["classification"] != string(ClassificationDataGrowth) {
				t.Errorf("classification = %q, want %q", f.Metadata["classification"], ClassificationDataGrowth)
			}
		}
		if f.Title == "Execution time regression" {
			regression = true
		}
	}
	if !growth {
		t.Errorf("expected a data-growth finding, got %+v", res.Findings)
	}
	if regression {
		t.Error("did not expect a plain 'Execution time regression' finding when the slowdown tracks data growth")
	}
}

func TestComparePlanAccessPathRegression(t *testing.T) {
	findings := comparePlan(1, 3)
	if len(findings) != 1 {
		t.Fatalf("comparePlan = %+v, want one finding when severity worsens", findings)
	}
	f := findings[0]
	if f.Title != "Access path regressed" || f.Severity != finding.Medium {
		t.Errorf("finding = %+v, want Medium 'Access path regressed'", f)
	}
	if f.Metadata["classification"] != string(ClassificationPlanChange) {
		t.Errorf("classification = %q, want %q", f.Metadata["classification"], ClassificationPlanChange)
	}
}

func TestComparePlanNoRegressionWhenSeverityHoldsOrImproves(t *testing.T) {
	if got := comparePlan(3, 3); got != nil {
		t.Errorf("comparePlan(3,3) = %+v, want nil", got)
	}
	if got := comparePlan(3, 1); got != nil {
		t.Errorf("comparePlan(3,1) = %+v, want nil for an improved access path", got)
	}
}

func TestAnalyzeDegradingTrendOverHistoryWindow(t *testing.T) {
	store := newStore(t)
	cfg := DefaultConfig() // HistoryTrendWindow = 3
	// Seed a strictly-decreasing history of composite scores.
	store.Save("h5", baseline.Snapshot{CompositeScore: 100, ExecutionTimeMs: 1}, 0)
	store.Save("h5", baseline.Snapshot{CompositeScore: 90, ExecutionTimeMs: 1}, 0)
	store.Save("h5", baseline.Snapshot{CompositeScore: 80, ExecutionTimeMs: 1}, 0)

	m := &metrics.Metrics{ExecutionTimeMs: 1, RowsExamined: 10}
	res, err := Analyze(store, "h5", m, 75, nil, 1, cfg, 0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Trend != TrendDegrading {
		t.Errorf("Trend = %q, want degrading over the last %d recorded runs", res.Trend, cfg.HistoryTrendWindow)
	}
	var found bool
	for _, f := range res.Findings {
		if f.Title == "Degrading performance trend" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'Degrading performance trend' finding")
	}
}

func TestTrendOfRequiresFullWindow(t *testing.T) {
	cfg := DefaultConfig()
	history := []baseline.Snapshot{{CompositeScore: 100}, {CompositeScore: 90}}
	if got := trendOf(history, cfg); got != TrendUnknown {
		t.Errorf("trendOf = %q, want unknown when history is shorter than the trend window", got)
	}
}

func TestAnalyzeThreadsMaxSnapshotsPerHash(t *testing.T) {
	store := newStore(t)
	m := &metrics.Metrics{ExecutionTimeMs: 1, RowsExamined: 10}
	for i := 0; i < 5; i++ {
		if _, err := Analyze(store, "h6", m, 90, nil, 1, DefaultConfig(), 3); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
	}
	snaps, err := store.Load("h6")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snaps) != 3 {
		t.Errorf("len(snaps) = %d, want 3 once maxSnapshotsPerHash trimming is threaded through Save", len(snaps))
	}
}
