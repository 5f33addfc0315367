package diagnostic

import (
	"context"
	"strings"
	"testing"

	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

const optimalLookupPlan = `-> Single-row index lookup on users using PRIMARY (id=1) (cost=0.35 rows=1) (actual time=0.020..0.025 rows=1 loops=1)`

const fullScanPlan = `-> Table scan on orders (cost=98321.50 rows=498213) (actual time=0.412..812.553 rows=498213 loops=1)`

func TestRunOptimalAccessHappyPath(t *testing.T) {
	in := Inputs{
		PlanText: optimalLookupPlan,
		SQL:      "SELECT * FROM users WHERE id = 1",
		Env:      &metrics.EnvironmentContext{},
	}
	cfg := DefaultConfig()

	rep, err := Run(context.Background(), in, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rep == nil {
		t.Fatal("Run returned a nil report")
	}

	if !rep.Metrics.ParsingValid {
		t.Error("expected ParsingValid for a plan with a measurement block")
	}
	if rep.Metrics.PrimaryAccessType != metrics.AccessSingleRowLookup {
		t.Errorf("PrimaryAccessType = %v, want AccessSingleRowLookup", rep.Metrics.PrimaryAccessType)
	}
	if rep.Metrics.HasTableScan {
		t.Error("a single-row lookup should not report HasTableScan")
	}
	if rep.Scoring.Composite <= 0 {
		t.Errorf("Composite = %v, want > 0 for an optimal access path", rep.Scoring.Composite)
	}
	if rep.Scoring.Grade == "" {
		t.Error("expected a non-empty grade")
	}
	for _, f := range rep.Findings {
		if f.Category == "index" && !f.Suppressed {
			t.Errorf("expected index findings to be suppressed for optimal access, got active finding %q", f.Title)
		}
	}
	if !rep.Passed {
		t.Error("expected Passed=true when there is no critical finding")
	}
}

func TestRunFullTableScanBadPath(t *testing.T) {
	in := Inputs{
		PlanText: fullScanPlan,
		SQL:      "SELECT * FROM orders WHERE status = 'pending'",
		Env:      &metrics.EnvironmentContext{},
	}
	cfg := DefaultConfig()

	rep, err := Run(context.Background(), in, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if rep.Metrics.PrimaryAccessType != metrics.AccessTableScan {
		t.Errorf("PrimaryAccessType = %v, want AccessTableScan", rep.Metrics.PrimaryAccessType)
	}
	if !rep.Metrics.HasTableScan {
		t.Error("expected HasTableScan=true")
	}
	if rep.Metrics.RowsExamined != 498213 {
		t.Errorf("RowsExamined = %d, want 498213", rep.Metrics.RowsExamined)
	}

	var foundScanFinding bool
	for _, f := range rep.Findings {
		if strings.Contains(strings.ToLower(f.Title), "scan") || strings.Contains(strings.ToLower(f.Title), "index") {
			foundScanFinding = true
		}
	}
	if !foundScanFinding {
		t.Error("expected at least one scan/index-related finding for an unindexed full table scan")
	}
	if rep.TopRecommendation == "" {
		t.Error("expected a non-empty top recommendation for a full table scan with no suppressing root cause")
	}
}

func TestRunEmptyPlanIsInvalidButDoesNotError(t *testing.T) {
	in := Inputs{
		PlanText: "",
		SQL:      "SELECT 1",
	}
	rep, err := Run(context.Background(), in, DefaultConfig())
	if err != nil {
		t.Fatalf("Run returned error on empty plan: %v", err)
	}
	if rep.Metrics.ParsingValid {
		t.Error("expected ParsingValid=false for empty plan text")
	}
	var foundParseFinding bool
	for _, f := range rep.Findings {
		if f.Category == "parse" {
			foundParseFinding = true
		}
	}
	if !foundParseFinding {
		t.Error("expected a parse-category finding when the plan has no measurements")
	}
}

func TestRunRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := Inputs{PlanText: optimalLookupPlan, SQL: "SELECT 1"}
	rep, err := Run(ctx, in, DefaultConfig())
	if err == nil {
		t.Fatal("expected an error for an already-cancelled context")
	}
	if rep != nil {
		t.Error("expected a nil report on immediate cancellation")
	}
}
