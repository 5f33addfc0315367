package stability

import (
	"testing"

	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/planparse"
)

func TestAnalyzeNilTreeIsStable(t *testing.T) {
	res := Analyze(nil, "SELECT 1", nil)
	if res.Label != LabelStable {
		t.Errorf("Label = %q, want stable", res.Label)
	}
	if res.Volatility != 0 {
		t.Errorf("Volatility = %d, want 0", res.Volatility)
	}
}

func TestAnalyzeAccurateEstimatesAreStable(t *testing.T) {
	tree := planparse.Parse(`-> Index lookup on users using idx (actual time=0.01..0.02 rows=10 loops=1)`)
	res := Analyze(tree, "SELECT * FROM users WHERE age > 10", nil)
	if res.Label != LabelStable {
		t.Errorf("Label = %q, want stable for an estimate-only/measurement-consistent node", res.Label)
	}
}

func TestAnalyzeLargeDriftIsVolatile(t *testing.T) {
	driftResult := &drift.Result{
		CompositeDrift: 2.0,
		PerTable: []drift.TableDrift{
			{Table: "orders", Drift: 0.9},
		},
	}
	res := Analyze(nil, "SELECT * FROM orders", driftResult)
	if res.Label != LabelVolatile {
		t.Errorf("Label = %q, want volatile", res.Label)
	}
	if len(res.DriftContributors) != 1 || res.DriftContributors[0] != "orders" {
		t.Errorf("DriftContributors = %v, want [orders]", res.DriftContributors)
	}
	if len(res.Findings) == 0 {
		t.Error("expected a volatile-plan finding")
	}
}

func TestAnalyzeHintUsageLowersVolatility(t *testing.T) {
	driftResult := &drift.Result{CompositeDrift: 1.0}
	withoutHint := Analyze(nil, "SELECT * FROM orders", driftResult)
	withHint := Analyze(nil, "SELECT * FROM orders FORCE INDEX (idx_a)", driftResult)
	if withHint.Volatility >= withoutHint.Volatility {
		t.Errorf("expected a FORCE INDEX hint to lower volatility: with=%d without=%d", withHint.Volatility, withoutHint.Volatility)
	}
}

func TestAnalyzeVolatilityClampedToRange(t *testing.T) {
	driftResult := &drift.Result{CompositeDrift: 100.0}
	res := Analyze(nil, "SELECT 1", driftResult)
	if res.Volatility > 100 {
		t.Errorf("Volatility = %d, should be clamped to 100", res.Volatility)
	}
}
