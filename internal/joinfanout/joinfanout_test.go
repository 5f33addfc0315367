package joinfanout

import (
	"testing"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/planparse"
)

func TestAnalyzeNilTreeReturnsEmptyResult(t *testing.T) {
	res := Analyze(nil)
	if res.Tier != "" {
		t.Errorf("Tier = %q, want empty for a nil tree", res.Tier)
	}
}

func TestAnalyzeContainedJoinHasNoFinding(t *testing.T) {
	text := "-> Nested loop inner join (actual time=0.1..5.2 rows=10 loops=1)\n" +
		"    -> Index lookup on orders using idx_user_id (actual time=0.05..1.0 rows=10 loops=1)\n" +
		"    -> Single-row index lookup on users using PRIMARY (actual time=0.01..0.02 rows=1 loops=10)"
	tree := planparse.Parse(text)
	res := Analyze(tree)
	if res.Tier != TierContained {
		t.Errorf("Tier = %q, want contained", res.Tier)
	}
	if len(res.Findings) != 0 {
		t.Errorf("expected no findings for a contained join, got %+v", res.Findings)
	}
}

func TestAnalyzeExponentialExplosionProducesCriticalFinding(t *testing.T) {
	root := &planparse.PlanNode{
		Operation: "driver", Table: "a", HasMeasurement: true, ActualRows: 10000, Loops: 1,
	}
	child := &planparse.PlanNode{
		Operation: "inner", Table: "b", HasMeasurement: true, ActualRows: 500, Loops: 10000,
	}
	root.Children = []*planparse.PlanNode{child}
	tree := &planparse.Tree{Roots: []*planparse.PlanNode{root}, Valid: true}

	res := Analyze(tree)
	if res.Tier != TierExponentialExplosion {
		t.Fatalf("Tier = %q, want exponential_explosion (explosion factor=%v)", res.Tier, res.ExplosionFactor)
	}
	var found bool
	for _, f := range res.Findings {
		if f.Title == "Exponential join explosion" && f.Severity == finding.Critical {
			found = true
		}
	}
	if !found {
		t.Error("expected a critical 'Exponential join explosion' finding")
	}
}

func TestAnalyzeHashJoinProducesInfoFinding(t *testing.T) {
	root := &planparse.PlanNode{
		Operation: "hash join", AccessType: metrics.AccessHashJoin, Table: "orders",
		HasMeasurement: true, ActualRows: 100, Loops: 1,
	}
	tree := &planparse.Tree{Roots: []*planparse.PlanNode{root}, Valid: true}
	res := Analyze(tree)
	var found bool
	for _, f := range res.Findings {
		if f.Title == "Hash join in use" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'Hash join in use' finding")
	}
}

func TestAnalyzeBlockNestedLoopProducesLowFinding(t *testing.T) {
	root := &planparse.PlanNode{
		Operation: "block nested loop", AccessType: metrics.AccessBlockNestedLoop, Table: "orders",
		HasMeasurement: true, ActualRows: 100, Loops: 1,
	}
	tree := &planparse.Tree{Roots: []*planparse.PlanNode{root}, Valid: true}
	res := Analyze(tree)
	var found bool
	for _, f := range res.Findings {
		if f.Title == "Block Nested Loop join in use" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'Block Nested Loop join in use' finding")
	}
}

func TestAnalyzeSkipsNeverExecutedNodes(t *testing.T) {
	root := &planparse.PlanNode{
		Operation: "driver", Table: "a", NeverExecuted: true, ActualRows: 1_000_000, Loops: 1_000_000,
	}
	tree := &planparse.Tree{Roots: []*planparse.PlanNode{root}, Valid: true}
	res := Analyze(tree)
	if len(res.PerStep) != 0 {
		t.Errorf("expected never-executed nodes to be excluded from PerStep, got %+v", res.PerStep)
	}
}
