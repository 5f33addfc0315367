// Package joinfanout implements C12: per-step row multiplication analysis
// across a plan's join chain.
package joinfanout

import (
	"fmt"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/planparse"
)

// Tier is the explosion-factor classification band.
type Tier string

const (
	TierContained          Tier = "contained"
	TierLinearAmplification Tier = "linear_amplification"
	TierMultiplicativeRisk  Tier = "multiplicative_risk"
	TierExponentialExplosion Tier = "exponential_explosion"
)

// Step is one measured table's contribution to the join chain.
type Step struct {
	Table       string
	Rows        float64
	Loops       float64
	StepFanout  float64
}

// Result is the full C12 output.
type Result struct {
	PerStep          []Step
	EffectiveFanout  float64
	ExplosionFactor  float64
	Tier             Tier
	Findings         []finding.Finding
}

// Analyze runs C12 over every measured node in the plan.
func Analyze(tree *planparse.Tree) Result {
	var res Result
	if tree == nil {
		return res
	}

	var drivingStepFanout float64
	fanoutProduct := 1.0
	hasHashJoin := false
	hasBlockNestedLoop := false

	first := true
	tree.Walk(func(n *planparse.PlanNode) {
		if n.Operation == "hash_join" || n.AccessType.String() == "hash_join" {
			hasHashJoin = true
		}
		if n.Operation == "block_nested_loop" || n.AccessType.String() == "block_nested_loop" {
			hasBlockNestedLoop = true
		}
		if !n.HasMeasurement || n.NeverExecuted {
			return
		}
		loops := n.Loops
		if loops <= 0 {
			loops = 1
		}
		rows := n.ActualRows
		stepFanout := rows * loops
		if n.Table == "" {
			return
		}
		res.PerStep = append(res.PerStep, Step{Table: n.Table, Rows: rows, Loops: loops, StepFanout: stepFanout})
		if first {
			drivingStepFanout = stepFanout
			first = false
		}
		if stepFanout > 0 {
			fanoutProduct *= stepFanout
		}
	})

	res.EffectiveFanout = fanoutProduct
	if drivingStepFanout < 1 {
		drivingStepFanout = 1
	}
	res.ExplosionFactor = res.EffectiveFanout / drivingStepFanout

	switch {
	case res.ExplosionFactor <= 10:
		res.Tier = TierContained
	case res.ExplosionFactor <= 100:
		res.Tier = TierLinearAmplification
	case res.ExplosionFactor <= 1000:
		res.Tier = TierMultiplicativeRisk
	default:
		res.Tier = TierExponentialExplosion
	}

	switch res.Tier {
	case TierMultiplicativeRisk:
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Medium, Category: finding.CategoryJoin,
			Title:       "Multiplicative join risk",
			Description: fmt.Sprintf("Row counts amplify by a factor of %.1f across this join chain.", res.ExplosionFactor),
			Recommendation: "Add a supporting index on the join condition of the widest-amplifying table, or restructure the join order.",
		})
	case TierExponentialExplosion:
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Critical, Category: finding.CategoryJoin,
			Title:       "Exponential join explosion",
			Description: fmt.Sprintf("Row counts amplify by a factor of %.1f across this join chain.", res.ExplosionFactor),
			Recommendation: "This join chain is likely cross-joining or missing a join-key index; review the join conditions before running against production data.",
		})
	}

	if hasHashJoin {
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Info, Category: finding.CategoryJoin,
			Title:       "Hash join in use",
			Description: "The optimizer chose a hash join for at least one join in this plan.",
			Recommendation: "Hash joins are usually efficient for large unindexed equi-joins; verify join_buffer_size is adequate for the build side.",
		})
	}
	if hasBlockNestedLoop {
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Low, Category: finding.CategoryJoin,
			Title:       "Block Nested Loop join in use",
			Description: "A Block Nested Loop join indicates the inner table of a join has no usable index on the join condition.",
			Recommendation: "Add an index on the inner table's join column to allow an indexed nested-loop or hash join instead.",
		})
	}

	return res
}
