// Package confidence implements C13: an 8-factor weighted confidence score
// for how trustworthy the rest of the analysis is.
package confidence

import (
	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/stability"
)

// Weights is the 8-factor weight set from spec §4.12; they sum to 1.0.
type Weights struct {
	EstimationAccuracy  float64
	SampleSize          float64
	ExplainAnalyze      float64
	CacheWarmth         float64
	StatisticsFreshness float64
	PlanStability       float64
	QueryComplexity     float64
	DriverCapabilities  float64
}

func DefaultWeights() Weights {
	return Weights{
		EstimationAccuracy:  0.25,
		SampleSize:          0.20,
		ExplainAnalyze:      0.15,
		CacheWarmth:         0.10,
		StatisticsFreshness: 0.10,
		PlanStability:       0.10,
		QueryComplexity:     0.05,
		DriverCapabilities:  0.05,
	}
}

// Label is the overall confidence band.
type Label string

const (
	LabelUnreliable Label = "unreliable"
	LabelLow        Label = "low"
	LabelModerate   Label = "moderate"
	LabelHigh       Label = "high"
)

// Factors carries the per-factor scores for diagnostic display.
type Factors struct {
	EstimationAccuracy  float64
	SampleSize          float64
	ExplainAnalyze      float64
	CacheWarmth         float64
	StatisticsFreshness float64
	PlanStability       float64
	QueryComplexity     float64
	DriverCapabilities  float64
}

// Result is the full C13 output.
type Result struct {
	Overall  float64
	Label    Label
	Factors  Factors
	Findings []finding.Finding
}

// Inputs bundles the cross-component signals C13 needs beyond m itself.
type Inputs struct {
	SupportsAnalyze   bool
	Env               *metrics.EnvironmentContext
	TablesNeedingAnalyze int
	TablesAccessed       int
	JoinCount            int
	Drift                *drift.Result
	Stability            *stability.Result
}

// Score runs C13.
func Score(m *metrics.Metrics, in Inputs, w Weights) Result {
	var f Factors

	compositeDrift := 0.0
	if in.Drift != nil {
		compositeDrift = in.Drift.CompositeDrift
	}
	f.EstimationAccuracy = 1 - compositeDrift
	if f.EstimationAccuracy < 0 {
		f.EstimationAccuracy = 0
	}

	switch m.PrimaryAccessType {
	case metrics.AccessConstRow, metrics.AccessZeroRowConst, metrics.AccessSingleRowLookup:
		f.SampleSize = 1.0
	default:
		var total float64
		for _, te := range m.PerTableEstimates {
			total += te.ActualRows
		}
		f.SampleSize = total / 1000
		if f.SampleSize > 1.0 {
			f.SampleSize = 1.0
		}
	}

	if in.SupportsAnalyze {
		f.ExplainAnalyze = 1.0
	} else {
		f.ExplainAnalyze = 0.3
	}

	if in.Env == nil {
		f.CacheWarmth = 0.5
	} else if in.Env.IsColdCache {
		f.CacheWarmth = 0.5
	} else {
		f.CacheWarmth = 1.0
	}

	accessed := in.TablesAccessed
	if accessed < 1 {
		accessed = 1
	}
	ratio := float64(in.TablesNeedingAnalyze) / float64(accessed)
	if ratio > 1 {
		ratio = 1
	}
	f.StatisticsFreshness = 1 - ratio

	if in.Stability != nil && in.Stability.Label == stability.LabelVolatile {
		f.PlanStability = 0.5
	} else {
		f.PlanStability = 1.0
	}

	switch {
	case in.JoinCount >= 5:
		f.QueryComplexity = 0.7
	case in.JoinCount >= 3:
		f.QueryComplexity = 0.85
	default:
		f.QueryComplexity = 1.0
	}

	if in.SupportsAnalyze {
		f.DriverCapabilities = 1.0
	} else {
		f.DriverCapabilities = 0.6
	}

	overall := f.EstimationAccuracy*w.EstimationAccuracy +
		f.SampleSize*w.SampleSize +
		f.ExplainAnalyze*w.ExplainAnalyze +
		f.CacheWarmth*w.CacheWarmth +
		f.StatisticsFreshness*w.StatisticsFreshness +
		f.PlanStability*w.PlanStability +
		f.QueryComplexity*w.QueryComplexity +
		f.DriverCapabilities*w.DriverCapabilities

	res := Result{Overall: overall, Factors: f}

	switch {
	case overall < 0.5:
		res.Label = LabelUnreliable
	case overall < 0.7:
		res.Label = LabelLow
	case overall < 0.9:
		res.Label = LabelModerate
	default:
		res.Label = LabelHigh
	}

	if compositeDrift > 0.5 {
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Info, Category: finding.CategoryConsistency,
			Title:       "Estimation accuracy degraded",
			Description: "Row-count estimates deviate sharply from actuals, lowering confidence in this analysis.",
			Recommendation: "Run ANALYZE TABLE on the affected tables before trusting this query's scores.",
		})
	}

	switch res.Label {
	case LabelUnreliable:
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Medium, Category: finding.CategoryConsistency,
			Title:       "Analysis confidence is unreliable",
			Description: "Too many confidence factors are degraded for this analysis to be trusted at face value.",
			Recommendation: "Re-run with EXPLAIN ANALYZE against a warm cache and fresh statistics, then re-evaluate.",
		})
	case LabelLow:
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Info, Category: finding.CategoryConsistency,
			Title:       "Analysis confidence is low",
			Description: "Several confidence factors are degraded; treat scores as directional rather than precise.",
		})
	}

	return res
}
