// Package regression implements C14: comparison of the current analysis
// against the last recorded baseline snapshot for the same query hash.
package regression

import (
	"fmt"

	"github.com/mpaulson/sqlsentinel/internal/baseline"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// Config is the C14 threshold surface (spec §6).
type Config struct {
	ScoreWarnPercent     float64
	ScoreCritPercent     float64
	ScoreAbsoluteFloor   float64
	TimeWarnPercent      float64
	TimeCritPercent      float64
	TimeAbsoluteFloorMs  float64
	NoiseFloorMs         float64
	MinimumMeasurableMs  float64
	DataGrowthRowsPercent       float64
	DataGrowthPerRowPercent     float64
	HistoryTrendWindow   int
}

func DefaultConfig() Config {
	return Config{
		ScoreWarnPercent:    10,
		ScoreCritPercent:    25,
		ScoreAbsoluteFloor:  5,
		TimeWarnPercent:     50,
		TimeCritPercent:     200,
		TimeAbsoluteFloorMs: 5,
		NoiseFloorMs:        3,
		MinimumMeasurableMs: 5,
		DataGrowthRowsPercent:   50,
		DataGrowthPerRowPercent: 25,
		HistoryTrendWindow:  3,
	}
}

// Classification labels what kind of change a metric's delta represents.
type Classification string

const (
	ClassificationRegression        Classification = "performance_degradation"
	ClassificationDataGrowth        Classification = "data_growth"
	ClassificationPlanChange        Classification = "plan_change"
	ClassificationImprovement       Classification = "improvement"
)

// Trend is the multi-snapshot direction over history.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
	TrendImproving Trend = "improving"
	TrendUnknown   Trend = "unknown"
)

// Result is the full C14 output.
type Result struct {
	HasBaseline bool
	Trend       Trend
	Findings    []finding.Finding
}

// Analyze compares m/current composite score against history's last
// snapshot and appends a new snapshot via store. accessSeverity is the
// current primary access type's I/O severity rank, which the orchestrator
// supplies from metrics.AccessType.SeverityRank.
func Analyze(store baseline.Store, hash string, m *metrics.Metrics, composite float64, env *metrics.EnvironmentContext, accessSeverity int, cfg Config, maxSnapshotsPerHash int) (Result, error) {
	var res Result

	history, err := store.Load(hash)
	if err != nil {
		return res, err
	}

	isCold := env != nil && env.IsColdCache
	timePerRow := m.ExecutionTimeMs / float64(maxI64(m.RowsExamined, 1))

	if len(history) > 0 {
		res.HasBaseline = true
		last := history[len(history)-1]
		res.Findings = append(res.Findings, compareScore(last, composite, cfg)...)
		res.Findings = append(res.Findings, compareTime(last, m, cfg, isCold)...)
		res.Findings = append(res.Findings, comparePlan(last.AccessTypeSeverity, accessSeverity)...)
		res.Trend = trendOf(history, cfg)
		if res.Trend == TrendDegrading {
			res.Findings = append(res.Findings, finding.Finding{
				Severity: finding.Medium, Category: finding.CategoryRegression,
				Title:       "Degrading performance trend",
				Description: fmt.Sprintf("Composite score has decreased on each of the last %d recorded runs.", cfg.HistoryTrendWindow),
				Recommendation: "Investigate before this query's performance crosses a critical threshold.",
			})
		}
	} else {
		res.Trend = TrendUnknown
	}

	snap := baseline.Snapshot{
		CompositeScore:     composite,
		ExecutionTimeMs:    m.ExecutionTimeMs,
		RowsExamined:       m.RowsExamined,
		TimePerRow:         timePerRow,
		IsColdCache:        isCold,
		AccessTypeSeverity: accessSeverity,
	}
	if err := store.Save(hash, snap, maxSnapshotsPerHash); err != nil {
		return res, err
	}

	return res, nil
}

func compareScore(last baseline.Snapshot, composite float64, cfg Config) []finding.Finding {
	delta := last.CompositeScore - composite
	if delta <= 0 {
		return nil
	}
	if delta < cfg.ScoreAbsoluteFloor {
		return nil
	}
	pct := delta / maxF(last.CompositeScore, 1) * 100
	var sev finding.Severity
	switch {
	case pct >= cfg.ScoreCritPercent:
		sev = finding.High
	case pct >= cfg.ScoreWarnPercent:
		sev = finding.Medium
	default:
		return nil
	}
	return []finding.Finding{{
		Severity: sev, Category: finding.CategoryRegression,
		Title:       "Composite score regression",
		Description: fmt.Sprintf("Composite score dropped from %.1f to %.1f (%.1f%% worse) versus the last recorded baseline.", last.CompositeScore, composite, pct),
		Recommendation: "Compare the current and baseline plans for an access-path or index change.",
		Metadata: map[string]string{"baseline_value": fmt.Sprintf("%.1f", last.CompositeScore), "classification": string(ClassificationRegression)},
	}}
}

func compareTime(last baseline.Snapshot, m *metrics.Metrics, cfg Config, currentCold bool) []finding.Finding {
	if last.ExecutionTimeMs < cfg.MinimumMeasurableMs {
		return nil
	}
	delta := m.ExecutionTimeMs - last.ExecutionTimeMs
	if delta <= 0 {
		if last.IsColdCache && !currentCold {
			// cold->warm improvement is expected, not a finding either way.
			return nil
		}
		return nil
	}
	if delta < cfg.NoiseFloorMs {
		return nil
	}
	if delta < cfg.TimeAbsoluteFloorMs {
		return nil
	}

	rowsGrowthPct := 0.0
	if last.RowsExamined > 0 {
		rowsGrowthPct = float64(m.RowsExamined-last.RowsExamined) / float64(last.RowsExamined) * 100
	}
	if rowsGrowthPct > cfg.DataGrowthRowsPercent {
		baselinePerRow := last.ExecutionTimeMs / maxF(float64(last.RowsExamined), 1)
		currentPerRow := m.ExecutionTimeMs / maxF(float64(m.RowsExamined), 1)
		perRowDeltaPct := (currentPerRow - baselinePerRow) / maxF(baselinePerRow, 1e-9) * 100
		if perRowDeltaPct <= cfg.DataGrowthPerRowPercent {
			return []finding.Finding{{
				Severity: finding.Info, Category: finding.CategoryRegression,
				Title:       "Execution time grew with the data, not the query",
				Description: fmt.Sprintf("Rows examined grew %.0f%% while per-row cost stayed roughly flat (%.1f%% change).", rowsGrowthPct, perRowDeltaPct),
				Metadata: map[string]string{"classification": string(ClassificationDataGrowth)},
			}}
		}
	}

	pct := delta / maxF(last.ExecutionTimeMs, 1e-9) * 100
	var sev finding.Severity
	switch {
	case pct >= cfg.TimeCritPercent:
		sev = finding.High
	case pct >= cfg.TimeWarnPercent:
		sev = finding.Medium
	default:
		return nil
	}
	return []finding.Finding{{
		Severity: sev, Category: finding.CategoryRegression,
		Title:       "Execution time regression",
		Description: fmt.Sprintf("Execution time grew from %.1fms to %.1fms (%.1f%% worse) versus the last recorded baseline.", last.ExecutionTimeMs, m.ExecutionTimeMs, pct),
		Recommendation: "Check for a plan change, missing index, or statistics drift since the baseline was recorded.",
		Metadata: map[string]string{"baseline_value": fmt.Sprintf("%.1f", last.ExecutionTimeMs), "classification": string(ClassificationRegression)},
	}}
}

func comparePlan(lastSeverity, currentSeverity int) []finding.Finding {
	if currentSeverity > lastSeverity {
		return []finding.Finding{{
			Severity: finding.Medium, Category: finding.CategoryRegression,
			Title:       "Access path regressed",
			Description: "This query now uses a worse access type than the last recorded baseline.",
			Recommendation: "Check for a dropped or unused index, or a statistics-driven optimizer plan change.",
			Metadata: map[string]string{"classification": string(ClassificationPlanChange)},
		}}
	}
	return nil
}

func trendOf(history []baseline.Snapshot, cfg Config) Trend {
	n := cfg.HistoryTrendWindow
	if n < 2 || len(history) < n {
		return TrendUnknown
	}
	window := history[len(history)-n:]
	decreasing, increasing := true, true
	for i := 1; i < len(window); i++ {
		if window[i].CompositeScore >= window[i-1].CompositeScore {
			decreasing = false
		}
		if window[i].CompositeScore <= window[i-1].CompositeScore {
			increasing = false
		}
	}
	switch {
	case decreasing:
		return TrendDegrading
	case increasing:
		return TrendImproving
	default:
		return TrendStable
	}
}

func maxI64(a, b int64) int64 {
	if a > b {
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
