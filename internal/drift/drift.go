// Package drift implements C8: per-table cardinality drift between
// optimizer estimates and measured actuals.
package drift

import (
	"fmt"
	"math"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// Direction is the sign of one table's drift.
type Direction string

const (
	DirectionAccurate Direction = "accurate"
	DirectionOver     Direction = "over"
	DirectionUnder    Direction = "under"
)

// Severity mirrors the per-table drift classification, distinct from the
// shared finding.Severity since an "optimization" band here has no
// Finding attached (spec §4.7).
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityOptimization Severity = "optimization"
	SeverityWarning      Severity = "warning"
	SeverityCritical     Severity = "critical"
)

// TableDrift is one table's drift record.
type TableDrift struct {
	Table     string
	Estimated float64
	Actual    float64
	Drift     float64
	Direction Direction
	Severity  Severity
}

// Config is the C8 configuration surface (spec §6).
type Config struct {
	WarningThreshold  float64
	CriticalThreshold float64
}

func DefaultConfig() Config {
	return Config{WarningThreshold: 0.5, CriticalThreshold: 0.9}
}

// Result is the full C8 output.
type Result struct {
	PerTable             []TableDrift
	CompositeDrift       float64
	TablesNeedingAnalyze []string
	Findings             []finding.Finding
}

// Analyze runs C8 over the per-table estimates C2 collected.
func Analyze(m *metrics.Metrics, cfg Config) Result {
	var res Result
	var weightedSum, actualSum float64

	for table, te := range m.PerTableEstimates {
		totalEstimated := te.EstimatedRows
		totalActual := te.ActualRows
		denom := math.Max(math.Max(totalEstimated, totalActual), 1)
		d := math.Abs(totalEstimated-totalActual) / denom

		dir := DirectionAccurate
		if d > 0 {
			if totalEstimated > totalActual {
				dir = DirectionOver
			} else {
				dir = DirectionUnder
			}
		}

		sev := classifySeverity(d, cfg)
		td := TableDrift{
			Table:     table,
			Estimated: totalEstimated,
			Actual:    totalActual,
			Drift:     d,
			Direction: dir,
			Severity:  sev,
		}
		res.PerTable = append(res.PerTable, td)

		weightedSum += d * totalActual
		actualSum += totalActual

		if d > cfg.WarningThreshold {
			res.TablesNeedingAnalyze = append(res.TablesNeedingAnalyze, table)
		}

		switch sev {
		case SeverityCritical:
			res.Findings = append(res.Findings, finding.Finding{
				Severity:    finding.Critical,
				Category:    finding.CategoryDrift,
				Title:       fmt.Sprintf("Severe cardinality drift on %s", table),
				Description: fmt.Sprintf("Estimated %.0f rows vs. actual %.0f rows (%.1f%% drift) on table %s.", totalEstimated, totalActual, d*100, table),
				Recommendation: fmt.Sprintf("Run ANALYZE TABLE %s to refresh optimizer statistics.", table),
				Metadata: map[string]string{"table": table, "drift": fmt.Sprintf("%.4f", d)},
			})
		case SeverityWarning:
			res.Findings = append(res.Findings, finding.Finding{
				Severity:    finding.Low,
				Category:    finding.CategoryDrift,
				Title:       fmt.Sprintf("Cardinality drift on %s", table),
				Description: fmt.Sprintf("Estimated %.0f rows vs. actual %.0f rows (%.1f%% drift) on table %s.", totalEstimated, totalActual, d*100, table),
				Recommendation: fmt.Sprintf("Consider running ANALYZE TABLE %s.", table),
				Metadata: map[string]string{"table": table, "drift": fmt.Sprintf("%.4f", d)},
			})
		}
	}

	if actualSum > 0 {
		res.CompositeDrift = weightedSum / actualSum
	}

	return res
}

func classifySeverity(d float64, cfg Config) Severity {
	switch {
	case d > cfg.CriticalThreshold:
		return SeverityCritical
	case d > cfg.WarningThreshold:
		return SeverityWarning
	case d > 0.2:
		return SeverityOptimization
	default:
		return SeverityInfo
	}
}

