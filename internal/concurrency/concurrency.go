// Package concurrency implements C7: lock-scope derivation, deadlock-risk
// and contention scoring.
package concurrency

import (
	"math"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// DMLKind describes the statement's write/locking-read intent.
type DMLKind string

const (
	DMLPlainSelect DMLKind = "select"
	DMLSelectForUpdate DMLKind = "select_for_update"
	DMLSelectForShare  DMLKind = "select_for_share"
	DMLUpdate DMLKind = "update"
	DMLDelete DMLKind = "delete"
	DMLInsert DMLKind = "insert"
)

// LockScope is the derived lock granularity.
type LockScope string

const (
	LockNone    LockScope = "none"
	LockTable   LockScope = "table"
	LockRange   LockScope = "range"
	LockGap     LockScope = "gap"
	LockRow     LockScope = "row"
	LockUnknown LockScope = "unknown"
)

// Result is the full C7 output.
type Result struct {
	LockScope      LockScope
	DeadlockRisk   float64
	DeadlockLabel  string
	ContentionScore float64
	Findings       []finding.Finding
}

// Analyze runs C7.
func Analyze(m *metrics.Metrics, kind DMLKind, isMultiTable, hasSubquery bool, profile *metrics.ExecutionProfile) Result {
	if kind == DMLPlainSelect {
		return Result{LockScope: LockNone}
	}

	scope := lockScopeFor(m.PrimaryAccessType)

	risk := 0.0
	if isMultiTable {
		risk += 0.3
	}
	if hasSubquery {
		risk += 0.2
	}
	if !m.IsIndexBacked {
		risk += 0.3
	}
	if profile != nil && profile.NestedLoopDepth > 2 {
		risk += 0.2
	}
	if risk > 1 {
		risk = 1
	}
	if risk < 0 {
		risk = 0
	}

	label := "low"
	switch {
	case risk >= 0.6:
		label = "high"
	case risk >= 0.3:
		label = "moderate"
	}

	depth := 0
	if profile != nil {
		depth = profile.NestedLoopDepth
	}
	contention := math.Round(m.ExecutionTimeMs*(1+float64(depth)*0.5)*float64(m.RowsExamined)/10000*10000) / 10000

	res := Result{
		LockScope:       scope,
		DeadlockRisk:    risk,
		DeadlockLabel:   label,
		ContentionScore: contention,
	}

	isWrite := kind == DMLUpdate || kind == DMLDelete || kind == DMLInsert
	if isWrite && m.HasTableScan {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Critical,
			Category:    finding.CategoryConcurrency,
			Title:       "Write with full table scan",
			Description: "This write statement scans the full table, taking a table-level lock footprint under typical isolation levels.",
			Recommendation: "Add a selective WHERE clause backed by an index before running this write against a live table.",
		})
	}
	if label == "high" {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Medium,
			Category:    finding.CategoryConcurrency,
			Title:       "High deadlock risk",
			Description: "Multiple signals (multi-table write, subquery, non-index-backed access, deep nesting) combine to a high deadlock-risk score.",
			Recommendation: "Access tables in a consistent order and keep the transaction as short as possible.",
		})
	} else if label == "moderate" {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Low,
			Category:    finding.CategoryConcurrency,
			Title:       "Moderate deadlock risk",
			Description: "This statement carries some deadlock-risk signals; monitor under concurrent load.",
		})
	}
	if contention > 100 {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Medium,
			Category:    finding.CategoryConcurrency,
			Title:       "High lock contention score",
			Description: "Contention score exceeds the configured threshold, suggesting this query may bottleneck concurrent writers.",
		})
	}

	return res
}

func lockScopeFor(a metrics.AccessType) LockScope {
	switch a {
	case metrics.AccessTableScan:
		return LockTable
	case metrics.AccessIndexRangeScan:
		return LockRange
	case metrics.AccessIndexLookup, metrics.AccessCoveringIndexLookup:
		return LockGap
	case metrics.AccessSingleRowLookup, metrics.AccessConstRow, metrics.AccessZeroRowConst:
		return LockRow
	default:
		return LockUnknown
	}
}
