// Package consistency implements C16: a non-fatal cross-check that the
// rest of the pipeline's outputs agree with each other.
package consistency

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mpaulson/sqlsentinel/internal/concurrency"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// Inputs bundles the cross-component state C16 checks for agreement.
type Inputs struct {
	M                   *metrics.Metrics
	AllFindings         []finding.Finding
	LockScope           concurrency.LockScope
	IsPlainSelect       bool
	IsIntentionalScan   bool
	MinimumMeasurableMs float64
	ParsingValid        bool
}

// Result is the full C16 output: non-fatal, attached to the report as a
// diagnostic rather than blocking analysis.
type Result struct {
	Valid      bool
	Violations []string
}

// Validate runs the 9 cross-check rules from spec §4.15.
func Validate(in Inputs) Result {
	var violations []string
	m := in.M

	if m.PrimaryAccessType == metrics.AccessIndexLookup && !m.IsIndexBacked {
		violations = append(violations, "access type index_lookup but is_index_backed=false")
	}
	if m.PrimaryAccessType == metrics.AccessIndexLookup && m.HasTableScan && m.IsIndexBacked {
		violations = append(violations, "access type index_lookup but has_table_scan=true")
	}
	if m.Complexity.Risk() == metrics.RiskLow && m.HasTableScan && m.RowsExamined > 1000 {
		violations = append(violations, fmt.Sprintf("complexity risk LOW but has_table_scan with rows_examined=%d", m.RowsExamined))
	}

	seen := map[string]int{}
	for _, f := range in.AllFindings {
		seen[f.Key()]++
	}
	dupKeys := make([]string, 0, len(seen))
	for k, n := range seen {
		if n > 1 {
			dupKeys = append(dupKeys, k)
		}
	}
	sort.Strings(dupKeys)
	for _, k := range dupKeys {
		violations = append(violations, fmt.Sprintf("duplicate finding not deduplicated: %s (x%d)", k, seen[k]))
	}

	if in.LockScope == concurrency.LockTable && in.IsPlainSelect {
		violations = append(violations, "lock_scope=table on a plain SELECT")
	}

	if m.Complexity.Risk() == metrics.RiskHigh {
		switch m.PrimaryAccessType {
		case metrics.AccessConstRow, metrics.AccessZeroRowConst:
			violations = append(violations, "complexity risk HIGH but access type is const/zero-row")
		}
	}

	if in.IsIntentionalScan {
		for _, f := range in.AllFindings {
			if f.Severity == finding.Critical && isNoIndexFinding(f) {
				violations = append(violations, fmt.Sprintf("intentional scan but Critical no-index finding present: %s", f.Title))
			}
		}
	}

	for _, f := range in.AllFindings {
		if f.Category != finding.CategoryRegression {
			continue
		}
		bv, ok := f.Metadata["baseline_value"]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(bv, 64); err == nil && v < in.MinimumMeasurableMs {
			violations = append(violations, fmt.Sprintf("regression finding %q below the minimum-measurable baseline floor", f.Title))
		}
	}

	if !in.ParsingValid && m.ExecutionTimeMs > 0 {
		violations = append(violations, "parsing_valid=false but execution_time_ms>0")
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

func isNoIndexFinding(f finding.Finding) bool {
	return f.Category == finding.CategoryIndex || f.Category == finding.CategoryScan
}
