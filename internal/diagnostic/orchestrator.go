package diagnostic

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/mpaulson/sqlsentinel/internal/antipattern"
	"github.com/mpaulson/sqlsentinel/internal/baseline"
	"github.com/mpaulson/sqlsentinel/internal/concurrency"
	"github.com/mpaulson/sqlsentinel/internal/confidence"
	"github.com/mpaulson/sqlsentinel/internal/consistency"
	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/indexsynth"
	"github.com/mpaulson/sqlsentinel/internal/joinfanout"
	"github.com/mpaulson/sqlsentinel/internal/memory"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/planparse"
	"github.com/mpaulson/sqlsentinel/internal/regression"
	"github.com/mpaulson/sqlsentinel/internal/scalability"
	"github.com/mpaulson/sqlsentinel/internal/scoring"
	"github.com/mpaulson/sqlsentinel/internal/sqllite"
	"github.com/mpaulson/sqlsentinel/internal/stability"
	"github.com/mpaulson/sqlsentinel/internal/workload"
)

// Inputs bundles everything Run needs beyond Config: the raw plan/SQL text
// and the cross-component signals no single analyzer can derive itself.
type Inputs struct {
	PlanText string
	SQL      string

	// QueryHash identifies this query for baseline history (C14/C15). A
	// blank hash disables regression/workload analysis.
	QueryHash string
	Store     baseline.Store

	Env     *metrics.EnvironmentContext
	Profile *metrics.ExecutionProfile

	IsIntentionalScan bool
	SupportsAnalyze   bool

	MemoryInputs    memory.Inputs
	ExistingIndexes map[string][]indexsynth.ExistingIndex
	TableSize       int64
}

var reWriteStmt = regexp.MustCompile(`(?i)^\s*(update|delete|insert)\b`)
var reForUpdate = regexp.MustCompile(`(?i)\bfor\s+update\b`)
var reForShare = regexp.MustCompile(`(?i)\b(for\s+share|lock\s+in\s+share\s+mode)\b`)

// Run executes the full C17 pipeline. On Cancelled it returns immediately
// with a nil Report; on Timeout it returns the best-effort partial Report
// built so far, with PartialResult set (spec §5).
func Run(ctx context.Context, in Inputs, cfg Config) (*Report, error) {
	clock := newBudgetClock(ctx, time.Now(), cfg.AnalysisBudgetMs)
	rep := &Report{}

	// Step 1: C1 -> C2 -> C3.
	if err := clock.check(time.Now()); err != nil {
		return partialOrNil(rep, err)
	}
	tree := planparse.Parse(in.PlanText)
	m := planparse.ExtractMetrics(tree, planparse.ExtractOptions{
		IsIntentionalScan: in.IsIntentionalScan,
		Profile:           in.Profile,
	})
	rep.Metrics = m

	sqlInfo, _ := sqllite.Parse(in.SQL)
	rep.SQLInfo = sqlInfo

	if !m.ParsingValid {
		rep.Findings = append(rep.Findings, finding.Finding{
			Severity: finding.Info, Category: finding.CategoryParse,
			Title:       "Plan could not be fully measured",
			Description: "The supplied plan text had no recognizable actual-time measurements; downstream scores are derived from estimates only.",
		})
	}

	// Step 2: run every analyzer, collecting findings.
	if err := clock.check(time.Now()); err != nil {
		return partialOrNil(rep, err)
	}

	scoreResult := scoring.Score(m, cfg.ScoringWeights)
	rep.Scoring = scoreResult

	rep.Scalability = scalability.Analyze(m, sqlInfo, m.RowsExamined, cfg.ScalabilityTargetRows)
	rep.Findings = append(rep.Findings, rep.Scalability.Findings...)

	rep.Memory = memory.Analyze(m, in.MemoryInputs, cfg.Memory)
	rep.Findings = append(rep.Findings, rep.Memory.Findings...)

	dmlKind, isMultiTable, isPlainSelect := classifyDML(in.SQL, sqlInfo)
	rep.Concurrency = concurrency.Analyze(m, dmlKind, isMultiTable, sqlInfo != nil && sqlInfo.HasSubquery, in.Profile)
	rep.Findings = append(rep.Findings, rep.Concurrency.Findings...)

	rep.Drift = drift.Analyze(m, cfg.Drift)
	rep.Findings = append(rep.Findings, rep.Drift.Findings...)

	rep.Stability = stability.Analyze(tree, in.SQL, &rep.Drift)
	rep.Findings = append(rep.Findings, rep.Stability.Findings...)

	rep.AntiPattern = antipattern.Analyze(in.SQL, sqlInfo, m, cfg.AntiPattern)
	rep.Findings = append(rep.Findings, rep.AntiPattern.Findings...)

	if sqlInfo != nil {
		rep.IndexSynth = indexsynth.Analyze(sqlInfo, m, in.ExistingIndexes, &rep.Drift, cfg.IndexSynth)
		rep.Findings = append(rep.Findings, rep.IndexSynth.Findings...)
	}

	rep.JoinFanout = joinfanout.Analyze(tree)
	rep.Findings = append(rep.Findings, rep.JoinFanout.Findings...)

	tablesNeedingAnalyze := len(rep.Drift.TablesNeedingAnalyze)
	joinCount := len(m.TablesAccessed)
	if joinCount > 0 {
		joinCount--
	}
	rep.Confidence = confidence.Score(m, confidence.Inputs{
		SupportsAnalyze:      in.SupportsAnalyze,
		Env:                  in.Env,
		TablesNeedingAnalyze: tablesNeedingAnalyze,
		TablesAccessed:       len(m.TablesAccessed),
		JoinCount:            joinCount,
		Drift:                &rep.Drift,
		Stability:            &rep.Stability,
	}, cfg.ConfidenceWeights)
	rep.Findings = append(rep.Findings, rep.Confidence.Findings...)

	if in.Store != nil && in.QueryHash != "" {
		if err := clock.check(time.Now()); err != nil {
			return partialOrNil(rep, err)
		}
		regResult, err := regression.Analyze(in.Store, in.QueryHash, m, scoreResult.Composite, in.Env, m.PrimaryAccessType.SeverityRank(), cfg.Regression, cfg.BaselineMaxSnapshotsPerHash)
		if err == nil {
			rep.Regression = regResult
			rep.Findings = append(rep.Findings, rep.Regression.Findings...)
		}
		wlResult, err := workload.Analyze(in.Store, in.QueryHash, in.TableSize, cfg.Workload)
		if err == nil {
			rep.Workload = wlResult
			rep.Findings = append(rep.Findings, rep.Workload.Findings...)
		}
	}

	// Step 3: suppression for optimal access.
	if err := clock.check(time.Now()); err != nil {
		return partialOrNil(rep, err)
	}
	rep.Findings = suppressForOptimalAccess(rep.Findings, m, sqlInfo)

	// Step 4: root-cause detection and suppression.
	rootCauses := detectRootCauses(rep.AntiPattern, m)
	rep.Findings = suppressByRootCause(rep.Findings, rootCauses)

	// Step 5: dedup, plus index-synthesis-subsumes-generic-no-index.
	rep.Findings = subsumeGenericNoIndex(rep.Findings, rep.IndexSynth)
	rep.Findings = finding.Dedup(rep.Findings)

	// Step 6: intentional-scan regression downgrade.
	if in.IsIntentionalScan {
		rep.Findings = downgradeIntentionalScanRegressions(rep.Findings)
	}

	// Step 7: top recommendation selection.
	rep.TopRecommendation = selectTopRecommendation(rootCauses, sqlInfo, m, rep.Findings)

	// Step 8: confidence gate.
	hasCritical := hasCriticalFinding(rep.Findings)
	rep.Scoring.Composite, rep.Scoring.Grade = scoring.ApplyConfidenceGate(rep.Scoring.Composite, rep.Scoring.Grade, rep.Confidence.Overall, hasCritical)

	// Step 9: consistency validation (non-fatal diagnostic).
	rep.Consistency = consistency.Validate(consistency.Inputs{
		M:                   m,
		AllFindings:         rep.Findings,
		LockScope:           rep.Concurrency.LockScope,
		IsPlainSelect:       isPlainSelect,
		IsIntentionalScan:   in.IsIntentionalScan,
		MinimumMeasurableMs: cfg.Regression.MinimumMeasurableMs,
		ParsingValid:        m.ParsingValid,
	})

	// Step 10: finalize.
	rep.Findings = finding.SortBySeverity(rep.Findings)
	rep.Passed = !hasCriticalFinding(rep.Findings)

	return rep, nil
}

func partialOrNil(rep *Report, err error) (*Report, error) {
	if err == Timeout {
		rep.PartialResult = true
		return rep, Timeout
	}
	return nil, err
}

func classifyDML(sql string, info *sqllite.Info) (concurrency.DMLKind, bool, bool) {
	trimmed := strings.TrimSpace(sql)
	isMultiTable := info != nil && len(info.Tables) > 1
	if m := reWriteStmt.FindStringSubmatch(trimmed); m != nil {
		switch strings.ToLower(m[1]) {
		case "update":
			return concurrency.DMLUpdate, isMultiTable, false
		case "delete":
			return concurrency.DMLDelete, isMultiTable, false
		case "insert":
			return concurrency.DMLInsert, isMultiTable, false
		}
	}
	if reForUpdate.MatchString(trimmed) {
		return concurrency.DMLSelectForUpdate, isMultiTable, false
	}
	if reForShare.MatchString(trimmed) {
		return concurrency.DMLSelectForShare, isMultiTable, false
	}
	return concurrency.DMLPlainSelect, isMultiTable, true
}

func hasCriticalFinding(all []finding.Finding) bool {
	for _, f := range all {
		if f.Severity == finding.Critical && !f.Suppressed {
			return true
		}
	}
	return false
}

// suppressForOptimalAccess marks index-category findings Suppressed when the
// primary access is already const/single-row/zero-row (spec §4.16 step 3):
// there is nothing left to index. Findings with "sort" in the title are
// also marked Suppressed when the query has no ORDER BY. Suppressed
// findings stay in the returned slice.
func suppressForOptimalAccess(all []finding.Finding, m *metrics.Metrics, sqlInfo *sqllite.Info) []finding.Finding {
	optimal := false
	switch m.PrimaryAccessType {
	case metrics.AccessConstRow, metrics.AccessSingleRowLookup, metrics.AccessZeroRowConst:
		optimal = true
	}
	if !optimal {
		return all
	}
	hasOrderBy := sqlInfo != nil && sqlInfo.HasOrderBy

	out := make([]finding.Finding, 0, len(all))
	for _, f := range all {
		if f.Category == finding.CategoryIndex {
			f.Suppressed = true
		}
		if !hasOrderBy && strings.Contains(strings.ToLower(f.Title), "sort") {
			f.Suppressed = true
		}
		out = append(out, f)
	}
	return out
}

type rootCause struct {
	kind   string
	detail string
}

// detectRootCauses finds the single structural cause (if any) that explains
// most of the other findings, used both for suppression and for picking the
// single top recommendation (spec §4.16 step 4/7).
func detectRootCauses(ap antipattern.Result, m *metrics.Metrics) []rootCause {
	var causes []rootCause
	for _, p := range ap.Patterns {
		switch p.Name {
		case "function_on_column":
			causes = append(causes, rootCause{kind: "function_on_column", detail: p.Metadata["column"]})
		case "leading_wildcard":
			causes = append(causes, rootCause{kind: "leading_wildcard"})
		}
	}
	if m.HasTableScan && !m.IsIntentionalScan && len(causes) == 0 {
		causes = append(causes, rootCause{kind: "missing_index"})
	}
	if m.RowsExamined > 100000 && m.IsIntentionalScan {
		causes = append(causes, rootCause{kind: "large_scan"})
	}
	return causes
}

// suppressByRootCause marks generic missing-index/full-table-scan findings
// Suppressed (they stay in the returned slice) when
// a function_on_column or leading_wildcard root cause already explains them;
// a bare missing_index root cause keeps them (there's nothing more specific
// to say).
func suppressByRootCause(all []finding.Finding, causes []rootCause) []finding.Finding {
	suppressGeneric := false
	for _, c := range causes {
		if c.kind == "function_on_column" || c.kind == "leading_wildcard" {
			suppressGeneric = true
		}
	}
	if !suppressGeneric {
		return all
	}
	out := make([]finding.Finding, 0, len(all))
	for _, f := range all {
		lower := strings.ToLower(f.Title)
		if f.Category == finding.CategoryIndex && strings.Contains(lower, "missing index") {
			f.Suppressed = true
		}
		if strings.Contains(lower, "full table scan") {
			f.Suppressed = true
		}
		out = append(out, f)
	}
	return out
}

// subsumeGenericNoIndex marks a generic scan-category finding for a table
// Suppressed
// once C11 has produced a concrete index recommendation for that same
// table — currently a forward-looking no-op since every present analyzer
// that flags missing indexing is C11 itself, but kept so a future generic
// scan-category finding is automatically subsumed rather than duplicated.
func subsumeGenericNoIndex(all []finding.Finding, idx indexsynth.Result) []finding.Finding {
	if len(idx.Recommendations) == 0 {
		return all
	}
	recommended := map[string]bool{}
	for _, r := range idx.Recommendations {
		recommended[r.Table] = true
	}
	out := make([]finding.Finding, 0, len(all))
	for _, f := range all {
		if f.Category == finding.CategoryScan && recommended[f.Metadata["table"]] {
			f.Suppressed = true
		}
		out = append(out, f)
	}
	return out
}

func downgradeIntentionalScanRegressions(all []finding.Finding) []finding.Finding {
	out := make([]finding.Finding, 0, len(all))
	for _, f := range all {
		if f.Category == finding.CategoryRegression && f.Severity > finding.Info {
			f.Severity = finding.Info
		}
		out = append(out, f)
	}
	return out
}

func selectTopRecommendation(causes []rootCause, sqlInfo *sqllite.Info, m *metrics.Metrics, all []finding.Finding) string {
	for _, c := range causes {
		switch c.kind {
		case "function_on_column":
			if c.detail != "" {
				return "Remove the function wrapping " + c.detail + " so the optimizer can use an index, or add a generated-column index."
			}
			return "Remove the function wrapping the filtered column so the optimizer can use an index."
		case "leading_wildcard":
			return "Avoid a leading '%' in this LIKE pattern, or switch to a full-text index for substring search."
		}
	}
	if sqlInfo != nil && sqlInfo.HasStar && m.IsIndexBacked {
		return "Replace SELECT * with explicit columns to allow a covering index."
	}
	if !m.HasCoveringIndex && m.PrimaryAccessType.IsIndexBacked() {
		return "Extend the lookup index to cover the selected columns and avoid the extra row fetch."
	}
	for _, f := range all {
		if !f.Suppressed && f.Recommendation != "" {
			return f.Recommendation
		}
	}
	return ""
}
