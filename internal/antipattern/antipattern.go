// Package antipattern implements C10: regex/structural detection of
// common SQL anti-patterns.
package antipattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/sqllite"
)

// Config is the C10 configuration surface (spec §6).
type Config struct {
	OrChainThreshold        int
	MissingLimitRowThreshold int64
}

func DefaultConfig() Config {
	return Config{OrChainThreshold: 3, MissingLimitRowThreshold: 1000}
}

var reFunctionOnColumn = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)\s*\(\s*([a-zA-Z_][a-zA-Z0-9_.` + "`" + `]*)\s*\)\s*(=|>|<|>=|<=|<>|!=)`)
var reOrderByRand = regexp.MustCompile(`(?i)\border\s+by\s+rand\s*\(\s*\)`)

var knownFuncs = map[string]bool{
	"upper": true, "lower": true, "year": true, "month": true, "day": true,
	"date": true, "trim": true, "concat": true, "substring": true, "cast": true,
	"abs": true, "round": true, "left": true, "right": true,
}

// Pattern is one detected anti-pattern instance.
type Pattern struct {
	Name     string
	Metadata map[string]string
}

// Result is the full C10 output.
type Result struct {
	Patterns []Pattern
	Findings []finding.Finding
}

// Analyze runs C10.
func Analyze(sql string, info *sqllite.Info, m *metrics.Metrics, cfg Config) Result {
	var res Result
	add := func(name string, sev finding.Severity, title, desc, rec string, meta map[string]string) {
		res.Patterns = append(res.Patterns, Pattern{Name: name, Metadata: meta})
		res.Findings = append(res.Findings, finding.Finding{
			Severity: sev, Category: finding.CategoryAntiPattern,
			Title: title, Description: desc, Recommendation: rec, Metadata: meta,
		})
	}

	if info != nil && info.HasStar {
		add("select_star", finding.Medium, "SELECT *",
			"Selecting all columns prevents covering-index use and returns unnecessary data.",
			"Replace SELECT * with the explicit columns this caller needs.", nil)
	}

	for _, fm := range reFunctionOnColumn.FindAllStringSubmatch(sql, -1) {
		fn := strings.ToLower(fm[1])
		if !knownFuncs[fn] {
			continue
		}
		add("function_on_column", finding.Medium, "Function wrapping a column in a predicate",
			fmt.Sprintf("%s(%s) prevents the optimizer from using an index on %s.", fm[1], fm[2], fm[2]),
			fmt.Sprintf("Rewrite the predicate so %s is unwrapped, or add a functional/generated-column index.", fm[2]),
			map[string]string{"function": fm[1], "column": fm[2]})
	}

	if info != nil && info.OrChainCount >= cfg.OrChainThreshold {
		add("or_chain", finding.Medium, "Long OR chain",
			fmt.Sprintf("This predicate has %d OR branches, which often defeats index usage.", info.OrChainCount),
			"Consider rewriting as UNION ALL of indexed branches or an IN (...) list.", map[string]string{"count": fmt.Sprint(info.OrChainCount)})
	}

	if info != nil && info.HasCorrelatedSubquery {
		add("correlated_subquery", finding.Medium, "Correlated subquery",
			"A subquery in this statement references an outer-query table, forcing per-row re-evaluation.",
			"Rewrite as a JOIN or a derived table where possible.", nil)
	}

	if info != nil && info.HasNotInSubquery {
		add("not_in_subquery", finding.Medium, "NOT IN with subquery",
			"NOT IN (subquery) can behave incorrectly with NULLs and often performs worse than NOT EXISTS.",
			"Use NOT EXISTS or LEFT JOIN ... IS NULL instead.", nil)
	}

	if info != nil && info.HasLeadingWildcardLike {
		add("leading_wildcard", finding.Medium, "Leading wildcard LIKE",
			"A LIKE pattern starting with '%' cannot use a standard B-tree index prefix.",
			"Avoid a leading '%', or use a full-text index if this query represents a true substring search.", nil)
	}

	if info != nil && !info.HasLimit && !info.HasAggregation && m != nil && m.RowsExamined > cfg.MissingLimitRowThreshold {
		add("missing_limit", finding.Info, "Missing LIMIT on a large scan",
			fmt.Sprintf("This query examines %d rows with no LIMIT clause.", m.RowsExamined),
			"Add a LIMIT if only a bounded number of rows is actually needed by the caller.", nil)
	}

	if reOrderByRand.MatchString(sql) {
		add("order_by_rand", finding.Critical, "ORDER BY RAND()",
			"ORDER BY RAND() forces a full sort of the entire result set to pick a random sample.",
			"Use a pre-computed random key column or an application-level sampling strategy instead.", nil)
	}

	if info != nil && info.HasDistinct && len(info.Tables) == 1 && isPrimaryKeyedSelect(info) {
		add("redundant_distinct", finding.Info, "Redundant DISTINCT",
			"DISTINCT on a single-table query already unique by its selected key adds an unnecessary sort/dedup pass.",
			"Remove DISTINCT if the result is already guaranteed unique.", nil)
	}

	return res
}

// isPrimaryKeyedSelect is a coarse heuristic: true when the query has at
// least one WHERE predicate, taken as a sign that a DISTINCT pass is likely
// redundant. It looks neither at the selected columns nor at JOINs, and it
// does not resolve actual primary-key metadata (that requires live schema
// introspection, out of scope for this light check).
func isPrimaryKeyedSelect(info *sqllite.Info) bool {
	return len(info.Predicates) > 0
}
