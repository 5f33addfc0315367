// Package indexsynth implements C11: the Equality-Range-Sort composite
// index recommendation rule.
package indexsynth

import (
	"fmt"
	"strings"

	"github.com/mpaulson/sqlsentinel/internal/drift"
	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
	"github.com/mpaulson/sqlsentinel/internal/sqllite"
)

// Config is the C11 configuration surface (spec §6).
type Config struct {
	MaxRecommendations  int
	MaxColumnsPerIndex  int
}

func DefaultConfig() Config {
	return Config{MaxRecommendations: 3, MaxColumnsPerIndex: 5}
}

// IndexType distinguishes single-column, composite, and covering
// recommendations.
type IndexType string

const (
	TypeSingle    IndexType = "single"
	TypeComposite IndexType = "composite"
	TypeCovering  IndexType = "covering"
)

// Assessment classifies an existing index against the recommendation.
type Assessment string

const (
	AssessOptimal    Assessment = "optimal"
	AssessSuboptimal Assessment = "suboptimal"
	AssessRedundant  Assessment = "redundant"
	AssessUnused     Assessment = "unused"
)

// ExistingIndex is one index already present on a table, supplied by the
// schema introspector.
type ExistingIndex struct {
	Name    string
	Table   string
	Columns []string
}

// Recommendation is one synthesized index.
type Recommendation struct {
	Table      string
	Columns    []string
	Type       IndexType
	DDL        string
	Improvement string // "high" | "medium" | "low"
	OverlapsWith []string
}

// Result is the full C11 output.
type Result struct {
	Recommendations []Recommendation
	Assessments     map[string]Assessment // existing index name -> assessment
	Findings        []finding.Finding
}

// Analyze runs C11. existing is keyed by table name.
func Analyze(info *sqllite.Info, m *metrics.Metrics, existing map[string][]ExistingIndex, driftResult *drift.Result, cfg Config) Result {
	res := Result{Assessments: map[string]Assessment{}}

	if info == nil {
		return res
	}
	switch m.PrimaryAccessType {
	case metrics.AccessConstRow, metrics.AccessSingleRowLookup, metrics.AccessZeroRowConst:
		return res
	}

	tables := relevantTables(info)
	underEstimated := map[string]bool{}
	if driftResult != nil {
		for _, td := range driftResult.PerTable {
			if td.Direction == drift.DirectionUnder {
				underEstimated[td.Table] = true
			}
		}
	}

	for _, table := range tables {
		if len(res.Recommendations) >= cfg.MaxRecommendations {
			break
		}
		equality, rang, sort := classifyColumns(info, table)
		if len(equality) == 0 && len(rang) == 0 && len(sort) == 0 {
			continue
		}

		cols := dedupAppend(nil, equality)
		cols = dedupAppend(cols, rang)
		cols = dedupAppend(cols, sort)
		if len(cols) > cfg.MaxColumnsPerIndex {
			cols = cols[:cfg.MaxColumnsPerIndex]
		}

		idxType := TypeComposite
		if len(equality) == 1 && len(rang) == 0 && len(sort) == 0 {
			idxType = TypeSingle
		}
		if selectCols, ok := info.SelectColumns[table]; ok && len(selectCols) > 0 && !info.HasStar {
			cols = dedupAppend(cols, selectCols)
			if len(cols) > cfg.MaxColumnsPerIndex {
				cols = cols[:cfg.MaxColumnsPerIndex]
			}
			idxType = TypeCovering
		}

		assessment, overlaps := assessAgainstExisting(table, cols, existing[table])
		for _, ex := range existing[table] {
			res.Assessments[ex.Name] = assessment
		}

		improvement := improvementTier(m.RowsExamined, assessment)
		if underEstimated[table] {
			improvement = upgradeTier(improvement)
		}

		ddl := buildDDL(table, cols)
		rec := Recommendation{
			Table: table, Columns: cols, Type: idxType, DDL: ddl,
			Improvement: improvement, OverlapsWith: overlaps,
		}
		res.Recommendations = append(res.Recommendations, rec)

		res.Findings = append(res.Findings, finding.Finding{
			Severity:    severityFor(improvement),
			Category:    finding.CategoryIndex,
			Title:       fmt.Sprintf("Missing index on %s", table),
			Description: fmt.Sprintf("Columns %s on %s are filtered/sorted without a supporting composite index.", strings.Join(cols, ", "), table),
			Recommendation: ddl,
			Metadata: map[string]string{"table": table, "improvement": improvement, "type": string(idxType)},
		})
	}

	return res
}

func severityFor(improvement string) finding.Severity {
	switch improvement {
	case "high":
		return finding.High
	case "medium":
		return finding.Medium
	default:
		return finding.Low
	}
}

func relevantTables(info *sqllite.Info) []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, p := range info.Predicates {
		add(resolveTableName(info, p.Table))
	}
	for _, o := range info.OrderBy {
		add(resolveTableName(info, o.Table))
	}
	return out
}

// resolveTableName maps an alias (or blank qualifier in a single-table
// query) back to the underlying base table name.
func resolveTableName(info *sqllite.Info, aliasOrTable string) string {
	if aliasOrTable == "" {
		if len(info.Tables) == 1 && !info.Tables[0].IsDerived {
			return info.Tables[0].Name
		}
		return ""
	}
	for _, t := range info.Tables {
		if t.Alias == aliasOrTable || t.Name == aliasOrTable {
			if t.IsDerived {
				return ""
			}
			return t.Name
		}
	}
	return ""
}

func classifyColumns(info *sqllite.Info, table string) (equality, rang, sort []string) {
	for _, p := range info.Predicates {
		if resolveTableName(info, p.Table) != table {
			continue
		}
		switch p.Kind {
		case sqllite.PredicateEquality:
			equality = append(equality, p.Column)
		case sqllite.PredicateRange:
			rang = append(rang, p.Column)
		}
	}
	for _, o := range info.OrderBy {
		if resolveTableName(info, o.Table) != table {
			continue
		}
		sort = append(sort, o.Column)
	}
	return
}

func dedupAppend(dst []string, src []string) []string {
	seen := map[string]bool{}
	for _, d := range dst {
		seen[d] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

func assessAgainstExisting(table string, recommended []string, existing []ExistingIndex) (Assessment, []string) {
	var overlaps []string
	best := AssessUnused
	for _, ex := range existing {
		if len(ex.Columns) == 0 || len(recommended) == 0 {
			continue
		}
		if ex.Columns[0] == recommended[0] {
			overlaps = append(overlaps, ex.Name)
			if coversPrefix(ex.Columns, recommended) {
				best = AssessOptimal
			} else if best != AssessOptimal {
				best = AssessSuboptimal
			}
		} else if isPrefixOf(ex.Columns, recommended) || isPrefixOf(recommended, ex.Columns) {
			if best == AssessUnused {
				best = AssessRedundant
			}
		}
	}
	return best, overlaps
}

func coversPrefix(existing, recommended []string) bool {
	if len(existing) < len(recommended) {
		return false
	}
	for i, c := range recommended {
		if existing[i] != c {
			return false
		}
	}
	return true
}

func isPrefixOf(prefix, full []string) bool {
	if len(prefix) >= len(full) {
		return false
	}
	for i, c := range prefix {
		if full[i] != c {
			return false
		}
	}
	return true
}

func improvementTier(rowsExamined int64, assessment Assessment) string {
	if assessment == AssessOptimal {
		return "low"
	}
	switch {
	case rowsExamined > 10000:
		return "high"
	case rowsExamined >= 1000:
		return "medium"
	default:
		return "low"
	}
}

func upgradeTier(t string) string {
	switch t {
	case "low":
		return "medium"
	case "medium":
		return "high"
	default:
		return t
	}
}

func buildDDL(table string, cols []string) string {
	name := fmt.Sprintf("idx_%s", table)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		name += "_" + c
		quoted[i] = "`" + c + "`"
	}
	return fmt.Sprintf("CREATE INDEX %s ON `%s` (%s);", name, table, strings.Join(quoted, ", "))
}
