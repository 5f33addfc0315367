// Package sqllite implements C3: light, non-general-purpose SQL
// introspection — table aliases, predicate columns, ORDER BY keys, and the
// handful of structural flags the anti-pattern detector and index
// synthesizer need. It is deliberately not a query rewriter or planner.
package sqllite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"vitess.io/vitess/go/vt/sqlparser"
)

var (
	parserOnce      sync.Once
	globalParser    *sqlparser.Parser
	globalParserErr error
)

func getParser() (*sqlparser.Parser, error) {
	parserOnce.Do(func() {
		globalParser, globalParserErr = sqlparser.New(sqlparser.Options{})
	})
	return globalParser, globalParserErr
}

// PredicateKind classifies one WHERE-clause column reference for the
// Equality-Range-Sort index-ordering rule (spec §4.10 / Glossary ERS).
type PredicateKind string

const (
	PredicateEquality PredicateKind = "equality"
	PredicateRange    PredicateKind = "range" // covers >, <, BETWEEN, IN
)

// Predicate is one classified column reference found in a WHERE clause.
type Predicate struct {
	Table string
	Column string
	Kind  PredicateKind
}

// TableRef is one FROM-clause table, alias, or derived (sub-query) source.
// Per spec §3, a derived table's Name is empty (the "null" alias case).
type TableRef struct {
	Name      string
	Alias     string
	IsDerived bool
}

// OrderKey is one ORDER BY column.
type OrderKey struct {
	Table  string
	Column string
	Desc   bool
}

// Info is the full C3 light-parse result consumed by the index synthesizer,
// anti-pattern detector, and scalability estimator.
type Info struct {
	RawSQL string

	Tables []TableRef
	Where  string

	Predicates []Predicate
	OrderBy    []OrderKey

	SelectColumns map[string][]string // table -> concrete (non-*) column names
	HasStar       bool

	HasLimit   bool
	LimitValue int

	HasExists             bool
	HasAggregation         bool
	HasGroupBy             bool
	HasDistinct            bool
	HasOrderBy             bool
	HasSubquery            bool
	HasCorrelatedSubquery  bool
	HasNotInSubquery       bool
	HasLeadingWildcardLike bool
	OrChainCount           int
}

var (
	reEquality       = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_.` + "`" + `]*)\s*(?:<>|!=)?=\s*`)
	reNotEquality    = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_.` + "`" + `]*)\s*(?:<>|!=)\s*`)
	reRangeOp        = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_.` + "`" + `]*)\s*(>=|<=|>|<)\s*`)
	reIn             = regexp.MustCompile(`(?i)([a-zA-Z_][a-zA-Z0-9_.` + "`" + `]*)\s+in\s*\(`)
	reBetween        = regexp.MustCompile(`(?i)([a-zA-Z_][a-zA-Z0-9_.` + "`" + `]*)\s+between\s+`)
	reDistinct       = regexp.MustCompile(`(?i)^\s*select\s+distinct\b`)
	reAggregate      = regexp.MustCompile(`(?i)\b(count|sum|avg|min|max)\s*\(`)
	reExists         = regexp.MustCompile(`(?i)\bexists\s*\(`)
	reNotInSubquery  = regexp.MustCompile(`(?i)\bnot\s+in\s*\(\s*select\b`)
	reLeadingWildcard = regexp.MustCompile(`(?i)\blike\s+['"]%`)
	reOr             = regexp.MustCompile(`(?i)\bor\b`)
	reSubquery       = regexp.MustCompile(`(?i)\(\s*select\b`)
)

// Parse performs the C3 light parse. Parse failures are returned as errors
// (not the PlanParseFailure kind, which is specific to plan text); callers
// should treat a non-nil error as "light-parse unavailable" and degrade
// gracefully rather than aborting analysis.
func Parse(sql string) (*Info, error) {
	raw := strings.TrimSpace(sql)
	raw = strings.TrimRight(raw, ";")

	info := &Info{
		RawSQL:        raw,
		SelectColumns: map[string][]string{},
	}

	p, err := getParser()
	if err != nil {
		return info, fmt.Errorf("sqllite: parser init: %w", err)
	}
	stmt, err := p.Parse(raw)
	if err != nil {
		return info, fmt.Errorf("sqllite: parse: %w", err)
	}

	var tableExprs sqlparser.TableExprs
	var where *sqlparser.Where

	var selectTables []TableRef

	switch s := stmt.(type) {
	case *sqlparser.Select:
		tableExprs = s.From
		where = s.Where
		selectTables = collectTables(tableExprs)
		info.HasOrderBy = len(s.OrderBy) > 0
		for _, ord := range s.OrderBy {
			info.OrderBy = append(info.OrderBy, OrderKey{
				Column: columnName(ord.Expr),
				Table:  columnQualifier(ord.Expr),
				Desc:   strings.Contains(strings.ToLower(fmt.Sprint(ord.Direction)), "desc"),
			})
		}
		info.HasGroupBy = len(s.GroupBy) > 0
		if s.Limit != nil {
			info.HasLimit = true
			if lit, ok := s.Limit.Rowcount.(*sqlparser.Literal); ok {
				if v, convErr := strconv.Atoi(string(lit.Val)); convErr == nil {
					info.LimitValue = v
				}
			}
		}
		for _, sel := range s.SelectExprs {
			switch e := sel.(type) {
			case *sqlparser.StarExpr:
				info.HasStar = true
			case *sqlparser.AliasedExpr:
				if col, ok := e.Expr.(*sqlparser.ColName); ok {
					t := resolveTableQualifier(columnQualifier(col), selectTables)
					info.SelectColumns[t] = append(info.SelectColumns[t], col.Name.String())
				}
			}
		}
	case *sqlparser.Update:
		tableExprs = s.TableExprs
		where = s.Where
	case *sqlparser.Delete:
		tableExprs = s.TableExprs
		where = s.Where
	default:
		return info, fmt.Errorf("sqllite: unsupported statement type %T for light parse", stmt)
	}

	info.Tables = collectTables(tableExprs)

	if where != nil {
		info.Where = sqlparser.String(where.Expr)
		classifyPredicates(info)
	}

	info.HasDistinct = reDistinct.MatchString(raw)
	info.HasAggregation = reAggregate.MatchString(raw) || info.HasGroupBy
	info.HasExists = reExists.MatchString(raw)
	info.HasSubquery = reSubquery.MatchString(raw)
	info.HasNotInSubquery = reNotInSubquery.MatchString(raw)
	info.HasLeadingWildcardLike = reLeadingWildcard.MatchString(info.Where) || reLeadingWildcard.MatchString(raw)
	info.HasCorrelatedSubquery = detectCorrelatedSubquery(info)

	return info, nil
}

func columnName(e sqlparser.Expr) string {
	if col, ok := e.(*sqlparser.ColName); ok {
		return col.Name.String()
	}
	return sqlparser.String(e)
}

func columnQualifier(e sqlparser.Expr) string {
	if col, ok := e.(*sqlparser.ColName); ok {
		return col.Qualifier.Name.String()
	}
	return ""
}

// resolveTableQualifier maps an unqualified column's blank qualifier onto
// the query's sole table, so `SELECT id FROM orders` attributes `id` to
// `orders` instead of to the ambiguous "" key. Multi-table queries keep the
// blank qualifier as-is since it can't be resolved without alias analysis.
func resolveTableQualifier(qualifier string, tables []TableRef) string {
	if qualifier != "" || len(tables) != 1 {
		return qualifier
	}
	return tables[0].Name
}

func collectTables(exprs sqlparser.TableExprs) []TableRef {
	var refs []TableRef
	var walk func(sqlparser.TableExpr)
	walk = func(te sqlparser.TableExpr) {
		switch t := te.(type) {
		case *sqlparser.AliasedTableExpr:
			alias := t.As.String()
			switch inner := t.Expr.(type) {
			case sqlparser.TableName:
				refs = append(refs, TableRef{Name: inner.Name.String(), Alias: alias})
			default:
				// Derived table (sub-select): spec §3 names this the
				// "null" alias case — no base table name.
				refs = append(refs, TableRef{Name: "", Alias: alias, IsDerived: true})
			}
		case *sqlparser.JoinTableExpr:
			walk(t.LeftExpr)
			walk(t.RightExpr)
		case *sqlparser.ParenTableExpr:
			for _, e := range t.Exprs {
				walk(e)
			}
		}
	}
	for _, e := range exprs {
		walk(e)
	}
	return refs
}

func classifyPredicates(info *Info) {
	seen := map[string]int{}
	add := func(col string, kind PredicateKind) {
		col = strings.Trim(col, "`")
		table := ""
		c := col
		if idx := strings.LastIndex(col, "."); idx >= 0 {
			table = strings.Trim(col[:idx], "`")
			c = strings.Trim(col[idx+1:], "`")
		}
		key := fmt.Sprintf("%s.%s", table, c)
		if i, ok := seen[key]; ok {
			if kind == PredicateEquality {
				info.Predicates[i].Kind = PredicateEquality
			}
			return
		}
		seen[key] = len(info.Predicates)
		info.Predicates = append(info.Predicates, Predicate{Table: table, Column: c, Kind: kind})
	}

	where := info.Where

	normalize := func(col string) string {
		col = strings.Trim(col, "`")
		table, c := "", col
		if idx := strings.LastIndex(col, "."); idx >= 0 {
			table = strings.Trim(col[:idx], "`")
			c = strings.Trim(col[idx+1:], "`")
		}
		return table + "." + c
	}
	notEqual := map[string]bool{}
	for _, m := range reNotEquality.FindAllStringSubmatch(where, -1) {
		notEqual[normalize(m[1])] = true
	}

	// Range/IN/BETWEEN operators are classified before the bare equality
	// regex; a column compared both ways (e.g. `a=1 AND a>0`) is recorded
	// once, and its equality match upgrades the earlier range entry, so it
	// ends up as equality — the ERS precedence spec §4.10 wants.
	for _, m := range reBetween.FindAllStringSubmatch(where, -1) {
		add(m[1], PredicateRange)
	}
	for _, m := range reIn.FindAllStringSubmatch(where, -1) {
		add(m[1], PredicateRange)
	}
	for _, m := range reRangeOp.FindAllStringSubmatch(where, -1) {
		add(m[1], PredicateRange)
	}
	for _, m := range reEquality.FindAllStringSubmatch(where, -1) {
		if notEqual[normalize(m[1])] {
			continue
		}
		add(m[1], PredicateEquality)
	}

	info.OrChainCount = len(reOr.FindAllString(where, -1))
}

// detectCorrelatedSubquery is a best-effort heuristic: a subquery is
// treated as correlated when it references a table alias defined by the
// outer query. Precise correlation detection would require a full scope
// resolver, which is out of scope for light SQL introspection.
func detectCorrelatedSubquery(info *Info) bool {
	if !info.HasSubquery {
		return false
	}
	idx := reSubquery.FindStringIndex(info.RawSQL)
	if idx == nil {
		return false
	}
	inner := info.RawSQL[idx[0]:]
	for _, t := range info.Tables {
		alias := t.Alias
		if alias == "" {
			alias = t.Name
		}
		if alias == "" {
			continue
		}
		if strings.Contains(inner, alias+".") {
			return true
		}
	}
	return false
}
