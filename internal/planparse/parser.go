package planparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// measurementRe matches the `(actual time=S..E rows=R loops=L)` block;
// numbers may be in scientific notation, per spec §6.
var measurementRe = regexp.MustCompile(`\(actual time=([0-9.eE+-]+)\.\.([0-9.eE+-]+) rows=([0-9.eE+-]+) loops=([0-9.eE+-]+)\)`)

// estimateRe matches the `(cost=X rows=Y)` block.
var estimateRe = regexp.MustCompile(`\(cost=([0-9.eE+-]+) rows=([0-9.eE+-]+)\)`)

var neverExecutedRe = regexp.MustCompile(`\(never executed\)`)

// nodeLineRe splits a `-> Operator text` line into its indentation and body.
var nodeLineRe = regexp.MustCompile(`^(\s*)->\s?(.*)$`)

// onTableRe / usingIndexRe extract the textual anchors spec §4.1 names.
var onTableRe = regexp.MustCompile(`(?i)\bon\s+` + "`?" + `([A-Za-z0-9_$.<>]+)` + "`?")
var usingIndexRe = regexp.MustCompile(`(?i)\busing\s+` + "`?" + `([A-Za-z0-9_$]+)` + "`?")

type prefixRule struct {
	prefixes []string
	access   metrics.AccessType
}

// accessPrefixRules is evaluated top-to-bottom; first match wins, per the
// literal priority order in spec §4.1.
var accessPrefixRules = []prefixRule{
	{[]string{"zero rows"}, metrics.AccessZeroRowConst},
	{[]string{"constant row from", "rows fetched before execution"}, metrics.AccessConstRow},
	{[]string{"single-row covering index lookup", "single-row index lookup"}, metrics.AccessSingleRowLookup},
	{[]string{"covering index lookup"}, metrics.AccessCoveringIndexLookup},
	{[]string{"index lookup"}, metrics.AccessIndexLookup},
	{[]string{"full-text index search"}, metrics.AccessFulltextIndex},
	{[]string{"index range scan"}, metrics.AccessIndexRangeScan},
	{[]string{"index scan"}, metrics.AccessIndexScan},
	{[]string{"index merge"}, metrics.AccessIndexMerge},
	{[]string{"table scan on"}, metrics.AccessTableScan},
	{[]string{"nested loop"}, metrics.AccessNestedLoop},
	{[]string{"hash join"}, metrics.AccessHashJoin},
	{[]string{"block nested loop"}, metrics.AccessBlockNestedLoop},
	{[]string{"limit"}, metrics.AccessLimit},
	{[]string{"sort"}, metrics.AccessSort},
	{[]string{"materialize"}, metrics.AccessMaterialize},
	{[]string{"filter"}, metrics.AccessFilter},
}

// Parse tokenises plan text into a node tree. On empty or structurally
// malformed input it returns an empty, invalid tree rather than an error
// (spec §4.1's failure contract — plan parse failures are reported values,
// not exceptions, per §7's PlanParseFailure kind).
func Parse(text string) *Tree {
	lines := strings.Split(text, "\n")

	type stackEntry struct {
		indent int
		node   *PlanNode
	}

	var roots []*PlanNode
	var stack []stackEntry
	var last *PlanNode
	var subqueryAliases []string

	appendMeasurement := func(n *PlanNode, line string) {
		if neverExecutedRe.MatchString(line) {
			n.NeverExecuted = true
			return
		}
		if m := measurementRe.FindStringSubmatch(line); m != nil {
			n.HasMeasurement = true
			n.ActualTimeStart = parseFloat(m[1])
			n.ActualTimeEnd = parseFloat(m[2])
			n.ActualRows = parseFloat(m[3])
			n.Loops = parseFloat(m[4])
		}
		if m := estimateRe.FindStringSubmatch(line); m != nil {
			n.HasEstimate = true
			n.Cost = parseFloat(m[1])
			n.EstimatedRows = parseFloat(m[2])
		}
	}

	anyMeasured := false

	for _, rawLine := range lines {
		if strings.TrimSpace(rawLine) == "" {
			continue
		}
		if m := nodeLineRe.FindStringSubmatch(rawLine); m != nil {
			indent := len(m[1])
			body := m[2]

			node := &PlanNode{RawLine: strings.TrimSpace(rawLine), Operation: body}
			classify(node, body, &subqueryAliases)
			appendMeasurement(node, body)
			if node.HasMeasurement {
				anyMeasured = true
			}

			for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				roots = append(roots, node)
			} else {
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, stackEntry{indent: indent, node: node})
			last = node
			continue
		}
		// Continuation line: append to the previous node's text until its
		// measurement block is complete.
		if last != nil {
			last.Operation += " " + strings.TrimSpace(rawLine)
			last.RawLine += " " + strings.TrimSpace(rawLine)
			classify(last, last.Operation, &subqueryAliases)
			appendMeasurement(last, rawLine)
			if last.HasMeasurement {
				anyMeasured = true
			}
		}
	}

	return &Tree{Roots: roots, Valid: anyMeasured}
}

func classify(n *PlanNode, body string, subqueryAliases *[]string) {
	lower := strings.ToLower(body)

	n.AccessType = metrics.AccessUnknown
	for _, rule := range accessPrefixRules {
		matched := false
		for _, p := range rule.prefixes {
			if strings.HasPrefix(lower, p) {
				matched = true
				break
			}
		}
		if matched {
			n.AccessType = rule.access
			break
		}
	}

	if tm := onTableRe.FindStringSubmatch(body); tm != nil {
		n.Table = tm[1]
	}
	if um := usingIndexRe.FindStringSubmatch(body); um != nil {
		n.Index = um[1]
	}

	if n.AccessType == metrics.AccessMaterialize {
		// A Materialize node's table name (when present) is a subquery
		// alias that later Table-scan-on-<alias> nodes should be excluded
		// against (spec §9 open question c).
		if n.Table != "" {
			*subqueryAliases = append(*subqueryAliases, n.Table)
		}
	}

	if n.AccessType == metrics.AccessTableScan && n.Table != "" {
		if isDerivedTableName(n.Table, *subqueryAliases) {
			n.IsDerivedTable = true
			n.AccessType = metrics.AccessUnknown
		}
	}
}

func isDerivedTableName(name string, subqueryAliases []string) bool {
	if name == "<temporary>" {
		return true
	}
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") {
		return true
	}
	for _, alias := range subqueryAliases {
		if alias == name {
			return true
		}
	}
	return false
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
