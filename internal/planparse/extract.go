package planparse

import (
	"math"
	"sort"
	"strings"

	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// ExtractOptions carries the caller-supplied flags metrics extraction needs
// but cannot derive from the plan text alone.
type ExtractOptions struct {
	IsIntentionalScan bool
	Profile           *metrics.ExecutionProfile
}

// ExtractMetrics implements C2: walks the tree, classifies the worst access
// type, and computes the full Metrics record per spec §4.2.
func ExtractMetrics(t *Tree, opts ExtractOptions) *metrics.Metrics {
	m := &metrics.Metrics{
		ParsingValid:      t != nil && t.Valid,
		IsIntentionalScan: opts.IsIntentionalScan,
		PerTableEstimates: map[string]metrics.TableEstimate{},
		Metadata:          map[string]string{},
	}
	if t == nil {
		m.PrimaryAccessType = metrics.AccessUnknown
		m.Complexity = metrics.ComplexityLinear
		return m
	}

	var (
		worst           = metrics.AccessUnknown
		haveWorst       bool
		rowsExamined    float64
		fanout          float64
		tablesSeen      = map[string]bool{}
		indexesSeen     = map[string]bool{}
		hasTableScan    bool
		hasFilesort     bool
		hasTempTable    bool
		hasDiskTemp     bool
		hasWeedout      bool
		hasIndexMerge   bool
		hasMaterialize  bool
		maxNestedDepth  int
		execTimeMs      float64
		rowsReturned    float64
	)

	var walk func(n *PlanNode, skip bool, nestedDepth int)
	walk = func(n *PlanNode, skip bool, nestedDepth int) {
		if n == nil {
			return
		}
		effSkip := skip || n.NeverExecuted

		lower := strings.ToLower(n.Operation)
		if strings.Contains(lower, "weedout") {
			hasWeedout = true
		}
		if strings.Contains(lower, "temporary") {
			hasTempTable = true
		}
		if strings.Contains(lower, "disk") {
			hasDiskTemp = true
		}
		if strings.Contains(lower, "covering index") {
			m.HasCoveringIndex = true
		}

		curNestedDepth := nestedDepth
		if n.AccessType == metrics.AccessNestedLoop {
			curNestedDepth++
			if curNestedDepth > maxNestedDepth {
				maxNestedDepth = curNestedDepth
			}
		}
		if n.AccessType == metrics.AccessMaterialize {
			hasMaterialize = true
		}
		if n.AccessType == metrics.AccessIndexMerge {
			hasIndexMerge = true
		}
		if n.AccessType == metrics.AccessSort {
			hasFilesort = true
		}

		if !effSkip && n.IsIONode() {
			rows := n.ActualRows * maxF(n.Loops, 1)
			if n.HasMeasurement {
				rowsExamined += rows
				if rows > fanout {
					fanout = rows
				}
			}
			if n.AccessType == metrics.AccessTableScan {
				hasTableScan = true
			}
			if !haveWorst || n.AccessType.WorseThan(worst) {
				worst = n.AccessType
				haveWorst = true
			}
			if n.Table != "" {
				tablesSeen[n.Table] = true
				te := m.PerTableEstimates[n.Table]
				te.Table = n.Table
				// Both fields accumulate loops-weighted totals so the
				// drift analyzer (C8) can compare like with like.
				te.EstimatedRows += n.EstimatedRows * maxF(n.Loops, 1)
				te.ActualRows += n.ActualRows * maxF(n.Loops, 1)
				m.PerTableEstimates[n.Table] = te
			}
			if n.Index != "" {
				indexesSeen[n.Index] = true
			}
		}

		for _, c := range n.Children {
			walk(c, effSkip, curNestedDepth)
		}
	}
	for _, r := range t.Roots {
		walk(r, false, 0)
	}

	// Execution time and rows returned come from the root node's own
	// measurement (the outermost operator reports the full query time and
	// final row count).
	if len(t.Roots) > 0 {
		root := t.Roots[0]
		if root.HasMeasurement {
			execTimeMs = root.ActualTimeEnd
			rowsReturned = root.ActualRows * maxF(root.Loops, 1)
		}
	}

	m.ExecutionTimeMs = execTimeMs
	m.RowsExamined = int64(math.Round(rowsExamined))
	m.RowsReturned = int64(math.Round(rowsReturned))
	m.FanoutFactor = fanout
	m.NestedLoopDepth = maxNestedDepth
	m.HasTableScan = hasTableScan
	m.HasFilesort = hasFilesort
	m.HasTempTable = hasTempTable
	m.HasDiskTemp = hasDiskTemp
	m.HasWeedout = hasWeedout
	m.HasIndexMerge = hasIndexMerge
	m.HasMaterialization = hasMaterialize

	if !haveWorst {
		worst = metrics.AccessUnknown
	}
	m.PrimaryAccessType = worst
	m.MySQLAccessType = worst.MySQLAccessType()
	m.IsZeroRowConst = worst == metrics.AccessZeroRowConst
	m.IsIndexBacked = worst.IsIndexBacked()
	if worst == metrics.AccessCoveringIndexLookup {
		m.HasCoveringIndex = true
	}

	m.TablesAccessed = keys(tablesSeen)
	m.IndexesUsed = keys(indexesSeen)

	m.Complexity = classifyComplexity(worst, m.IsZeroRowConst, hasFilesort, maxNestedDepth, t)
	m.HasEarlyTermination = hasEarlyTermination(t)

	if opts.Profile != nil {
		if opts.Profile.NestedLoopDepth > m.NestedLoopDepth {
			m.NestedLoopDepth = opts.Profile.NestedLoopDepth
		}
	}

	return m
}

func classifyComplexity(worst metrics.AccessType, isZero bool, hasFilesort bool, nestedDepth int, t *Tree) metrics.ComplexityClass {
	if isZero {
		return metrics.ComplexityConstant
	}
	var base metrics.ComplexityClass
	switch worst {
	case metrics.AccessZeroRowConst, metrics.AccessConstRow, metrics.AccessSingleRowLookup:
		base = metrics.ComplexityConstant
	case metrics.AccessCoveringIndexLookup, metrics.AccessIndexLookup, metrics.AccessFulltextIndex:
		base = metrics.ComplexityLogarithmic
	case metrics.AccessIndexRangeScan:
		base = metrics.ComplexityLogRange
	case metrics.AccessIndexScan, metrics.AccessTableScan, metrics.AccessIndexMerge:
		base = metrics.ComplexityLinear
	default:
		base = metrics.ComplexityLinear
	}

	if hasFilesort {
		base = metrics.Max(base, metrics.ComplexityLinearithmic)
	}

	maxLoops := 0.0
	innerTableScan := false
	var findInner func(n *PlanNode, depth int)
	findInner = func(n *PlanNode, depth int) {
		if n == nil {
			return
		}
		if n.Loops > maxLoops {
			maxLoops = n.Loops
		}
		if depth >= 1 && n.AccessType == metrics.AccessTableScan {
			innerTableScan = true
		}
		nd := depth
		if n.AccessType == metrics.AccessNestedLoop {
			nd++
		}
		for _, c := range n.Children {
			findInner(c, nd)
		}
	}
	if t != nil {
		for _, r := range t.Roots {
			findInner(r, 0)
		}
	}

	if nestedDepth >= 2 && innerTableScan {
		base = metrics.Max(base, metrics.ComplexityQuadratic)
	}
	if nestedDepth >= 4 && maxLoops > 1000 {
		base = metrics.Max(base, metrics.ComplexityQuadratic)
	}

	return base
}

// hasEarlyTermination reports whether a Limit node sits above I/O nodes
// whose reported actual rows are already ≤ the limit's own actual rows.
func hasEarlyTermination(t *Tree) bool {
	found := false
	var walk func(n *PlanNode)
	walk = func(n *PlanNode) {
		if n == nil || found {
			return
		}
		if n.AccessType == metrics.AccessLimit && n.HasMeasurement {
			limitRows := n.ActualRows
			if limitRows <= 0 {
				limitRows = n.EstimatedRows
			}
			if limitRows > 0 {
				var ioRows float64
				n.Walk(func(sub *PlanNode) {
					if sub != n && sub.IsIONode() && sub.HasMeasurement {
						r := sub.ActualRows * maxF(sub.Loops, 1)
						if r > ioRows {
							ioRows = r
						}
					}
				})
				if ioRows > 0 && ioRows <= limitRows {
					found = true
					return
				}
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
	return found
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
