// Package metrics defines the shared vocabulary (AccessType, ComplexityClass,
// Metrics, ExecutionProfile, EnvironmentContext) produced by the plan parser
// and metrics extractor (C1/C2) and consumed by every downstream analyzer.
package metrics

// AccessType is the closed sum of how a plan node reaches its data, ordered
// by severity (best access to worst) per spec §3. Flow operators
// (nested_loop, hash_join, block_nested_loop, limit, sort, materialize,
// filter) are part of the same sum but are not I/O nodes and have no
// meaningful relative severity against the I/O types.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessZeroRowConst
	AccessConstRow
	AccessSingleRowLookup
	AccessCoveringIndexLookup
	AccessIndexLookup
	AccessFulltextIndex
	AccessIndexRangeScan
	AccessIndexScan
	AccessTableScan
	AccessIndexMerge
	AccessNestedLoop
	AccessHashJoin
	AccessBlockNestedLoop
	AccessLimit
	AccessSort
	AccessMaterialize
	AccessFilter
)

var accessTypeNames = map[AccessType]string{
	AccessUnknown:             "unknown",
	AccessZeroRowConst:        "zero_row_const",
	AccessConstRow:            "const_row",
	AccessSingleRowLookup:     "single_row_lookup",
	AccessCoveringIndexLookup: "covering_index_lookup",
	AccessIndexLookup:         "index_lookup",
	AccessFulltextIndex:       "fulltext_index",
	AccessIndexRangeScan:      "index_range_scan",
	AccessIndexScan:           "index_scan",
	AccessTableScan:           "table_scan",
	AccessIndexMerge:          "index_merge",
	AccessNestedLoop:          "nested_loop",
	AccessHashJoin:            "hash_join",
	AccessBlockNestedLoop:     "block_nested_loop",
	AccessLimit:               "limit",
	AccessSort:                "sort",
	AccessMaterialize:         "materialize",
	AccessFilter:              "filter",
}

func (a AccessType) String() string {
	if s, ok := accessTypeNames[a]; ok {
		return s
	}
	return "unknown"
}

// ioSeverity ranks I/O access types best-to-worst; index_lookup and
// fulltext_index are tied per spec §3 ("≈"). Non-I/O (flow) types are not
// part of this ordering.
var ioSeverity = map[AccessType]int{
	AccessZeroRowConst:        0,
	AccessConstRow:            1,
	AccessSingleRowLookup:     2,
	AccessCoveringIndexLookup: 3,
	AccessIndexLookup:         4,
	AccessFulltextIndex:       4,
	AccessIndexRangeScan:      5,
	AccessIndexScan:           6,
	AccessTableScan:           7,
	AccessIndexMerge:          6, // treated on par with index_scan: still index-structure bound
}

// IsIONode reports whether this access type reads from a base or index
// structure, per spec §3's closed I/O-node set.
func (a AccessType) IsIONode() bool {
	switch a {
	case AccessZeroRowConst, AccessConstRow, AccessSingleRowLookup,
		AccessCoveringIndexLookup, AccessIndexLookup, AccessIndexRangeScan,
		AccessFulltextIndex, AccessIndexScan, AccessTableScan, AccessIndexMerge:
		return true
	default:
		return false
	}
}

// WorseThan reports whether a is strictly more severe (worse physical
// access) than b, comparing only within the I/O severity ordering.
func (a AccessType) WorseThan(b AccessType) bool {
	sa, oka := ioSeverity[a]
	sb, okb := ioSeverity[b]
	if !oka || !okb {
		return false
	}
	return sa > sb
}

// SeverityRank returns this access type's position in the I/O severity
// ordering (higher is worse), or -1 for a non-I/O access type. Used by the
// regression baseline analyzer to detect an access-path downgrade between
// runs without re-deriving the ordering.
func (a AccessType) SeverityRank() int {
	if r, ok := ioSeverity[a]; ok {
		return r
	}
	return -1
}

// IsIndexBacked reports membership in the set spec §4.2 names for
// is_index_backed: all index-shaped access plus const/zero-row access.
func (a AccessType) IsIndexBacked() bool {
	switch a {
	case AccessSingleRowLookup, AccessCoveringIndexLookup, AccessIndexLookup,
		AccessFulltextIndex, AccessIndexRangeScan, AccessIndexScan,
		AccessIndexMerge, AccessConstRow, AccessZeroRowConst:
		return true
	default:
		return false
	}
}

// MySQLAccessType maps a primary AccessType to the conventional MySQL
// EXPLAIN `type` column value, per spec §4.2.
func (a AccessType) MySQLAccessType() string {
	switch a {
	case AccessConstRow, AccessZeroRowConst:
		return "const"
	case AccessSingleRowLookup:
		return "eq_ref"
	case AccessIndexLookup, AccessCoveringIndexLookup:
		return "ref"
	case AccessFulltextIndex:
		return "fulltext"
	case AccessIndexRangeScan:
		return "range"
	case AccessIndexScan:
		return "index"
	case AccessTableScan:
		return "ALL"
	default:
		return "unknown"
	}
}

// RiskLevel is the coarse risk band a ComplexityClass carries.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	default:
		return "LOW"
	}
}

// ComplexityClass is the closed, ordinal-ranked complexity sum from spec §3.
type ComplexityClass int

const (
	ComplexityConstant ComplexityClass = iota
	ComplexityLogarithmic
	ComplexityLogRange
	ComplexityLinear
	ComplexityLinearithmic
	ComplexityQuadratic
)

func (c ComplexityClass) Label() string {
	switch c {
	case ComplexityConstant:
		return "O(1)"
	case ComplexityLogarithmic:
		return "O(log n)"
	case ComplexityLogRange:
		return "O(log n + k)"
	case ComplexityLinear:
		return "O(n)"
	case ComplexityLinearithmic:
		return "O(n log n)"
	case ComplexityQuadratic:
		return "O(n²)"
	default:
		return "O(n)"
	}
}

func (c ComplexityClass) Risk() RiskLevel {
	switch c {
	case ComplexityConstant, ComplexityLogarithmic, ComplexityLogRange:
		return RiskLow
	case ComplexityLinear, ComplexityLinearithmic:
		return RiskMedium
	case ComplexityQuadratic:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Max returns the higher of two complexity ordinals, used by C2's
// ordinal-combine complexity classification.
func Max(a, b ComplexityClass) ComplexityClass {
	if b > a {
		return b
	}
	return a
}

// TableEstimate carries one table's loops-weighted estimated-vs-actual row
// totals, used by the Cardinality Drift (C8) and Plan Stability (C9)
// analyzers. Both fields are already multiplied by loops, so they are
// directly comparable.
type TableEstimate struct {
	Table         string
	EstimatedRows float64
	ActualRows    float64
}

// ExecutionProfile is the optional engine-reported resource-counter carrier
// named in spec §3.
type ExecutionProfile struct {
	NestedLoopDepth int
	JoinFanouts     []float64
	BtreeDepths     []int
	LogicalReads    int64
	PhysicalReads   int64
	ScanComplexity  string
	SortComplexity  string
}

// EnvironmentContext is the immutable snapshot named in spec §3.
type EnvironmentContext struct {
	ServerVersion         string
	BufferPoolSizeBytes   int64
	IOCapacity            int
	PageSize              int64
	TmpTableSize          int64
	MaxHeapTableSize      int64
	BufferPoolUtilization float64
	IsColdCache           bool
	DatabaseName          string
}

// Metrics is the statically typed record produced by C2, plus an extension
// map for analyzer-specific payloads (spec §9 design note on the dynamic
// metric map).
type Metrics struct {
	ExecutionTimeMs     float64
	RowsExamined        int64
	RowsReturned        int64
	PrimaryAccessType   AccessType
	MySQLAccessType     string
	IsZeroRowConst      bool
	IsIndexBacked       bool
	Complexity          ComplexityClass
	HasTableScan        bool
	HasFilesort         bool
	HasTempTable        bool
	HasDiskTemp         bool
	HasWeedout          bool
	HasCoveringIndex    bool
	HasEarlyTermination bool
	HasIndexMerge       bool
	HasMaterialization  bool
	NestedLoopDepth     int
	FanoutFactor        float64
	PerTableEstimates   map[string]TableEstimate
	TablesAccessed      []string
	IndexesUsed         []string
	ParsingValid        bool
	IsIntentionalScan   bool

	Metadata map[string]string
}
