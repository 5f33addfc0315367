package metrics

import "testing"

func TestAccessTypeString(t *testing.T) {
	if got := AccessTableScan.String(); got != "table_scan" {
		t.Errorf("AccessTableScan.String() = %q, want %q", got, "table_scan")
	}
	if got := AccessType(999).String(); got != "unknown" {
		t.Errorf("unknown AccessType.String() = %q, want %q", got, "unknown")
	}
}

func TestAccessTypeIsIONode(t *testing.T) {
	tests := []struct {
		a    AccessType
		want bool
	}{
		{AccessTableScan, true},
		{AccessIndexLookup, true},
		{AccessZeroRowConst, true},
		{AccessNestedLoop, false},
		{AccessHashJoin, false},
		{AccessSort, false},
	}
	for _, tt := range tests {
		if got := tt.a.IsIONode(); got != tt.want {
			t.Errorf("%v.IsIONode() = %v, want %v", tt.a, got, tt.want)
		}
	}
}

func TestAccessTypeWorseThan(t *testing.T) {
	if !AccessTableScan.WorseThan(AccessIndexLookup) {
		t.Error("table_scan should be worse than index_lookup")
	}
	if AccessIndexLookup.WorseThan(AccessTableScan) {
		t.Error("index_lookup should not be worse than table_scan")
	}
	if AccessConstRow.WorseThan(AccessConstRow) {
		t.Error("an access type is not worse than itself")
	}
	// non-I/O types have no defined ordering
	if AccessSort.WorseThan(AccessTableScan) {
		t.Error("non-I/O access types should never compare as worse")
	}
}

func TestAccessTypeIndexLookupTiesFulltext(t *testing.T) {
	if AccessIndexLookup.WorseThan(AccessFulltextIndex) || AccessFulltextIndex.WorseThan(AccessIndexLookup) {
		t.Error("index_lookup and fulltext_index are tied per spec, neither should be worse than the other")
	}
}

func TestAccessTypeSeverityRank(t *testing.T) {
	if AccessTableScan.SeverityRank() <= AccessIndexLookup.SeverityRank() {
		t.Error("table_scan should rank worse (higher) than index_lookup")
	}
	if AccessSort.SeverityRank() != -1 {
		t.Errorf("non-I/O access type should rank -1, got %d", AccessSort.SeverityRank())
	}
}

func TestAccessTypeIsIndexBacked(t *testing.T) {
	tests := []struct {
		a    AccessType
		want bool
	}{
		{AccessIndexLookup, true},
		{AccessConstRow, true},
		{AccessZeroRowConst, true},
		{AccessTableScan, false},
		{AccessIndexScan, true},
	}
	for _, tt := range tests {
		if got := tt.a.IsIndexBacked(); got != tt.want {
			t.Errorf("%v.IsIndexBacked() = %v, want %v", tt.a, got, tt.want)
		}
	}
}

func TestAccessTypeMySQLAccessType(t *testing.T) {
	tests := []struct {
		a    AccessType
		want string
	}{
		{AccessConstRow, "const"},
		{AccessSingleRowLookup, "eq_ref"},
		{AccessIndexLookup, "ref"},
		{AccessIndexRangeScan, "range"},
		{AccessIndexScan, "index"},
		{AccessTableScan, "ALL"},
		{AccessNestedLoop, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.a.MySQLAccessType(); got != tt.want {
			t.Errorf("%v.MySQLAccessType() = %q, want %q", tt.a, got, tt.want)
		}
	}
}

func TestComplexityClassLabel(t *testing.T) {
	tests := []struct {
		c    ComplexityClass
		want string
	}{
		{ComplexityConstant, "O(1)"},
		{ComplexityLogarithmic, "O(log n)"},
		{ComplexityLinear, "O(n)"},
		{ComplexityLinearithmic, "O(n log n)"},
		{ComplexityQuadratic, "O(n²)"},
	}
	for _, tt := range tests {
		if got := tt.c.Label(); got != tt.want {
			t.Errorf("%v.Label() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestComplexityClassRisk(t *testing.T) {
	if ComplexityConstant.Risk() != RiskLow {
		t.Error("constant complexity should be low risk")
	}
	if ComplexityLinear.Risk() != RiskMedium {
		t.Error("linear complexity should be medium risk")
	}
	if ComplexityQuadratic.Risk() != RiskHigh {
		t.Error("quadratic complexity should be high risk")
	}
}

func TestRiskLevelString(t *testing.T) {
	if RiskHigh.String() != "HIGH" {
		t.Errorf("RiskHigh.String() = %q, want HIGH", RiskHigh.String())
	}
}

func TestMaxComplexity(t *testing.T) {
	if Max(ComplexityLinear, ComplexityQuadratic) != ComplexityQuadratic {
		t.Error("Max should return the higher ordinal")
	}
	if Max(ComplexityQuadratic, ComplexityConstant) != ComplexityQuadratic {
		t.Error("Max should be order-independent")
	}
}
