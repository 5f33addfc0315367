// Package driver defines the external interfaces the diagnostic engine
// consumes from a concrete database connection (spec §6): normalization of
// engine-specific plan text, optional live-ANALYZE and column-statistics
// hooks, capability discovery, and schema introspection.
package driver

import (
	"context"

	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// JoinType is the normalized join-algorithm vocabulary a Driver maps
// engine-specific plan text onto.
type JoinType string

const (
	JoinUnknown          JoinType = "unknown"
	JoinNestedLoop       JoinType = "nested_loop"
	JoinHash             JoinType = "hash_join"
	JoinBlockNestedLoop  JoinType = "block_nested_loop"
)

// Capabilities describes what a connected engine/version can report.
type Capabilities struct {
	Histograms         bool
	ExplainAnalyze     bool
	JSONExplain        bool
	CoveringIndexInfo  bool
	ParallelQuery      bool
}

// ColumnStat is one column's cardinality/null-fraction statistic, when the
// driver can supply it (optional per spec §6).
type ColumnStat struct {
	DistinctValues int64
	NullFraction   float64
}

// Driver is the consumed contract for everything that needs a live or
// engine-aware connection. RunAnalyzeTable and GetColumnStats are optional:
// implementations that cannot support them return (false, nil) / (nil, nil)
// rather than an error.
type Driver interface {
	NormalizeAccessType(text string) metrics.AccessType
	NormalizeJoinType(text string) JoinType
	RunAnalyzeTable(ctx context.Context, table string) (bool, error)
	GetColumnStats(ctx context.Context, table string) (map[string]ColumnStat, error)
	GetCapabilities() Capabilities
}

// SchemaIntrospector is the consumed schema-metadata contract (spec §6).
type SchemaIntrospector interface {
	TableExists(ctx context.Context, table string) (bool, error)
	ListTables(ctx context.Context) ([]string, error)
	ColumnExists(ctx context.Context, table, column string) (bool, error)
	ListColumns(ctx context.Context, table string) ([]string, error)
}

// PermissiveIntrospector is the required default SchemaIntrospector (spec
// §6): it reports every table/column as existing and lists none, so
// analysis can proceed without a live connection.
type PermissiveIntrospector struct{}

func (PermissiveIntrospector) TableExists(ctx context.Context, table string) (bool, error) { return true, nil }
func (PermissiveIntrospector) ListTables(ctx context.Context) ([]string, error)             { return nil, nil }
func (PermissiveIntrospector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	return true, nil
}
func (PermissiveIntrospector) ListColumns(ctx context.Context, table string) ([]string, error) {
	return nil, nil
}
