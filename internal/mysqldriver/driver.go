package mysqldriver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mpaulson/sqlsentinel/internal/driver"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// MySQLDriver is the live implementation of driver.Driver and
// driver.SchemaIntrospector, backed by a *sql.DB connection. It is the
// optional path named in spec §6: callers that have no live connection
// use driver.PermissiveIntrospector and a nil Driver instead.
type MySQLDriver struct {
	db      *sql.DB
	version ServerVersion
}

// NewDriver wraps a connected *sql.DB, detecting the server version once
// up front so capability checks don't re-query on every call.
func NewDriver(db *sql.DB) (*MySQLDriver, error) {
	v, err := GetServerVersion(db)
	if err != nil {
		return nil, err
	}
	return &MySQLDriver{db: db, version: v}, nil
}

var _ driver.Driver = (*MySQLDriver)(nil)
var _ driver.SchemaIntrospector = (*MySQLDriver)(nil)

// NormalizeAccessType maps a MySQL EXPLAIN `type` column value onto the
// closed AccessType sum (spec §4.2's MySQL mapping, inverted).
func (d *MySQLDriver) NormalizeAccessType(text string) metrics.AccessType {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "system", "const":
		return metrics.AccessConstRow
	case "eq_ref":
		return metrics.AccessSingleRowLookup
	case "ref", "ref_or_null", "unique_subquery", "index_subquery":
		return metrics.AccessIndexLookup
	case "fulltext":
		return metrics.AccessFulltextIndex
	case "range":
		return metrics.AccessIndexRangeScan
	case "index":
		return metrics.AccessIndexScan
	case "all":
		return metrics.AccessTableScan
	case "index_merge":
		return metrics.AccessIndexMerge
	default:
		return metrics.AccessUnknown
	}
}

// NormalizeJoinType maps EXPLAIN `Extra`/json `"using_join_buffer"`-style
// text fragments onto the closed JoinType sum.
func (d *MySQLDriver) NormalizeJoinType(text string) driver.JoinType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "hash join"):
		return driver.JoinHash
	case strings.Contains(lower, "block nested loop"), strings.Contains(lower, "using join buffer"):
		return driver.JoinBlockNestedLoop
	case strings.Contains(lower, "nested loop"):
		return driver.JoinNestedLoop
	default:
		return driver.JoinUnknown
	}
}

// RunAnalyzeTable runs ANALYZE TABLE against the live connection,
// refreshing the optimizer's cardinality statistics. Returns (false, nil)
// rather than erroring out the whole analysis when the identifier itself
// looks unsafe, per spec §6's "optional, non-fatal" framing.
func (d *MySQLDriver) RunAnalyzeTable(ctx context.Context, table string) (bool, error) {
	if !isSafeIdentifier(table) {
		return false, nil
	}
	query := fmt.Sprintf("ANALYZE TABLE %s", escapeIdentifier(table))
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return false, fmt.Errorf("ANALYZE TABLE %s: %w", table, err)
	}
	return true, nil
}

// GetColumnStats reads per-column cardinality from information_schema.
// Histograms (MySQL 8.0+) are not queried here directly; absent a
// histogram this falls back to the table-level cardinality the optimizer
// already tracks, which is what spec §6 calls the minimum viable
// implementation of this optional hook.
func (d *MySQLDriver) GetColumnStats(ctx context.Context, table string) (map[string]driver.ColumnStat, error) {
	if !isSafeIdentifier(table) {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, IFNULL(CARDINALITY, 0)
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`, table)
	if err != nil {
		return nil, fmt.Errorf("querying column stats for %s: %w", table, err)
	}
	defer rows.Close()

	stats := make(map[string]driver.ColumnStat)
	for rows.Next() {
		var col string
		var cardinality int64
		if err := rows.Scan(&col, &cardinality); err != nil {
			return nil, err
		}
		stats[col] = driver.ColumnStat{DistinctValues: cardinality}
	}
	return stats, rows.Err()
}

// GetCapabilities reports what this connected server version can do,
// gating EXPLAIN ANALYZE / JSON EXPLAIN / histogram support on the
// thresholds spec §6 names.
func (d *MySQLDriver) GetCapabilities() driver.Capabilities {
	return driver.Capabilities{
		Histograms:        d.version.AtLeast(8, 0, 0),
		ExplainAnalyze:    d.version.AtLeast(8, 0, 18),
		JSONExplain:       d.version.AtLeast(5, 7, 0),
		CoveringIndexInfo: d.version.AtLeast(5, 7, 0),
		ParallelQuery:     false,
	}
}

// TableExists reports whether table exists in the connected database.
func (d *MySQLDriver) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table existence for %s: %w", table, err)
	}
	return n > 0, nil
}

// ListTables lists every base table in the connected database.
func (d *MySQLDriver) ListTables(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ColumnExists reports whether column exists on table.
func (d *MySQLDriver) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?
	`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking column existence for %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

// ListColumns lists every column on table in ordinal order.
func (d *MySQLDriver) ListColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT COLUMN_NAME FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, table)
	if err != nil {
		return nil, fmt.Errorf("listing columns for %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// escapeIdentifier safely escapes a MySQL identifier by wrapping it in
// backticks and doubling any backtick within it, preventing injection
// when the identifier is interpolated into DDL/DML that can't be
// parameterized (table names aren't bind-parameter positions in MySQL).
func escapeIdentifier(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "`", "``")
	return "`" + escaped + "`"
}

// isSafeIdentifier rejects anything that isn't a plausible bare MySQL
// identifier before it's interpolated into ANALYZE TABLE, as a second
// layer beyond escapeIdentifier's backtick-doubling.
func isSafeIdentifier(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '$':
		default:
			return false
		}
	}
	return true
}
