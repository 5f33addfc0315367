// Package workload implements C15: cross-snapshot pattern detection over a
// query hash's baseline history (repeated full exports, bursty API misuse,
// sustained large transfers).
package workload

import (
	"fmt"

	"github.com/mpaulson/sqlsentinel/internal/baseline"
	"github.com/mpaulson/sqlsentinel/internal/finding"
)

// Config is the C15 threshold surface (spec §6).
type Config struct {
	FrequencyThreshold  int
	ExportRowThreshold  int64
	BurstWindowSeconds   int64
	LargeTransferBytes   int64
	BytesPerRow          int64
	HistoryLimit         int
}

func DefaultConfig() Config {
	return Config{
		FrequencyThreshold: 5,
		ExportRowThreshold: 100000,
		BurstWindowSeconds: 30,
		LargeTransferBytes: 50 * 1024 * 1024,
		BytesPerRow:        256,
		HistoryLimit:       200,
	}
}

// Pattern names one detected workload characteristic.
type Pattern string

const (
	PatternRepeatedFullExport        Pattern = "REPEATED_FULL_EXPORT"
	PatternHighFrequencyLargeTransfer Pattern = "HIGH_FREQUENCY_LARGE_TRANSFER"
	PatternAPIMisuseBurst            Pattern = "API_MISUSE_BURST"
	PatternHighFrequency             Pattern = "HIGH_FREQUENCY"
)

// Result is the full C15 output.
type Result struct {
	QueryFrequency int
	IsFrequent     bool
	Patterns       []Pattern
	Findings       []finding.Finding
}

// Analyze runs C15 over the query hash's recorded history plus the tableSize
// for the primary driving table (0 if unknown).
func Analyze(store baseline.Store, hash string, tableSize int64, cfg Config) (Result, error) {
	var res Result
	history, err := store.History(hash, cfg.HistoryLimit)
	if err != nil {
		return res, err
	}

	res.QueryFrequency = len(history)
	res.IsFrequent = res.QueryFrequency >= cfg.FrequencyThreshold
	if !res.IsFrequent {
		return res, nil
	}

	exportCount := 0
	largeTransferCount := 0
	for _, snap := range history {
		if snap.RowsExamined >= cfg.ExportRowThreshold && tableSize > 0 && approxEqual(snap.RowsExamined, tableSize) {
			exportCount++
		}
		bytes := snap.RowsExamined * cfg.BytesPerRow
		if bytes > cfg.LargeTransferBytes {
			largeTransferCount++
		}
	}

	burstCount := burstWindowCount(history, cfg.BurstWindowSeconds)

	flagged := false
	if exportCount >= cfg.FrequencyThreshold {
		flagged = true
		res.Patterns = append(res.Patterns, PatternRepeatedFullExport)
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Critical, Category: finding.CategoryWorkload,
			Title:       "Repeated full-table export detected",
			Description: fmt.Sprintf("This query has examined nearly the entire table (%d+ rows) on %d of its last %d recorded runs.", cfg.ExportRowThreshold, exportCount, res.QueryFrequency),
			Recommendation: "Add a filtering predicate, paginate with LIMIT/OFFSET or a keyset cursor, or move this to a batch/offline export path.",
		})
	}
	if largeTransferCount >= cfg.FrequencyThreshold {
		flagged = true
		res.Patterns = append(res.Patterns, PatternHighFrequencyLargeTransfer)
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Medium, Category: finding.CategoryWorkload,
			Title:       "Frequent large result transfers",
			Description: fmt.Sprintf("%d of the last %d runs transferred an estimated result set over %d bytes.", largeTransferCount, res.QueryFrequency, cfg.LargeTransferBytes),
			Recommendation: "Select only the columns the caller needs, or reduce the returned row count.",
		})
	}
	if burstCount >= cfg.FrequencyThreshold {
		flagged = true
		res.Patterns = append(res.Patterns, PatternAPIMisuseBurst)
		res.Findings = append(res.Findings, finding.Finding{
			Severity: finding.Medium, Category: finding.CategoryWorkload,
			Title:       "Bursty repeated execution",
			Description: fmt.Sprintf("This query ran %d or more times within a %ds window.", cfg.FrequencyThreshold, cfg.BurstWindowSeconds),
			Recommendation: "Check for a missing cache, an N+1 query pattern, or a retry loop calling this query in a tight cycle.",
		})
	}

	if !flagged {
		res.Patterns = append(res.Patterns, PatternHighFrequency)
	}

	return res, nil
}

func approxEqual(a, b int64) bool {
	if b <= 0 {
		return false
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(b) < 0.05
}

func burstWindowCount(history []baseline.Snapshot, windowSeconds int64) int {
	best := 0
	for i := range history {
		count := 1
		for j := i + 1; j < len(history); j++ {
			if history[j].Timestamp-history[i].Timestamp > windowSeconds {
				break
			}
			count++
		}
		if count > best {
			best = count
		}
	}
	return best
}
