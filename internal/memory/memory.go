// Package memory implements C6: the working-set / buffer-pool-pressure
// model, grounded in physical page reads rather than logical reads.
package memory

import (
	"fmt"
	"math"

	"github.com/mpaulson/sqlsentinel/internal/finding"
	"github.com/mpaulson/sqlsentinel/internal/metrics"
)

// Config is the C6 configuration surface (spec §6).
type Config struct {
	HighThresholdBytes     int64
	ModerateThresholdBytes int64
	ConcurrentSessions     int
}

// DefaultConfig matches spec §4.5's risk thresholds (256MB/64MB) and a
// single-session default.
func DefaultConfig() Config {
	return Config{
		HighThresholdBytes:     256 * 1024 * 1024,
		ModerateThresholdBytes: 64 * 1024 * 1024,
		ConcurrentSessions:     1,
	}
}

const bytesPerRow = 256

// NetworkClass classifies estimated result-set transfer size.
type NetworkClass string

const (
	NetworkLow      NetworkClass = "LOW"
	NetworkModerate NetworkClass = "MODERATE"
	NetworkHigh     NetworkClass = "HIGH"
	NetworkCritical NetworkClass = "CRITICAL"
)

// Result is the full C6 output.
type Result struct {
	SortBufferBytes       int64
	JoinBufferBytes       int64
	TempTableBytes        int64
	DiskSpillBytes        int64
	BufferPoolReadsBytes  int64
	TotalEstimatedBytes   int64
	BufferPoolPressure    float64

	ExecutionMemoryBytes       int64
	ConcurrentExecutionBytes   int64
	ConcurrentTotalBytes       int64

	NetworkTransferBytes int64
	NetworkClass         NetworkClass

	Risk string

	Findings []finding.Finding
}

// Inputs bundles the server-configuration numbers the memory model needs
// beyond Metrics itself.
type Inputs struct {
	SortBufferSize    int64
	JoinBufferSize    int64
	TmpTableSize      int64
	JoinCount         int
	BufferPoolSize    int64
	PageSize          int64
	PhysicalReads     int64
}

// Analyze runs C6.
func Analyze(m *metrics.Metrics, in Inputs, cfg Config) Result {
	var res Result

	if m.HasFilesort {
		res.SortBufferBytes = minI64(in.SortBufferSize, m.RowsExamined*bytesPerRow)
	}
	if in.JoinCount > 1 {
		res.JoinBufferBytes = int64(in.JoinCount-1) * in.JoinBufferSize
	}
	if m.HasTempTable {
		res.TempTableBytes = minI64(in.TmpTableSize, m.RowsExamined*bytesPerRow)
	}
	if m.HasDiskTemp {
		res.DiskSpillBytes = m.RowsExamined * bytesPerRow
	}

	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = 16384
	}
	if in.PhysicalReads > 0 {
		res.BufferPoolReadsBytes = in.PhysicalReads * pageSize
	} else {
		pages := int64(math.Ceil(float64(m.RowsExamined*bytesPerRow) / float64(pageSize)))
		res.BufferPoolReadsBytes = pages * pageSize
	}

	res.TotalEstimatedBytes = res.SortBufferBytes + res.JoinBufferBytes + res.TempTableBytes + res.DiskSpillBytes + res.BufferPoolReadsBytes

	bufferPoolSize := in.BufferPoolSize
	if bufferPoolSize <= 0 {
		bufferPoolSize = 1
	}
	res.BufferPoolPressure = round4(float64(res.BufferPoolReadsBytes) / float64(bufferPoolSize))

	sessions := cfg.ConcurrentSessions
	if sessions < 1 {
		sessions = 1
	}
	res.ExecutionMemoryBytes = res.SortBufferBytes + res.JoinBufferBytes + res.TempTableBytes + res.DiskSpillBytes
	res.ConcurrentExecutionBytes = res.ExecutionMemoryBytes * int64(sessions)
	res.ConcurrentTotalBytes = res.ConcurrentExecutionBytes + res.BufferPoolReadsBytes

	res.NetworkTransferBytes = m.RowsReturned * bytesPerRow
	res.NetworkClass, res.Findings = networkClassification(res.NetworkTransferBytes)

	res.Risk = riskFor(res, cfg)

	if in.BufferPoolSize > 0 && float64(res.ExecutionMemoryBytes+res.BufferPoolReadsBytes) >= 0.3*float64(in.BufferPoolSize) {
		gb := math.Ceil(float64(res.TotalEstimatedBytes) / (1024 * 1024 * 1024))
		if gb < 1 {
			gb = 1
		}
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Low,
			Category:    finding.CategoryMemory,
			Title:       "Buffer pool sizing advisory",
			Description: fmt.Sprintf("This query's working set is a significant fraction of the configured buffer pool (%.4f pressure).", res.BufferPoolPressure),
			Recommendation: fmt.Sprintf("Consider an innodb_buffer_pool_size of at least %.0fGB to keep this query's working set resident.", gb),
		})
	}

	if res.Risk == "HIGH" {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.High,
			Category:    finding.CategoryMemory,
			Title:       "High memory pressure",
			Description: "Estimated working set is large relative to the configured buffer pool.",
			Recommendation: "Reduce rows examined via a selective index or process this query in smaller batches.",
		})
	} else if res.Risk == "MODERATE" {
		res.Findings = append(res.Findings, finding.Finding{
			Severity:    finding.Low,
			Category:    finding.CategoryMemory,
			Title:       "Moderate memory pressure",
			Description: "Estimated working set is a moderate fraction of the configured buffer pool.",
		})
	}

	return res
}

func networkClassification(bytes int64) (NetworkClass, []finding.Finding) {
	mb := float64(bytes) / (1024 * 1024)
	var findings []finding.Finding
	var class NetworkClass
	switch {
	case mb < 50:
		class = NetworkLow
	case mb < 100:
		class = NetworkModerate
		findings = append(findings, finding.Finding{
			Severity:    finding.Low,
			Category:    finding.CategoryMemory,
			Title:       "Moderate result-set transfer",
			Description: fmt.Sprintf("Estimated result transfer is %.1f MB.", mb),
		})
	case mb < 200:
		class = NetworkHigh
		findings = append(findings, finding.Finding{
			Severity:    finding.Medium,
			Category:    finding.CategoryMemory,
			Title:       "High result-set transfer",
			Description: fmt.Sprintf("Estimated result transfer is %.1f MB.", mb),
			Recommendation: "Use a cursor, chunked fetch, or LIMIT to reduce the amount of data transferred per call.",
		})
	default:
		class = NetworkCritical
		findings = append(findings, finding.Finding{
			Severity:    finding.Medium,
			Category:    finding.CategoryMemory,
			Title:       "Critical result-set transfer",
			Description: fmt.Sprintf("Estimated result transfer is %.1f MB.", mb),
			Recommendation: "Use a cursor, chunked fetch, or LIMIT to reduce the amount of data transferred per call.",
		})
	}
	return class, findings
}

func riskFor(res Result, cfg Config) string {
	if res.BufferPoolPressure > 0.5 || res.TotalEstimatedBytes > cfg.HighThresholdBytes {
		return "HIGH"
	}
	if (res.BufferPoolPressure >= 0.2 && res.BufferPoolPressure <= 0.5) || (res.TotalEstimatedBytes >= cfg.ModerateThresholdBytes && res.TotalEstimatedBytes <= cfg.HighThresholdBytes) {
		return "MODERATE"
	}
	return "LOW"
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
