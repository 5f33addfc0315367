package output

import (
	"encoding/json"
	"io"

	"github.com/mpaulson/sqlsentinel/internal/diagnostic"
	"github.com/mpaulson/sqlsentinel/internal/finding"
)

// JSONRenderer emits the full diagnostic report as indented JSON, for
// machine consumption (CI gates, dashboards).
type JSONRenderer struct {
	w io.Writer
}

type jsonFinding struct {
	Severity       string            `json:"severity"`
	Category       string            `json:"category"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Recommendation string            `json:"recommendation,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Suppressed     bool              `json:"suppressed,omitempty"`
}

type jsonReport struct {
	SQL string `json:"sql,omitempty"`

	Metrics jsonMetrics `json:"metrics"`

	Scoring     interface{} `json:"scoring"`
	Scalability interface{} `json:"scalability"`
	Memory      interface{} `json:"memory"`
	Concurrency interface{} `json:"concurrency"`
	Drift       interface{} `json:"drift"`
	Stability   interface{} `json:"stability"`
	AntiPattern interface{} `json:"anti_pattern"`
	IndexSynth  interface{} `json:"index_synthesis"`
	JoinFanout  interface{} `json:"join_fanout"`
	Confidence  interface{} `json:"confidence"`
	Regression  interface{} `json:"regression"`
	Workload    interface{} `json:"workload"`
	Consistency interface{} `json:"consistency"`

	Findings          []jsonFinding `json:"findings"`
	TopRecommendation string        `json:"top_recommendation,omitempty"`
	Passed            bool          `json:"passed"`
	PartialResult     bool          `json:"partial_result,omitempty"`
}

type jsonMetrics struct {
	ExecutionTimeMs   float64 `json:"execution_time_ms"`
	RowsExamined      int64   `json:"rows_examined"`
	RowsReturned      int64   `json:"rows_returned"`
	PrimaryAccessType string  `json:"primary_access_type"`
	MySQLAccessType   string  `json:"mysql_access_type"`
	IsIndexBacked     bool    `json:"is_index_backed"`
	Complexity        string  `json:"complexity"`
	HasTableScan      bool    `json:"has_table_scan"`
	HasFilesort       bool    `json:"has_filesort"`
	HasTempTable      bool    `json:"has_temp_table"`
	HasDiskTemp       bool    `json:"has_disk_temp"`
	ParsingValid      bool    `json:"parsing_valid"`
}

func (r *JSONRenderer) RenderReport(rep *diagnostic.Report, sql string) {
	out := jsonReport{
		SQL: sql,
		Metrics: jsonMetrics{
			ExecutionTimeMs:   rep.Metrics.ExecutionTimeMs,
			RowsExamined:      rep.Metrics.RowsExamined,
			RowsReturned:      rep.Metrics.RowsReturned,
			PrimaryAccessType: rep.Metrics.PrimaryAccessType.String(),
			MySQLAccessType:   rep.Metrics.MySQLAccessType,
			IsIndexBacked:     rep.Metrics.IsIndexBacked,
			Complexity:        rep.Metrics.Complexity.Label(),
			HasTableScan:      rep.Metrics.HasTableScan,
			HasFilesort:       rep.Metrics.HasFilesort,
			HasTempTable:      rep.Metrics.HasTempTable,
			HasDiskTemp:       rep.Metrics.HasDiskTemp,
			ParsingValid:      rep.Metrics.ParsingValid,
		},
		Scoring:           rep.Scoring,
		Scalability:       rep.Scalability,
		Memory:            rep.Memory,
		Concurrency:       rep.Concurrency,
		Drift:             rep.Drift,
		Stability:         rep.Stability,
		AntiPattern:       rep.AntiPattern,
		IndexSynth:        rep.IndexSynth,
		JoinFanout:        rep.JoinFanout,
		Confidence:        rep.Confidence,
		Regression:        rep.Regression,
		Workload:          rep.Workload,
		Consistency:       rep.Consistency,
		TopRecommendation: rep.TopRecommendation,
		Passed:            rep.Passed,
		PartialResult:     rep.PartialResult,
	}
	for _, f := range rep.Findings {
		out.Findings = append(out.Findings, jsonFromFinding(f))
	}

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func jsonFromFinding(f finding.Finding) jsonFinding {
	return jsonFinding{
		Severity:       f.Severity.String(),
		Category:       string(f.Category),
		Title:          f.Title,
		Description:    f.Description,
		Recommendation: f.Recommendation,
		Metadata:       f.Metadata,
		Suppressed:     f.Suppressed,
	}
}
