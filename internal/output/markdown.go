package output

import (
	"fmt"
	"io"

	"github.com/mpaulson/sqlsentinel/internal/diagnostic"
)

// MarkdownRenderer produces markdown output for documentation/tickets.
type MarkdownRenderer struct {
	w io.Writer
}

func (r *MarkdownRenderer) RenderReport(rep *diagnostic.Report, sql string) {
	m := rep.Metrics

	fmt.Fprintf(r.w, "# sentinel — Query Diagnostic\n\n")
	if sql != "" {
		fmt.Fprintf(r.w, "```sql\n%s\n```\n\n", sql)
	}

	fmt.Fprintf(r.w, "## Summary\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Grade | **%s** |\n", rep.Scoring.Grade)
	fmt.Fprintf(r.w, "| Composite score | %.1f/100 |\n", rep.Scoring.Composite)
	fmt.Fprintf(r.w, "| Execution time | %.2fms |\n", m.ExecutionTimeMs)
	fmt.Fprintf(r.w, "| Rows examined | ~%s |\n", formatNumber(m.RowsExamined))
	fmt.Fprintf(r.w, "| Rows returned | ~%s |\n", formatNumber(m.RowsReturned))
	fmt.Fprintf(r.w, "| Access type | %s |\n", m.MySQLAccessType)
	fmt.Fprintf(r.w, "| Complexity | %s |\n", m.Complexity.Label())
	fmt.Fprintf(r.w, "| Confidence | %s (%.2f) |\n\n", rep.Confidence.Label, rep.Confidence.Overall)

	if rep.TopRecommendation != "" {
		status := "⚠️"
		if rep.Passed {
			status = "✅"
		}
		fmt.Fprintf(r.w, "## %s Top Recommendation\n\n%s\n\n", status, rep.TopRecommendation)
	}

	if len(rep.IndexSynth.Recommendations) > 0 {
		fmt.Fprintf(r.w, "## Suggested Indexes\n\n")
		for _, idx := range rep.IndexSynth.Recommendations {
			fmt.Fprintf(r.w, "- **%s** (%s)\n\n  ```sql\n  %s\n  ```\n\n", idx.Table, idx.Improvement, idx.DDL)
		}
	}

	if len(rep.Findings) > 0 {
		fmt.Fprintf(r.w, "## Findings\n\n")
		for _, f := range rep.Findings {
			if f.Suppressed {
				continue
			}
			fmt.Fprintf(r.w, "### [%s] %s\n\n%s\n\n", f.Severity, f.Title, f.Description)
			if f.Recommendation != "" {
				fmt.Fprintf(r.w, "**Recommendation:** %s\n\n", f.Recommendation)
			}
		}
	}

	if len(rep.Consistency.Violations) > 0 {
		fmt.Fprintf(r.w, "## Consistency Diagnostics\n\n")
		for _, v := range rep.Consistency.Violations {
			fmt.Fprintf(r.w, "- %s\n", v)
		}
		fmt.Fprintln(r.w)
	}

	if rep.PartialResult {
		fmt.Fprintf(r.w, "---\n\n*Analysis budget exceeded; results are partial.*\n")
	}
}
