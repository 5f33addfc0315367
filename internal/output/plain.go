package output

import (
	"fmt"
	"io"

	"github.com/mpaulson/sqlsentinel/internal/diagnostic"
)

// PlainRenderer produces unformatted text output safe for piping.
type PlainRenderer struct {
	w io.Writer
}

func (r *PlainRenderer) RenderReport(rep *diagnostic.Report, sql string) {
	m := rep.Metrics

	fmt.Fprintf(r.w, "=== sentinel — Query Diagnostic ===\n\n")

	fmt.Fprintf(r.w, "Grade:         %s\n", rep.Scoring.Grade)
	fmt.Fprintf(r.w, "Composite:     %.1f/100\n", rep.Scoring.Composite)
	fmt.Fprintf(r.w, "Exec time:     %.2fms\n", m.ExecutionTimeMs)
	fmt.Fprintf(r.w, "Rows examined: ~%s\n", formatNumber(m.RowsExamined))
	fmt.Fprintf(r.w, "Rows returned: ~%s\n", formatNumber(m.RowsReturned))
	fmt.Fprintf(r.w, "Access type:   %s\n", m.MySQLAccessType)
	fmt.Fprintf(r.w, "Complexity:    %s\n", m.Complexity.Label())
	fmt.Fprintf(r.w, "Confidence:    %s (%.2f)\n", rep.Confidence.Label, rep.Confidence.Overall)
	fmt.Fprintln(r.w)

	if rep.TopRecommendation != "" {
		fmt.Fprintf(r.w, "--- Recommendation ---\n")
		fmt.Fprintf(r.w, "%s\n\n", rep.TopRecommendation)
	}

	if len(rep.IndexSynth.Recommendations) > 0 {
		fmt.Fprintf(r.w, "--- Suggested Indexes ---\n")
		for _, idx := range rep.IndexSynth.Recommendations {
			fmt.Fprintf(r.w, "[%s] %s: %s\n", idx.Improvement, idx.Table, idx.DDL)
		}
		fmt.Fprintln(r.w)
	}

	if len(rep.Findings) > 0 {
		fmt.Fprintf(r.w, "--- Findings ---\n")
		for _, f := range rep.Findings {
			if f.Suppressed {
				continue
			}
			fmt.Fprintf(r.w, "[%s] %s\n%s\n", f.Severity, f.Title, f.Description)
			if f.Recommendation != "" {
				fmt.Fprintf(r.w, "-> %s\n", f.Recommendation)
			}
			fmt.Fprintln(r.w)
		}
	}

	if len(rep.Consistency.Violations) > 0 {
		fmt.Fprintf(r.w, "--- Consistency Diagnostics ---\n")
		for _, v := range rep.Consistency.Violations {
			fmt.Fprintf(r.w, "%s\n", v)
		}
		fmt.Fprintln(r.w)
	}

	if rep.PartialResult {
		fmt.Fprintf(r.w, "NOTE: analysis budget exceeded; results are partial.\n")
	}
}
