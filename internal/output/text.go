package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mpaulson/sqlsentinel/internal/diagnostic"
	"github.com/mpaulson/sqlsentinel/internal/finding"
)

// TextRenderer produces Lip Gloss styled terminal output.
type TextRenderer struct {
	w io.Writer
}

func (r *TextRenderer) RenderReport(rep *diagnostic.Report, sql string) {
	width := 64
	m := rep.Metrics

	header := TitleStyle.Render(fmt.Sprintf("sentinel — %s (%s)", m.MySQLAccessType, m.Complexity.Label()))
	fmt.Fprintln(r.w)

	summaryLines := []string{
		r.labelValue("Grade:", r.colorGrade(rep.Scoring.Grade)),
		r.labelValue("Composite score:", fmt.Sprintf("%.1f/100", rep.Scoring.Composite)),
		r.labelValue("Execution time:", fmt.Sprintf("%.2fms", m.ExecutionTimeMs)),
		r.labelValue("Rows examined:", formatNumber(m.RowsExamined)),
		r.labelValue("Rows returned:", formatNumber(m.RowsReturned)),
		r.labelValue("Access type:", m.MySQLAccessType),
		r.labelValue("Confidence:", fmt.Sprintf("%s (%.2f)", rep.Confidence.Label, rep.Confidence.Overall)),
	}
	summaryBox := BoxStyle.Width(width).Render(header + "\n" + strings.Join(summaryLines, "\n"))
	fmt.Fprintln(r.w, summaryBox)

	if rep.TopRecommendation != "" {
		style := WarningBoxStyle
		icon := IconWarning
		if rep.Passed {
			style = SafeBoxStyle
			icon = IconSafe
		}
		title := TitleStyle.Render("Top Recommendation")
		content := fmt.Sprintf("%s\n%s %s", title, icon, rep.TopRecommendation)
		fmt.Fprintln(r.w, style.Width(width).Render(content))
	}

	if len(rep.IndexSynth.Recommendations) > 0 {
		title := TitleStyle.Render("Suggested Indexes")
		var lines []string
		for _, idx := range rep.IndexSynth.Recommendations {
			lines = append(lines, fmt.Sprintf("[%s] %s", idx.Improvement, CodeStyle.Render(idx.DDL)))
		}
		fmt.Fprintln(r.w, BoxStyle.Width(width).Render(title+"\n"+strings.Join(lines, "\n")))
	}

	if len(rep.Findings) > 0 {
		title := TitleStyle.Render("Findings")
		var lines []string
		for _, f := range rep.Findings {
			if f.Suppressed {
				continue
			}
			lines = append(lines, r.renderFinding(f))
		}
		if len(lines) > 0 {
			fmt.Fprintln(r.w, BoxStyle.Width(width).Render(title+"\n\n"+strings.Join(lines, "\n\n")))
		}
	}

	if len(rep.Consistency.Violations) > 0 {
		title := TitleStyle.Render("Consistency Diagnostics")
		content := fmt.Sprintf("%s\n%s", title, strings.Join(rep.Consistency.Violations, "\n"))
		fmt.Fprintln(r.w, MutedText.Render(content))
	}

	fmt.Fprintln(r.w)
}

func (r *TextRenderer) renderFinding(f finding.Finding) string {
	var icon string
	var style lipgloss.Style
	switch {
	case f.Severity >= finding.Critical:
		icon, style = IconDanger, DangerText
	case f.Severity >= finding.Medium:
		icon, style = IconWarning, WarningText
	default:
		icon, style = IconInfo, MutedText
	}
	head := style.Render(fmt.Sprintf("%s [%s] %s", icon, f.Severity, f.Title))
	body := f.Description
	if f.Recommendation != "" {
		body += "\n" + MutedText.Render("→ "+f.Recommendation)
	}
	return head + "\n" + body
}

func (r *TextRenderer) labelValue(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func (r *TextRenderer) colorGrade(grade string) string {
	switch grade {
	case "A+", "A":
		return SafeText.Render(grade)
	case "B", "C":
		return WarningText.Render(grade)
	default:
		return DangerText.Render(grade)
	}
}

func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var result strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	out := result.String()
	if neg {
		out = "-" + out
	}
	return out
}
