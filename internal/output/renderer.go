package output

import (
	"io"

	"github.com/mpaulson/sqlsentinel/internal/diagnostic"
)

// Renderer defines the output interface. Unlike the teacher's DDL/DML
// safety report, there is no cluster-topology surface in this domain — a
// query diagnostic is a single-report artifact.
type Renderer interface {
	RenderReport(rep *diagnostic.Report, sql string)
}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format string, w io.Writer) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{w: w}
	case "markdown":
		return &MarkdownRenderer{w: w}
	case "plain":
		return &PlainRenderer{w: w}
	default:
		return &TextRenderer{w: w}
	}
}
