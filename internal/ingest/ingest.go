// Package ingest converts a PDF into the markdown text and asset manifest
// consumed by structured extraction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// ErrInputNotFound is returned when the source PDF does not exist.
var ErrInputNotFound = errors.New("input pdf not found")

// Result summarises one ingestion run.
type Result struct {
	Layout   Layout
	Manifest *paper.Manifest
	Elements int
	Pages    int
}

// Ingestor produces the markdown and manifest for a PDF under layout.
type Ingestor interface {
	Ingest(ctx context.Context, pdfPath string, layout Layout) (*Result, error)
}

var (
	reportTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("160"))
	reportDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	reportBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("160")).
			Padding(0, 1)
)

// FormatReport renders the completion report for an ingestion run.
func FormatReport(w io.Writer, r *Result) {
	content := fmt.Sprintf("%s\n%s %s\n%s %d  %s %d",
		reportTitle.Render("Ingestion Complete"),
		reportDim.Render("Output:"), r.Layout.Dir,
		reportDim.Render("Pages:"), r.Pages,
		reportDim.Render("Elements:"), r.Elements,
	)
	fmt.Fprintln(w, reportBox.Render(content))
}
