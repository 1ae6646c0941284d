package review

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/itsmostafa/paperalchemy/internal/paper"
)

var (
	// titleStyle for bold red headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// successStyle for success indicators
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	// boxStyle for the summary box
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("160")).
			Padding(0, 1)

	// bannerStyle for attempt banners
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("160")).
			Padding(0, 2)
)

// FormatSummary renders the review summary: title, section count and the
// figure count of each section.
func FormatSummary(w io.Writer, p *paper.StructuredPaper, attempt int) {
	if attempt > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf(" REVIEW %d ", attempt)))
		fmt.Fprintln(w)
	}
	if p == nil {
		fmt.Fprintln(w, dimStyle.Render("No result."))
		return
	}
	fmt.Fprintln(w, boxStyle.Render(summaryContent(p)))
}

func summaryContent(p *paper.StructuredPaper) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(p.PaperTitle))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%d Sections detected.", len(p.Sections))))
	for i, s := range p.Sections {
		fmt.Fprintf(&sb, "\n%d. %s %s", i+1, s.SectionTitle,
			dimStyle.Render(fmt.Sprintf("(Img: %d)", len(s.RelatedFigures))))
	}
	return sb.String()
}

// FormatPrompt returns the decision prompt.
func FormatPrompt() string {
	return fmt.Sprintf("%s ", dimStyle.Render("Approve? [ok/y/yes] or type feedback:"))
}

// FormatApproved renders the final approval line.
func FormatApproved(w io.Writer, p *paper.StructuredPaper, path string) {
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("Approved:"), p.PaperTitle)
	if path != "" {
		fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Saved:"), path)
	}
}
