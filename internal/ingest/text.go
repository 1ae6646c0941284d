package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itsmostafa/paperalchemy/internal/markdown"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

var (
	numberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+([A-Z][^.!?]{1,80})$`)
	namedHeadings   = map[string]bool{
		"abstract":         true,
		"introduction":     true,
		"related work":     true,
		"background":       true,
		"conclusion":       true,
		"conclusions":      true,
		"discussion":       true,
		"references":       true,
		"acknowledgments":  true,
		"acknowledgements": true,
		"appendix":         true,
	}
)

// headingLevel returns the markdown heading level for a text line, or 0
// when the line is body text. Top-level numbered sections become level 2.
func headingLevel(line string) int {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 100 {
		return 0
	}
	if namedHeadings[strings.ToLower(strings.TrimRight(line, ":."))] {
		return 2
	}
	m := numberedHeading.FindStringSubmatch(line)
	if m == nil || len(strings.Fields(m[2])) > 10 {
		return 0
	}
	level := 2 + strings.Count(m[1], ".")
	if level > 4 {
		level = 4
	}
	return level
}

// pageImage is one extracted image awaiting an ID.
type pageImage struct {
	Page int
	Ext  string
	Data []byte
}

// pageContent is the text and assets of one page.
type pageContent struct {
	Number int
	Lines  []string
	Assets []paper.Asset
}

// captionLines returns the caption lines of a page in reading order.
func captionLines(lines []string) []string {
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if markdown.CaptionLabel(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// assignCaptions pairs a page's images with its caption lines by order.
// An image paired with a table caption is recorded as a table.
func assignCaptions(assets []paper.Asset, captions []string) {
	for i := range assets {
		if i >= len(captions) {
			return
		}
		assets[i].Caption = captions[i]
		if strings.HasPrefix(markdown.CaptionLabel(captions[i]), "Table") {
			assets[i].Type = paper.AssetTable
		}
	}
}

// renderMarkdown builds the document markdown. The first body line of the
// first page becomes the title; detected headings are promoted; each page's
// assets are referenced after its text.
func renderMarkdown(pages []pageContent) string {
	var sb strings.Builder
	titled := false

	for _, p := range pages {
		for _, raw := range p.Lines {
			line := strings.TrimSpace(raw)
			if line == "" {
				sb.WriteString("\n")
				continue
			}
			if !titled {
				fmt.Fprintf(&sb, "# %s\n\n", line)
				titled = true
				continue
			}
			if lvl := headingLevel(line); lvl > 0 {
				fmt.Fprintf(&sb, "\n%s %s\n\n", strings.Repeat("#", lvl), line)
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		for _, a := range p.Assets {
			fmt.Fprintf(&sb, "\n![%s](%s)\n", a.Type, a.ImagePath)
		}
		sb.WriteString("\n")
	}

	return collapseBlankLines(sb.String())
}

var blankRun = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return strings.TrimSpace(blankRun.ReplaceAllString(s, "\n\n")) + "\n"
}

// buildManifest assigns element IDs in page order and groups assets by page.
func buildManifest(filename string, pageCount int, pages []pageContent, parseTime string) *paper.Manifest {
	m := &paper.Manifest{
		Metadata: paper.ManifestMetadata{
			Filename:  filename,
			PageCount: pageCount,
			ParseTime: parseTime,
		},
		Pages: make([]paper.Page, 0, len(pages)),
	}
	for _, p := range pages {
		page := paper.Page{
			PageNumber: p.Number,
			PageImage:  AssetRef(pageSnapshotName(p.Number)),
			Figures:    []paper.Asset{},
			Tables:     []paper.Asset{},
		}
		for _, a := range p.Assets {
			if a.Type == paper.AssetTable {
				page.Tables = append(page.Tables, a)
			} else {
				page.Figures = append(page.Figures, a)
			}
		}
		m.Pages = append(m.Pages, page)
	}
	return m
}
