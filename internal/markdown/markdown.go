// Package markdown inspects ingested paper markdown: headings, image
// references and the captions that follow them.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is a markdown header.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Image is an inline image reference.
type Image struct {
	Destination string
	Alt         string
	Caption     string
	Line        int
}

// Document is the analysed form of a markdown source.
type Document struct {
	Headings []Heading
	Images   []Image

	// Lead is the text of the first paragraph, used for abstract detection.
	Lead string
}

var (
	captionPattern = regexp.MustCompile(`(?i)^\s*(fig(?:ure)?\.?|table)\s*(\d+|[IVXLC]+)\b`)
	numberPrefix   = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXLC]+\.)\s+`)
	abstractTitles = map[string]bool{
		"abstract":          true,
		"summary":           true,
		"executive summary": true,
	}
)

// Analyze parses src and collects headings and images in document order.
func Analyze(src string) Document {
	source := []byte(src)
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var doc Document
	leadSeen := false

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			doc.Headings = append(doc.Headings, Heading{
				Level: node.Level,
				Text:  strings.TrimSpace(plainText(node, source)),
				Line:  lineOf(node, source),
			})
		case *ast.Paragraph:
			own := strings.TrimSpace(plainText(node, source))
			if !leadSeen && own != "" {
				doc.Lead = own
				leadSeen = true
			}

			imgs := images(node, source)
			if len(imgs) == 0 {
				continue
			}
			caption := ""
			if captionPattern.MatchString(own) {
				caption = own
			} else if next, ok := n.NextSibling().(*ast.Paragraph); ok {
				if t := strings.TrimSpace(plainText(next, source)); captionPattern.MatchString(t) && len(images(next, source)) == 0 {
					caption = t
				}
			}
			line := lineOf(node, source)
			for _, img := range imgs {
				img.Caption = caption
				img.Line = line
				doc.Images = append(doc.Images, img)
			}
		}
	}

	return doc
}

// HasAbstract reports whether the document opens with an explicit
// abstract or summary block. Only headings before the first numbered
// section are considered.
func HasAbstract(doc Document) bool {
	for _, h := range doc.Headings {
		if isNumberedSection(h.Text) {
			break
		}
		if IsAbstractTitle(h.Text) {
			return true
		}
	}
	lead := strings.ToLower(doc.Lead)
	return strings.HasPrefix(lead, "abstract") || strings.HasPrefix(lead, "summary:")
}

// IsAbstractTitle reports whether a section title names an abstract block.
func IsAbstractTitle(title string) bool {
	return abstractTitles[normalizeTitle(title)]
}

// CaptionLabel returns the "Figure N" / "Table N" label a caption starts
// with, or "" when it has none.
func CaptionLabel(caption string) string {
	m := captionPattern.FindStringSubmatch(caption)
	if m == nil {
		return ""
	}
	kind := "Figure"
	if strings.HasPrefix(strings.ToLower(m[1]), "tab") {
		kind = "Table"
	}
	return kind + " " + m[2]
}

// isNumberedSection reports whether a heading carries a section number
// such as "1 Introduction" or "II. Method".
func isNumberedSection(title string) bool {
	s := strings.TrimSpace(strings.Trim(title, "#*_ \t"))
	loc := numberPrefix.FindStringIndex(s)
	return loc != nil && strings.TrimSpace(s[loc[1]:]) != ""
}

func normalizeTitle(s string) string {
	s = strings.TrimSpace(strings.Trim(s, "#*_ \t"))
	s = numberPrefix.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".: ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// plainText concatenates the text of n's descendants, skipping image alt text.
func plainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*ast.Text); ok {
					buf.Write(tt.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func images(n ast.Node, source []byte) []Image {
	var out []Image
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := c.(*ast.Image); ok {
			var alt bytes.Buffer
			for cc := img.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if t, ok := cc.(*ast.Text); ok {
					alt.Write(t.Segment.Value(source))
				}
			}
			out = append(out, Image{
				Destination: string(img.Destination),
				Alt:         alt.String(),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// lineOf returns the 1-indexed line a block node starts on, or 0.
func lineOf(n ast.Node, source []byte) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	return bytes.Count(source[:lines.At(0).Start], []byte("\n")) + 1
}
