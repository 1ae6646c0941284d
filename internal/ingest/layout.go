package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// File names inside a paper's output directory.
const (
	MarkdownFile   = "full_paper.md"
	ManifestFile   = "parsed_data.json"
	StructuredFile = "structured_paper.json"
	AssetsDir      = "assets"
)

// Layout locates the artifacts of one paper under the output root.
type Layout struct {
	Name string
	Dir  string
}

// NewLayout keys a paper by the stem of its PDF file name.
func NewLayout(outputRoot, pdfPath string) Layout {
	return LayoutFor(outputRoot, Stem(pdfPath))
}

// LayoutFor returns the layout for an already-derived paper name.
func LayoutFor(outputRoot, name string) Layout {
	return Layout{Name: name, Dir: filepath.Join(outputRoot, name)}
}

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l Layout) MarkdownPath() string   { return filepath.Join(l.Dir, MarkdownFile) }
func (l Layout) ManifestPath() string   { return filepath.Join(l.Dir, ManifestFile) }
func (l Layout) StructuredPath() string { return filepath.Join(l.Dir, StructuredFile) }
func (l Layout) AssetsPath() string     { return filepath.Join(l.Dir, AssetsDir) }

// AssetRef returns the manifest-relative path of an asset file.
func AssetRef(name string) string {
	return AssetsDir + "/" + name
}

// pageSnapshotPrefix names the single-page PDFs; pdfcpu appends _N.pdf.
const pageSnapshotPrefix = "page"

func pageSnapshotName(n int) string {
	return fmt.Sprintf("%s_%d.pdf", pageSnapshotPrefix, n)
}
