// Package paper defines the structured representation of a research paper
// and the ingestion manifest it is extracted against.
package paper

// FigureInfo references a figure or table produced by ingestion.
// ImagePath must name an entry of the ingestion manifest.
type FigureInfo struct {
	ImagePath string  `json:"image_path"`
	Caption   *string `json:"caption"`
	Type      string  `json:"type"`
}

// PaperSection is one logical section of the source paper.
type PaperSection struct {
	SectionTitle   string       `json:"section_title"`
	ContentSummary string       `json:"content_summary"`
	KeyDetails     []string     `json:"key_details"`
	RelatedFigures []FigureInfo `json:"related_figures"`
}

// StructuredPaper is the approved output of the review workflow and the unit
// of caching.
type StructuredPaper struct {
	PaperTitle     string         `json:"paper_title"`
	OverallSummary string         `json:"overall_summary"`
	Sections       []PaperSection `json:"sections"`
}

// Normalize replaces nil slices with empty ones so the encoded form always
// carries arrays.
func (p *StructuredPaper) Normalize() {
	if p.Sections == nil {
		p.Sections = []PaperSection{}
	}
	for i := range p.Sections {
		if p.Sections[i].KeyDetails == nil {
			p.Sections[i].KeyDetails = []string{}
		}
		if p.Sections[i].RelatedFigures == nil {
			p.Sections[i].RelatedFigures = []FigureInfo{}
		}
	}
}

// FigureCount returns the number of figures mapped across all sections.
func (p *StructuredPaper) FigureCount() int {
	n := 0
	for _, s := range p.Sections {
		n += len(s.RelatedFigures)
	}
	return n
}

// StringPtr is a convenience for building captions.
func StringPtr(s string) *string {
	return &s
}

// Asset types recorded in the manifest.
const (
	AssetFigure = "figure"
	AssetTable  = "table"
)

// BBox is a bounding box on a page in PDF points.
type BBox struct {
	L           float64 `json:"l"`
	T           float64 `json:"t"`
	R           float64 `json:"r"`
	B           float64 `json:"b"`
	CoordOrigin string  `json:"coord_origin,omitempty"`
}

// Asset is one figure or table record in the manifest.
type Asset struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	ImagePath string `json:"image_path"`
	Caption   string `json:"caption"`
	BBox      *BBox  `json:"bbox"`
}

// Page groups the assets found on a single page.
type Page struct {
	PageNumber int     `json:"page_number"`
	PageImage  string  `json:"page_image"`
	Figures    []Asset `json:"figures"`
	Tables     []Asset `json:"tables"`
}

// ManifestMetadata describes the ingested source document.
type ManifestMetadata struct {
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count"`
	ParseTime string `json:"parse_time"`
}

// Manifest is the page-indexed record written next to the ingested markdown.
type Manifest struct {
	Metadata ManifestMetadata `json:"metadata"`
	Pages    []Page           `json:"pages"`
}

// Assets flattens the manifest, figures before tables on each page, in page
// order.
func (m *Manifest) Assets() []Asset {
	var out []Asset
	for _, p := range m.Pages {
		out = append(out, p.Figures...)
		out = append(out, p.Tables...)
	}
	if out == nil {
		out = []Asset{}
	}
	return out
}

// AssetIndex returns the set of image paths known to the manifest.
func AssetIndex(assets []Asset) map[string]Asset {
	idx := make(map[string]Asset, len(assets))
	for _, a := range assets {
		idx[a.ImagePath] = a
	}
	return idx
}
