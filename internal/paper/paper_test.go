package paper

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func samplePaper() *StructuredPaper {
	return &StructuredPaper{
		PaperTitle:     "Attention Is All You Need",
		OverallSummary: "Introduces the Transformer.",
		Sections: []PaperSection{
			{
				SectionTitle:   "Abstract",
				ContentSummary: "Proposes a model based solely on attention, no recurrence.",
				KeyDetails:     []string{"BLEU 28.4 on WMT 2014 En-De", "Ünïcödé <kept>"},
				RelatedFigures: []FigureInfo{},
			},
			{
				SectionTitle:   "Model Architecture",
				ContentSummary: "Encoder-decoder stacks.",
				KeyDetails:     []string{"N=6 layers", "d_model=512"},
				RelatedFigures: []FigureInfo{
					{ImagePath: "assets/element_1.png", Caption: StringPtr("Figure 1: The Transformer"), Type: AssetFigure},
					{ImagePath: "assets/element_2.png", Caption: nil, Type: AssetTable},
				},
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := samplePaper()

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, original)
	}
}

func TestEncodeFormatting(t *testing.T) {
	data, err := Encode(samplePaper())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	s := string(data)

	if !strings.Contains(s, "Ünïcödé <kept>") {
		t.Error("expected non-ASCII and HTML characters to be written verbatim")
	}
	if !strings.Contains(s, "\n  \"paper_title\"") {
		t.Error("expected two-space indentation")
	}
	if !strings.HasSuffix(s, "\n") {
		t.Error("expected trailing newline")
	}
	if strings.Index(s, "paper_title") > strings.Index(s, "overall_summary") ||
		strings.Index(s, "overall_summary") > strings.Index(s, "sections") {
		t.Error("expected stable key order paper_title, overall_summary, sections")
	}
	if !strings.Contains(s, `"caption": null`) {
		t.Error("expected missing caption to encode as null")
	}
}

func TestEncodeNormalizesNilSlices(t *testing.T) {
	p := &StructuredPaper{
		PaperTitle:     "T",
		OverallSummary: "S",
		Sections:       []PaperSection{{SectionTitle: "Intro", ContentSummary: "c"}},
	}
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := Validate(data); err != nil {
		t.Errorf("encoded paper should validate: %v", err)
	}
	if p.Sections[0].KeyDetails != nil {
		t.Error("Encode should not mutate its argument")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"paper_title":"t","overall_summary":"s","sections":[{"section_title":"a","content_summary":"b","key_details":[],"related_figures":[]}]}`, false},
		{"malformed json", `{"paper_title":`, true},
		{"empty sections", `{"paper_title":"t","overall_summary":"s","sections":[]}`, true},
		{"missing title", `{"overall_summary":"s","sections":[{"section_title":"a","content_summary":"b","key_details":[],"related_figures":[]}]}`, true},
		{"extra property", `{"paper_title":"t","overall_summary":"s","authors":[],"sections":[{"section_title":"a","content_summary":"b","key_details":[],"related_figures":[]}]}`, true},
		{"wrong type", `{"paper_title":1,"overall_summary":"s","sections":[{"section_title":"a","content_summary":"b","key_details":[],"related_figures":[]}]}`, true},
		{"figure missing path", `{"paper_title":"t","overall_summary":"s","sections":[{"section_title":"a","content_summary":"b","key_details":[],"related_figures":[{"caption":null,"type":"figure"}]}]}`, true},
		{"null", `null`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestManifestAssets(t *testing.T) {
	m := &Manifest{
		Pages: []Page{
			{PageNumber: 1, Figures: []Asset{{ID: 1, Type: AssetFigure, ImagePath: "assets/element_1.png"}}, Tables: []Asset{{ID: 2, Type: AssetTable, ImagePath: "assets/element_2.png"}}},
			{PageNumber: 2, Figures: []Asset{{ID: 3, Type: AssetFigure, ImagePath: "assets/element_3.png"}}},
		},
	}

	got := m.Assets()
	want := []string{"assets/element_1.png", "assets/element_2.png", "assets/element_3.png"}
	if len(got) != len(want) {
		t.Fatalf("Assets() returned %d entries, want %d", len(got), len(want))
	}
	for i, a := range got {
		if a.ImagePath != want[i] {
			t.Errorf("Assets()[%d] = %s, want %s", i, a.ImagePath, want[i])
		}
	}

	empty := (&Manifest{}).Assets()
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice for empty manifest, got %#v", empty)
	}
}

func TestFilterFigures(t *testing.T) {
	assets := []Asset{
		{ID: 1, Type: AssetFigure, ImagePath: "assets/element_1.png", Caption: "Figure 1: Overview"},
		{ID: 2, Type: AssetTable, ImagePath: "assets/element_2.png"},
	}
	p := &StructuredPaper{
		PaperTitle: "T",
		Sections: []PaperSection{
			{SectionTitle: "A", RelatedFigures: []FigureInfo{
				{ImagePath: "assets/element_1.png"},
				{ImagePath: "assets/invented.png", Type: AssetFigure},
			}},
			{SectionTitle: "B", RelatedFigures: []FigureInfo{
				{ImagePath: "assets/element_2.png", Type: AssetTable},
				{ImagePath: "assets/element_99.png"},
			}},
		},
	}

	dropped := FilterFigures(p, assets)
	if !reflect.DeepEqual(dropped, []string{"assets/invented.png", "assets/element_99.png"}) {
		t.Errorf("dropped = %v", dropped)
	}
	if again := FilterFigures(p, assets); len(again) != 0 {
		t.Errorf("expected no unknown figures after filtering, got %v", again)
	}

	f := p.Sections[0].RelatedFigures[0]
	if f.Type != AssetFigure {
		t.Errorf("expected type filled from manifest, got %q", f.Type)
	}
	if f.Caption == nil || *f.Caption != "Figure 1: Overview" {
		t.Errorf("expected caption filled from manifest, got %v", f.Caption)
	}
	if p.Sections[1].RelatedFigures[0].Caption != nil {
		t.Error("expected empty manifest caption to stay nil")
	}
}
