package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/itsmostafa/paperalchemy/internal/logging"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

func samplePaper() *paper.StructuredPaper {
	return &paper.StructuredPaper{
		PaperTitle:     "Attention Is All You Need",
		OverallSummary: "Transformers replace recurrence with attention.",
		Sections: []paper.PaperSection{
			{
				SectionTitle:   "Model Architecture",
				ContentSummary: "Encoder and decoder stacks.",
				KeyDetails:     []string{"6 layers", "d_model = 512"},
				RelatedFigures: []paper.FigureInfo{
					{ImagePath: "assets/element_1.png", Caption: paper.StringPtr("Figure 1: The Transformer"), Type: "figure"},
					{ImagePath: "assets/element_2.png", Caption: nil, Type: "table"},
				},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir(), logging.Discard())

	if s.Exists("attention") {
		t.Fatal("Exists() = true before save")
	}
	if err := s.Save("attention", samplePaper()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists("attention") {
		t.Fatal("Exists() = false after save")
	}

	got, ok := s.Load("attention")
	if !ok {
		t.Fatal("Load() missed a saved paper")
	}
	if !reflect.DeepEqual(got, samplePaper()) {
		t.Errorf("Load() = %+v, want %+v", got, samplePaper())
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := New(t.TempDir(), logging.Discard())
	first := samplePaper()
	second := samplePaper()
	second.PaperTitle = "Revised"

	if err := s.Save("p", first); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("p", second); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Load("p")
	if !ok || got.PaperTitle != "Revised" {
		t.Errorf("Load() = %v, %v; want Revised", got, ok)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path("p")))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the stored file, found %d entries", len(entries))
	}
}

func TestLoadMisses(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"paper_title": "x",`},
		{"missing field", `{"paper_title": "x", "overall_summary": "y"}`},
		{"empty sections", `{"paper_title": "x", "overall_summary": "y", "sections": []}`},
		{"wrong type", `{"paper_title": 3, "overall_summary": "y", "sections": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(t.TempDir(), logging.Discard())
			path := s.Path("bad")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if p, ok := s.Load("bad"); ok || p != nil {
				t.Errorf("Load() = %v, %v; want miss", p, ok)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		s := New(t.TempDir(), logging.Discard())
		if _, ok := s.Load("absent"); ok {
			t.Error("Load() hit for a missing file")
		}
	})
}

func TestSaveEncoding(t *testing.T) {
	s := New(t.TempDir(), logging.Discard())
	p := samplePaper()
	p.Sections[0].KeyDetails = nil
	p.Sections[0].RelatedFigures = nil

	if err := s.Save("enc", p); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path("enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := paper.Validate(data); err != nil {
		t.Errorf("stored file fails schema validation: %v", err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("stored file should end with a newline")
	}
}

func TestPath(t *testing.T) {
	s := New("/data/output", nil)
	want := filepath.Join("/data/output", "attention", "structured_paper.json")
	if got := s.Path("attention"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}
