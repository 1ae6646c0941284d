package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/itsmostafa/paperalchemy/internal/atomicfile"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// PDFIngestor extracts text with ledongthuc/pdf and images and page
// snapshots with pdfcpu. Scanned PDFs without a text layer yield empty text.
type PDFIngestor struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewPDFIngestor returns a PDFIngestor logging to logger.
func NewPDFIngestor(logger *slog.Logger) *PDFIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFIngestor{logger: logger, now: time.Now}
}

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Ingest writes the markdown, manifest and assets for pdfPath into layout.
func (g *PDFIngestor) Ingest(ctx context.Context, pdfPath string, layout Layout) (*Result, error) {
	logCtx := g.logger.With("pdf", pdfPath, "paper", layout.Name)

	if _, err := os.Stat(pdfPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, pdfPath)
		}
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	if err := os.MkdirAll(layout.AssetsPath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	start := g.now()
	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	logCtx.Info("Parsing PDF.", "pageCount", pageCount)

	var (
		texts  []string
		images []pageImage
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		texts, err = extractText(gctx, pdfPath)
		return err
	})
	eg.Go(func() error {
		var err error
		images, err = extractImages(gctx, pdfPath)
		return err
	})
	eg.Go(func() error {
		return splitPages(gctx, pdfPath, layout.AssetsPath())
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	pages, elements, err := assemble(pageCount, texts, images, layout.AssetsPath())
	if err != nil {
		return nil, err
	}

	// The markdown marks a finished ingestion, so it is written last.
	manifest := buildManifest(filepath.Base(pdfPath), pageCount, pages, start.Format(ParseTimeLayout))
	if err := SaveManifest(layout.ManifestPath(), manifest); err != nil {
		return nil, err
	}

	md := renderMarkdown(pages)
	if err := atomicfile.WriteFile(layout.MarkdownPath(), []byte(md), 0644); err != nil {
		return nil, fmt.Errorf("failed to write markdown: %w", err)
	}

	logCtx.Info("PDF parsed.",
		"elements", elements,
		"duration", g.now().Sub(start).String(),
	)
	return &Result{Layout: layout, Manifest: manifest, Elements: elements, Pages: pageCount}, nil
}

// assemble numbers images in page order, writes them to assetsDir and pairs
// them with captions found in the page text.
func assemble(pageCount int, texts []string, images []pageImage, assetsDir string) ([]pageContent, int, error) {
	sort.SliceStable(images, func(i, j int) bool { return images[i].Page < images[j].Page })

	pages := make([]pageContent, pageCount)
	for i := range pages {
		pages[i].Number = i + 1
		if i < len(texts) {
			pages[i].Lines = strings.Split(texts[i], "\n")
		}
	}

	counter := 0
	for _, img := range images {
		if img.Page < 1 || img.Page > pageCount {
			continue
		}
		counter++
		name := fmt.Sprintf("element_%d.%s", counter, img.Ext)
		if err := os.WriteFile(filepath.Join(assetsDir, name), img.Data, 0644); err != nil {
			return nil, 0, fmt.Errorf("failed to write %s: %w", name, err)
		}
		p := &pages[img.Page-1]
		p.Assets = append(p.Assets, paper.Asset{
			ID:        counter,
			Type:      paper.AssetFigure,
			ImagePath: AssetRef(name),
		})
	}

	for i := range pages {
		assignCaptions(pages[i].Assets, captionLines(pages[i].Lines))
	}
	return pages, counter, nil
}

// extractText returns the plain text of each page, in order.
func extractText(ctx context.Context, path string) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf text: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	numPages := r.NumPage()
	fonts := make(map[string]*pdf.Font)
	texts = make([]string, numPages)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f2 := p.Font(name)
				fonts[name] = &f2
			}
		}
		text, pageErr := p.GetPlainText(fonts)
		if pageErr != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, pageErr)
		}
		texts[i-1] = text
	}
	return texts, nil
}

// extractImages collects every embedded image with its page number.
func extractImages(ctx context.Context, path string) ([]pageImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var (
		mu     sync.Mutex
		images []pageImage
	)
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("read image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		ext := img.FileType
		if ext == "" {
			ext = "png"
		}
		mu.Lock()
		images = append(images, pageImage{Page: img.PageNr, Ext: ext, Data: data})
		mu.Unlock()
		return nil
	}

	if err := api.ExtractImages(f, nil, digest, pdfcpuConfig()); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}
	return images, nil
}

// splitPages writes one single-page PDF per page as assets/page_N.pdf. The
// split is named explicitly so the output does not depend on the input's
// file name or extension case.
func splitPages(ctx context.Context, path, assetsDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	if err := api.Split(f, assetsDir, pageSnapshotPrefix, 1, pdfcpuConfig()); err != nil {
		return fmt.Errorf("failed to split PDF: %w", err)
	}
	return nil
}
