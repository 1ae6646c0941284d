// Package pipeline sequences ingestion, the result cache and the review
// workflow for one PDF.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/itsmostafa/paperalchemy/internal/ingest"
	"github.com/itsmostafa/paperalchemy/internal/paper"
	"github.com/itsmostafa/paperalchemy/internal/review"
	"github.com/itsmostafa/paperalchemy/internal/store"
)

var (
	// ErrMissingPrerequisite is returned when the ingested markdown or
	// manifest is absent at extraction time.
	ErrMissingPrerequisite = errors.New("missing ingestion output")

	// ErrNoResult is returned when the run ends without an approved paper.
	ErrNoResult = errors.New("no structured result obtained")
)

// Runner runs a review session to completion.
type Runner interface {
	Run(ctx context.Context, in review.Input) (*paper.StructuredPaper, error)
}

// Options control a single run.
type Options struct {
	// SessionID keys the review checkpoint. A random ID is used when empty.
	SessionID string
	Resume    bool

	// ForceRefresh ignores a cached result.
	ForceRefresh bool
	// ForceIngest re-runs ingestion even when its output exists.
	ForceIngest bool
}

// Result is the outcome of a successful run.
type Result struct {
	Paper     *paper.StructuredPaper
	FromCache bool
	SessionID string
	Layout    ingest.Layout
}

// Pipeline is the entry point for reading a paper.
type Pipeline struct {
	outputRoot string
	ingestor   ingest.Ingestor
	runner     Runner
	store      *store.Store
	logger     *slog.Logger
}

// New wires a pipeline writing under outputRoot.
func New(outputRoot string, ingestor ingest.Ingestor, runner Runner, st *store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		outputRoot: outputRoot,
		ingestor:   ingestor,
		runner:     runner,
		store:      st,
		logger:     logger,
	}
}

// Run ingests pdfPath when needed, returns a cached result when one is valid,
// and otherwise runs the review workflow and persists the approved paper.
func (p *Pipeline) Run(ctx context.Context, pdfPath string, opts Options) (*Result, error) {
	layout := ingest.NewLayout(p.outputRoot, pdfPath)
	logCtx := p.logger.With("paper", layout.Name)

	if opts.ForceIngest || !exists(layout.MarkdownPath()) {
		logCtx.Info("Ingesting PDF.", "path", pdfPath)
		if _, err := p.ingestor.Ingest(ctx, pdfPath, layout); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoResult, err)
		}
	} else {
		logCtx.Info("Ingested markdown found; skipping ingestion.", "path", layout.MarkdownPath())
	}

	if !opts.ForceRefresh {
		if cached, ok := p.store.Load(layout.Name); ok {
			logCtx.Info("Loaded structured paper from cache.", "title", cached.PaperTitle)
			return &Result{Paper: cached, FromCache: true, Layout: layout}, nil
		}
		if p.store.Exists(layout.Name) {
			logCtx.Warn("Cached result is unusable; extracting again.", "path", p.store.Path(layout.Name))
		}
	}

	raw, manifest, err := loadInputs(layout)
	if err != nil {
		logCtx.Error("Cannot extract without ingestion output.", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNoResult, err)
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logCtx = logCtx.With("session", sessionID)

	approved, err := p.runner.Run(ctx, review.Input{
		SessionID:   sessionID,
		RawMarkdown: raw,
		Assets:      manifest.Assets(),
		Resume:      opts.Resume,
	})
	if err != nil {
		logCtx.Error("Review workflow ended without a result.", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNoResult, err)
	}
	if approved == nil {
		return nil, ErrNoResult
	}

	if err := p.store.Save(layout.Name, approved); err != nil {
		logCtx.Error("Failed to persist structured paper.", "error", err)
	} else {
		logCtx.Info("Saved structured paper.", "path", p.store.Path(layout.Name))
	}
	return &Result{Paper: approved, SessionID: sessionID, Layout: layout}, nil
}

func loadInputs(layout ingest.Layout) (string, *paper.Manifest, error) {
	md, err := os.ReadFile(layout.MarkdownPath())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMissingPrerequisite, err)
	}
	manifest, err := ingest.LoadManifest(layout.ManifestPath())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMissingPrerequisite, err)
	}
	return string(md), manifest, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
