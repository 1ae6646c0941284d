// Package extract turns ingested markdown and its asset manifest into a
// StructuredPaper using a language model.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/itsmostafa/paperalchemy/internal/llm"
	"github.com/itsmostafa/paperalchemy/internal/markdown"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// ErrEmptyResult is returned when the model produces no usable paper.
var ErrEmptyResult = errors.New("model returned empty result")

// Request carries everything one extraction needs.
type Request struct {
	RawMarkdown string
	Assets      []paper.Asset

	// Feedback lists every prior rejection comment, oldest first.
	Feedback []string
}

// Extractor is the extraction operation used by the review workflow.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*paper.StructuredPaper, error)
}

// Options tunes prompt construction.
type Options struct {
	FigureHints bool
}

// ModelExtractor implements Extractor with an llm.Provider.
type ModelExtractor struct {
	provider llm.Provider
	opts     Options
	logger   *slog.Logger
}

// New returns a ModelExtractor.
func New(provider llm.Provider, opts Options, logger *slog.Logger) *ModelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelExtractor{provider: provider, opts: opts, logger: logger}
}

// SystemPrompt returns the system instruction, including the feedback block
// when feedback is non-empty.
func SystemPrompt(feedback []string) string {
	if len(feedback) == 0 {
		return systemPrompt
	}
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString(feedbackHeader)
	for _, item := range feedback {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString(feedbackFooter)
	return sb.String()
}

// UserPrompt bundles the serialized assets, optional caption hints and the
// raw markdown.
func UserPrompt(rawMarkdown string, assets []paper.Asset, hints []markdown.Hint) (string, error) {
	if assets == nil {
		assets = []paper.Asset{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(assets); err != nil {
		return "", fmt.Errorf("failed to serialize assets: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(assetsHeading)
	sb.WriteString("\n")
	sb.Write(buf.Bytes())
	if len(hints) > 0 {
		sb.WriteString("\n")
		sb.WriteString(hintsHeading)
		sb.WriteString("\n")
		sb.WriteString(markdown.FormatHints(hints))
	}
	sb.WriteString("\n")
	sb.WriteString(markdownHeading)
	sb.WriteString("\n")
	sb.WriteString(rawMarkdown)
	return sb.String(), nil
}

// Extract calls the model once and returns a schema-valid paper whose
// figures all reference manifest assets.
func (e *ModelExtractor) Extract(ctx context.Context, req Request) (*paper.StructuredPaper, error) {
	logCtx := e.logger.With("provider", e.provider.Name(), "model", e.provider.Model(), "feedback", len(req.Feedback))

	var hints []markdown.Hint
	if e.opts.FigureHints {
		hints = markdown.CaptionHints(req.RawMarkdown, req.Assets)
	}
	user, err := UserPrompt(req.RawMarkdown, req.Assets, hints)
	if err != nil {
		return nil, err
	}
	system := SystemPrompt(req.Feedback)

	logCtx.Info("Extracting structure.",
		"assets", len(req.Assets),
		"hints", len(hints),
		"promptTokens", llm.CountTokens(system)+llm.CountTokens(user),
	)
	raw, err := e.provider.Complete(ctx, llm.Request{
		System:     system,
		User:       user,
		SchemaName: "StructuredPaper",
		Schema:     paper.Schema(),
	})
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	p, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	if dropped := paper.FilterFigures(p, req.Assets); len(dropped) > 0 {
		logCtx.Warn("Dropped figures not present in the asset manifest.", "paths", dropped)
	}
	if markdown.HasAbstract(markdown.Analyze(req.RawMarkdown)) && !markdown.IsAbstractTitle(p.Sections[0].SectionTitle) {
		logCtx.Warn("Source has an abstract but the first section is not titled as one.", "firstSection", p.Sections[0].SectionTitle)
	}

	logCtx.Info("Structure extracted.", "title", p.PaperTitle, "sections", len(p.Sections), "figures", p.FigureCount())
	return p, nil
}

// Parse decodes a model response into a validated StructuredPaper. Empty
// and null responses yield ErrEmptyResult. A response that fails to decode
// as given is retried with surrounding fences or chatter removed, then with
// trailing commas removed.
func Parse(raw string) (*paper.StructuredPaper, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "", "null", "{}":
		return nil, ErrEmptyResult
	}
	p, err := paper.Decode([]byte(trimmed))
	if err == nil {
		return p, nil
	}

	cleaned := llm.CleanJSON(trimmed)
	switch cleaned {
	case "", "null", "{}":
		return nil, ErrEmptyResult
	}
	if cleaned != trimmed {
		p, cerr := paper.Decode([]byte(cleaned))
		if cerr == nil {
			return p, nil
		}
		err = cerr
	}
	if repaired, rerr := paper.Decode(llm.RepairJSON(trimmed)); rerr == nil {
		return repaired, nil
	}
	return nil, err
}
