package markdown

import (
	"fmt"
	"strings"

	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// Hint pairs a manifest asset with the caption found for it.
type Hint struct {
	ImagePath string
	Label     string
	Caption   string
}

// CaptionHints matches manifest assets to captions. A caption recorded in
// the manifest wins; otherwise the caption following the asset's image
// reference in the markdown is used. Assets with no caption are omitted.
func CaptionHints(src string, assets []paper.Asset) []Hint {
	byPath := make(map[string]string)
	for _, img := range Analyze(src).Images {
		if img.Caption != "" {
			if _, ok := byPath[img.Destination]; !ok {
				byPath[img.Destination] = img.Caption
			}
		}
	}

	var hints []Hint
	for _, a := range assets {
		caption := strings.TrimSpace(a.Caption)
		if caption == "" {
			caption = byPath[a.ImagePath]
		}
		if caption == "" {
			continue
		}
		hints = append(hints, Hint{
			ImagePath: a.ImagePath,
			Label:     CaptionLabel(caption),
			Caption:   caption,
		})
	}
	return hints
}

// FormatHints renders hints as a bullet list for a prompt.
func FormatHints(hints []Hint) string {
	var sb strings.Builder
	for _, h := range hints {
		if h.Label != "" {
			fmt.Fprintf(&sb, "- %s -> %s (%s)\n", h.Label, h.ImagePath, h.Caption)
		} else {
			fmt.Fprintf(&sb, "- %s (%s)\n", h.ImagePath, h.Caption)
		}
	}
	return sb.String()
}
