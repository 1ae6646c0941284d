// Package store persists approved papers as JSON under the output root and
// serves them back as a cache.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/itsmostafa/paperalchemy/internal/atomicfile"
	"github.com/itsmostafa/paperalchemy/internal/ingest"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// Store reads and writes <root>/<key>/structured_paper.json.
type Store struct {
	root   string
	logger *slog.Logger
}

// New returns a Store rooted at outputRoot.
func New(outputRoot string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: outputRoot, logger: logger}
}

// Path returns the file holding the paper stored under key.
func (s *Store) Path(key string) string {
	return ingest.LayoutFor(s.root, key).StructuredPath()
}

// Exists reports whether a file is stored under key. The file may still be
// unreadable; Load decides that.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.Path(key))
	return err == nil
}

// Load returns the paper stored under key. A missing, unreadable, malformed
// or schema-invalid file is a miss, never an error.
func (s *Store) Load(key string) (*paper.StructuredPaper, bool) {
	path := s.Path(key)
	logCtx := s.logger.With("key", key, "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logCtx.Warn("Failed to read cached paper; treating as miss.", "error", err)
		}
		return nil, false
	}

	p, err := paper.Decode(data)
	if err != nil {
		logCtx.Warn("Cached paper is invalid; treating as miss.", "error", err)
		return nil, false
	}
	logCtx.Debug("Loaded cached paper.", "title", p.PaperTitle)
	return p, true
}

// Save writes p under key, replacing any previous file atomically.
func (s *Store) Save(key string, p *paper.StructuredPaper) error {
	data, err := paper.Encode(p)
	if err != nil {
		return err
	}
	path := s.Path(key)
	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save structured paper: %w", err)
	}
	s.logger.Debug("Saved structured paper.", "key", key, "path", path)
	return nil
}
