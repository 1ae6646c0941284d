package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/itsmostafa/paperalchemy/internal/atomicfile"
)

const archiveDir = "archive"

// FileStore keeps one JSON file per session under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates the base directory and returns a store rooted there.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, archiveDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) archivePath(id string) string {
	return filepath.Join(s.baseDir, archiveDir, id+".json")
}

// Load reads the active snapshot for sessionID.
func (s *FileStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return data, nil
}

// Save replaces the snapshot for sessionID atomically.
func (s *FileStore) Save(_ context.Context, sessionID string, data []byte) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	if err := atomicfile.WriteFile(s.path(sessionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Delete removes the active snapshot. Deleting a missing session is not an error.
func (s *FileStore) Delete(_ context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	if err := os.Remove(s.path(sessionID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Archive moves the active snapshot into the archive directory.
func (s *FileStore) Archive(_ context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	if err := os.Rename(s.path(sessionID), s.archivePath(sessionID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to archive checkpoint: %w", err)
	}
	return nil
}

// List returns active and archived checkpoints sorted by session ID.
func (s *FileStore) List(_ context.Context) ([]Info, error) {
	var infos []Info
	for _, dir := range []struct {
		path     string
		archived bool
	}{{s.baseDir, false}, {filepath.Join(s.baseDir, archiveDir), true}} {
		entries, err := os.ReadDir(dir.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to list checkpoints: %w", err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				continue
			}
			infos = append(infos, Info{
				SessionID: strings.TrimSuffix(name, ".json"),
				UpdatedAt: fi.ModTime(),
				Size:      int(fi.Size()),
				Archived:  dir.archived,
			})
		}
	}
	sortInfos(infos)
	return infos, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].SessionID != infos[j].SessionID {
			return infos[i].SessionID < infos[j].SessionID
		}
		return !infos[i].Archived && infos[j].Archived
	})
}
