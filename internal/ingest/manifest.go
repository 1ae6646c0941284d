package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itsmostafa/paperalchemy/internal/atomicfile"
	"github.com/itsmostafa/paperalchemy/internal/paper"
)

// ParseTimeLayout formats manifest parse timestamps.
const ParseTimeLayout = "2006-01-02 15:04:05"

// LoadManifest reads a manifest written by SaveManifest.
func LoadManifest(path string) (*paper.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m paper.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// SaveManifest writes m as indented JSON.
func SaveManifest(path string, m *paper.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return atomicfile.WriteFile(path, append(data, '\n'), 0644)
}
