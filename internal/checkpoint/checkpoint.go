// Package checkpoint persists in-progress review sessions keyed by session ID.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when no active checkpoint exists for a session.
	ErrNotFound = errors.New("checkpoint: session not found")

	// ErrInvalidID is returned for session IDs unusable as storage keys.
	ErrInvalidID = errors.New("checkpoint: invalid session id")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID checks that id is safe to use as a file name and table key.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Info describes a stored checkpoint.
type Info struct {
	SessionID string
	UpdatedAt time.Time
	Size      int
	Archived  bool
}

// Store holds one opaque snapshot per session. Archived snapshots are kept
// for inspection but are no longer returned by Load.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte) error
	Delete(ctx context.Context, sessionID string) error
	Archive(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]Info, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open constructs a Store for driver. path is a directory for the file
// driver and a database file for sqlite.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case DriverFile:
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(ctx, path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint driver %q", driver)
	}
}
