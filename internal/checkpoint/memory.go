package checkpoint

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	data      []byte
	updatedAt time.Time
}

// MemoryStore keeps checkpoints in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	active   map[string]memEntry
	archived map[string]memEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active:   make(map[string]memEntry),
		archived: make(map[string]memEntry),
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.active[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, data []byte) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sessionID] = memEntry{data: append([]byte(nil), data...), updatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionID)
	return nil
}

func (s *MemoryStore) Archive(_ context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.active[sessionID]
	if !ok {
		return ErrNotFound
	}
	delete(s.active, sessionID)
	s.archived[sessionID] = e
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]Info, 0, len(s.active)+len(s.archived))
	for id, e := range s.active {
		infos = append(infos, Info{SessionID: id, UpdatedAt: e.updatedAt, Size: len(e.data)})
	}
	for id, e := range s.archived {
		infos = append(infos, Info{SessionID: id, UpdatedAt: e.updatedAt, Size: len(e.data), Archived: true})
	}
	sortInfos(infos)
	return infos, nil
}

func (s *MemoryStore) Close() error { return nil }
