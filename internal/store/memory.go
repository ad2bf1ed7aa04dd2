package store

import (
	"context"
	"sync"

	"github.com/DoyleJ11/mahjong-settlement/internal/session"
)

type memoryRecord struct {
	state   session.State
	version int
}

// MemoryStore keeps snapshots in process. It is used when no database is
// configured and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryRecord)}
}

func (m *MemoryStore) Create(ctx context.Context, code string, s session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[code]; ok {
		return session.ErrCodeTaken
	}
	m.sessions[code] = memoryRecord{state: s.Clone(), version: 0}
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, code string) (session.State, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[code]
	if !ok {
		return session.State{}, 0, session.ErrNotFound
	}
	return rec.state.Clone(), rec.version, nil
}

func (m *MemoryStore) Save(ctx context.Context, code string, s session.State, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[code]
	if !ok {
		return session.ErrNotFound
	}
	if rec.version != version-1 {
		return session.ErrVersionConflict
	}
	m.sessions[code] = memoryRecord{state: s.Clone(), version: version}
	return nil
}
