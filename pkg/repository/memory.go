package repository

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/floorbot/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Memory keeps sessions in process memory
type Memory struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.Session
	opts     options
}

func NewMemory(opts ...Option) *Memory {
	return &Memory{
		sessions: make(map[model.SessionID]*model.Session),
		opts:     newOptions(opts...),
	}
}

func (m *Memory) Load(ctx context.Context, id model.SessionID) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || m.opts.expired(s) {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, session *model.Session) error {
	if session == nil || session.ID == "" {
		return goerr.New("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *Memory) Cleanup(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now, m.opts.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}
