package storage

import (
	"context"
	"sync"
	"time"

	"tasting_bot/internal/core"
	"tasting_bot/internal/logger"
)

// DefaultSessionTTL is how long an idle draft survives
const DefaultSessionTTL = 60 * time.Minute

type memorySession struct {
	step      core.Step
	draft     core.Draft
	updatedAt time.Time
}

// MemorySessionStore keeps drafts in process memory. Entries expire lazily on read and on Sweep.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates an in-memory session store
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// live returns the session if present and not expired. Caller holds mu.
func (m *MemorySessionStore) live(sessionID string) (*memorySession, bool) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if m.now().Sub(s.updatedAt) > m.ttl {
		delete(m.sessions, sessionID)
		return nil, false
	}
	return s, true
}

func (m *MemorySessionStore) touch(sessionID string) *memorySession {
	s, ok := m.live(sessionID)
	if !ok {
		s = &memorySession{draft: core.Draft{}}
		m.sessions[sessionID] = s
	}
	s.updatedAt = m.now()
	return s
}

// GetStep returns the current step marker
func (m *MemorySessionStore) GetStep(ctx context.Context, sessionID string) (core.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.live(sessionID)
	if !ok {
		return core.StepNone, nil
	}
	return s.step, nil
}

// GetDraft returns a copy of the draft
func (m *MemorySessionStore) GetDraft(ctx context.Context, sessionID string) (core.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.live(sessionID)
	if !ok {
		return core.Draft{}, nil
	}
	return s.draft.Clone(), nil
}

// UpdateDraft merges partial into the stored draft
func (m *MemorySessionStore) UpdateDraft(ctx context.Context, sessionID string, partial core.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.touch(sessionID).draft.Merge(partial)
	return nil
}

// SetStep moves the step marker
func (m *MemorySessionStore) SetStep(ctx context.Context, sessionID string, step core.Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.touch(sessionID).step = step
	return nil
}

// Clear removes the session
func (m *MemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// Len counts stored sessions, expired ones included until swept
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed
func (m *MemorySessionStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := m.now()
	for id, s := range m.sessions {
		if now.Sub(s.updatedAt) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done
func (m *MemorySessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}
