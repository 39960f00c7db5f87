package site

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store used when no database is configured.
type MemoryStore struct {
	mu           sync.Mutex
	nextID       int64
	signups      []Signup
	interactions []FormInteraction
	now          func() time.Time
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) InsertSignup(_ context.Context, s *Signup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.signups = append(m.signups, *s)
	return nil
}

func (m *MemoryStore) ListSignups(_ context.Context) ([]Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Signup, 0, len(m.signups))
	for i := len(m.signups) - 1; i >= 0; i-- {
		out = append(out, m.signups[i])
	}
	return out, nil
}

func (m *MemoryStore) FindSignupsByEmail(_ context.Context, email string) ([]Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Signup
	for _, s := range m.signups {
		if s.Email == email {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkInviteSent(_ context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.signups {
		if m.signups[i].Email == email {
			m.signups[i].EmailSent = true
			t := at
			m.signups[i].EmailSentAt = &t
		}
	}
	return nil
}

func (m *MemoryStore) InsertInteraction(_ context.Context, fi *FormInteraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	fi.ID = m.nextID
	if fi.Timestamp.IsZero() {
		fi.Timestamp = m.now()
	}
	m.interactions = append(m.interactions, *fi)
	return nil
}

func (m *MemoryStore) ListInteractions(_ context.Context) ([]FormInteraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FormInteraction, 0, len(m.interactions))
	for i := len(m.interactions) - 1; i >= 0; i-- {
		out = append(out, m.interactions[i])
	}
	return out, nil
}
