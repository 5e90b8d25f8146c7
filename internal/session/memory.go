package session

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/praghad/internal/models"
)

// MemoryBackend keeps sessions in a map. Sessions are lost on restart.
type MemoryBackend struct {
	sessions map[string]models.Session
	mu       sync.Mutex
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]models.Session)}
}

// Insert stores s unless its token is live at now
func (b *MemoryBackend) Insert(ctx context.Context, s models.Session, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.sessions[s.Token]; ok && existing.IsLive(now) {
		return ErrTokenConflict
	}
	b.sessions[s.Token] = s
	return nil
}

// Get returns a copy of the stored session
func (b *MemoryBackend) Get(ctx context.Context, token string) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Extend adds by to a live session's expiry
func (b *MemoryBackend) Extend(ctx context.Context, token string, by time.Duration, now time.Time) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[token]
	if !ok || !s.IsLive(now) {
		return nil, ErrSessionExpired
	}
	s.ExpiresAt += int64(by / time.Second)
	b.sessions[token] = s
	return &s, nil
}

// Len returns the number of stored sessions, live or expired.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// List returns every stored session ordered by expiry
func (b *MemoryBackend) List(ctx context.Context) ([]*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sessions := make([]*models.Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, &s)
	}
	sortByExpiry(sessions)
	return sessions, nil
}

// DeleteAll drops every session
func (b *MemoryBackend) DeleteAll(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := int64(len(b.sessions))
	clear(b.sessions)
	return n, nil
}
