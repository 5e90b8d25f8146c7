// Package session issues and tracks the time-bound tokens handed out by the protocol handshake.
//
// [Store] owns the session rules (expiry arithmetic, liveness, conflict
// detection) and delegates persistence to a [Backend]. Backends must make
// [Backend.Insert] an atomic insert-if-absent per token and [Backend.Extend]
// an atomic read-modify-write, because handshakes and pings for the same
// token can arrive concurrently.
//
// Tokens are opaque to the store. The protocol currently reuses the
// handshake hash as the token, which only the dispatcher knows about.
package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/praghad/internal/models"
)

var (
	// ErrSessionNotFound means no row exists for the token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired means the token is unknown or past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrTokenConflict means a live session already uses the token.
	ErrTokenConflict = errors.New("session token already in use")
)

// Clock supplies the current time. Tests substitute a fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to [Clock].
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Backend persists sessions.
type Backend interface {
	// Insert stores s unless a session with the same token is live at now, in
	// which case it returns [ErrTokenConflict]. An expired row with the same
	// token is replaced.
	Insert(ctx context.Context, s models.Session, now time.Time) error

	// Get returns the stored session, live or not, or [ErrSessionNotFound].
	Get(ctx context.Context, token string) (*models.Session, error)

	// Extend adds by to the expiry of the session if it is live at now and
	// returns the updated session. Absent or expired tokens return
	// [ErrSessionExpired].
	Extend(ctx context.Context, token string, by time.Duration, now time.Time) (*models.Session, error)
}

// Admin is implemented by backends that can enumerate and clear what they hold.
// The CLI uses it; the protocol never does.
type Admin interface {
	List(ctx context.Context) ([]*models.Session, error)
	DeleteAll(ctx context.Context) (int64, error)
}

func sortByExpiry(sessions []*models.Session) {
	slices.SortFunc(sessions, func(a, b *models.Session) int {
		if c := cmp.Compare(a.ExpiresAt, b.ExpiresAt); c != 0 {
			return c
		}
		return strings.Compare(a.Token, b.Token)
	})
}

// Store creates, looks up and extends sessions against a [Backend].
type Store struct {
	backend Backend
	clock   Clock
}

// NewStore creates a Store. A nil clock uses [SystemClock].
func NewStore(backend Backend, clock Clock) *Store {
	if clock == nil {
		clock = SystemClock
	}
	return &Store{backend: backend, clock: clock}
}

// Create opens a session for ownerID under token that expires ttl from now.
func (s *Store) Create(ctx context.Context, ownerID int64, token string, ttl time.Duration) (*models.Session, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %v", ttl)
	}

	now := s.clock.Now()
	sess := models.Session{
		Token:     token,
		OwnerID:   ownerID,
		ExpiresAt: now.Add(ttl).Unix(),
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}

	if err := s.backend.Insert(ctx, sess, now); err != nil {
		return nil, err
	}

	return &sess, nil
}

// FindByToken returns the stored session for token whether or not it is live.
// Callers decide liveness with [Store.IsLive] or use [Store.Live].
func (s *Store) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	return s.backend.Get(ctx, token)
}

// Live returns the session for token only if it is live now, and [ErrSessionExpired] otherwise.
func (s *Store) Live(ctx context.Context, token string) (*models.Session, error) {
	sess, err := s.FindByToken(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if !s.IsLive(sess) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Extend pushes the expiry of a live session back by the given duration.
func (s *Store) Extend(ctx context.Context, token string, by time.Duration) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionExpired
	}
	return s.backend.Extend(ctx, token, by, s.clock.Now())
}

// IsLive reports whether sess is live at the store's current time.
func (s *Store) IsLive(sess *models.Session) bool {
	return sess != nil && sess.IsLive(s.clock.Now())
}
