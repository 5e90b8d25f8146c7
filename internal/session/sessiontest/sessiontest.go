// Package sessiontest holds a conformance suite every [session.Backend] must pass.
package sessiontest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises newBackend against the [session.Backend] contract.
// newBackend must return an empty backend on every call.
func Run(t *testing.T, newBackend func(t *testing.T) session.Backend) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	live := models.Session{Token: "token-a", OwnerID: 7, ExpiresAt: now.Unix() + 3600}

	t.Run("Insert And Get", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Insert(ctx, live, now))

		got, err := b.Get(ctx, live.Token)
		require.NoError(t, err)
		assert.Equal(t, live, *got)
	})

	t.Run("Get Missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get(ctx, "nope")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("Insert Conflicts With Live Token", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Insert(ctx, live, now))

		other := live
		other.OwnerID = 8
		err := b.Insert(ctx, other, now.Add(10*time.Second))
		assert.ErrorIs(t, err, session.ErrTokenConflict)

		got, err := b.Get(ctx, live.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.OwnerID, "conflicting insert must not overwrite")
	})

	t.Run("Insert Replaces Expired Token", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Insert(ctx, live, now))

		later := now.Add(2 * time.Hour)
		fresh := models.Session{Token: live.Token, OwnerID: 9, ExpiresAt: later.Unix() + 3600}
		require.NoError(t, b.Insert(ctx, fresh, later))

		got, err := b.Get(ctx, live.Token)
		require.NoError(t, err)
		assert.Equal(t, fresh, *got)
	})

	t.Run("Extend Live Session", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Insert(ctx, live, now))

		got, err := b.Extend(ctx, live.Token, time.Hour, now.Add(10*time.Second))
		require.NoError(t, err)
		assert.Equal(t, live.ExpiresAt+3600, got.ExpiresAt)

		stored, err := b.Get(ctx, live.Token)
		require.NoError(t, err)
		assert.Equal(t, live.ExpiresAt+3600, stored.ExpiresAt)
	})

	t.Run("Extend Expired Session", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Insert(ctx, live, now))

		_, err := b.Extend(ctx, live.Token, time.Hour, now.Add(3600*time.Second))
		assert.ErrorIs(t, err, session.ErrSessionExpired)

		stored, err := b.Get(ctx, live.Token)
		require.NoError(t, err)
		assert.Equal(t, live.ExpiresAt, stored.ExpiresAt, "expired session must not be extended")
	})

	t.Run("Extend Missing Session", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Extend(ctx, "nope", time.Hour, now)
		assert.ErrorIs(t, err, session.ErrSessionExpired)
	})

	t.Run("Concurrent Inserts Admit One Winner", func(t *testing.T) {
		b := newBackend(t)

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for i := range writers {
			wg.Add(1)
			go func(owner int64) {
				defer wg.Done()
				s := live
				s.OwnerID = owner
				err := b.Insert(ctx, s, now)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case assert.ErrorIs(t, err, session.ErrTokenConflict):
					conflicts++
				}
			}(int64(i + 1))
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		assert.Equal(t, writers-1, conflicts)
	})
}

// AdminBackend is a backend the CLI can list and clear.
type AdminBackend interface {
	session.Backend
	session.Admin
}

// RunAdmin exercises the [session.Admin] half of newBackend.
func RunAdmin(t *testing.T, newBackend func(t *testing.T) AdminBackend) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	t.Run("Empty", func(t *testing.T) {
		b := newBackend(t)

		sessions, err := b.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, sessions)

		n, err := b.DeleteAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("List Orders By Expiry", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Insert(ctx, models.Session{Token: "late", OwnerID: 1, ExpiresAt: now.Unix() + 7200}, now))
		require.NoError(t, b.Insert(ctx, models.Session{Token: "soon", OwnerID: 2, ExpiresAt: now.Unix() + 3600}, now))
		require.NoError(t, b.Insert(ctx, models.Session{Token: "gone", OwnerID: 3, ExpiresAt: now.Unix() - 10}, now))

		sessions, err := b.List(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 3)

		tokens := []string{sessions[0].Token, sessions[1].Token, sessions[2].Token}
		assert.Equal(t, []string{"gone", "soon", "late"}, tokens)
		assert.Equal(t, int64(2), sessions[1].OwnerID)
	})

	t.Run("DeleteAll", func(t *testing.T) {
		b := newBackend(t)
		for i, token := range []string{"a", "b"} {
			require.NoError(t, b.Insert(ctx, models.Session{Token: token, OwnerID: int64(i + 1), ExpiresAt: now.Unix() + 60}, now))
		}

		n, err := b.DeleteAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = b.Get(ctx, "a")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)

		sessions, err := b.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}
