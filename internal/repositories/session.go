package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/session"
)

// SessionRepository is the SQLite [session.Backend].
//
// The token is the primary key, so concurrent inserts for the same token are
// serialized by SQLite itself. Expired rows stay in the table until
// [SessionRepository.DeleteAll] or a conflicting insert replaces them.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert stores s, replacing an expired row with the same token, and returns
// [session.ErrTokenConflict] when the existing row is still live at now.
func (r *SessionRepository) Insert(ctx context.Context, s models.Session, now time.Time) error {
	query := `
		INSERT INTO sessions (token, owner_id, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE
		SET owner_id = excluded.owner_id, expires_at = excluded.expires_at
		WHERE sessions.expires_at <= ?
	`

	result, err := r.db.ExecContext(ctx, query, s.Token, s.OwnerID, s.ExpiresAt, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return session.ErrTokenConflict
	}

	return nil
}

// Get retrieves a session by token
func (r *SessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT token, owner_id, expires_at FROM sessions WHERE token = ?`

	var s models.Session
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.OwnerID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &s, nil
}

// Extend adds by to the expiry of a session that is live at now
func (r *SessionRepository) Extend(ctx context.Context, token string, by time.Duration, now time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET expires_at = expires_at + ?
		WHERE token = ? AND expires_at > ?
		RETURNING token, owner_id, expires_at
	`

	var s models.Session
	err := r.db.QueryRowContext(ctx, query, int64(by/time.Second), token, now.Unix()).Scan(&s.Token, &s.OwnerID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}

	return &s, nil
}

// List returns every stored session, live or expired, ordered by expiry
func (r *SessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token, owner_id, expires_at FROM sessions ORDER BY expires_at ASC, token ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.Token, &s.OwnerID, &s.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteAll removes every session and returns how many rows were dropped
func (r *SessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
