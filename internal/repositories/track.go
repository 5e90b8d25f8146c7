package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/praghad/internal/models"
)

// TrackRepository persists [models.Track] rows and resolves them to files on disk.
//
// Tracks are listed in insertion order, which is the order protocol clients page through.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

const trackColumns = `id, filename, track_number, title, artist, album, genre, comment, year, length, created_at`

// Create inserts a new [models.Track] and sets its ID
func (r *TrackRepository) Create(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO tracks (filename, track_number, title, artist, album, genre, comment, year, length, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		track.Filename,
		track.TrackNumber,
		track.Title,
		track.Artist,
		track.Album,
		track.Genre,
		track.Comment,
		track.Year,
		track.Length,
		track.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: track %s", ErrDuplicate, track.Filename)
	}
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read track id: %w", err)
	}
	track.ID = id

	return nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(ctx context.Context, id int64) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`

	track, err := scanTrack(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	return track, nil
}

// List returns up to limit tracks starting at offset, in insertion order.
//
// A non-positive limit returns every track after offset.
func (r *TrackRepository) List(ctx context.Context, offset, limit int) ([]*models.Track, error) {
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY id ASC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, pageLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Count returns the number of tracks in the collection
func (r *TrackRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// Stats counts tracks along with the distinct non-empty artists and albums.
func (r *TrackRepository) Stats(ctx context.Context) (tracks, artists, albums int, err error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT NULLIF(artist, '')),
			COUNT(DISTINCT NULLIF(album, ''))
		FROM tracks
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(&tracks, &artists, &albums); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to collect track stats: %w", err)
	}
	return tracks, artists, albums, nil
}

// Delete removes a track by ID
func (r *TrackRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", ErrTrackNotFound, id)
	}

	return nil
}

// ResolveStreamable looks up the file behind a track id.
//
// Returns [ErrTrackNotFound] when the row is missing or the file is no longer on disk.
// MIME is left empty for the stream layer to fill in.
func (r *TrackRepository) ResolveStreamable(ctx context.Context, id int64) (*models.StreamDescriptor, error) {
	track, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(track.Filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: file %s is missing", ErrTrackNotFound, track.Filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat track file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrTrackNotFound, track.Filename)
	}

	return &models.StreamDescriptor{Path: track.Filename, Size: info.Size()}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTrack scans a single row from [sql.Row] or [sql.Rows] into a [models.Track]
func scanTrack(row rowScanner) (*models.Track, error) {
	var track models.Track

	err := row.Scan(
		&track.ID,
		&track.Filename,
		&track.TrackNumber,
		&track.Title,
		&track.Artist,
		&track.Album,
		&track.Genre,
		&track.Comment,
		&track.Year,
		&track.Length,
		&track.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &track, nil
}
