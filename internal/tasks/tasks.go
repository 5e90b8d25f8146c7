package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
)

var (
	ErrNotRegularFile = errors.New("not a regular file")
	ErrFileMissing    = errors.New("file missing")
)

// TrackStore is the part of the track repository the engine writes to and reads from.
type TrackStore interface {
	Create(ctx context.Context, track *models.Track) error
	List(ctx context.Context, offset, limit int) ([]*models.Track, error)
}

// TrackResult is the outcome for one track of a batch.
type TrackResult struct {
	Track *models.Track
	Err   error
}

// ImportResult summarizes an [LibraryEngine.Import] run.
type ImportResult struct {
	Imported []*models.Track
	Failed   []TrackResult
}

// CheckResult summarizes an [LibraryEngine.Check] run.
type CheckResult struct {
	Checked int
	Missing []TrackResult
}

// LibraryEngine imports and checks tracks against the files in the music directory.
type LibraryEngine struct {
	tracks   TrackStore
	musicDir string
}

// NewLibraryEngine creates a LibraryEngine. Relative track filenames resolve against musicDir.
func NewLibraryEngine(tracks TrackStore, musicDir string) *LibraryEngine {
	return &LibraryEngine{tracks: tracks, musicDir: musicDir}
}

// ResolvePath makes filename absolute, joining relative names onto musicDir.
func ResolvePath(musicDir, filename string) (string, error) {
	if !filepath.IsAbs(filename) && musicDir != "" {
		filename = filepath.Join(musicDir, filename)
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", filename, err)
	}
	return abs, nil
}

// Stat resolves filename and requires it to be a readable regular file.
func Stat(musicDir, filename string) (string, error) {
	path, err := ResolvePath(musicDir, filename)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrFileMissing, path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	return path, nil
}

// Import stats and inserts each track. Filenames are rewritten to their absolute path
// before insert. Per-track failures are collected; only cancellation aborts the batch.
func (e *LibraryEngine) Import(ctx context.Context, progress chan<- ProgressUpdate, tracks []*models.Track) (*ImportResult, error) {
	result := &ImportResult{}
	total := len(tracks)

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := e.importOne(ctx, track)
		if err != nil {
			result.Failed = append(result.Failed, TrackResult{Track: track, Err: err})
		} else {
			result.Imported = append(result.Imported, track)
		}
		e.sendProgress(progress, importingUpdate(i+1, total, track, err))
	}

	e.sendProgress(progress, doneUpdate(len(result.Imported), len(result.Failed)))
	return result, nil
}

func (e *LibraryEngine) importOne(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return err
	}

	path, err := Stat(e.musicDir, track.Filename)
	if err != nil {
		return err
	}
	track.Filename = path

	return e.tracks.Create(ctx, track)
}

// Check lists the whole catalog and reports tracks whose file is missing or not a regular file.
func (e *LibraryEngine) Check(ctx context.Context, progress chan<- ProgressUpdate) (*CheckResult, error) {
	tracks, err := e.tracks.List(ctx, 0, repositories.NoLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	result := &CheckResult{}
	total := len(tracks)

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := Stat("", track.Filename)
		if err != nil {
			result.Missing = append(result.Missing, TrackResult{Track: track, Err: err})
		}
		result.Checked++
		e.sendProgress(progress, checkingUpdate(i+1, total, track, err))
	}

	e.sendProgress(progress, doneUpdate(result.Checked-len(result.Missing), len(result.Missing)))
	return result, nil
}

// sendProgress sends a progress update without blocking.
//
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	select {
	case progress <- update:
	default:
	}
}
