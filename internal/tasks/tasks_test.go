package tasks

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/desertthunder/praghad/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenMigrated(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setupMusicDir creates a music directory with the given files, each a few bytes long.
func setupMusicDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return dir
}

func drainUpdates(ch chan ProgressUpdate) []ProgressUpdate {
	close(ch)
	var updates []ProgressUpdate
	for u := range ch {
		updates = append(updates, u)
	}
	return updates
}

func TestLibraryEngineImport(t *testing.T) {
	ctx := context.Background()

	t.Run("Imports And Skips", func(t *testing.T) {
		dir := setupMusicDir(t, "a.mp3", "albums/b.ogg")
		repo := repositories.NewTrackRepository(setupTestDB(t))
		engine := NewLibraryEngine(repo, dir)

		batch := []*models.Track{
			{Filename: "a.mp3", Title: "A"},
			{Filename: "albums/b.ogg", Title: "B"},
			{Filename: "missing.flac"},
			{Filename: "albums"},
			{Filename: "a.mp3", Title: "A again"},
			{Title: "no file"},
		}

		progress := make(chan ProgressUpdate, 20)
		result, err := engine.Import(ctx, progress, batch)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}

		if len(result.Imported) != 2 || len(result.Failed) != 4 {
			t.Fatalf("expected 2 imported and 4 failed, got %d and %d", len(result.Imported), len(result.Failed))
		}
		if want := filepath.Join(dir, "albums", "b.ogg"); result.Imported[1].Filename != want {
			t.Errorf("expected filename rewritten to %s, got %s", want, result.Imported[1].Filename)
		}

		wantErrs := []error{ErrFileMissing, ErrNotRegularFile, repositories.ErrDuplicate, models.ErrInvalidModel}
		for i, want := range wantErrs {
			if !errors.Is(result.Failed[i].Err, want) {
				t.Errorf("failure %d: expected %v, got %v", i, want, result.Failed[i].Err)
			}
		}

		count, err := repo.Count(ctx)
		if err != nil || count != 2 {
			t.Errorf("expected 2 stored tracks, got %d (%v)", count, err)
		}

		updates := drainUpdates(progress)
		if len(updates) != len(batch)+1 {
			t.Fatalf("expected %d updates, got %d", len(batch)+1, len(updates))
		}
		if updates[2].Err == nil || updates[0].Err != nil {
			t.Error("expected update errors to mirror per-track outcome")
		}
		if last := updates[len(updates)-1]; last.Phase != Done || last.Message != "2 ok, 4 failed" {
			t.Errorf("unexpected final update: %+v", last)
		}
	})

	t.Run("Nil Progress", func(t *testing.T) {
		dir := setupMusicDir(t, "a.mp3")
		engine := NewLibraryEngine(repositories.NewTrackRepository(setupTestDB(t)), dir)

		result, err := engine.Import(ctx, nil, []*models.Track{{Filename: "a.mp3"}})
		if err != nil || len(result.Imported) != 1 {
			t.Errorf("expected one import without a progress channel, got %+v (%v)", result, err)
		}
	})

	t.Run("Full Channel Does Not Block", func(t *testing.T) {
		dir := setupMusicDir(t, "a.mp3", "b.mp3", "c.mp3")
		engine := NewLibraryEngine(repositories.NewTrackRepository(setupTestDB(t)), dir)

		progress := make(chan ProgressUpdate, 1)
		result, err := engine.Import(ctx, progress, []*models.Track{{Filename: "a.mp3"}, {Filename: "b.mp3"}, {Filename: "c.mp3"}})
		if err != nil || len(result.Imported) != 3 {
			t.Fatalf("expected 3 imports, got %+v (%v)", result, err)
		}
		if n := len(drainUpdates(progress)); n != 1 {
			t.Errorf("expected only the buffered update, got %d", n)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		dir := setupMusicDir(t, "a.mp3")
		engine := NewLibraryEngine(repositories.NewTrackRepository(setupTestDB(t)), dir)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := engine.Import(cancelled, nil, []*models.Track{{Filename: "a.mp3"}})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestLibraryEngineCheck(t *testing.T) {
	ctx := context.Background()
	dir := setupMusicDir(t, "a.mp3", "b.mp3")
	repo := repositories.NewTrackRepository(setupTestDB(t))
	engine := NewLibraryEngine(repo, dir)

	if _, err := engine.Import(ctx, nil, []*models.Track{{Filename: "a.mp3"}, {Filename: "b.mp3"}}); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "b.mp3")); err != nil {
		t.Fatalf("failed to remove fixture: %v", err)
	}

	progress := make(chan ProgressUpdate, 10)
	result, err := engine.Check(ctx, progress)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if result.Checked != 2 || len(result.Missing) != 1 {
		t.Fatalf("expected 2 checked and 1 missing, got %d and %d", result.Checked, len(result.Missing))
	}
	if !errors.Is(result.Missing[0].Err, ErrFileMissing) {
		t.Errorf("expected ErrFileMissing, got %v", result.Missing[0].Err)
	}

	updates := drainUpdates(progress)
	if len(updates) != 3 || updates[0].Phase != CheckFiles || updates[2].Phase != Done {
		t.Errorf("unexpected updates: %+v", updates)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name     string
		musicDir string
		filename string
		want     string
	}{
		{"Absolute Kept", "/music", "/elsewhere/a.mp3", "/elsewhere/a.mp3"},
		{"Relative Joined", "/music", "rock/a.mp3", "/music/rock/a.mp3"},
		{"Cleaned", "/music", "rock/../a.mp3", "/music/a.mp3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.musicDir, tt.filename)
			if err != nil {
				t.Fatalf("ResolvePath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{ImportTracks: "import_tracks", CheckFiles: "check_files", Done: "done", Phase(99): ""} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
