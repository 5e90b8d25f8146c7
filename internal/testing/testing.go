// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
)

// Clock is a settable clock for session tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock fixed at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// MockLibrary is an in-memory track and credential collaborator.
type MockLibrary struct {
	Tracks []*models.Track
	Users  map[string]models.Credentials
	Err    error
}

func (m *MockLibrary) ResolveStreamable(ctx context.Context, id int64) (*models.StreamDescriptor, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, track := range m.Tracks {
		if track.ID != id {
			continue
		}
		info, err := os.Stat(track.Filename)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file %s is missing", repositories.ErrTrackNotFound, track.Filename)
		}
		if err != nil {
			return nil, err
		}
		return &models.StreamDescriptor{Path: track.Filename, Size: info.Size()}, nil
	}
	return nil, fmt.Errorf("%w: %d", repositories.ErrTrackNotFound, id)
}

func (m *MockLibrary) List(ctx context.Context, offset, limit int) ([]*models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if offset >= len(m.Tracks) {
		return nil, nil
	}
	end := len(m.Tracks)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return m.Tracks[offset:end], nil
}

func (m *MockLibrary) Count(ctx context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Tracks), nil
}

func (m *MockLibrary) FindByUsername(ctx context.Context, username string) (*models.Credentials, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	creds, ok := m.Users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrUserNotFound, username)
	}
	return &creds, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// WriteFixture writes size bytes of a repeating pattern to name under a temp dir and returns the path and the bytes.
//
// The pattern is position dependent, so any misplaced range shows up as a byte mismatch.
func WriteFixture(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
	return path, data
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
