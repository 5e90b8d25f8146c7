package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/desertthunder/praghad/internal/server"
	"github.com/desertthunder/praghad/internal/session"
	"github.com/desertthunder/praghad/internal/shared"
	tu "github.com/desertthunder/praghad/internal/testing"
	"github.com/urfave/cli/v3"
)

// writeConfig writes a config whose database and music directory live under a temp dir.
func writeConfig(t *testing.T, backend string) (path, musicDir string) {
	t.Helper()
	dir := t.TempDir()
	musicDir = filepath.Join(dir, "music")
	path = filepath.Join(dir, "config.toml")

	content := fmt.Sprintf(`
[database]
path = %q

[session]
backend = %q
ttl_seconds = 3600

[library]
music_dir = %q

[log]
level = "error"
`, filepath.Join(dir, "praghad.db"), backend, musicDir)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path, musicDir
}

// run executes args against a fresh app and returns what the command printed.
func run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	runner := NewRunner(RunnerOpts{
		Logger: log.New(io.Discard),
		Output: &out,
		Input:  strings.NewReader(input),
	})

	app := &cli.Command{Name: "praghad", Commands: runner.register()}
	err := app.Run(context.Background(), append([]string{"praghad"}, args...))
	return out.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output, Input: input})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})
	})

	t.Run("Register", func(t *testing.T) {
		names := map[string]bool{}
		for _, cmd := range NewRunner(RunnerOpts{}).register() {
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "setup", "user", "track", "stats", "session", "client"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("Write Helpers", func(t *testing.T) {
		var out bytes.Buffer
		runner := NewRunner(RunnerOpts{Output: &out})

		runner.writePlain("a=%d", 1)
		runner.writePlainln("b")
		if err := runner.writeJSON(map[string]int{"n": 2}, false); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}

		if got := out.String(); got != "a=1\nb\n{\"n\":2}\n" {
			t.Errorf("unexpected output %q", got)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	cfg, musicDir := writeConfig(t, "sqlite")

	out, err := run(t, "", "setup", "database", "-c", cfg)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if !strings.Contains(out, "Database ready") {
		t.Errorf("expected success message, got %q", out)
	}

	tu.AssertFileExists(t, filepath.Join(filepath.Dir(cfg), "praghad.db"))
	tu.AssertFileExists(t, musicDir)

	t.Run("Creates Missing Config", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		if _, err := run(t, "", "setup", "database", "-c", "fresh.toml"); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "fresh.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "praghad.db"))
	})
}

func TestUserCommands(t *testing.T) {
	cfg, _ := writeConfig(t, "sqlite")

	t.Run("Add With Flag", func(t *testing.T) {
		out, err := run(t, "", "user", "add", "-c", cfg, "-p", "password123", "listener")
		if err != nil {
			t.Fatalf("user add failed: %v", err)
		}
		if !strings.Contains(out, "Added user listener") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Add With Prompt", func(t *testing.T) {
		if _, err := run(t, "secretpass\n", "user", "add", "-c", cfg, "prompted"); err != nil {
			t.Fatalf("user add failed: %v", err)
		}
	})

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"Missing Username", []string{"user", "add", "-c", cfg, "-p", "password123"}, shared.ErrMissingArgument},
		{"Short Username", []string{"user", "add", "-c", cfg, "-p", "password123", "abc"}, shared.ErrInvalidInput},
		{"Short Password", []string{"user", "add", "-c", cfg, "-p", "short", "someone"}, shared.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, "", tt.args...); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("Duplicate", func(t *testing.T) {
		if _, err := run(t, "", "user", "add", "-c", cfg, "-p", "password123", "listener"); err == nil {
			t.Error("expected duplicate user error")
		}
	})

	t.Run("List", func(t *testing.T) {
		out, err := run(t, "", "user", "list", "-c", cfg)
		if err != nil {
			t.Fatalf("user list failed: %v", err)
		}
		for _, want := range []string{"Users (2)", "listener", "prompted"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Contains(out, "password123") {
			t.Error("passwords must not be listed")
		}
	})

	t.Run("List JSON", func(t *testing.T) {
		out, err := run(t, "", "user", "list", "-c", cfg, "--json")
		if err != nil {
			t.Fatalf("user list failed: %v", err)
		}
		if !strings.Contains(out, `"username": "listener"`) || strings.Contains(out, "password") {
			t.Errorf("unexpected JSON:\n%s", out)
		}
	})
}

func TestTrackCommands(t *testing.T) {
	cfg, musicDir := writeConfig(t, "sqlite")
	if err := os.MkdirAll(musicDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"one.mp3", "two.ogg", "three.flac"} {
		if err := os.WriteFile(filepath.Join(musicDir, name), []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("Add", func(t *testing.T) {
		out, err := run(t, "", "track", "add", "-c", cfg, "--title", "One", "--artist", "Band", "--year", "2001", "--length", "185", "one.mp3")
		if err != nil {
			t.Fatalf("track add failed: %v", err)
		}
		if !strings.Contains(out, "Added track 1: Band - One") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Add Missing File", func(t *testing.T) {
		if _, err := run(t, "", "track", "add", "-c", cfg, "nope.mp3"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Import", func(t *testing.T) {
		csvPath := filepath.Join(t.TempDir(), "batch.csv")
		content := "Title,Artist,Filename\nTwo,Band,two.ogg\nThree,,three.flac\nGhost,,ghost.mp3\n"
		if err := os.WriteFile(csvPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		out, err := run(t, "", "track", "import", "-c", cfg, csvPath)
		if err != nil {
			t.Fatalf("track import failed: %v", err)
		}
		if !strings.Contains(out, "Imported 2 of 3 tracks") || !strings.Contains(out, "ghost.mp3") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("List Table", func(t *testing.T) {
		out, err := run(t, "", "track", "list", "-c", cfg)
		if err != nil {
			t.Fatalf("track list failed: %v", err)
		}
		for _, want := range []string{"Tracks (3 of 3)", "One", "Two", "Three", "3:05"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("List CSV Page", func(t *testing.T) {
		out, err := run(t, "", "track", "list", "-c", cfg, "--csv", "--offset", "1", "--limit", "1")
		if err != nil {
			t.Fatalf("track list failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 || !strings.HasPrefix(lines[1], "2,,Two,Band") {
			t.Errorf("expected header and track 2, got:\n%s", out)
		}
	})

	t.Run("Export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.txt")
		if _, err := run(t, "", "track", "export", "-c", cfg, "-o", path, "--format", "text"); err != nil {
			t.Fatalf("track export failed: %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "1. Band - One [3:05]") {
			t.Errorf("unexpected export:\n%s", content)
		}

		_, err := run(t, "", "track", "export", "-c", cfg, "-o", path, "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Check", func(t *testing.T) {
		if err := os.Remove(filepath.Join(musicDir, "three.flac")); err != nil {
			t.Fatal(err)
		}

		out, err := run(t, "", "track", "check", "-c", cfg)
		if err != nil {
			t.Fatalf("track check failed: %v", err)
		}
		if !strings.Contains(out, "Missing 1 of 3 tracks") || !strings.Contains(out, "three.flac") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if _, err := run(t, "", "track", "remove", "-c", cfg, "3"); err != nil {
			t.Fatalf("track remove failed: %v", err)
		}
		if _, err := run(t, "", "track", "remove", "-c", cfg, "3"); err == nil {
			t.Error("expected error removing a missing track")
		}
		if _, err := run(t, "", "track", "remove", "-c", cfg, "x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		out, err := run(t, "", "stats", "-c", cfg)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		for _, want := range []string{"Library", "Sessions (sqlite)", "No sessions."} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})
}

func TestSessionClean(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		cfg, _ := writeConfig(t, "sqlite")

		db, err := shared.OpenMigrated(shared.DatabaseConfig{Path: filepath.Join(filepath.Dir(cfg), "praghad.db")})
		if err != nil {
			t.Fatal(err)
		}
		store := session.NewStore(repositories.NewSessionRepository(db), nil)
		if _, err := store.Create(context.Background(), 1, "tok-1", time.Hour); err != nil {
			t.Fatal(err)
		}
		db.Close()

		out, err := run(t, "", "session", "clean", "-c", cfg)
		if err != nil {
			t.Fatalf("session clean failed: %v", err)
		}
		if !strings.Contains(out, "Removed 1 sessions") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("Memory", func(t *testing.T) {
		cfg, _ := writeConfig(t, "memory")

		out, err := run(t, "", "session", "clean", "-c", cfg)
		if err != nil {
			t.Fatalf("session clean failed: %v", err)
		}
		if !strings.Contains(out, "nothing to clean") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestClientCommands(t *testing.T) {
	path, _ := tu.WriteFixture(t, "song.mp3", 5000)
	lib := &tu.MockLibrary{
		Tracks: []*models.Track{{ID: 1, Filename: path, Title: "Song"}},
		Users:  map[string]models.Credentials{"listener": {OwnerID: 1, StoredSecret: "password123"}},
	}

	cfg := shared.DefaultConfig()
	cfg.RateLimit.RequestsPerSecond = 0
	ts := httptest.NewUnstartedServer(nil)
	cfg.Server.PublicURL = "http://" + ts.Listener.Addr().String()
	ts.Config.Handler = server.New(cfg, server.Deps{
		Credentials: lib,
		Tracks:      lib,
		Lookup:      lib,
		Sessions:    session.NewStore(session.NewMemoryBackend(), nil),
	}, log.New(io.Discard)).Handler()
	ts.Start()
	defer ts.Close()

	t.Run("Handshake", func(t *testing.T) {
		out, err := run(t, "password123\n", "client", "handshake", "-s", ts.URL, "-u", "listener")
		if err != nil {
			t.Fatalf("handshake failed: %v", err)
		}
		if !strings.Contains(out, server.ProtocolVersion) {
			t.Errorf("expected version in output:\n%s", out)
		}
	})

	t.Run("Bad Password", func(t *testing.T) {
		if _, err := run(t, "", "client", "handshake", "-s", ts.URL, "-u", "listener", "-p", "wrong-password"); err == nil {
			t.Error("expected handshake to fail")
		}
	})

	t.Run("Ping Unknown Token", func(t *testing.T) {
		_, err := run(t, "", "client", "ping", "-s", ts.URL, "--auth", "nope")
		if err == nil || !strings.Contains(err.Error(), "Session Expired") {
			t.Errorf("expected Session Expired, got %v", err)
		}
	})

	t.Run("No Server", func(t *testing.T) {
		cfgPath, _ := writeConfig(t, "memory")
		content := tu.MustReadFile(t, cfgPath) + "\n[server]\npublic_url = \"\"\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := run(t, "", "client", "ping", "-c", cfgPath, "--auth", "x")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestOverrideAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		host    string
		port    int
		wantErr bool
	}{
		{"Host And Port", "0.0.0.0:8080", "0.0.0.0", 8080, false},
		{"Port Only", ":9000", "", 9000, false},
		{"No Port", "localhost", "", 0, true},
		{"Bad Port", "localhost:http", "", 0, true},
		{"Out Of Range", "localhost:70000", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := shared.ServerConfig{Host: "127.0.0.1", Port: 5000}
			err := overrideAddr(&cfg, tt.addr)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Host != tt.host || cfg.Port != tt.port {
				t.Errorf("expected %s:%d, got %s:%d", tt.host, tt.port, cfg.Host, cfg.Port)
			}
		})
	}
}

func TestShortToken(t *testing.T) {
	if got := shortToken("abc"); got != "abc" {
		t.Errorf("short tokens are kept, got %q", got)
	}
	if got := shortToken("0123456789abcdef"); got != "01234567…" {
		t.Errorf("expected truncated token, got %q", got)
	}
}
