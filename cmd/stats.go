package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/urfave/cli/v3"
)

// Stats prints catalog counts and the sessions held by the configured backend.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	tracks, artists, albums, err := repositories.NewTrackRepository(db).Stats(ctx)
	if err != nil {
		return err
	}
	users, err := repositories.NewUserRepository(db).List(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Library")
	r.writeTable([]string{"Tracks", "Artists", "Albums", "Users"}, [][]string{{
		strconv.Itoa(tracks), strconv.Itoa(artists), strconv.Itoa(albums), strconv.Itoa(len(users)),
	}})

	r.writePlainln("")
	r.writePlainHeader(fmt.Sprintf("Sessions (%s)", r.config.Session.Backend))
	if r.config.Session.Backend == "memory" {
		return r.writePlain("%s\n", r.styles.Help("Memory sessions live inside the server process and cannot be listed here."))
	}

	backend, release, err := r.openSessions(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to open %s session backend: %w", r.config.Session.Backend, err)
	}
	defer release()

	sessions, err := backend.List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return r.writePlain("%s\n", r.styles.Help("No sessions."))
	}

	now := time.Now()
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		state := r.styles.OK("live")
		if !s.IsLive(now) {
			state = r.styles.Err("expired")
		}
		rows = append(rows, []string{shortToken(s.Token), strconv.FormatInt(s.OwnerID, 10), s.Expiry().Format(time.DateTime), state})
	}
	return r.writeTable([]string{"Token", "Owner", "Expires", "State"}, rows)
}

// SessionClean drops every session from the configured backend.
func (r *Runner) SessionClean(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if r.config.Session.Backend == "memory" {
		return r.writePlain("%s\n", r.styles.Warn("Memory sessions end when the server stops; nothing to clean."))
	}

	backend, release, err := r.openSessions(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to open %s session backend: %w", r.config.Session.Backend, err)
	}
	defer release()

	n, err := backend.DeleteAll(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("sessions cleaned", "backend", r.config.Session.Backend, "removed", n)
	return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Removed %d sessions", n)))
}

// shortToken keeps enough of a token to tell sessions apart without printing a usable credential.
func shortToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:8] + "…"
}
