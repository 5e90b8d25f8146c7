package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/desertthunder/praghad/internal/server"
	"github.com/desertthunder/praghad/internal/session"
	"github.com/desertthunder/praghad/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionBackend is what every configured backend offers: the protocol half and the CLI half.
type sessionBackend interface {
	session.Backend
	session.Admin
}

// openSessions returns the backend named by session.backend and a func releasing it.
func (r *Runner) openSessions(ctx context.Context, db *sql.DB) (sessionBackend, func(), error) {
	switch r.config.Session.Backend {
	case "memory":
		return session.NewMemoryBackend(), func() {}, nil
	case "redis":
		client, err := session.DialRedis(ctx, r.config.Session.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisBackend(client), func() { client.Close() }, nil
	default:
		return repositories.NewSessionRepository(db), func() {}, nil
	}
}

// Serve runs the HTTP server until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if addr := cmd.String("addr"); addr != "" {
		if err := overrideAddr(&r.config.Server, addr); err != nil {
			return err
		}
	}

	backend, release, err := r.openSessions(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to open %s session backend: %w", r.config.Session.Backend, err)
	}
	defer release()

	tracks := repositories.NewTrackRepository(db)
	srv := server.New(r.config, server.Deps{
		Credentials: repositories.NewUserRepository(db),
		Tracks:      tracks,
		Lookup:      tracks,
		Sessions:    session.NewStore(backend, nil),
	}, shared.WithLogger(r.logger, "component", "server"))

	r.logger.Info("starting server",
		"addr", srv.Addr(),
		"public_url", r.config.Server.PublicURL,
		"sessions", r.config.Session.Backend,
		"database", r.config.Database.Path,
	)

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	r.logger.Info("server stopped")
	return nil
}

func overrideAddr(cfg *shared.ServerConfig, addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w: --addr %q: %v", shared.ErrInvalidArgument, addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%w: --addr port %q", shared.ErrInvalidArgument, portStr)
	}

	cfg.Host, cfg.Port = host, port
	return nil
}
