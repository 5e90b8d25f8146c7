package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/praghad/internal/client"
	"github.com/desertthunder/praghad/internal/shared"
	"github.com/urfave/cli/v3"
)

// newClient builds a protocol client for --server, falling back to server.public_url.
func (r *Runner) newClient(cmd *cli.Command) (*client.Client, error) {
	if err := r.loadConfig(cmd); err != nil {
		return nil, err
	}

	base := cmd.String("server")
	if base == "" {
		base = r.config.Server.PublicURL
	}
	if base == "" {
		return nil, fmt.Errorf("%w: --server or server.public_url", shared.ErrMissingArgument)
	}
	return client.New(base), nil
}

// ClientHandshake logs in and prints the token.
func (r *Runner) ClientHandshake(ctx context.Context, cmd *cli.Command) error {
	c, err := r.newClient(cmd)
	if err != nil {
		return err
	}

	password := cmd.String("password")
	if password == "" {
		if password, err = r.promptPassword("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	hs, err := c.Handshake(ctx, cmd.String("user"), password)
	if err != nil {
		return err
	}

	r.writePlainHeader("Handshake")
	return r.writeTable([]string{"Version", "Songs", "Auth"}, [][]string{{hs.Version, strconv.Itoa(hs.Songs), hs.Token}})
}

// ClientPing extends a session.
func (r *Runner) ClientPing(ctx context.Context, cmd *cli.Command) error {
	c, err := r.newClient(cmd)
	if err != nil {
		return err
	}

	version, err := c.Ping(ctx, cmd.String("auth"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", r.styles.OK("✓ pong, server version "+version))
}

// ClientSongs lists songs as the server reports them.
func (r *Runner) ClientSongs(ctx context.Context, cmd *cli.Command) error {
	c, err := r.newClient(cmd)
	if err != nil {
		return err
	}

	songs, err := c.Songs(ctx, cmd.String("auth"), int(cmd.Int("offset")), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Title, s.Artist, s.Album, s.URL})
	}

	r.writePlainHeader(fmt.Sprintf("Songs (%d)", len(songs)))
	return r.writeTable([]string{"ID", "Title", "Artist", "Album", "URL"}, rows)
}

// ClientPlay downloads a play URL to a file.
func (r *Runner) ClientPlay(ctx context.Context, cmd *cli.Command) error {
	playURL := cmd.Args().First()
	if playURL == "" {
		return fmt.Errorf("%w: play URL", shared.ErrMissingArgument)
	}

	c, err := r.newClient(cmd)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	status, n, err := c.Fetch(ctx, playURL, cmd.String("range"), f)
	if err != nil {
		return err
	}

	r.logger.Debug("fetched", "status", status, "bytes", n)
	return r.writePlain("%s\n", r.styles.OK(fmt.Sprintf("✓ Saved %d bytes to %s", n, output)))
}
