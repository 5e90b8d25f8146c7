// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the Ampache XML API and track streams",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Override the listen address (host:port)",
			},
		},
		Action: r.Serve,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// userCommand manages the accounts allowed to handshake
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage user accounts",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a user; prompts for the password when --password is not given",
				ArgsUsage: "<username>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password (at least 8 characters)",
					},
				},
				Action: r.UserAdd,
			},
			{
				Name:  "list",
				Usage: "List users",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.UserList,
			},
		},
	}
}

// trackCommand manages the catalog
func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Manage the track catalog",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a file; relative paths resolve against library.music_dir",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "title", Usage: "Track title"},
					&cli.StringFlag{Name: "artist", Usage: "Artist name"},
					&cli.StringFlag{Name: "album", Usage: "Album name"},
					&cli.StringFlag{Name: "genre", Usage: "Genre"},
					&cli.StringFlag{Name: "comment", Usage: "Free-form comment"},
					&cli.IntFlag{Name: "track", Usage: "Track number"},
					&cli.IntFlag{Name: "year", Usage: "Release year"},
					&cli.IntFlag{Name: "length", Usage: "Length in seconds"},
				},
				Action: r.TrackAdd,
			},
			{
				Name:  "list",
				Usage: "List tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{Name: "offset", Usage: "Skip this many tracks"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of tracks (0 for all)"},
					&cli.BoolFlag{Name: "csv", Usage: "Output CSV"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.TrackList,
			},
			{
				Name:      "import",
				Usage:     "Register every row of a CSV file (columns as written by export)",
				ArgsUsage: "<file.csv>",
				Flags:     []cli.Flag{configFlag()},
				Action:    r.TrackImport,
			},
			{
				Name:  "export",
				Usage: "Write the catalog to a CSV or text file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "Output file path",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "csv or text",
						Value: "csv",
					},
				},
				Action: r.TrackExport,
			},
			{
				Name:   "check",
				Usage:  "Report tracks whose file is missing",
				Flags:  []cli.Flag{configFlag()},
				Action: r.TrackCheck,
			},
			{
				Name:      "remove",
				Usage:     "Remove a track from the catalog (the file is left alone)",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{configFlag()},
				Action:    r.TrackRemove,
			},
		},
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show catalog counts and sessions",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Stats,
	}
}

func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage handshake sessions",
		Commands: []*cli.Command{
			{
				Name:   "clean",
				Usage:  "Drop every session from the configured backend",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SessionClean,
			},
		},
	}
}

// clientCommand talks to a running server, for smoke tests
func clientCommand(r *Runner) *cli.Command {
	serverFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Server base URL (defaults to server.public_url)",
		}
	}
	tokenFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "auth",
			Usage:    "Session token from handshake",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "client",
		Usage: "Call a running server over the XML API",
		Commands: []*cli.Command{
			{
				Name:  "handshake",
				Usage: "Log in and print the session token",
				Flags: []cli.Flag{
					configFlag(),
					serverFlag(),
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password; prompted when empty"},
				},
				Action: r.ClientHandshake,
			},
			{
				Name:   "ping",
				Usage:  "Extend a session",
				Flags:  []cli.Flag{configFlag(), serverFlag(), tokenFlag()},
				Action: r.ClientPing,
			},
			{
				Name:  "songs",
				Usage: "List songs",
				Flags: []cli.Flag{
					configFlag(), serverFlag(), tokenFlag(),
					&cli.IntFlag{Name: "offset", Usage: "Skip this many songs"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of songs (0 for all)"},
				},
				Action: r.ClientSongs,
			},
			{
				Name:      "play",
				Usage:     "Download a song from its play URL",
				ArgsUsage: "<play-url>",
				Flags: []cli.Flag{
					configFlag(), serverFlag(),
					&cli.StringFlag{Name: "range", Usage: "Range header value, e.g. bytes=0-1023"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file", Required: true},
				},
				Action: r.ClientPlay,
			},
		},
	}
}
