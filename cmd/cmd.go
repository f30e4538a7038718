// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes local state: config file, database and environment help
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config.toml to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "env",
				Usage:  "List the environment variables that override the config file",
				Action: r.SetupEnv,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and OAuth endpoints",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override server.host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override server.port",
			},
			&cli.StringFlag{
				Name:  "static",
				Usage: "Serve a built front end from this directory",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Connect a Tidal account through the browser",
		Action: r.AuthLogin,
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Tidal and store the credential",
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored credential",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand ingests the listening history
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch recent listening history from Tidal and update album counts",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the summary",
			},
		},
		Action: r.Sync,
	}
}

// albumsCommand handles the local album history
func albumsCommand(r *Runner) *cli.Command {
	sortFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "Order albums by recent or count",
			Value:   "recent",
		}
	}

	return &cli.Command{
		Name:    "albums",
		Aliases: []string{"al"},
		Usage:   "Browse the albums you have listened to",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached albums",
				Flags: []cli.Flag{
					sortFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of albums to print, 0 for all",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.AlbumsList,
			},
			{
				Name:  "export",
				Usage: "Export cached albums to a file",
				Flags: []cli.Flag{
					sortFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown, text or json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path, - for stdout",
					},
				},
				Action: r.AlbumsExport,
			},
			{
				Name:  "delete",
				Usage: "Remove an album from the history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.AlbumsDelete,
			},
		},
	}
}

// playCommand starts playback
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Start playback of an album on Tidal and count the listen",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the album in the browser when remote playback is unavailable",
			},
		},
		Action: r.Play,
	}
}

// tuiCommand returns the top-level TUI command for browsing the album history.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for the album history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs here while the TUI runs",
				Value: "./tmp/tidalx-tui.log",
			},
		},
		Action: r.TUI,
	}
}
