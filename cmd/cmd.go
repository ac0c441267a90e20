// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func portFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "Loopback port (overrides oauth.port)",
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "How long to wait for the callback (overrides oauth.timeout)",
	}
}

// listenCommand runs the bare listener
func listenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Wait for one OAuth redirect and print the full callback URL",
		Flags: []cli.Flag{
			portFlag(),
			timeoutFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Listen,
	}
}

// authorizeCommand runs the full authorization code flow
func authorizeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "authorize",
		Aliases: []string{"auth"},
		Usage:   "Sign in with the configured provider and save the token",
		Flags: []cli.Flag{
			timeoutFlag(),
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Show the interactive waiting screen",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL without opening a browser",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Where to save the token (default ~/.loopauth/token.json)",
			},
		},
		Action: r.Authorize,
	}
}

// historyCommand lists recorded flows
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded flows",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of flows to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show flows with this status",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Output a Markdown table",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Run database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
