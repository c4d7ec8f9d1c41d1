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

func serveFlags() []cli.Flag {
	return []cli.Flag{configFlag()}
}

// serveCommand runs the MCP server on stdin/stdout. It is also the root action.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the Spotify tools over MCP stdio",
		Flags:  serveFlags(),
		Action: r.Serve,
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  "client-id",
			Usage: "Spotify client id (defaults to SPOTIFY_CLIENT_ID)",
		},
		&cli.StringFlag{
			Name:  "client-secret",
			Usage: "Spotify client secret (defaults to SPOTIFY_CLIENT_SECRET)",
		},
	}
}

// authCommand obtains a refresh token through the browser.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize with Spotify and print a refresh token",
		Flags: append(credentialFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the token as JSON",
			},
		),
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "url",
				Usage:  "Print the authorization URL without starting the callback server",
				Flags:  credentialFlags(),
				Action: r.AuthURL,
			},
		},
	}
}

// configCommand manages config.toml.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a config.toml with the default settings",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigShow,
			},
		},
	}
}
