package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fabioc-aloha/spotify-mcpb/internal/server"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(os.Stderr)

	if err := shared.LoadDotEnv(); err != nil {
		logger.Warn("dotenv_load_failed", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		logger.Fatal("application_error", "error", err)
	}
}

// newApp builds the command tree. Serving MCP is the default action.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "spotify-mcpb",
		Usage:    "Spotify Web API as Model Context Protocol tools over stdio",
		Version:  server.Version,
		Flags:    serveFlags(),
		Action:   r.Serve,
		Commands: r.register(),
	}
}
