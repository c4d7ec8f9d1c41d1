package main

import (
	"context"
	"fmt"

	"github.com/fabioc-aloha/spotify-mcpb/internal/cache"
	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/server"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/fabioc-aloha/spotify-mcpb/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve loads configuration and credentials, settles the token authority and speaks MCP on the
// runner's input and output until the client disconnects or ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	srv, err := r.buildToolServer(ctx, config, shared.CredentialsFromEnv(r.getenv))
	if err != nil {
		return err
	}
	return srv.Serve(ctx, r.input, r.output)
}

// buildToolServer wires the core services. A failed initialization is logged, not returned: the
// server still starts so the client can reach spotify_get_refresh_token.
func (r *Runner) buildToolServer(ctx context.Context, config *shared.Config, creds shared.Credentials) (*server.ToolServer, error) {
	auth := services.NewTokenAuthority(creds, services.AuthorityOpts{
		TokenURL:   r.tokenURL,
		HTTPClient: r.httpClient,
		Logger:     shared.WithLogger(r.logger, "component", "auth"),
	})
	client := services.NewSpotifyClient(auth, services.SpotifyClientOpts{
		BaseURL:    r.apiBaseURL,
		HTTPClient: r.httpClient,
		Logger:     shared.WithLogger(r.logger, "component", "spotify"),
	})

	if err := auth.Initialize(ctx, client); err != nil {
		r.logger.Error("spotify_initialization_failed", "error", err, "state", auth.State())
	}

	features, err := cache.New[string, models.FeatureRecord](config.Cache.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature cache: %w", err)
	}

	inv := services.NewInvoker(auth, shared.WithLogger(r.logger, "component", "invoker"))
	fetcher := tasks.NewBatchFetcher(inv, client, features, tasks.BatchFetcherOpts{
		BatchSize:         config.Fetch.BatchSize,
		Concurrency:       config.Fetch.Concurrency,
		RequestsPerSecond: config.Fetch.RequestsPerSecond,
		Logger:            shared.WithLogger(r.logger, "component", "fetcher"),
	})
	engine := tasks.NewPlaylistEngine(inv, client, fetcher, tasks.EngineOpts{
		Market: config.Spotify.Market,
		Logger: shared.WithLogger(r.logger, "component", "engine"),
	})

	return server.NewToolServer(server.ToolServerOpts{
		Authority:  auth,
		API:        client,
		Invoker:    inv,
		Tasks:      engine,
		Features:   fetcher,
		Cache:      features,
		Market:     config.Spotify.Market,
		Logger:     shared.WithLogger(r.logger, "component", "server"),
		TokenURL:   r.tokenURL,
		HTTPClient: r.httpClient,
	}), nil
}
