package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/fabioc-aloha/spotify-mcpb/internal/server"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

type authOutput struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	Expiry       string `json:"expiry,omitempty"`
}

// Auth performs the authorization-code flow against Spotify.
//
// Starts a local callback server on the configured host and port, opens the browser for user
// authorization, exchanges the code and prints the refresh token.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	config, conf, err := r.oauthConfig(cmd)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, config, conf)
	if err != nil {
		r.writePlain("%s\n", r.palette.Err("Authorization failed"))
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: token endpoint returned no refresh token", shared.ErrNoRefreshToken)
	}

	if cmd.Bool("json") {
		out := authOutput{RefreshToken: token.RefreshToken, AccessToken: token.AccessToken}
		if !token.Expiry.IsZero() {
			out.Expiry = token.Expiry.UTC().Format(time.RFC3339)
		}
		return r.writeJSON(out, true)
	}

	r.writePlainln("%s", r.palette.OK("Authorization successful"))
	r.writePlain("\n%s\n", r.palette.Title("Refresh token"))
	r.writePlain("%s\n\n", token.RefreshToken)
	r.writePlain("%s\n", r.palette.Help("Add it to your .env file or bundle configuration:"))
	r.writePlain("  %s=%s\n", shared.EnvRefreshToken, token.RefreshToken)
	return nil
}

// AuthURL prints the authorization URL and its state value.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	_, conf, err := r.oauthConfig(cmd)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	r.writePlain("%s\n", r.palette.Title("Authorization URL"))
	r.writePlain("%s\n\n", conf.AuthCodeURL(state))
	r.writePlain("%s\n", r.palette.Help("State: "+state))
	r.writePlain("%s\n", r.palette.Help("After authorizing, pass the code parameter to spotify_get_refresh_token."))
	return nil
}

// oauthConfig resolves client credentials from flags, then the environment.
func (r *Runner) oauthConfig(cmd *cli.Command) (*shared.Config, *oauth2.Config, error) {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	creds := shared.CredentialsFromEnv(r.getenv)
	if id := strings.TrimSpace(cmd.String("client-id")); id != "" {
		creds.ClientID = id
	}
	if secret := strings.TrimSpace(cmd.String("client-secret")); secret != "" {
		creds.ClientSecret = secret
	}
	if !creds.HasClient() {
		return nil, nil, fmt.Errorf("%w: set %s and %s or pass --client-id and --client-secret",
			shared.ErrMissingCredentials, shared.EnvClientID, shared.EnvClientSecret)
	}

	redirect := config.Spotify.RedirectURI
	if redirect == "" {
		redirect = fmt.Sprintf("http://%s:%d%s", config.Server.Host, config.Server.Port, server.CallbackPath)
	}
	return config, services.NewOAuthConfig(creds.ClientID, creds.ClientSecret, redirect, r.tokenURL), nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, conf *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := conf.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(conf, state, r.httpClient)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("callback_server_started", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("callback_server_shutdown_failed", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("browser_open_failed", "error", err)
		r.writePlainln("%s", r.palette.Warn("Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.authTimeout)

	timeout := time.NewTimer(r.authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, r.authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
