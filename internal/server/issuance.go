package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fabioc-aloha/spotify-mcpb/internal/formatter"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/oauth2"
)

// IssuanceRedirectURI must be registered as a redirect URI of the Spotify app.
const IssuanceRedirectURI = "http://127.0.0.1:8888/callback"

type authorizeStep struct {
	Step             int      `json:"step"`
	Message          string   `json:"message"`
	AuthorizationURL string   `json:"authorization_url"`
	State            string   `json:"state"`
	Instructions     []string `json:"instructions"`
	NextStep         string   `json:"next_step"`
}

type issuedToken struct {
	Success      bool     `json:"success"`
	RefreshToken string   `json:"refresh_token"`
	AccessToken  string   `json:"access_token"`
	ExpiresIn    int      `json:"expires_in"`
	Message      string   `json:"message"`
	Instructions []string `json:"instructions"`
}

func (s *ToolServer) registerAuth() {
	s.add(mcp.NewTool("spotify_get_refresh_token",
		mcp.WithDescription("Generate a Spotify refresh token for authentication. "+
			"Step 1: Call with client_id and client_secret to get authorization URL. "+
			"Step 2: Visit the URL in browser, authorize, then call again with the authorization_code "+
			"from the redirect URL to get the refresh token."),
		mcp.WithString("client_id", mcp.Required(), mcp.MinLength(1), mcp.Description("Spotify Client ID from Developer Dashboard")),
		mcp.WithString("client_secret", mcp.Required(), mcp.MinLength(1), mcp.Description("Spotify Client Secret from Developer Dashboard")),
		mcp.WithString("authorization_code", mcp.Description("Optional: The authorization code from the redirect URL after user authorizes the app")),
	), true, s.issueRefreshToken)
}

func (s *ToolServer) issueRefreshToken(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	if err := a.require("client_id", "client_secret"); err != nil {
		return nil, err
	}
	clientID, err := a.requiredString("client_id", 1, 0)
	if err != nil {
		return nil, err
	}
	clientSecret, err := a.requiredString("client_secret", 1, 0)
	if err != nil {
		return nil, err
	}
	code, err := a.str("authorization_code")
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)

	conf := services.NewOAuthConfig(clientID, clientSecret, IssuanceRedirectURI, s.tokenURL)

	if code == "" {
		state, err := shared.GenerateState()
		if err != nil {
			return nil, shared.Internal("failed to generate state", shared.Details{"error": err.Error()})
		}
		return formatter.PrettyResult(authorizeStep{
			Step:             1,
			Message:          "Authorization required. Please visit the URL below in your browser, authorize the app, and you will be redirected to a URL with a code parameter.",
			AuthorizationURL: conf.AuthCodeURL(state),
			State:            state,
			Instructions: []string{
				"1. Visit the authorization_url above in your web browser",
				"2. Log in to Spotify and authorize the application",
				"3. You will be redirected to " + IssuanceRedirectURI + "?code=...",
				"4. Copy the entire URL you were redirected to",
				"5. Call this tool again with: client_id, client_secret, and the authorization_code from the URL",
			},
			NextStep: `Once you have the authorization code from the redirect URL, call this tool again with the "authorization_code" parameter included`,
		}), nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(err)
	}

	return formatter.PrettyResult(issuedToken{
		Success:      true,
		RefreshToken: tok.RefreshToken,
		AccessToken:  tok.AccessToken,
		ExpiresIn:    expiresIn(tok),
		Message:      "Success! Save the refresh_token to your .env file or bundle configuration as SPOTIFY_REFRESH_TOKEN",
		Instructions: []string{
			"1. Copy the refresh_token value above",
			"2. Add it to your .env file as: SPOTIFY_REFRESH_TOKEN=<your_token>",
			"3. You can now use all Spotify tools",
		},
	}), nil
}

// exchangeError explains a failed code exchange. It is always an invalid argument: the caller supplied
// the code and credentials.
func exchangeError(err error) error {
	msg := err.Error()
	reason := ""
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		reason = re.ErrorCode
		if re.ErrorDescription != "" {
			msg = re.ErrorCode + ": " + re.ErrorDescription
		} else if re.ErrorCode != "" {
			msg = re.ErrorCode
		}
	}

	help := "Make sure the authorization code is valid and hasn't been used already."
	switch {
	case reason == "invalid_grant" || strings.Contains(msg, "invalid_grant"):
		help = "The authorization code has expired or been used already. Please get a new code by visiting the authorization URL again."
	case reason == "invalid_client" || strings.Contains(msg, "invalid_client"):
		help = "Invalid client credentials. Please check your Client ID and Client Secret."
	}

	return &shared.ToolError{
		Kind:    shared.KindInvalidArgument,
		Message: "Failed to exchange authorization code: " + msg + ". " + help,
		Details: shared.Details{"error_code": reason},
		Err:     err,
	}
}

func expiresIn(tok *oauth2.Token) int {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	}
	if !tok.Expiry.IsZero() {
		return int(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return 0
}
