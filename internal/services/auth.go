package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// TokenExpiryBuffer is subtracted from a token's expiry when deciding whether it is still usable.
const TokenExpiryBuffer = 5 * time.Second

const defaultExpiresIn = 3600 * time.Second

// Scopes requested when issuing a refresh token.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
	"user-library-modify",
	"user-top-read",
}

// NewOAuthConfig builds the authorization-code configuration for a Spotify app.
// An empty tokenURL selects the production accounts endpoint.
func NewOAuthConfig(clientID, clientSecret, redirectURL, tokenURL string) *oauth2.Config {
	if tokenURL == "" {
		tokenURL = SpotifyTokenURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   SpotifyAuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthState is the lifecycle state of a [TokenAuthority].
type AuthState int

const (
	StateUninitialized AuthState = iota
	StateNotConfigured
	StatePartiallyConfigured
	StateReady
)

func (s AuthState) String() string {
	switch s {
	case StateNotConfigured:
		return "not_configured"
	case StatePartiallyConfigured:
		return "partially_configured"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// UserFetcher resolves the authenticated account.
type UserFetcher interface {
	Me(ctx context.Context) (*SpotifyUser, error)
}

// AuthorityOpts configures a [TokenAuthority]. Zero values select production defaults.
type AuthorityOpts struct {
	TokenURL   string
	HTTPClient *http.Client
	Logger     *log.Logger
	// Now is the clock used for expiry decisions.
	Now func() time.Time
}

// TokenAuthority owns the access token for the configured account.
//
// The token is replaced atomically on refresh and never persisted. Concurrent refreshes share one
// exchange with the token endpoint.
type TokenAuthority struct {
	creds      shared.Credentials
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time

	initOnce sync.Once
	initErr  error
	users    UserFetcher

	mu           sync.RWMutex
	state        AuthState
	accessToken  string
	expiresAt    time.Time
	refreshToken string
	userID       string

	group singleflight.Group
}

// NewTokenAuthority creates an uninitialized authority for creds.
func NewTokenAuthority(creds shared.Credentials, opts AuthorityOpts) *TokenAuthority {
	a := &TokenAuthority{
		creds:        creds,
		oauth:        NewOAuthConfig(creds.ClientID, creds.ClientSecret, "", opts.TokenURL),
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		now:          opts.Now,
		refreshToken: creds.RefreshToken,
	}
	if a.httpClient == nil {
		a.httpClient = http.DefaultClient
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Initialize settles the authority's state. It runs once; later calls return the first result.
//
// Missing client credentials and a missing refresh token are not errors: the authority stays usable for
// refresh-token issuance only. A failed initial refresh or identity lookup is an auth error.
func (a *TokenAuthority) Initialize(ctx context.Context, users UserFetcher) error {
	a.initOnce.Do(func() {
		a.users = users
		a.initErr = a.initialize(ctx)
	})
	return a.initErr
}

func (a *TokenAuthority) initialize(ctx context.Context) error {
	if !a.creds.HasClient() {
		a.logger.Warn("spotify_credentials_incomplete",
			"has_client_id", a.creds.ClientID != "",
			"has_client_secret", a.creds.ClientSecret != "",
			"has_refresh_token", a.creds.RefreshToken != "",
		)
		a.setState(StateNotConfigured)
		return nil
	}

	if a.creds.RefreshToken == "" {
		a.logger.Warn("spotify_controller_partially_initialized",
			"message", "No refresh token provided. Only token generation tools will work.")
		a.setState(StatePartiallyConfigured)
		return nil
	}

	if err := a.Refresh(ctx); err != nil {
		a.logger.Error("spotify_initialization_failed", "error", err)
		return shared.AuthRequired(
			"Failed to initialize Spotify API. Please check your credentials.",
			shared.Details{"error": err.Error()},
		)
	}
	if _, err := a.resolveIdentity(ctx); err != nil {
		a.logger.Error("spotify_initialization_failed", "error", err)
		return shared.AuthRequired(
			"Failed to initialize Spotify API. Please check your credentials.",
			shared.Details{"error": err.Error()},
		)
	}

	a.setState(StateReady)
	a.logger.Info("spotify_controller_initialized", "user_id", a.UserID())
	return nil
}

func (a *TokenAuthority) setState(s AuthState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// State returns the current lifecycle state.
func (a *TokenAuthority) State() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// EnsureReady fails with an auth error unless the authority is ready for API calls.
func (a *TokenAuthority) EnsureReady() error {
	if a.State() != StateReady {
		return shared.AuthRequired(
			"Spotify API not fully configured. Please set SPOTIFY_REFRESH_TOKEN or use spotify_get_refresh_token tool to obtain one.",
			shared.Details{"state": a.State().String()},
		)
	}
	return nil
}

// EnsureValidToken refreshes the access token when it is missing or inside the expiry buffer.
func (a *TokenAuthority) EnsureValidToken(ctx context.Context) error {
	if err := a.EnsureReady(); err != nil {
		return err
	}
	if a.Valid() {
		return nil
	}
	return a.Refresh(ctx)
}

// Valid reports whether the held token can be used without refreshing.
func (a *TokenAuthority) Valid() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken != "" && a.now().Before(a.expiresAt.Add(-TokenExpiryBuffer))
}

// AccessToken returns the current bearer token.
func (a *TokenAuthority) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken
}

// ExpiresAt returns the expiry of the current token.
func (a *TokenAuthority) ExpiresAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.expiresAt
}

// Refresh exchanges the refresh token for a new access token.
//
// Callers that overlap share the same exchange and its result. The exchange
// outlives the caller that started it, so one cancellation cannot fail the rest.
func (a *TokenAuthority) Refresh(ctx context.Context) error {
	exchangeCtx := context.WithoutCancel(ctx)
	_, err, _ := a.group.Do("refresh", func() (any, error) {
		return nil, a.refresh(exchangeCtx)
	})
	return err
}

func (a *TokenAuthority) refresh(ctx context.Context) error {
	a.mu.RLock()
	refreshToken := a.refreshToken
	a.mu.RUnlock()

	if refreshToken == "" {
		return shared.AuthRequired(shared.ErrNoRefreshToken.Error(), nil)
	}

	a.logger.Debug("refreshing_access_token")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		a.logger.Error("token_refresh_failed", "error", err)
		return classifyTokenError(err)
	}

	expiresIn := defaultExpiresIn
	if secs := extraSeconds(tok.Extra("expires_in")); secs > 0 {
		expiresIn = time.Duration(secs) * time.Second
	}

	a.mu.Lock()
	a.accessToken = tok.AccessToken
	a.expiresAt = a.now().Add(expiresIn)
	if tok.RefreshToken != "" {
		a.refreshToken = tok.RefreshToken
	}
	a.mu.Unlock()

	a.logger.Info("access_token_refreshed", "expires_in", int(expiresIn.Seconds()))
	return nil
}

func extraSeconds(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

// classifyTokenError maps a token endpoint failure onto the error taxonomy.
// Grant and client rejections (400/401) mean the stored credentials no longer work.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return shared.AuthRequired(
			"Failed to refresh Spotify access token",
			shared.Details{"original_message": err.Error()},
		)
	}

	status := re.Response.StatusCode
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return &shared.ToolError{
			Kind:    shared.KindAuthRequired,
			Message: "Spotify authentication failed. Check your credentials.",
			Details: shared.Details{
				"status_code":      status,
				"error_code":       re.ErrorCode,
				"original_message": re.ErrorDescription,
			},
			Err: fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err),
		}
	}
	return Classify(&APIError{
		StatusCode: status,
		Message:    re.ErrorDescription,
		RetryAfter: re.Response.Header.Get("Retry-After"),
		Reason:     re.ErrorCode,
	})
}

// UserID returns the resolved account id, or "" before resolution.
func (a *TokenAuthority) UserID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.userID
}

// ResolveIdentity returns the account id, using SPOTIFY_USER_ID when set and otherwise one profile
// lookup. The result is memoized.
func (a *TokenAuthority) ResolveIdentity(ctx context.Context) (string, error) {
	if err := a.EnsureReady(); err != nil {
		return "", err
	}
	return a.resolveIdentity(ctx)
}

func (a *TokenAuthority) resolveIdentity(ctx context.Context) (string, error) {
	if id := a.UserID(); id != "" {
		return id, nil
	}

	v, err, _ := a.group.Do("identity", func() (any, error) {
		if id := a.UserID(); id != "" {
			return id, nil
		}

		id := a.creds.UserID
		if id == "" {
			if a.users == nil {
				return "", shared.Internal("no user lookup configured", nil)
			}
			user, err := a.users.Me(ctx)
			if err != nil {
				return "", Classify(err)
			}
			id = user.ID
		}

		a.mu.Lock()
		a.userID = id
		a.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
