package services

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
)

// TokenManager is the part of [TokenAuthority] the invoker depends on.
type TokenManager interface {
	EnsureValidToken(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Invoker runs remote calls with a valid token and recovers from a single 401.
type Invoker struct {
	tokens TokenManager
	logger *log.Logger
}

// NewInvoker creates an [Invoker]. A nil logger discards output.
func NewInvoker(tokens TokenManager, logger *log.Logger) *Invoker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Invoker{tokens: tokens, logger: logger}
}

// Execute ensures a valid token, then runs call. A 401 triggers exactly one forced refresh and one retry;
// every other failure, and a second failure, is classified and returned.
func Execute[T any](ctx context.Context, inv *Invoker, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := inv.tokens.EnsureValidToken(ctx); err != nil {
		return zero, inv.classify(err)
	}

	policy := shared.RetryPolicy{
		MaxAttempts: 2,
		ShouldRetry: isUnauthorized,
		BeforeRetry: func(ctx context.Context, _ int, _ error) error {
			inv.logger.Warn("got_401_retrying_with_new_token")
			return inv.tokens.Refresh(ctx)
		},
	}

	v, err := shared.Retry(ctx, policy, call)
	if err != nil {
		return zero, inv.classify(err)
	}
	return v, nil
}

// Do is [Execute] for calls without a result.
func (inv *Invoker) Do(ctx context.Context, call func(ctx context.Context) error) error {
	_, err := Execute(ctx, inv, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	return err
}

func (inv *Invoker) classify(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		inv.logger.Error("spotify_api_error", "status", apiErr.StatusCode, "message", apiErr.Message)
	}
	return Classify(err)
}

func isUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// Classify maps err onto the tool error taxonomy. Tool errors pass through; [APIError] values are mapped
// by status; anything else is internal.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var te *shared.ToolError
	if errors.As(err, &te) {
		return te
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return shared.AsToolError(err, "spotify_request")
	}

	details := shared.Details{
		"status_code":      apiErr.StatusCode,
		"original_message": apiErr.Message,
	}

	var out *shared.ToolError
	switch code := apiErr.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		out = shared.AuthRequired("Spotify authentication failed. Check your credentials.", details)
	case code == http.StatusNotFound:
		out = shared.NotFound("Spotify resource not found", details)
	case code == http.StatusTooManyRequests:
		retryAfter := apiErr.RetryAfter
		if retryAfter == "" {
			retryAfter = "unknown"
		}
		out = shared.RateLimited("Spotify API rate limit exceeded", shared.Details{
			"status_code": apiErr.StatusCode,
			"retry_after": retryAfter,
		})
	case code == http.StatusBadRequest:
		out = shared.InvalidArgument("Invalid request to Spotify API", details)
	default:
		out = shared.RemoteService("Spotify API error", details)
	}
	out.Err = apiErr
	return out
}
