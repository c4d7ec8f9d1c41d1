package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Authentication errors
	ErrNotConfigured  = fmt.Errorf("spotify API not fully configured")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")
)

// ErrorKind tags a [ToolError] with its place in the error taxonomy.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthRequired
	KindInvalidArgument
	KindNotFound
	KindRateLimited
	KindRemoteService
	KindTimeout
)

// Code returns the wire code rendered in tool error responses.
func (k ErrorKind) Code() string {
	switch k {
	case KindAuthRequired:
		return "AUTH_REQUIRED"
	case KindInvalidArgument:
		return "INVALID_ARGUMENT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindRemoteService:
		return "SPOTIFY_ERROR"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return "INTERNAL_ERROR"
	}
}

func (k ErrorKind) String() string {
	return k.Code()
}

// Details is the structured payload attached to a [ToolError].
type Details map[string]any

// ToolError is the single error type surfaced to tool callers.
//
// Kind drives the response code; Details carries the original status and message of remote failures.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Details Details
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// NewToolError builds a [ToolError]; a nil details map is replaced with an empty one.
func NewToolError(kind ErrorKind, message string, details Details) *ToolError {
	if details == nil {
		details = Details{}
	}
	return &ToolError{Kind: kind, Message: message, Details: details}
}

func AuthRequired(message string, details Details) *ToolError {
	if message == "" {
		message = "Authentication required or failed"
	}
	return NewToolError(KindAuthRequired, message, details)
}

func InvalidArgument(message string, details Details) *ToolError {
	return NewToolError(KindInvalidArgument, message, details)
}

func NotFound(message string, details Details) *ToolError {
	return NewToolError(KindNotFound, message, details)
}

func RateLimited(message string, details Details) *ToolError {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return NewToolError(KindRateLimited, message, details)
}

func RemoteService(message string, details Details) *ToolError {
	return NewToolError(KindRemoteService, message, details)
}

func Internal(message string, details Details) *ToolError {
	if message == "" {
		message = "Internal server error"
	}
	return NewToolError(KindInternal, message, details)
}

// KindOf reports the taxonomy kind of err, or [KindInternal] when err is not a [ToolError].
func KindOf(err error) ErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a [ToolError] of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Kind == kind
}

// AsToolError converts any error into a [ToolError]. Errors that are already tool errors pass through;
// everything else becomes an internal error carrying the given context.
func AsToolError(err error, context string) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrMissingArgument):
		return &ToolError{Kind: KindInvalidArgument, Message: err.Error(), Details: Details{}, Err: err}
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNoRefreshToken):
		return &ToolError{Kind: KindAuthRequired, Message: err.Error(), Details: Details{}, Err: err}
	case errors.Is(err, ErrTimeout):
		return &ToolError{Kind: KindTimeout, Message: err.Error(), Details: Details{}, Err: err}
	}
	return &ToolError{
		Kind:    KindInternal,
		Message: "Error: " + err.Error(),
		Details: Details{"context": context, "original_error": err.Error()},
		Err:     err,
	}
}
