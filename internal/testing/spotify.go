package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// FakeSpotify is an in-process stand-in for the Web API and the accounts token endpoint.
//
// API routes are registered with [FakeSpotify.Handle] by method and path (without the /v1 prefix);
// unregistered routes answer 404 in the Spotify error shape. The token endpoint issues "access-1",
// "access-2", ... unless overridden with [FakeSpotify.HandleToken].
type FakeSpotify struct {
	Server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	hits     map[string]int
	token    http.HandlerFunc
	tokenSeq atomic.Int32
}

// NewFakeSpotify starts a fake server that is closed when t finishes.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the Web API root to hand to the client.
func (f *FakeSpotify) BaseURL() string {
	return f.Server.URL + "/v1"
}

// TokenURL is the token endpoint to hand to the authority.
func (f *FakeSpotify) TokenURL() string {
	return f.Server.URL + "/api/token"
}

// Handle registers h for method and path, replacing any earlier handler.
func (f *FakeSpotify) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// HandleJSON registers a handler answering status with v encoded as JSON.
func (f *FakeSpotify) HandleJSON(method, path string, status int, v any) {
	f.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, v)
	})
}

// HandleToken replaces the token endpoint handler.
func (f *FakeSpotify) HandleToken(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = h
}

// Hits returns how many requests reached method and path. The token endpoint is "POST /api/token".
func (f *FakeSpotify) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// TokenCalls returns how many token exchanges were served.
func (f *FakeSpotify) TokenCalls() int {
	return f.Hits(http.MethodPost, "/api/token")
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/token" {
		f.mu.Lock()
		f.hits["POST /api/token"]++
		h := f.token
		f.mu.Unlock()
		if h == nil {
			h = f.defaultToken
		}
		h(w, r)
		return
	}

	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/v1")
	f.mu.Lock()
	f.hits[key]++
	h, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		WriteError(w, http.StatusNotFound, "Non existing id")
		return
	}
	h(w, r)
}

func (f *FakeSpotify) defaultToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	n := f.tokenSeq.Add(1)
	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": fmt.Sprintf("access-%d", n),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a Web API error body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"error": map[string]any{"status": status, "message": message},
	})
}

// RequireBearer wraps h, answering 401 unless the request carries the given access token.
func RequireBearer(token string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			WriteError(w, http.StatusUnauthorized, "The access token expired")
			return
		}
		h(w, r)
	}
}
