package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	tu "github.com/fabioc-aloha/spotify-mcpb/internal/testing"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

func newTestClient(t *testing.T) (*SpotifyClient, *tu.FakeSpotify) {
	t.Helper()
	fake := tu.NewFakeSpotify(t)
	client := NewSpotifyClient(staticToken("tok"), SpotifyClientOpts{BaseURL: fake.BaseURL()})
	return client, fake
}

func TestSpotifyClient(t *testing.T) {
	ctx := context.Background()

	t.Run("NewSpotifyClient defaults", func(t *testing.T) {
		c := NewSpotifyClient(staticToken("tok"), SpotifyClientOpts{})
		if c.baseURL != SpotifyBaseURL {
			t.Errorf("expected default base URL, got %s", c.baseURL)
		}
		if c.httpClient != http.DefaultClient {
			t.Error("expected default http client")
		}
	})

	t.Run("Me sends bearer token", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodGet, "/me", tu.RequireBearer("tok", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(w, http.StatusOK, map[string]any{"id": "user-1", "display_name": "Ada"})
		}))

		user, err := client.Me(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "user-1" || user.DisplayName != "Ada" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("GetPlaybackState no content", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodGet, "/me/player", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		state, err := client.GetPlaybackState(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if state != nil {
			t.Errorf("expected nil state, got %+v", state)
		}
	})

	t.Run("Play sends context uri", func(t *testing.T) {
		client, fake := newTestClient(t)
		var got map[string]any
		fake.Handle(http.MethodPut, "/me/player/play", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusNoContent)
		})

		if err := client.PlayContext(ctx, "spotify:playlist:p1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got["context_uri"] != "spotify:playlist:p1" {
			t.Errorf("unexpected body %v", got)
		}
		if _, ok := got["uris"]; ok {
			t.Error("uris should be omitted")
		}
	})

	t.Run("SetVolume query", func(t *testing.T) {
		client, fake := newTestClient(t)
		var volume string
		fake.Handle(http.MethodPut, "/me/player/volume", func(w http.ResponseWriter, r *http.Request) {
			volume = r.URL.Query().Get("volume_percent")
			w.WriteHeader(http.StatusNoContent)
		})

		if err := client.SetVolume(ctx, 42); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if volume != "42" {
			t.Errorf("expected volume 42, got %q", volume)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodGet, "/search", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("type") != "track" || q.Get("market") != "US" || q.Get("limit") != "5" {
				tu.WriteError(w, http.StatusBadRequest, "bad query")
				return
			}
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"tracks": map[string]any{
					"items": []map[string]any{{"id": "t1", "name": "Song", "uri": "spotify:track:t1"}},
					"total": 1,
				},
			})
		})

		page, err := client.SearchTracks(ctx, "song", 5, "US")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].ID != "t1" {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("SearchURIs skips empty hits", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodGet, "/search", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"playlists": map[string]any{
					"items": []any{nil, map[string]any{"id": "p1", "uri": "spotify:playlist:p1"}},
				},
			})
		})

		uris, err := client.SearchURIs(ctx, "focus mix", "playlist", 5, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(uris) != 1 || uris[0] != "spotify:playlist:p1" {
			t.Errorf("unexpected uris %v", uris)
		}
	})

	t.Run("GetAudioFeatures drops unknown ids", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodGet, "/audio-features", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(w, http.StatusOK, map[string]any{
				"audio_features": []any{
					map[string]any{"id": "a", "energy": 0.5, "duration_ms": 1000},
					nil,
				},
			})
		})

		records, err := client.GetAudioFeatures(ctx, []string{"a", "zzz"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(records) != 1 || records[0].ID != "a" {
			t.Fatalf("unexpected records %+v", records)
		}
		if v, ok := records[0].Feature("energy"); !ok || v != 0.5 {
			t.Errorf("expected energy 0.5, got %v (ok=%v)", v, ok)
		}
		if _, ok := records[0].Feature("tempo"); ok {
			t.Error("absent feature should report false")
		}
	})

	t.Run("CheckSavedTracks", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.HandleJSON(http.MethodGet, "/me/tracks/contains", http.StatusOK, []bool{true, false})

		saved, err := client.CheckSavedTracks(ctx, []string{"a", "b"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(saved) != 2 || !saved[0] || saved[1] {
			t.Errorf("unexpected result %v", saved)
		}
	})

	t.Run("APIError", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodGet, "/playlists/p1", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "3")
			tu.WriteError(w, http.StatusTooManyRequests, "API rate limit exceeded")
		})

		_, err := client.GetPlaylist(ctx, "p1", "US")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.RetryAfter != "3" {
			t.Errorf("unexpected error %+v", apiErr)
		}
		if apiErr.Message != "API rate limit exceeded" {
			t.Errorf("unexpected message %q", apiErr.Message)
		}
		if StatusCode(err) != http.StatusTooManyRequests {
			t.Errorf("StatusCode = %d", StatusCode(err))
		}
	})

	t.Run("APIError without body", func(t *testing.T) {
		client, fake := newTestClient(t)
		fake.Handle(http.MethodPost, "/me/player/next", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		err := client.SkipToNext(ctx)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != http.StatusText(http.StatusBadGateway) {
			t.Errorf("expected status text message, got %v", err)
		}
	})

	t.Run("request failure", func(t *testing.T) {
		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		client := NewSpotifyClient(staticToken("tok"), SpotifyClientOpts{HTTPClient: httpClient})

		_, err := client.Me(ctx)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if StatusCode(err) != 0 {
			t.Error("transport failures carry no status")
		}
	})

	t.Run("RecommendationParams", func(t *testing.T) {
		q := RecommendationParams{
			SeedTracks: []string{"a", "b"},
			Limit:      10,
			Targets:    map[string]float64{"energy": 0.8},
		}.values()

		if q.Get("seed_tracks") != "a,b" || q.Get("limit") != "10" || q.Get("target_energy") != "0.8" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Has("seed_genres") {
			t.Error("empty seeds should be omitted")
		}
	})
}
