// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyBaseURL  = "https://api.spotify.com/v1"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email,omitempty"`
	Country     string         `json:"country,omitempty"`
	Product     string         `json:"product,omitempty"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
//
// Popularity is nil when the service omits it (local files, relinked tracks).
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   *int            `json:"popularity,omitempty"`
	URI          string          `json:"uri"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	AlbumType   string          `json:"album_type,omitempty"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist's metadata.
type SpotifyPlaylist struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Owner         Owner          `json:"owner"`
	Public        bool           `json:"public"`
	Collaborative bool           `json:"collaborative"`
	Tracks        trackTotal     `json:"tracks"`
	Images        []SpotifyImage `json:"images"`
	URI           string         `json:"uri"`
	ExternalURLs  externalURLs   `json:"external_urls"`
}

// SpotifyPlaylistItem is one entry of a playlist. Track is nil for removed or unavailable items.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// Page is the paging envelope shared by every list endpoint.
type Page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyDevice is a playback device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

type playbackContext struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
}

// PlaybackState is the response of the player endpoints. Item is nil when nothing is playing.
type PlaybackState struct {
	Device       *SpotifyDevice   `json:"device,omitempty"`
	IsPlaying    bool             `json:"is_playing"`
	ProgressMS   int              `json:"progress_ms"`
	ShuffleState bool             `json:"shuffle_state"`
	RepeatState  string           `json:"repeat_state"`
	Context      *playbackContext `json:"context"`
	Item         *SpotifyTrack    `json:"item"`
}

// PlayOptions selects what to start playing. An empty value resumes playback.
type PlayOptions struct {
	ContextURI string   `json:"context_uri,omitempty"`
	URIs       []string `json:"uris,omitempty"`
	PositionMS int      `json:"position_ms,omitempty"`
	DeviceID   string   `json:"-"`
}

// RecommendationParams are the seeds and tunable targets of a recommendations request.
type RecommendationParams struct {
	SeedTracks  []string
	SeedArtists []string
	SeedGenres  []string
	Limit       int
	Market      string
	// Targets holds target_* attributes keyed without the prefix, e.g. "energy".
	Targets map[string]float64
}

func (p RecommendationParams) values() url.Values {
	q := url.Values{}
	if len(p.SeedTracks) > 0 {
		q.Set("seed_tracks", strings.Join(p.SeedTracks, ","))
	}
	if len(p.SeedArtists) > 0 {
		q.Set("seed_artists", strings.Join(p.SeedArtists, ","))
	}
	if len(p.SeedGenres) > 0 {
		q.Set("seed_genres", strings.Join(p.SeedGenres, ","))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Market != "" {
		q.Set("market", p.Market)
	}
	for k, v := range p.Targets {
		q.Set("target_"+k, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return q
}

// Recommendations is the response of the recommendations endpoint.
type Recommendations struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// APIError is a non-2xx response from the Web API or token endpoint.
type APIError struct {
	StatusCode int
	Message    string
	// RetryAfter is the raw Retry-After header of a 429 response.
	RetryAfter string
	// Reason is the OAuth error code (e.g. invalid_grant) of token endpoint failures.
	Reason string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of err when it is (or wraps) an [APIError], else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// AccessTokenProvider supplies the bearer token for each request.
type AccessTokenProvider interface {
	AccessToken() string
}

// SpotifyClientOpts configures a [SpotifyClient]. Zero values select the production endpoints.
type SpotifyClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// SpotifyClient performs raw Web API calls. It never refreshes or retries; callers go through [Invoker].
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     AccessTokenProvider
	logger     *log.Logger
}

// NewSpotifyClient creates a client that authenticates every request with a token from tokens.
func NewSpotifyClient(tokens AccessTokenProvider, opts SpotifyClientOpts) *SpotifyClient {
	c := &SpotifyClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		tokens:     tokens,
		logger:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = SpotifyBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A 204 or empty body leaves result untouched and is a success.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("spotify_request", "method", method, "endpoint", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, data)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}

	var envelope struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
			Reason  string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Reason = envelope.Error.Reason
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Me retrieves the current authenticated user's profile.
func (c *SpotifyClient) Me(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPlaybackState returns the player state, or nil when no device is active.
func (c *SpotifyClient) GetPlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state *PlaybackState
	if err := c.doRequest(ctx, http.MethodGet, "/me/player", nil, nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetCurrentTrack returns the currently playing item, or nil when nothing is playing.
func (c *SpotifyClient) GetCurrentTrack(ctx context.Context) (*PlaybackState, error) {
	var state *PlaybackState
	if err := c.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", nil, nil, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func deviceQuery(deviceID string) url.Values {
	if deviceID == "" {
		return nil
	}
	return url.Values{"device_id": {deviceID}}
}

// Play starts or resumes playback.
func (c *SpotifyClient) Play(ctx context.Context, opts PlayOptions) error {
	var body any
	if opts.ContextURI != "" || len(opts.URIs) > 0 || opts.PositionMS > 0 {
		body = opts
	}
	return c.doRequest(ctx, http.MethodPut, "/me/player/play", deviceQuery(opts.DeviceID), body, nil)
}

// PlayContext plays a playlist, album or artist context URI.
func (c *SpotifyClient) PlayContext(ctx context.Context, contextURI string) error {
	return c.Play(ctx, PlayOptions{ContextURI: contextURI})
}

// PlayTracks plays the given track URIs in order.
func (c *SpotifyClient) PlayTracks(ctx context.Context, uris []string) error {
	return c.Play(ctx, PlayOptions{URIs: uris})
}

func (c *SpotifyClient) Pause(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPut, "/me/player/pause", nil, nil, nil)
}

func (c *SpotifyClient) SkipToNext(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/me/player/next", nil, nil, nil)
}

func (c *SpotifyClient) SkipToPrevious(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/me/player/previous", nil, nil, nil)
}

// SetVolume sets the active device volume (0-100).
func (c *SpotifyClient) SetVolume(ctx context.Context, percent int) error {
	q := url.Values{"volume_percent": {strconv.Itoa(percent)}}
	return c.doRequest(ctx, http.MethodPut, "/me/player/volume", q, nil, nil)
}

// SearchTracks searches the track catalog.
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int, market string) (*Page[SpotifyTrack], error) {
	return c.search(ctx, query, "track", limit, market)
}

// search runs a catalog search for a single item type. Items of every type decode into the track shape;
// for playlists, albums and artists only the id, name and uri fields are meaningful.
func (c *SpotifyClient) search(ctx context.Context, query, kind string, limit int, market string) (*Page[SpotifyTrack], error) {
	q := url.Values{"q": {query}, "type": {kind}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if market != "" {
		q.Set("market", market)
	}

	var response map[string]*Page[SpotifyTrack]
	if err := c.doRequest(ctx, http.MethodGet, "/search", q, nil, &response); err != nil {
		return nil, err
	}
	page := response[kind+"s"]
	if page == nil {
		page = &Page[SpotifyTrack]{}
	}
	return page, nil
}

// SearchURIs searches for kind (track, playlist, album, artist) and returns the URIs of non-empty hits in rank order.
func (c *SpotifyClient) SearchURIs(ctx context.Context, query, kind string, limit int, market string) ([]string, error) {
	page, err := c.search(ctx, query, kind, limit, market)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		if item.URI != "" {
			uris = append(uris, item.URI)
		}
	}
	return uris, nil
}

// CreatePlaylist creates a playlist owned by userID.
func (c *SpotifyClient) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}
	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, nil, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracksToPlaylist appends up to 100 track URIs and returns the new snapshot id.
func (c *SpotifyClient) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) (string, error) {
	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, http.MethodPost, endpoint, nil, map[string]any{"uris": uris}, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}

// GetPlaylist retrieves a playlist's metadata.
func (c *SpotifyClient) GetPlaylist(ctx context.Context, playlistID, market string) (*SpotifyPlaylist, error) {
	var q url.Values
	if market != "" {
		q = url.Values{"market": {market}}
	}
	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, q, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// GetPlaylistTracks retrieves one page of a playlist's items.
func (c *SpotifyClient) GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int, market string) (*Page[SpotifyPlaylistItem], error) {
	q := pageQuery(limit, offset, market)
	var page Page[SpotifyPlaylistItem]
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetUserPlaylists retrieves one page of a user's playlists.
func (c *SpotifyClient) GetUserPlaylists(ctx context.Context, userID string, limit, offset int) (*Page[SpotifyPlaylist], error) {
	q := pageQuery(limit, offset, "")
	var page Page[SpotifyPlaylist]
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRecommendations requests seed-based recommendations.
func (c *SpotifyClient) GetRecommendations(ctx context.Context, params RecommendationParams) (*Recommendations, error) {
	var recs Recommendations
	if err := c.doRequest(ctx, http.MethodGet, "/recommendations", params.values(), nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

// GetAudioFeatures retrieves features for up to 100 tracks. Unknown ids are dropped from the result.
func (c *SpotifyClient) GetAudioFeatures(ctx context.Context, ids []string) ([]models.FeatureRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var response struct {
		AudioFeatures []*models.FeatureRecord `json:"audio_features"`
	}
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	if err := c.doRequest(ctx, http.MethodGet, "/audio-features", q, nil, &response); err != nil {
		return nil, err
	}

	records := make([]models.FeatureRecord, 0, len(response.AudioFeatures))
	for _, r := range response.AudioFeatures {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}

// GetAudioFeature retrieves features for a single track.
func (c *SpotifyClient) GetAudioFeature(ctx context.Context, id string) (*models.FeatureRecord, error) {
	var record models.FeatureRecord
	endpoint := fmt.Sprintf("/audio-features/%s", url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetSavedTracks retrieves one page of the user's liked songs.
func (c *SpotifyClient) GetSavedTracks(ctx context.Context, limit, offset int, market string) (*Page[SpotifySavedTrack], error) {
	var page Page[SpotifySavedTrack]
	if err := c.doRequest(ctx, http.MethodGet, "/me/tracks", pageQuery(limit, offset, market), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SaveTracks adds up to 50 track ids to the user's library.
func (c *SpotifyClient) SaveTracks(ctx context.Context, ids []string) error {
	return c.doRequest(ctx, http.MethodPut, "/me/tracks", nil, map[string]any{"ids": ids}, nil)
}

// RemoveSavedTracks removes up to 50 track ids from the user's library.
func (c *SpotifyClient) RemoveSavedTracks(ctx context.Context, ids []string) error {
	return c.doRequest(ctx, http.MethodDelete, "/me/tracks", nil, map[string]any{"ids": ids}, nil)
}

// CheckSavedTracks reports, per id, whether the track is in the user's library.
func (c *SpotifyClient) CheckSavedTracks(ctx context.Context, ids []string) ([]bool, error) {
	var saved []bool
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	if err := c.doRequest(ctx, http.MethodGet, "/me/tracks/contains", q, nil, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetSavedAlbums retrieves one page of the user's saved albums.
func (c *SpotifyClient) GetSavedAlbums(ctx context.Context, limit, offset int, market string) (*Page[SpotifySavedAlbum], error) {
	var page Page[SpotifySavedAlbum]
	if err := c.doRequest(ctx, http.MethodGet, "/me/albums", pageQuery(limit, offset, market), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func pageQuery(limit, offset int, market string) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if market != "" {
		q.Set("market", market)
	}
	return q
}
