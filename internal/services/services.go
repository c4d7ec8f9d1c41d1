package services

import (
	"context"

	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
)

// Player controls playback on the user's active device.
type Player interface {
	GetPlaybackState(ctx context.Context) (*PlaybackState, error)
	GetCurrentTrack(ctx context.Context) (*PlaybackState, error)
	Play(ctx context.Context, opts PlayOptions) error
	PlayContext(ctx context.Context, contextURI string) error
	PlayTracks(ctx context.Context, uris []string) error
	Pause(ctx context.Context) error
	SkipToNext(ctx context.Context) error
	SkipToPrevious(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
}

// Catalog searches and describes content.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int, market string) (*Page[SpotifyTrack], error)
	SearchURIs(ctx context.Context, query, kind string, limit int, market string) ([]string, error)
	GetRecommendations(ctx context.Context, params RecommendationParams) (*Recommendations, error)
	GetAudioFeatures(ctx context.Context, ids []string) ([]models.FeatureRecord, error)
	GetAudioFeature(ctx context.Context, id string) (*models.FeatureRecord, error)
}

// Playlists reads and edits playlists.
type Playlists interface {
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*SpotifyPlaylist, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) (string, error)
	GetPlaylist(ctx context.Context, playlistID, market string) (*SpotifyPlaylist, error)
	GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int, market string) (*Page[SpotifyPlaylistItem], error)
	GetUserPlaylists(ctx context.Context, userID string, limit, offset int) (*Page[SpotifyPlaylist], error)
}

// Library manages the user's saved tracks and albums.
type Library interface {
	GetSavedTracks(ctx context.Context, limit, offset int, market string) (*Page[SpotifySavedTrack], error)
	SaveTracks(ctx context.Context, ids []string) error
	RemoveSavedTracks(ctx context.Context, ids []string) error
	CheckSavedTracks(ctx context.Context, ids []string) ([]bool, error)
	GetSavedAlbums(ctx context.Context, limit, offset int, market string) (*Page[SpotifySavedAlbum], error)
}

// API is the full surface of [SpotifyClient].
type API interface {
	UserFetcher
	Player
	Catalog
	Playlists
	Library
}

var _ API = (*SpotifyClient)(nil)
