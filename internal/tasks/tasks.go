package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
)

// PlaylistPageSize is the number of items requested per playlist page.
const PlaylistPageSize = 100

// PlaylistSource is the playlist surface used by [PlaylistEngine].
type PlaylistSource interface {
	GetPlaylist(ctx context.Context, playlistID, market string) (*services.SpotifyPlaylist, error)
	GetPlaylistTracks(ctx context.Context, playlistID string, limit, offset int, market string) (*services.Page[services.SpotifyPlaylistItem], error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) (string, error)
}

// FeatureFetcher resolves track ids to feature records. [BatchFetcher] implements it.
type FeatureFetcher interface {
	Fetch(ctx context.Context, ids []string) (map[string]models.FeatureRecord, error)
}

// EngineOpts configures a [PlaylistEngine].
type EngineOpts struct {
	Market string
	Logger *log.Logger
}

// PlaylistEngine analyzes playlists and adds tracks to them.
// Every remote call goes through the invoker.
type PlaylistEngine struct {
	invoker   *services.Invoker
	playlists PlaylistSource
	features  FeatureFetcher
	market    string
	logger    *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided dependencies.
func NewPlaylistEngine(inv *services.Invoker, playlists PlaylistSource, features FeatureFetcher, opts EngineOpts) *PlaylistEngine {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &PlaylistEngine{
		invoker:   inv,
		playlists: playlists,
		features:  features,
		market:    opts.Market,
		logger:    opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Items reads every item of a playlist, one page of [PlaylistPageSize] at a time, stopping at the first
// empty or short page.
func (e *PlaylistEngine) Items(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) ([]services.SpotifyPlaylistItem, error) {
	var items []services.SpotifyPlaylistItem
	offset := 0

	for {
		page, err := services.Execute(ctx, e.invoker, func(ctx context.Context) (*services.Page[services.SpotifyPlaylistItem], error) {
			return e.playlists.GetPlaylistTracks(ctx, playlistID, PlaylistPageSize, offset, e.market)
		})
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		items = append(items, page.Items...)
		offset += len(page.Items)
		e.sendProgress(progress, fetchTracksUpdate(len(items), page.Total))

		if len(page.Items) < PlaylistPageSize {
			break
		}
	}
	return items, nil
}
