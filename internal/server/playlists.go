package server

import (
	"context"

	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
)

type playlistsResult struct {
	Playlists []services.SpotifyPlaylist `json:"playlists"`
	Total     int                        `json:"total"`
}

func (s *ToolServer) registerPlaylists() {
	s.add(mcp.NewTool("spotify_create_playlist",
		mcp.WithDescription("Create a new playlist for the current user"),
		mcp.WithString("name", mcp.Required(), mcp.MinLength(1), mcp.MaxLength(shared.MaxPlaylistNameLength)),
		mcp.WithString("description", mcp.MaxLength(shared.MaxDescriptionLength)),
		mcp.WithBoolean("public", mcp.DefaultBool(true)),
	), false, s.createPlaylist)

	s.add(mcp.NewTool("spotify_add_tracks_to_playlist",
		mcp.WithDescription("Add tracks to a playlist, skipping tracks it already contains unless deduplicate is false"),
		mcp.WithString("playlist_id", mcp.Required(), mcp.MinLength(1)),
		mcp.WithArray("track_uris", mcp.Required(), mcp.WithStringItems(), mcp.MinItems(1)),
		mcp.WithBoolean("deduplicate", mcp.DefaultBool(true)),
	), false, s.addTracks)

	s.add(mcp.NewTool("spotify_get_playlist",
		mcp.WithDescription("Get playlist details"),
		mcp.WithString("playlist_id", mcp.Required(), mcp.MinLength(1)),
	), false, func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		id, err := argsOf(req).requiredString("playlist_id", 1, 0)
		if err != nil {
			return nil, err
		}
		return services.Execute(ctx, s.inv, func(ctx context.Context) (*services.SpotifyPlaylist, error) {
			return s.api.GetPlaylist(ctx, id, s.market)
		})
	})

	s.add(mcp.NewTool("spotify_get_user_playlists",
		mcp.WithDescription("Get the current user's playlists"),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(50), mcp.DefaultNumber(20)),
		mcp.WithNumber("offset", mcp.Min(0), mcp.DefaultNumber(0)),
	), false, s.userPlaylists)

	s.add(mcp.NewTool("spotify_analyze_playlist",
		mcp.WithDescription("Analyze a playlist's audio features and statistics"),
		mcp.WithString("playlist_id", mcp.Required(), mcp.MinLength(1)),
	), false, func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
		id, err := argsOf(req).requiredString("playlist_id", 1, 0)
		if err != nil {
			return nil, err
		}
		progress, stop := s.progress(ctx, req)
		defer stop()
		return s.tasks.Analyze(ctx, progress, id)
	})
}

func (s *ToolServer) createPlaylist(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	name, err := a.requiredString("name", 1, shared.MaxPlaylistNameLength)
	if err != nil {
		return nil, err
	}
	description, err := a.str("description")
	if err != nil {
		return nil, err
	}
	if err := shared.ValidateLength("description", description, 0, shared.MaxDescriptionLength); err != nil {
		return nil, err
	}
	public, err := a.boolean("public", true)
	if err != nil {
		return nil, err
	}

	name = shared.SanitizePlaylistName(name)
	if name == "" {
		return nil, shared.InvalidArgument("name must contain printable characters", nil)
	}
	description = shared.SanitizeDescription(description)

	userID, err := s.auth.ResolveIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return services.Execute(ctx, s.inv, func(ctx context.Context) (*services.SpotifyPlaylist, error) {
		return s.api.CreatePlaylist(ctx, userID, name, description, public)
	})
}

func (s *ToolServer) addTracks(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	if err := a.require("playlist_id", "track_uris"); err != nil {
		return nil, err
	}
	playlistID, err := a.requiredString("playlist_id", 1, 0)
	if err != nil {
		return nil, err
	}
	uris, err := a.list("track_uris", 1, 0)
	if err != nil {
		return nil, err
	}
	uris = shared.ToTrackURIs(uris)
	for _, uri := range uris {
		if err := shared.ValidateSpotifyURI(uri, "track_uris"); err != nil {
			return nil, err
		}
	}
	dedup, err := a.boolean("deduplicate", true)
	if err != nil {
		return nil, err
	}

	progress, stop := s.progress(ctx, req)
	defer stop()
	return s.tasks.AddTracksWithDedup(ctx, progress, playlistID, uris, dedup)
}

func (s *ToolServer) userPlaylists(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	limit, err := a.integer("limit", 20, 1, 50)
	if err != nil {
		return nil, err
	}
	offset, err := a.integer("offset", 0, 0, 100000)
	if err != nil {
		return nil, err
	}

	userID, err := s.auth.ResolveIdentity(ctx)
	if err != nil {
		return nil, err
	}
	page, err := services.Execute(ctx, s.inv, func(ctx context.Context) (*services.Page[services.SpotifyPlaylist], error) {
		return s.api.GetUserPlaylists(ctx, userID, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	playlists := page.Items
	if playlists == nil {
		playlists = []services.SpotifyPlaylist{}
	}
	return playlistsResult{Playlists: playlists, Total: page.Total}, nil
}
