package server

import (
	"context"

	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxLibraryIDs is the per-request id limit of the library endpoints.
const maxLibraryIDs = 50

type savedState struct {
	ID    string `json:"id"`
	Saved bool   `json:"saved"`
}

type libraryChange struct {
	Status string   `json:"status"`
	IDs    []string `json:"ids"`
}

func (s *ToolServer) registerLibrary() {
	pageOpts := func(desc string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithDescription(desc),
			mcp.WithNumber("limit", mcp.Min(1), mcp.Max(50), mcp.DefaultNumber(20)),
			mcp.WithNumber("offset", mcp.Min(0), mcp.DefaultNumber(0)),
		}
	}
	idOpts := func(desc string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithDescription(desc),
			mcp.WithArray("track_ids", mcp.Required(), mcp.WithStringItems(), mcp.MinItems(1), mcp.MaxItems(maxLibraryIDs)),
		}
	}

	s.add(mcp.NewTool("spotify_get_saved_tracks", pageOpts("Get tracks saved in the user's library")...), false,
		func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			limit, offset, err := pageArgs(argsOf(req))
			if err != nil {
				return nil, err
			}
			return services.Execute(ctx, s.inv, func(ctx context.Context) (*services.Page[services.SpotifySavedTrack], error) {
				return s.api.GetSavedTracks(ctx, limit, offset, s.market)
			})
		})

	s.add(mcp.NewTool("spotify_get_saved_albums", pageOpts("Get albums saved in the user's library")...), false,
		func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			limit, offset, err := pageArgs(argsOf(req))
			if err != nil {
				return nil, err
			}
			return services.Execute(ctx, s.inv, func(ctx context.Context) (*services.Page[services.SpotifySavedAlbum], error) {
				return s.api.GetSavedAlbums(ctx, limit, offset, s.market)
			})
		})

	s.add(mcp.NewTool("spotify_save_tracks", idOpts("Save tracks to the user's library")...), false,
		func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			ids, err := libraryIDs(argsOf(req))
			if err != nil {
				return nil, err
			}
			if err := s.inv.Do(ctx, func(ctx context.Context) error { return s.api.SaveTracks(ctx, ids) }); err != nil {
				return nil, err
			}
			return libraryChange{Status: "saved", IDs: ids}, nil
		})

	s.add(mcp.NewTool("spotify_remove_saved_tracks", idOpts("Remove tracks from the user's library")...), false,
		func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			ids, err := libraryIDs(argsOf(req))
			if err != nil {
				return nil, err
			}
			if err := s.inv.Do(ctx, func(ctx context.Context) error { return s.api.RemoveSavedTracks(ctx, ids) }); err != nil {
				return nil, err
			}
			return libraryChange{Status: "removed", IDs: ids}, nil
		})

	s.add(mcp.NewTool("spotify_check_saved_tracks", idOpts("Check whether tracks are saved in the user's library")...), false,
		func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			ids, err := libraryIDs(argsOf(req))
			if err != nil {
				return nil, err
			}
			saved, err := services.Execute(ctx, s.inv, func(ctx context.Context) ([]bool, error) {
				return s.api.CheckSavedTracks(ctx, ids)
			})
			if err != nil {
				return nil, err
			}
			out := make([]savedState, len(ids))
			for i, id := range ids {
				out[i] = savedState{ID: id, Saved: i < len(saved) && saved[i]}
			}
			return map[string]any{"tracks": out}, nil
		})
}

func pageArgs(a args) (limit, offset int, err error) {
	if limit, err = a.integer("limit", 20, 1, 50); err != nil {
		return 0, 0, err
	}
	if offset, err = a.integer("offset", 0, 0, 100000); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// libraryIDs accepts plain ids or track URIs and returns plain ids.
func libraryIDs(a args) ([]string, error) {
	ids, err := a.list("track_ids", 1, maxLibraryIDs)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		ids[i] = shared.TrackIDFromURI(id)
	}
	return ids, nil
}
