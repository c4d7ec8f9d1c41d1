package server

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/fabioc-aloha/spotify-mcpb/internal/formatter"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
)

// Play target types accepted by spotify_play.
const (
	PlayTrack    = "track"
	PlayPlaylist = "playlist"
	PlayAlbum    = "album"
	PlayArtist   = "artist"
	PlayAuto     = "auto"
)

type playResult struct {
	Status string `json:"status"`
	URI    string `json:"uri,omitempty"`
	Type   string `json:"type,omitempty"`
	Query  string `json:"query,omitempty"`
}

type volumeResult struct {
	Volume int `json:"volume"`
}

func (s *ToolServer) registerPlayback() {
	s.add(mcp.NewTool("spotify_play",
		mcp.WithDescription("Resume playback on the active Spotify device, or play a URI or the first search hit for a query"),
		mcp.WithString("uri", mcp.Description("Spotify URI to play (track, playlist, album or artist). A plain id is treated as a playlist id.")),
		mcp.WithString("query", mcp.Description("Search text used when no uri is given")),
		mcp.WithString("type",
			mcp.Description("What the query names; auto guesses from the query text"),
			mcp.Enum(PlayTrack, PlayPlaylist, PlayAlbum, PlayArtist, PlayAuto),
			mcp.DefaultString(PlayAuto),
		),
		mcp.WithString("device_id", mcp.Description("Target device; defaults to the active device")),
	), false, s.play)

	s.add(mcp.NewTool("spotify_pause",
		mcp.WithDescription("Pause playback on the active Spotify device"),
	), false, func(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
		if err := s.inv.Do(ctx, s.api.Pause); err != nil {
			return nil, err
		}
		return formatter.Status{Status: "paused"}, nil
	})

	s.add(mcp.NewTool("spotify_next_track",
		mcp.WithDescription("Skip to the next track"),
	), false, func(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
		if err := s.inv.Do(ctx, s.api.SkipToNext); err != nil {
			return nil, err
		}
		return formatter.Status{Status: "skipped to next track"}, nil
	})

	s.add(mcp.NewTool("spotify_previous_track",
		mcp.WithDescription("Skip to the previous track"),
	), false, func(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
		if err := s.inv.Do(ctx, s.api.SkipToPrevious); err != nil {
			return nil, err
		}
		return formatter.Status{Status: "skipped to previous track"}, nil
	})

	s.add(mcp.NewTool("spotify_set_volume",
		mcp.WithDescription("Set playback volume (0-100)"),
		mcp.WithNumber("volume", mcp.Required(), mcp.Min(0), mcp.Max(100)),
	), false, s.setVolume)

	s.add(mcp.NewTool("spotify_get_current_track",
		mcp.WithDescription("Get the currently playing track"),
	), false, func(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
		state, err := services.Execute(ctx, s.inv, s.api.GetCurrentTrack)
		if err != nil {
			return nil, err
		}
		if state == nil {
			state = &services.PlaybackState{}
		}
		return state, nil
	})

	s.add(mcp.NewTool("spotify_get_playback_state",
		mcp.WithDescription("Get the current playback state"),
	), false, func(ctx context.Context, _ mcp.CallToolRequest) (any, error) {
		state, err := services.Execute(ctx, s.inv, s.api.GetPlaybackState)
		if err != nil {
			return nil, err
		}
		if state == nil {
			state = &services.PlaybackState{}
		}
		return state, nil
	})
}

func (s *ToolServer) play(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	uri, err := a.str("uri")
	if err != nil {
		return nil, err
	}
	query, err := a.str("query")
	if err != nil {
		return nil, err
	}
	kind, err := a.str("type")
	if err != nil {
		return nil, err
	}
	deviceID, err := a.str("device_id")
	if err != nil {
		return nil, err
	}
	uri, query, kind = strings.TrimSpace(uri), strings.TrimSpace(query), strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = PlayAuto
	}
	if !validPlayType(kind) {
		return nil, shared.InvalidArgument(
			"type must be one of track, playlist, album, artist, auto",
			shared.Details{"provided": kind},
		)
	}

	switch {
	case uri != "":
		uri = playURI(uri, kind)
		if err := shared.ValidateSpotifyURI(uri, "uri"); err != nil {
			return nil, err
		}
		if err := s.inv.Do(ctx, func(ctx context.Context) error {
			return s.api.Play(ctx, playOptions(uri, deviceID))
		}); err != nil {
			return nil, err
		}
		return playResult{Status: "playing", URI: uri, Type: uriKind(uri)}, nil

	case query != "":
		if kind == PlayAuto {
			kind = GuessPlayType(query)
		}
		uris, err := services.Execute(ctx, s.inv, func(ctx context.Context) ([]string, error) {
			return s.api.SearchURIs(ctx, query, kind, 1, s.market)
		})
		if err != nil {
			return nil, err
		}
		if len(uris) == 0 {
			return nil, shared.NotFound(
				fmt.Sprintf("No %s found for %q", kind, query),
				shared.Details{"query": query, "type": kind},
			)
		}
		if err := s.inv.Do(ctx, func(ctx context.Context) error {
			return s.api.Play(ctx, playOptions(uris[0], deviceID))
		}); err != nil {
			return nil, err
		}
		return playResult{Status: "playing", URI: uris[0], Type: kind, Query: query}, nil
	}

	if err := s.inv.Do(ctx, func(ctx context.Context) error {
		return s.api.Play(ctx, services.PlayOptions{DeviceID: deviceID})
	}); err != nil {
		return nil, err
	}
	return playResult{Status: "playing"}, nil
}

func (s *ToolServer) setVolume(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	if err := a.require("volume"); err != nil {
		return nil, err
	}
	v, _, err := a.number("volume")
	if err != nil {
		return nil, err
	}
	if err := shared.ValidateFloatRange("volume", v, 0, 100); err != nil {
		return nil, err
	}
	volume := int(math.Floor(v + 0.5))
	if err := s.inv.Do(ctx, func(ctx context.Context) error {
		return s.api.SetVolume(ctx, volume)
	}); err != nil {
		return nil, err
	}
	return volumeResult{Volume: volume}, nil
}

// GuessPlayType picks the search type for a free-text play request: playlist for "playlist" or "mix",
// album for "album" or "record", otherwise track.
func GuessPlayType(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "playlist"), strings.Contains(q, "mix"):
		return PlayPlaylist
	case strings.Contains(q, "album"), strings.Contains(q, "record"):
		return PlayAlbum
	}
	return PlayTrack
}

func validPlayType(kind string) bool {
	switch kind {
	case PlayTrack, PlayPlaylist, PlayAlbum, PlayArtist, PlayAuto:
		return true
	}
	return false
}

// playURI turns a plain id into a URI of the requested type, defaulting to playlist.
func playURI(v, kind string) string {
	if strings.HasPrefix(v, "spotify:") {
		return v
	}
	if kind == PlayAuto || kind == "" {
		kind = PlayPlaylist
	}
	return "spotify:" + kind + ":" + v
}

func uriKind(uri string) string {
	parts := strings.Split(uri, ":")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

// playOptions plays a track URI directly and anything else as a context.
func playOptions(uri, deviceID string) services.PlayOptions {
	if uriKind(uri) == PlayTrack {
		return services.PlayOptions{URIs: []string{uri}, DeviceID: deviceID}
	}
	return services.PlayOptions{ContextURI: uri, DeviceID: deviceID}
}
