package server

import (
	"context"
	"math"

	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
)

// maxSeeds is the combined seed limit of the recommendations endpoint.
const maxSeeds = 5

// maxFeatureIDs bounds one spotify_get_audio_features call; the fetcher chunks it further.
const maxFeatureIDs = 500

var unitTargets = []string{"acousticness", "danceability", "energy", "valence"}

type tracksResult struct {
	Tracks []services.SpotifyTrack `json:"tracks"`
}

type featuresResult struct {
	Features []models.FeatureRecord `json:"features"`
}

func (s *ToolServer) registerCatalog() {
	s.add(mcp.NewTool("spotify_search_tracks",
		mcp.WithDescription("Search for tracks on Spotify"),
		mcp.WithString("query", mcp.Required(), mcp.MinLength(1)),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(50), mcp.DefaultNumber(20)),
	), false, s.searchTracks)

	recommendationOpts := []mcp.ToolOption{
		mcp.WithDescription("Get track recommendations based on seeds and audio features"),
		mcp.WithArray("seed_tracks", mcp.WithStringItems()),
		mcp.WithArray("seed_artists", mcp.WithStringItems()),
		mcp.WithArray("seed_genres", mcp.WithStringItems()),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(100), mcp.DefaultNumber(20)),
	}
	for _, name := range unitTargets {
		recommendationOpts = append(recommendationOpts, mcp.WithNumber("target_"+name, mcp.Min(0), mcp.Max(1)))
	}
	recommendationOpts = append(recommendationOpts, mcp.WithNumber("target_tempo", mcp.Min(0)))
	s.add(mcp.NewTool("spotify_get_recommendations", recommendationOpts...), false, s.recommendations)

	s.add(mcp.NewTool("spotify_get_audio_features",
		mcp.WithDescription("Get audio features for tracks"),
		mcp.WithArray("track_ids", mcp.Required(), mcp.WithStringItems(), mcp.MinItems(1), mcp.MaxItems(maxFeatureIDs)),
	), false, s.audioFeatures)

	s.add(mcp.NewTool("spotify_cache_stats",
		mcp.WithDescription("Report hit, miss and eviction counters of the audio feature cache"),
	), false, func(context.Context, mcp.CallToolRequest) (any, error) {
		return s.cache.Stats(), nil
	})
}

func (s *ToolServer) searchTracks(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	query, err := a.requiredString("query", 1, 0)
	if err != nil {
		return nil, err
	}
	limit, err := a.integer("limit", 20, 1, 50)
	if err != nil {
		return nil, err
	}

	page, err := services.Execute(ctx, s.inv, func(ctx context.Context) (*services.Page[services.SpotifyTrack], error) {
		return s.api.SearchTracks(ctx, query, limit, s.market)
	})
	if err != nil {
		return nil, err
	}
	tracks := page.Items
	if tracks == nil {
		tracks = []services.SpotifyTrack{}
	}
	return tracksResult{Tracks: tracks}, nil
}

func (s *ToolServer) recommendations(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	a := argsOf(req)
	params := services.RecommendationParams{Market: s.market, Targets: map[string]float64{}}

	var err error
	if params.SeedTracks, err = a.list("seed_tracks", 0, maxSeeds); err != nil {
		return nil, err
	}
	for i, id := range params.SeedTracks {
		params.SeedTracks[i] = shared.TrackIDFromURI(id)
	}
	if params.SeedArtists, err = a.list("seed_artists", 0, maxSeeds); err != nil {
		return nil, err
	}
	if params.SeedGenres, err = a.list("seed_genres", 0, maxSeeds); err != nil {
		return nil, err
	}
	seeds := len(params.SeedTracks) + len(params.SeedArtists) + len(params.SeedGenres)
	if err := shared.ValidateCount("seeds", seeds, 1, maxSeeds); err != nil {
		return nil, err
	}
	if params.Limit, err = a.integer("limit", 20, 1, 100); err != nil {
		return nil, err
	}

	for _, name := range unitTargets {
		v, err := a.optionalFloat("target_"+name, 0, 1)
		if err != nil {
			return nil, err
		}
		if v != nil {
			params.Targets[name] = *v
		}
	}
	tempo, err := a.optionalFloat("target_tempo", 0, math.MaxFloat64)
	if err != nil {
		return nil, err
	}
	if tempo != nil {
		params.Targets["tempo"] = *tempo
	}

	s.logger.Warn("recommendations_api_deprecated",
		"message", "Spotify recommendations API is deprecated. Monitor for future changes.")

	recs, err := services.Execute(ctx, s.inv, func(ctx context.Context) (*services.Recommendations, error) {
		return s.api.GetRecommendations(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	if recs.Tracks == nil {
		recs.Tracks = []services.SpotifyTrack{}
	}
	return recs, nil
}

// audioFeatures returns records in request order. Ids whose batch failed are absent.
func (s *ToolServer) audioFeatures(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	ids, err := argsOf(req).list("track_ids", 1, maxFeatureIDs)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		ids[i] = shared.TrackIDFromURI(id)
	}

	byID, err := s.features.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.FeatureRecord, 0, len(byID))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return featuresResult{Features: out}, nil
}
