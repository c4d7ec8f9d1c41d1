package tasks

import (
	"context"

	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
)

// Analyze builds the aggregate report for a playlist.
//
// It fails with an invalid argument error when the playlist holds no track with an id, or when no
// feature record could be retrieved for any of them.
func (e *PlaylistEngine) Analyze(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*models.PlaylistAnalysis, error) {
	e.logger.Info("analyzing_playlist", "playlist_id", playlistID)
	e.sendProgress(progress, fetchPlaylistUpdate(playlistID))

	playlist, err := services.Execute(ctx, e.invoker, func(ctx context.Context) (*services.SpotifyPlaylist, error) {
		return e.playlists.GetPlaylist(ctx, playlistID, e.market)
	})
	if err != nil {
		return nil, err
	}

	items, err := e.Items(ctx, progress, playlistID)
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, 0, len(items))
	for _, item := range items {
		if item.Track != nil && item.Track.ID != "" {
			trackIDs = append(trackIDs, item.Track.ID)
		}
	}
	if len(trackIDs) == 0 {
		return nil, shared.InvalidArgument("Playlist has no valid tracks", shared.Details{"playlist_id": playlistID})
	}

	e.sendProgress(progress, fetchFeaturesUpdate(len(trackIDs)))
	byID, err := e.features.Fetch(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	records := make([]models.FeatureRecord, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, shared.InvalidArgument(
			"Unable to retrieve audio features for playlist tracks",
			shared.Details{"playlist_id": playlistID, "tracks": len(trackIDs)},
		)
	}

	e.sendProgress(progress, aggregateUpdate(len(records)))
	return buildAnalysis(playlist, items, trackIDs, records), nil
}

func buildAnalysis(
	playlist *services.SpotifyPlaylist,
	items []services.SpotifyPlaylistItem,
	trackIDs []string,
	records []models.FeatureRecord,
) *models.PlaylistAnalysis {
	artists := make(map[string]struct{})
	albums := make(map[string]struct{})
	var years, popularity []int

	for _, item := range items {
		tr := item.Track
		if tr == nil {
			continue
		}
		for _, a := range tr.Artists {
			if a.ID != "" {
				artists[a.ID] = struct{}{}
			}
		}
		if tr.Album.ID != "" {
			albums[tr.Album.ID] = struct{}{}
		}
		if y, ok := ReleaseYear(tr.Album.ReleaseDate); ok {
			years = append(years, y)
		}
		if tr.Popularity != nil {
			popularity = append(popularity, *tr.Popularity)
		}
	}

	totalMS := 0
	for _, r := range records {
		totalMS += r.DurationMS
	}

	owner := playlist.Owner.DisplayName
	if owner == "" {
		owner = "Unknown"
	}

	n := float64(len(trackIDs))
	return &models.PlaylistAnalysis{
		Playlist: models.PlaylistSummary{
			Name:          playlist.Name,
			Description:   playlist.Description,
			Owner:         owner,
			Public:        playlist.Public,
			Collaborative: playlist.Collaborative,
		},
		Counts: models.Counts{
			Tracks:  len(trackIDs),
			Artists: len(artists),
			Albums:  len(albums),
		},
		FeatureStats: FeatureStats(records),
		Diversity: models.Diversity{
			ArtistRatio: float64(len(artists)) / n,
			AlbumRatio:  float64(len(albums)) / n,
		},
		LengthMinutes: roundInt(float64(totalMS) / 60000),
		Popularity:    Distribute(popularity),
		ReleaseYear:   Distribute(years),
	}
}
