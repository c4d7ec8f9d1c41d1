package tasks

import (
	"context"

	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
)

// AddBatchSize is the maximum number of uris per add request.
const AddBatchSize = 100

// AddTracksWithDedup appends uris to a playlist in batches of [AddBatchSize].
//
// With deduplicate set, uris already in the playlist and repeats within uris are skipped, so the
// playlist never gains a second copy of a track through this call.
func (e *PlaylistEngine) AddTracksWithDedup(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlistID string,
	uris []string,
	deduplicate bool,
) (models.AddResult, error) {
	toAdd := uris
	if deduplicate {
		existing, err := e.existingURIs(ctx, playlistID)
		if err != nil {
			return models.AddResult{}, err
		}

		toAdd = make([]string, 0, len(uris))
		for _, uri := range uris {
			if _, ok := existing[uri]; ok {
				continue
			}
			existing[uri] = struct{}{}
			toAdd = append(toAdd, uri)
		}
	}

	result := models.AddResult{Skipped: len(uris) - len(toAdd)}
	for _, batch := range Chunk(toAdd, AddBatchSize) {
		_, err := services.Execute(ctx, e.invoker, func(ctx context.Context) (string, error) {
			return e.playlists.AddTracksToPlaylist(ctx, playlistID, batch)
		})
		if err != nil {
			return result, err
		}
		result.Added += len(batch)
		e.sendProgress(progress, addTracksUpdate(result.Added, len(toAdd)))
	}
	return result, nil
}

func (e *PlaylistEngine) existingURIs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	items, err := e.Items(ctx, nil, playlistID)
	if err != nil {
		return nil, err
	}
	uris := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Track != nil && item.Track.URI != "" {
			uris[item.Track.URI] = struct{}{}
		}
	}
	return uris, nil
}
