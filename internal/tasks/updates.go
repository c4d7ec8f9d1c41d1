package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// The server forwards these to the client as progress notifications when the caller asked for them.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, zero when unknown
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FetchTracks
	FetchFeatures
	Aggregate
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case FetchFeatures:
		return "fetch_features"
	case Aggregate:
		return "aggregate"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", id),
	}
}

func fetchTracksUpdate(fetched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    fetched,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d of %d playlist items", fetched, total),
	}
}

func fetchFeaturesUpdate(tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    0,
		Total:   tracks,
		Message: fmt.Sprintf("Fetching audio features for %d tracks...", tracks),
	}
}

func aggregateUpdate(features int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Aggregate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Computing statistics over %d feature records", features),
	}
}

func addTracksUpdate(added, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] tracks added", added, total),
	}
}
