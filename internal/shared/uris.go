package shared

import "strings"

const (
	trackURIPrefix    = "spotify:track:"
	playlistURIPrefix = "spotify:playlist:"
)

// ToTrackURI returns id as a track URI. Values already in URI form are returned unchanged.
func ToTrackURI(id string) string {
	if strings.HasPrefix(id, "spotify:") {
		return id
	}
	return trackURIPrefix + id
}

// ToPlaylistURI returns id as a playlist URI.
func ToPlaylistURI(id string) string {
	if strings.HasPrefix(id, "spotify:") {
		return id
	}
	return playlistURIPrefix + id
}

// TrackIDFromURI strips the track URI prefix. Bare ids pass through.
func TrackIDFromURI(uri string) string {
	return strings.TrimPrefix(uri, trackURIPrefix)
}

// ToTrackURIs maps [ToTrackURI] over ids.
func ToTrackURIs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = ToTrackURI(id)
	}
	return out
}
