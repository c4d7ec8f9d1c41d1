// Package tasks implements the playlist operations that span several remote calls.
//
// # Batched features
//
// [BatchFetcher] resolves track ids through the feature cache and fetches only the missing ones, in
// chunks of 50 with at most 4 requests in flight. A chunk that fails is logged and left out; the caller
// sees fewer records, never an error.
//
// # Playlist engine
//
// [PlaylistEngine] pages through playlists 100 items at a time and offers:
//  1. [PlaylistEngine.Analyze] : feature statistics, diversity, length, release years and popularity
//  2. [PlaylistEngine.AddTracksWithDedup] : appends uris, skipping ones already present
//
// Both accept an optional progress channel; updates are dropped rather than block the operation.
package tasks
