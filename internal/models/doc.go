// Package models defines the domain entities produced by the analysis and library tools.
//
// The package contains two categories of types:
//
// 1. Feature records: per-track acoustic attributes as returned by the audio-features endpoint
//   - [FeatureRecord] : one track's attributes, with absent values kept absent
//   - [FeatureNames] : the fixed set of attributes aggregated by the analyzer
//
// 2. Results: values rendered back to tool callers
//   - [AggregateStats] : mean, population standard deviation, min and max of one feature
//   - [Distribution] : rounded integer distribution used for release years and popularity
//   - [PlaylistAnalysis] : the full report of spotify_analyze_playlist
//   - [AddResult] : outcome of a deduplicated add
//
// Nothing here is persisted. Every value lives for the duration of one call, except feature records,
// which are also held by the bounded cache.
package models
