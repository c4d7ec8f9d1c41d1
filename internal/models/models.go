package models

// FeatureNames lists the attributes aggregated by playlist analysis, in output order.
var FeatureNames = []string{
	"danceability",
	"energy",
	"valence",
	"tempo",
	"acousticness",
	"instrumentalness",
	"liveness",
	"speechiness",
	"loudness",
}

// FeatureRecord is one track's audio features. Pointer fields are nil when the service omits the value.
type FeatureRecord struct {
	ID               string   `json:"id"`
	URI              string   `json:"uri,omitempty"`
	DurationMS       int      `json:"duration_ms"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Key              *int     `json:"key,omitempty"`
	Mode             *int     `json:"mode,omitempty"`
	TimeSignature    *int     `json:"time_signature,omitempty"`
}

// Feature returns the named attribute and whether it is present.
func (r FeatureRecord) Feature(name string) (float64, bool) {
	var p *float64
	switch name {
	case "danceability":
		p = r.Danceability
	case "energy":
		p = r.Energy
	case "valence":
		p = r.Valence
	case "tempo":
		p = r.Tempo
	case "acousticness":
		p = r.Acousticness
	case "instrumentalness":
		p = r.Instrumentalness
	case "liveness":
		p = r.Liveness
	case "speechiness":
		p = r.Speechiness
	case "loudness":
		p = r.Loudness
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// AggregateStats summarizes one feature across a set of records. Values are rounded to 3 decimals.
type AggregateStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Distribution is a rounded-mean summary of integer values such as release years.
type Distribution struct {
	Mean int `json:"mean"`
	Min  int `json:"min"`
	Max  int `json:"max"`
}

// PlaylistSummary is the descriptive part of an analysis.
type PlaylistSummary struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Owner         string `json:"owner"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
}

// Counts holds distinct totals over a playlist's valid tracks.
type Counts struct {
	Tracks  int `json:"tracks"`
	Artists int `json:"artists"`
	Albums  int `json:"albums"`
}

// Diversity holds distinct artists and albums per track.
type Diversity struct {
	ArtistRatio float64 `json:"artist_ratio"`
	AlbumRatio  float64 `json:"album_ratio"`
}

// PlaylistAnalysis is the aggregate report for one playlist.
//
// Popularity and ReleaseYear are nil when no track exposes the value.
type PlaylistAnalysis struct {
	Playlist      PlaylistSummary           `json:"playlist"`
	Counts        Counts                    `json:"counts"`
	FeatureStats  map[string]AggregateStats `json:"audio_feature_stats"`
	Diversity     Diversity                 `json:"diversity"`
	LengthMinutes int                       `json:"length_minutes"`
	Popularity    *Distribution             `json:"popularity"`
	ReleaseYear   *Distribution             `json:"release_year"`
}

// AddResult reports how many uris were added to a playlist and how many were skipped as duplicates.
type AddResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}
