package shared

import (
	"math"
	"strings"
	"testing"
)

func TestValidation(t *testing.T) {
	t.Run("RequireFields", func(t *testing.T) {
		err := RequireFields(map[string]string{"name": "", "query": "jazz", "id": "  "})
		if !IsKind(err, KindInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
		te := AsToolError(err, "")
		if te.Message != "Missing required fields: id, name" {
			t.Errorf("unexpected message %q", te.Message)
		}

		if err := RequireFields(map[string]string{"query": "jazz"}); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("ValidateRange", func(t *testing.T) {
		tc := []struct {
			name    string
			value   int
			wantErr bool
		}{
			{name: "below", value: 0, wantErr: true},
			{name: "min", value: 1},
			{name: "max", value: 50},
			{name: "above", value: 51, wantErr: true},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := ValidateRange("limit", tt.value, 1, 50)
				if (err != nil) != tt.wantErr {
					t.Errorf("ValidateRange(%d) error = %v, wantErr %v", tt.value, err, tt.wantErr)
				}
			})
		}
	})

	t.Run("ValidateFloatRange", func(t *testing.T) {
		if err := ValidateFloatRange("energy", 0.5, 0, 1); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if err := ValidateFloatRange("energy", 1.5, 0, 1); err == nil {
			t.Error("expected error for value above max")
		}
		if err := ValidateFloatRange("energy", math.NaN(), 0, 1); err == nil {
			t.Error("expected error for NaN")
		}
	})

	t.Run("ValidateLength", func(t *testing.T) {
		if err := ValidateLength("name", "", 1, 100); err == nil {
			t.Error("expected error for empty value")
		}
		if err := ValidateLength("name", strings.Repeat("é", 100), 1, 100); err != nil {
			t.Errorf("expected runes to be counted, got %v", err)
		}
	})

	t.Run("ValidateCount", func(t *testing.T) {
		if err := ValidateCount("track_ids", 0, 1, 100); err == nil {
			t.Error("expected error for empty list")
		}
		if err := ValidateCount("track_ids", 101, 1, 100); err == nil {
			t.Error("expected error for oversized list")
		}
	})

	t.Run("ValidateSpotifyURI", func(t *testing.T) {
		tc := []struct {
			uri     string
			wantErr bool
		}{
			{uri: "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
			{uri: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M"},
			{uri: "4uLU6hMCjMI75M1A2tKUQC", wantErr: true},
			{uri: "spotify:track:", wantErr: true},
			{uri: "spotify:Track:abc", wantErr: true},
			{uri: "", wantErr: true},
		}
		for _, tt := range tc {
			err := ValidateSpotifyURI(tt.uri, "")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSpotifyURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
		}
	})

	t.Run("Sanitize", func(t *testing.T) {
		if got := SanitizePlaylistName("  Road\x00 Trip\n "); got != "Road Trip" {
			t.Errorf("unexpected name %q", got)
		}
		if got := SanitizePlaylistName(strings.Repeat("a", 150)); len(got) != MaxPlaylistNameLength {
			t.Errorf("expected truncation to %d, got %d", MaxPlaylistNameLength, len(got))
		}
		if got := SanitizeDescription(strings.Repeat("b", 400)); len(got) != MaxDescriptionLength {
			t.Errorf("expected truncation to %d, got %d", MaxDescriptionLength, len(got))
		}
	})

	t.Run("ClampFeature", func(t *testing.T) {
		if got := ClampFeature(1.2, 0, 1); got != 1 {
			t.Errorf("expected 1, got %v", got)
		}
		if got := ClampFeature(math.NaN(), 0, 1); got != 0 {
			t.Errorf("expected 0 for NaN, got %v", got)
		}
	})
}

func TestURIs(t *testing.T) {
	if got := ToTrackURI("abc"); got != "spotify:track:abc" {
		t.Errorf("ToTrackURI = %q", got)
	}
	if got := ToTrackURI("spotify:track:abc"); got != "spotify:track:abc" {
		t.Errorf("ToTrackURI should keep uris, got %q", got)
	}
	if got := ToPlaylistURI("p1"); got != "spotify:playlist:p1" {
		t.Errorf("ToPlaylistURI = %q", got)
	}
	if got := TrackIDFromURI("spotify:track:abc"); got != "abc" {
		t.Errorf("TrackIDFromURI = %q", got)
	}
	if got := TrackIDFromURI("abc"); got != "abc" {
		t.Errorf("TrackIDFromURI bare = %q", got)
	}
	uris := ToTrackURIs([]string{"a", "spotify:track:b"})
	if uris[0] != "spotify:track:a" || uris[1] != "spotify:track:b" {
		t.Errorf("ToTrackURIs = %v", uris)
	}
}
