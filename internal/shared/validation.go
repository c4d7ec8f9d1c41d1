package shared

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	MaxPlaylistNameLength = 100
	MaxDescriptionLength  = 300
)

var spotifyURIPattern = regexp.MustCompile(`^spotify:[a-z]+:[a-zA-Z0-9]+$`)

// RequireFields returns an invalid argument error naming every empty field in args.
func RequireFields(args map[string]string) error {
	var missing []string
	for name, v := range args {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return InvalidArgument(
		"Missing required fields: "+strings.Join(missing, ", "),
		Details{"missing_fields": missing},
	)
}

// ValidateLength checks the rune length of value against [min, max].
func ValidateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		return InvalidArgument(
			fmt.Sprintf("%s must be at least %d characters", field, min),
			Details{"length": n, "min_length": min},
		)
	}
	if n > max {
		return InvalidArgument(
			fmt.Sprintf("%s must be at most %d characters", field, max),
			Details{"length": n, "max_length": max},
		)
	}
	return nil
}

// ValidateRange checks that an integer argument lies within [min, max].
func ValidateRange(field string, value, min, max int) error {
	if value < min {
		return InvalidArgument(fmt.Sprintf("%s must be at least %d", field, min), Details{"value": value, "min": min})
	}
	if value > max {
		return InvalidArgument(fmt.Sprintf("%s must be at most %d", field, max), Details{"value": value, "max": max})
	}
	return nil
}

// ValidateFloatRange is [ValidateRange] for fractional arguments. NaN is rejected.
func ValidateFloatRange(field string, value, min, max float64) error {
	if math.IsNaN(value) {
		return InvalidArgument(field+" must be a number", nil)
	}
	if value < min {
		return InvalidArgument(fmt.Sprintf("%s must be at least %g", field, min), Details{"value": value, "min": min})
	}
	if value > max {
		return InvalidArgument(fmt.Sprintf("%s must be at most %g", field, max), Details{"value": value, "max": max})
	}
	return nil
}

// ValidateCount checks the number of items in a list argument.
func ValidateCount(field string, n, min, max int) error {
	if n < min {
		return InvalidArgument(
			fmt.Sprintf("%s must have at least %d items", field, min),
			Details{"length": n, "min_length": min},
		)
	}
	if n > max {
		return InvalidArgument(
			fmt.Sprintf("%s must have at most %d items", field, max),
			Details{"length": n, "max_length": max},
		)
	}
	return nil
}

// ValidateSpotifyURI checks that uri has the spotify:<type>:<id> form.
func ValidateSpotifyURI(uri, field string) error {
	if field == "" {
		field = "uri"
	}
	if !spotifyURIPattern.MatchString(uri) {
		return InvalidArgument(
			field+" must be a valid Spotify URI (e.g., spotify:track:xxxx)",
			Details{"provided": uri},
		)
	}
	return nil
}

// SanitizePlaylistName strips control characters, trims and truncates to the name limit.
func SanitizePlaylistName(name string) string {
	return sanitizeText(name, MaxPlaylistNameLength)
}

// SanitizeDescription is [SanitizePlaylistName] with the longer description limit.
func SanitizeDescription(desc string) string {
	return sanitizeText(desc, MaxDescriptionLength)
}

func sanitizeText(s string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) > limit {
		cleaned = string([]rune(cleaned)[:limit])
	}
	return cleaned
}

// ClampFeature bounds an audio feature value; NaN becomes min.
func ClampFeature(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	return math.Max(min, math.Min(max, v))
}
