package tasks

import (
	"math"
	"strconv"

	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
)

// round3 rounds half up to 3 decimal places.
func round3(v float64) float64 {
	return math.Floor(v*1000+0.5) / 1000
}

func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Summarize computes mean, population standard deviation, min and max of values, rounded to 3 decimals.
// The second result is false for an empty input.
func Summarize(values []float64) (models.AggregateStats, bool) {
	if len(values) == 0 {
		return models.AggregateStats{}, false
	}

	sum, lo, hi := 0.0, values[0], values[0]
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return models.AggregateStats{
		Mean:   round3(mean),
		StdDev: round3(math.Sqrt(variance)),
		Min:    round3(lo),
		Max:    round3(hi),
	}, true
}

// FeatureStats aggregates every feature in [models.FeatureNames] across records.
// Features absent from every record are omitted.
func FeatureStats(records []models.FeatureRecord) map[string]models.AggregateStats {
	stats := make(map[string]models.AggregateStats, len(models.FeatureNames))
	for _, name := range models.FeatureNames {
		values := make([]float64, 0, len(records))
		for _, r := range records {
			if v, ok := r.Feature(name); ok {
				values = append(values, v)
			}
		}
		if s, ok := Summarize(values); ok {
			stats[name] = s
		}
	}
	return stats
}

// Distribute summarizes integer values with a rounded mean. It returns nil for an empty input.
func Distribute(values []int) *models.Distribution {
	if len(values) == 0 {
		return nil
	}
	sum, lo, hi := 0, values[0], values[0]
	for _, v := range values {
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return &models.Distribution{
		Mean: roundInt(float64(sum) / float64(len(values))),
		Min:  lo,
		Max:  hi,
	}
}

// ReleaseYear parses the leading 4-digit year of a release date ("1999", "1999-03", "1999-03-01").
func ReleaseYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 0 {
		return 0, false
	}
	return year, true
}
