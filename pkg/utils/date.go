package utils

import (
	"fmt"
	"time"
)

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TimeframeStart returns the earliest timestamp inside a leaderboard window
// ending at now. ok is false for all_time and unknown windows.
func TimeframeStart(timeframe string, now time.Time) (time.Time, bool) {
	switch timeframe {
	case "24h":
		return now.Add(-24 * time.Hour), true
	case "7d":
		return now.AddDate(0, 0, -7), true
	case "30d":
		return now.AddDate(0, 0, -30), true
	case "90d":
		return now.AddDate(0, 0, -90), true
	default:
		return time.Time{}, false
	}
}

func PrettyDate(date time.Time) string {
	return fmt.Sprintf("%02d %s %d - %02d:%02d UTC",
		date.Day(),
		date.Month().String()[:3],
		date.Year(),
		date.Hour(),
		date.Minute(),
	)
}
