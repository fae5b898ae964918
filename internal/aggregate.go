package internal

import (
	"fmt"
	"sort"
	"time"
)

// ElapsedMinutes converts a running session into whole minutes, clamped at
// zero so a start timestamp slightly in the future (clock skew between the
// client and the service) never subtracts from historical totals.
func ElapsedMinutes(start, now time.Time) int {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Minute)
}

// AggregateResult is a display-ready total for one user and objective.
type AggregateResult struct {
	DisplayMinutes int
	IsLive         bool
}

// Aggregate combines a persisted historical total with an optional running
// session. The live portion is recomputed from the wall clock on every call,
// so callers polling on a ticker get a figure that advances without any
// further relay traffic.
func Aggregate(historicalMinutes int, session *LiveSession, now time.Time) AggregateResult {
	if session == nil {
		return AggregateResult{DisplayMinutes: historicalMinutes}
	}
	return AggregateResult{
		DisplayMinutes: historicalMinutes + ElapsedMinutes(session.StartTime, now),
		IsLive:         true,
	}
}

// RankWithLive merges live sessions into a leaderboard's persisted rankings
// for one objective and re-sorts by the combined total, highest first. The
// sort is stable, so rows with equal totals keep the order the persistence
// service ranked them in.
func RankWithLive(rankings []Ranking, objectiveID string, live map[string][]LiveSession, now time.Time) []Ranking {
	merged := make([]Ranking, len(rankings))
	copy(merged, rankings)

	for i := range merged {
		for _, session := range live[merged[i].UserID] {
			if session.ObjectiveID == objectiveID {
				merged[i].Minutes += ElapsedMinutes(session.StartTime, now)
				merged[i].IsLive = true
				break
			}
		}
	}

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Minutes > merged[b].Minutes
	})
	return merged
}

// FormatElapsed renders a running session as HH:MM:SS for the ticking
// personal tracker, clamped at 00:00:00 for future start times.
func FormatElapsed(start, now time.Time) string {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	total := int(elapsed / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
