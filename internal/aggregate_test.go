package internal

import (
	"testing"
	"time"
)

func TestElapsedMinutesClampsFutureStart(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := ElapsedMinutes(now.Add(30*time.Second), now); got != 0 {
		t.Errorf("expected 0 for a future start, got %d", got)
	}
	if got := ElapsedMinutes(now.Add(-90*time.Second), now); got != 1 {
		t.Errorf("expected 1 for 90s elapsed, got %d", got)
	}
	if got := ElapsedMinutes(now.Add(-59*time.Second), now); got != 0 {
		t.Errorf("expected 0 for 59s elapsed, got %d", got)
	}
}

func TestAggregateCombinesHistoricalAndLive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := &LiveSession{
		RoomID:      "r1",
		UserID:      "u1",
		ObjectiveID: "o1",
		StartTime:   now.Add(-90 * time.Second),
	}

	got := Aggregate(120, session, now)
	if got.DisplayMinutes != 121 {
		t.Errorf("expected 121 minutes, got %d", got.DisplayMinutes)
	}
	if !got.IsLive {
		t.Error("expected IsLive with a running session")
	}

	idle := Aggregate(120, nil, now)
	if idle.DisplayMinutes != 120 || idle.IsLive {
		t.Errorf("expected 120 minutes idle, got %+v", idle)
	}
}

func TestAggregateFutureStartNeverSubtracts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := &LiveSession{StartTime: now.Add(2 * time.Minute)}
	got := Aggregate(45, session, now)
	if got.DisplayMinutes != 45 {
		t.Errorf("expected clamped total 45, got %d", got.DisplayMinutes)
	}
	if !got.IsLive {
		t.Error("a future-dated session is still live")
	}
}

func TestRankWithLiveReordersByCombinedTotal(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rankings := []Ranking{
		{UserID: "u1", UserFullName: "Ada", Minutes: 100},
		{UserID: "u2", UserFullName: "Ben", Minutes: 95},
	}
	live := map[string][]LiveSession{
		"u2": {{UserID: "u2", ObjectiveID: "o1", StartTime: now.Add(-10 * time.Minute)}},
	}

	merged := RankWithLive(rankings, "o1", live, now)
	if merged[0].UserID != "u2" || merged[0].Minutes != 105 {
		t.Errorf("expected u2 first with 105, got %+v", merged[0])
	}
	if !merged[0].IsLive {
		t.Error("expected merged row to be marked live")
	}
	if merged[1].UserID != "u1" || merged[1].IsLive {
		t.Errorf("expected u1 second and idle, got %+v", merged[1])
	}
	// input untouched
	if rankings[1].Minutes != 95 {
		t.Errorf("input rankings mutated: %+v", rankings[1])
	}
}

func TestRankWithLiveIgnoresOtherObjectives(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rankings := []Ranking{{UserID: "u1", Minutes: 50}}
	live := map[string][]LiveSession{
		"u1": {{UserID: "u1", ObjectiveID: "other", StartTime: now.Add(-time.Hour)}},
	}
	merged := RankWithLive(rankings, "o1", live, now)
	if merged[0].Minutes != 50 || merged[0].IsLive {
		t.Errorf("session on another objective leaked in: %+v", merged[0])
	}
}

func TestRankWithLiveStableOnTies(t *testing.T) {
	now := time.Now()
	rankings := []Ranking{
		{UserID: "u1", Minutes: 60},
		{UserID: "u2", Minutes: 60},
		{UserID: "u3", Minutes: 60},
	}
	merged := RankWithLive(rankings, "o1", nil, now)
	for i, want := range []string{"u1", "u2", "u3"} {
		if merged[i].UserID != want {
			t.Fatalf("tie order changed at %d: got %s, want %s", i, merged[i].UserID, want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		start time.Time
		want  string
	}{
		{now.Add(-90 * time.Second), "00:01:30"},
		{now.Add(-(3*time.Hour + 25*time.Minute + 7*time.Second)), "03:25:07"},
		{now.Add(10 * time.Second), "00:00:00"},
		{now, "00:00:00"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.start, now); got != c.want {
			t.Errorf("FormatElapsed(%v): got %s, want %s", c.start, got, c.want)
		}
	}
}
