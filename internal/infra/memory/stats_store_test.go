package memory

import (
	"context"
	"testing"
	"time"

	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/mastery"
)

func TestStatsStoreMasteryRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewStatsStore()

	state := map[domain.Category]mastery.Counts{
		"math": {Correct: 3, Total: 5},
	}
	if err := store.SaveMastery(ctx, "u1", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's map must not leak into the store.
	state["math"] = mastery.Counts{Correct: 99, Total: 99}

	loaded, err := store.MasteryCounts(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["math"].Correct != 3 || loaded["math"].Total != 5 {
		t.Fatalf("expected 3/5, got %+v", loaded["math"])
	}

	empty, err := store.MasteryCounts(ctx, "unknown")
	if err != nil {
		t.Fatalf("load unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty state, got %+v", empty)
	}
}

func TestStatsStoreIgnoresReplayedGame(t *testing.T) {
	ctx := context.Background()
	store := NewStatsStore()

	game := domain.GameResult{
		GameID: "g1", UserID: "u1", DisplayName: "Alice",
		Score: 10, CorrectAnswers: 1, TotalQuestions: 1, PlayedAt: time.Now(),
	}
	if err := store.RecordGame(ctx, game); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordGame(ctx, game); err != nil {
		t.Fatalf("replay: %v", err)
	}

	rows, err := store.TopPlayers(ctx, domain.WindowAllTime)
	if err != nil {
		t.Fatalf("top players: %v", err)
	}
	if len(rows) != 1 || rows[0].GamesPlayed != 1 || rows[0].TotalScore != 10 {
		t.Fatalf("replayed game was counted twice: %+v", rows)
	}
}

func TestStatsStoreWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	store := NewStatsStoreWithClock(func() time.Time { return now })

	record := func(userID string, score int, playedAt time.Time) {
		t.Helper()
		err := store.RecordGame(ctx, domain.GameResult{
			GameID:         userID + "-game",
			UserID:         userID,
			DisplayName:    userID,
			Score:          score,
			CorrectAnswers: 1,
			TotalQuestions: 2,
			PlayedAt:       playedAt,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	record("u1", 10, now.Add(-time.Hour))       // today
	record("u1", 20, now.Add(-3*24*time.Hour))  // this week
	record("u2", 50, now.Add(-20*24*time.Hour)) // this month only

	daily, err := store.TopPlayers(ctx, domain.WindowDaily)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(daily) != 1 || daily[0].TotalScore != 10 || daily[0].GamesPlayed != 1 {
		t.Fatalf("unexpected daily rows: %+v", daily)
	}

	weekly, err := store.TopPlayers(ctx, domain.WindowWeekly)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if len(weekly) != 1 || weekly[0].TotalScore != 30 || weekly[0].GamesPlayed != 2 {
		t.Fatalf("unexpected weekly rows: %+v", weekly)
	}

	all, err := store.TopPlayers(ctx, domain.WindowAllTime)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 users all-time, got %+v", all)
	}
}
