package memory

import (
	"context"
	"sync"
	"time"

	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/mastery"
)

// StatsStore keeps mastery counters and game results in process memory.
// Window filtering uses rolling cutoffs (24h/7d/30d) over recorded games.
type StatsStore struct {
	clock func() time.Time

	mu      sync.RWMutex
	counts  map[string]map[domain.Category]mastery.Counts
	results []domain.GameResult
}

func NewStatsStore() *StatsStore {
	return &StatsStore{
		clock:  time.Now,
		counts: make(map[string]map[domain.Category]mastery.Counts),
	}
}

// NewStatsStoreWithClock is test-only for deterministic window cutoffs.
func NewStatsStoreWithClock(now func() time.Time) *StatsStore {
	s := NewStatsStore()
	s.clock = now
	return s
}

func (s *StatsStore) MasteryCounts(_ context.Context, userID string) (map[domain.Category]mastery.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.Category]mastery.Counts, len(s.counts[userID]))
	for category, counts := range s.counts[userID] {
		out[category] = counts
	}
	return out, nil
}

func (s *StatsStore) SaveMastery(_ context.Context, userID string, state map[domain.Category]mastery.Counts) error {
	stored := make(map[domain.Category]mastery.Counts, len(state))
	for category, counts := range state {
		stored[category] = counts
	}
	s.mu.Lock()
	s.counts[userID] = stored
	s.mu.Unlock()
	return nil
}

func (s *StatsStore) RecordGame(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Completion retries replay the same game id; count it once.
	for _, existing := range s.results {
		if existing.GameID == result.GameID {
			return nil
		}
	}
	s.results = append(s.results, result)
	return nil
}

func (s *StatsStore) TopPlayers(_ context.Context, window domain.Window) ([]domain.PlayerStats, error) {
	cutoff, bounded := windowCutoff(s.clock(), window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[string]*domain.PlayerStats)
	order := make([]string, 0)
	for _, result := range s.results {
		if bounded && result.PlayedAt.Before(cutoff) {
			continue
		}
		stats, ok := byUser[result.UserID]
		if !ok {
			stats = &domain.PlayerStats{UserID: result.UserID}
			byUser[result.UserID] = stats
			order = append(order, result.UserID)
		}
		stats.DisplayName = result.DisplayName
		stats.TotalScore += result.Score
		stats.GamesPlayed++
		stats.CorrectAnswers += result.CorrectAnswers
		stats.TotalQuestions += result.TotalQuestions
	}

	rows := make([]domain.PlayerStats, 0, len(order))
	for _, userID := range order {
		rows = append(rows, *byUser[userID])
	}
	return rows, nil
}

func windowCutoff(now time.Time, window domain.Window) (time.Time, bool) {
	switch window {
	case domain.WindowDaily:
		return now.Add(-24 * time.Hour), true
	case domain.WindowWeekly:
		return now.Add(-7 * 24 * time.Hour), true
	case domain.WindowMonthly:
		return now.Add(-30 * 24 * time.Hour), true
	}
	return time.Time{}, false
}
