package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/mastery"
)

// StatsStore persists mastery counters and game results in Postgres.
// Window filtering uses rolling cutoffs over game_results.played_at.
type StatsStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool, clock: time.Now}
}

func (s *StatsStore) MasteryCounts(ctx context.Context, userID string) (map[domain.Category]mastery.Counts, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, correct_count, total_count FROM mastery_counts WHERE user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("load mastery counts: %w", err)
	}
	defer rows.Close()

	state := make(map[domain.Category]mastery.Counts)
	for rows.Next() {
		var category string
		var counts mastery.Counts
		if err := rows.Scan(&category, &counts.Correct, &counts.Total); err != nil {
			return nil, fmt.Errorf("scan mastery counts: %w", err)
		}
		state[domain.Category(category)] = counts
	}
	return state, rows.Err()
}

// SaveMastery replaces the user's counters in one transaction so a concurrent
// reader never sees a half-written state.
func (s *StatsStore) SaveMastery(ctx context.Context, userID string, state map[domain.Category]mastery.Counts) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save mastery: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM mastery_counts WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear mastery counts: %w", err)
	}
	for category, counts := range state {
		if _, err := tx.Exec(ctx,
			`INSERT INTO mastery_counts (user_id, category, correct_count, total_count) VALUES ($1, $2, $3, $4)`,
			userID, string(category), counts.Correct, counts.Total); err != nil {
			return fmt.Errorf("insert mastery counts: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *StatsStore) RecordGame(ctx context.Context, result domain.GameResult) error {
	playedAt := result.PlayedAt
	if playedAt.IsZero() {
		playedAt = s.clock()
	}
	// ON CONFLICT keeps completion retries from inserting the game twice.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_results (id, user_id, display_name, score, correct_answers, total_questions, played_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		result.GameID, result.UserID, result.DisplayName,
		result.Score, result.CorrectAnswers, result.TotalQuestions, playedAt)
	if err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	return nil
}

func (s *StatsStore) TopPlayers(ctx context.Context, window domain.Window) ([]domain.PlayerStats, error) {
	query := `SELECT user_id, MAX(display_name), COALESCE(SUM(score), 0), COUNT(*),
	                 COALESCE(SUM(correct_answers), 0), COALESCE(SUM(total_questions), 0)
	          FROM game_results`
	args := []interface{}{}
	if cutoff, bounded := windowCutoff(s.clock(), window); bounded {
		query += ` WHERE played_at >= $1`
		args = append(args, cutoff)
	}
	query += ` GROUP BY user_id ORDER BY user_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load top players: %w", err)
	}
	defer rows.Close()

	var stats []domain.PlayerStats
	for rows.Next() {
		var row domain.PlayerStats
		if err := rows.Scan(&row.UserID, &row.DisplayName, &row.TotalScore,
			&row.GamesPlayed, &row.CorrectAnswers, &row.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scan top players: %w", err)
		}
		stats = append(stats, row)
	}
	return stats, rows.Err()
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
