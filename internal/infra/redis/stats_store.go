package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/mastery"
)

// StatsStore keeps leaderboard aggregates and mastery counters in Redis.
// Scores live in one sorted set per calendar bucket (ZINCRBY), accuracy and
// game counts in a sibling hash; bounded buckets expire on their own.
// Layout:
//
//	lb:score:{bucket}  ZSET member=userID score=totalScore
//	lb:stats:{bucket}  HASH {userID}:games/correct/total
//	lb:names           HASH userID -> displayName
//	mastery:{userID}   HASH {category}:correct/total
type StatsStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{client: client, clock: time.Now}
}

// NewStatsStoreWithClock is test-only for deterministic bucket keys.
func NewStatsStoreWithClock(client *redis.Client, now func() time.Time) *StatsStore {
	return &StatsStore{client: client, clock: now}
}

func (s *StatsStore) MasteryCounts(ctx context.Context, userID string) (map[domain.Category]mastery.Counts, error) {
	fields, err := s.client.HGetAll(ctx, s.masteryKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load mastery counts: %w", err)
	}
	state := make(map[domain.Category]mastery.Counts)
	for field, raw := range fields {
		category, kind, ok := splitMasteryField(field)
		if !ok {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		counts := state[category]
		switch kind {
		case "correct":
			counts.Correct = value
		case "total":
			counts.Total = value
		}
		state[category] = counts
	}
	return state, nil
}

func (s *StatsStore) SaveMastery(ctx context.Context, userID string, state map[domain.Category]mastery.Counts) error {
	key := s.masteryKey(userID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	for category, counts := range state {
		pipe.HSet(ctx, key, string(category)+":correct", counts.Correct)
		pipe.HSet(ctx, key, string(category)+":total", counts.Total)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save mastery counts: %w", err)
	}
	return nil
}

func (s *StatsStore) RecordGame(ctx context.Context, result domain.GameResult) error {
	// The counters below are increments, so a completion retry replaying the
	// same game id must not reach them. The guard key is written inside the
	// transaction so it only exists once the counters have landed.
	guardKey := "game:recorded:" + result.GameID
	exists, err := s.client.Exists(ctx, guardKey).Result()
	if err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	if exists > 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, guardKey, "1", 0)
	pipe.HSet(ctx, "lb:names", result.UserID, result.DisplayName)
	for _, window := range []domain.Window{domain.WindowDaily, domain.WindowWeekly, domain.WindowMonthly, domain.WindowAllTime} {
		bucket, ttl := s.bucket(window)
		scoreKey := "lb:score:" + bucket
		statsKey := "lb:stats:" + bucket
		pipe.ZIncrBy(ctx, scoreKey, float64(result.Score), result.UserID)
		pipe.HIncrBy(ctx, statsKey, result.UserID+":games", 1)
		pipe.HIncrBy(ctx, statsKey, result.UserID+":correct", int64(result.CorrectAnswers))
		pipe.HIncrBy(ctx, statsKey, result.UserID+":total", int64(result.TotalQuestions))
		if ttl > 0 {
			pipe.Expire(ctx, scoreKey, ttl)
			pipe.Expire(ctx, statsKey, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	return nil
}

func (s *StatsStore) TopPlayers(ctx context.Context, window domain.Window) ([]domain.PlayerStats, error) {
	bucket, _ := s.bucket(window)
	scores, err := s.client.ZRevRangeWithScores(ctx, "lb:score:"+bucket, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	if len(scores) == 0 {
		return nil, nil
	}
	stats, err := s.client.HGetAll(ctx, "lb:stats:"+bucket).Result()
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	names, err := s.client.HGetAll(ctx, "lb:names").Result()
	if err != nil {
		return nil, fmt.Errorf("load names: %w", err)
	}

	rows := make([]domain.PlayerStats, 0, len(scores))
	for _, member := range scores {
		userID, _ := member.Member.(string)
		if userID == "" {
			continue
		}
		rows = append(rows, domain.PlayerStats{
			UserID:         userID,
			DisplayName:    names[userID],
			TotalScore:     int(member.Score),
			GamesPlayed:    statInt(stats, userID, "games"),
			CorrectAnswers: statInt(stats, userID, "correct"),
			TotalQuestions: statInt(stats, userID, "total"),
		})
	}
	return rows, nil
}

// bucket returns the calendar bucket suffix for a window and how long bounded
// buckets should live past their window.
func (s *StatsStore) bucket(window domain.Window) (string, time.Duration) {
	now := s.clock().UTC()
	switch window {
	case domain.WindowDaily:
		return "d:" + now.Format("2006-01-02"), 48 * time.Hour
	case domain.WindowWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("w:%d-%02d", year, week), 8 * 24 * time.Hour
	case domain.WindowMonthly:
		return "m:" + now.Format("2006-01"), 32 * 24 * time.Hour
	}
	return "all", 0
}

func (s *StatsStore) masteryKey(userID string) string {
	return "mastery:" + userID
}

func splitMasteryField(field string) (domain.Category, string, bool) {
	idx := strings.LastIndex(field, ":")
	if idx <= 0 || idx == len(field)-1 {
		return "", "", false
	}
	return domain.Category(field[:idx]), field[idx+1:], true
}

func statInt(stats map[string]string, userID, kind string) int {
	value, err := strconv.Atoi(stats[userID+":"+kind])
	if err != nil {
		return 0
	}
	return value
}
