package leaderboard

import (
	"math"
	"sort"

	"quiz-mastery-service/internal/domain"
)

// Entry is one ranked leaderboard row, ready for JSON serialization.
type Entry struct {
	UserID          string `json:"userId"`
	DisplayName     string `json:"displayName"`
	TotalScore      int    `json:"totalScore"`
	GamesPlayed     int    `json:"gamesPlayed"`
	AccuracyPercent int    `json:"accuracyPercent"`
	Rank            int    `json:"rank"`
}

// Rank orders pre-aggregated player rows by score and truncates to limit.
// Ties break by user id ascending, an explicit key chosen over relying on
// backend query order, which is not guaranteed stable. Empty input yields an
// empty list; a non-positive limit is a caller error.
func Rank(rows []domain.PlayerStats, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidLimit
	}

	sorted := make([]domain.PlayerStats, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]Entry, 0, len(sorted))
	for i, row := range sorted {
		entries = append(entries, Entry{
			UserID:          row.UserID,
			DisplayName:     row.DisplayName,
			TotalScore:      row.TotalScore,
			GamesPlayed:     row.GamesPlayed,
			AccuracyPercent: accuracyPercent(row.CorrectAnswers, row.TotalQuestions),
			Rank:            i + 1,
		})
	}
	return entries, nil
}

func accuracyPercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}
