package mastery

import (
	"math"

	"quiz-mastery-service/internal/domain"
)

// Scope selects how per-category counters accumulate across games.
type Scope string

const (
	// ScopeSession recomputes mastery from the completed game alone,
	// overwriting whatever was stored before.
	ScopeSession Scope = "session"
	// ScopeLifetime folds the completed game into the counters accumulated
	// over all previous games.
	ScopeLifetime Scope = "lifetime"
)

// ParseScope validates a configured scope name. Empty means lifetime.
func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeSession, ScopeLifetime:
		return Scope(raw), nil
	case "":
		return ScopeLifetime, nil
	}
	return "", domain.ErrUnknownScope
}

// Counts is one category's graded-answer tally. Correct never exceeds Total.
type Counts struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Fold merges newly graded answers into a starting state and returns the
// updated per-category counters. The aggregator is scope-agnostic: callers
// pass a zero-valued start for session scope and previously persisted
// counters for lifetime scope. Neither input is mutated.
func Fold(start map[domain.Category]Counts, answers []domain.GradedAnswer) map[domain.Category]Counts {
	out := make(map[domain.Category]Counts, len(start)+1)
	for category, counts := range start {
		out[category] = counts
	}
	for _, answer := range answers {
		counts := out[answer.Category]
		counts.Total++
		if answer.Correct {
			counts.Correct++
		}
		out[answer.Category] = counts
	}
	return out
}

// Percent derives the 0-100 mastery percentage for one category. A category
// with no answers reports 0, never NaN. Rounding is half away from zero
// (math.Round), pinned by tests.
func Percent(c Counts) int {
	if c.Total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(c.Correct) / float64(c.Total)))
}

// Percentages maps every category in state to its mastery percentage.
func Percentages(state map[domain.Category]Counts) map[domain.Category]int {
	out := make(map[domain.Category]int, len(state))
	for category, counts := range state {
		out[category] = Percent(counts)
	}
	return out
}
