package domain

import "time"

// Category buckets questions for mastery tracking.
type Category string

// InputType selects the equivalence rule used to grade a submission.
type InputType string

const (
	InputFreeText       InputType = "free_text"
	InputMultipleChoice InputType = "multiple_choice"
	InputCalculation    InputType = "calculation"
)

// Question is one gradable item. Expected holds the acceptable answers for
// FreeText (any of them) and MultipleChoice (the first one only); Target holds
// the numeric result a Calculation submission must evaluate to.
type Question struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Category   Category  `json:"category"`
	Difficulty int       `json:"difficulty"`
	InputType  InputType `json:"inputType"`
	Expected   []string  `json:"expected,omitempty"`
	Target     *float64  `json:"target,omitempty"`
}

// QuestionSet is a playable collection of questions, keyed by an opaque id.
type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// SubmittedAnswer is what a player sends for one question. ElapsedMs is
// informational only and never affects correctness.
type SubmittedAnswer struct {
	QuestionID string
	Text       string
	ElapsedMs  int64
}

// GradedAnswer is the immutable outcome of grading one submission.
// Awarded is zero whenever Correct is false.
type GradedAnswer struct {
	QuestionID string   `json:"questionId"`
	Category   Category `json:"category"`
	Correct    bool     `json:"correct"`
	Awarded    int      `json:"awarded"`
}

// Participant represents a player inside a live game session.
type Participant struct {
	UserID      string
	DisplayName string
	GameID      string
	Score       int
	Graded      []GradedAnswer
	LastUpdated time.Time
}

// ScoreboardEntry is a snapshot-friendly view of a participant.
type ScoreboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Scoreboard captures the ordered live standings for a game session.
type Scoreboard struct {
	SetID     string            `json:"setId"`
	Entries   []ScoreboardEntry `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// PlayerStats is one user's aggregate row over some time window, as produced
// by the persistence layer and consumed by the leaderboard ranker.
type PlayerStats struct {
	UserID         string
	DisplayName    string
	TotalScore     int
	GamesPlayed    int
	CorrectAnswers int
	TotalQuestions int
}

// GameResult is the persisted record of one completed game.
type GameResult struct {
	GameID         string
	UserID         string
	DisplayName    string
	Score          int
	CorrectAnswers int
	TotalQuestions int
	PlayedAt       time.Time
}

// Window names the time span a leaderboard query covers. Filtering by window
// is the persistence layer's job; the ranker never sees it.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowAllTime Window = "all"
)

// ParseWindow validates a client-supplied window name. Empty means all-time.
func ParseWindow(raw string) (Window, error) {
	switch Window(raw) {
	case WindowDaily, WindowWeekly, WindowMonthly, WindowAllTime:
		return Window(raw), nil
	case "":
		return WindowAllTime, nil
	}
	return "", ErrUnknownWindow
}
