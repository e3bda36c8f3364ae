package app

import (
	"context"
	"time"

	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/grading"
	"quiz-mastery-service/internal/leaderboard"
	"quiz-mastery-service/internal/mastery"
)

// SessionRepository abstracts how game sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(setID string) *GameSession
	Get(setID string) (*GameSession, bool)
	DeleteIfEmpty(setID string)
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// StatsStore persists per-user mastery counters and completed game results.
// Serializing concurrent updates for one user is the store's responsibility.
type StatsStore interface {
	MasteryCounts(ctx context.Context, userID string) (map[domain.Category]mastery.Counts, error)
	SaveMastery(ctx context.Context, userID string, state map[domain.Category]mastery.Counts) error
	RecordGame(ctx context.Context, result domain.GameResult) error
	TopPlayers(ctx context.Context, window domain.Window) ([]domain.PlayerStats, error)
}

// MasteryReport summarizes one completed game for the player.
type MasteryReport struct {
	GameID         string                  `json:"gameId"`
	Score          int                     `json:"score"`
	CorrectAnswers int                     `json:"correctAnswers"`
	TotalQuestions int                     `json:"totalQuestions"`
	Mastery        map[domain.Category]int `json:"mastery"`
}

// GameService contains the core game use cases.
type GameService struct {
	sessions  SessionRepository
	questions QuestionRepository
	stats     StatsStore
	scope     mastery.Scope
}

func NewGameService(sessions SessionRepository, questions QuestionRepository, stats StatsStore, scope mastery.Scope) *GameService {
	return &GameService{sessions: sessions, questions: questions, stats: stats, scope: scope}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *GameSession {
	return newSession(id)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, now func() time.Time) *GameSession {
	return newSessionWithClock(id, now)
}

// Join registers or refreshes a participant in a game session.
func (s *GameService) Join(ctx context.Context, setID, userID, displayName string) (domain.Scoreboard, error) {
	// Preload the set into cache; users cannot join unknown question sets.
	if _, err := s.questions.GetQuestionSet(ctx, setID); err != nil {
		return domain.Scoreboard{}, err
	}

	session := s.sessions.GetOrCreate(setID)
	return session.join(userID, displayName), nil
}

// SubmitAnswer grades a submission, updates the participant's running score,
// and broadcasts the live scoreboard.
func (s *GameService) SubmitAnswer(ctx context.Context, setID, userID string, submission domain.SubmittedAnswer) (domain.Scoreboard, int, domain.GradedAnswer, error) {
	session, ok := s.sessions.Get(setID)
	if !ok {
		return domain.Scoreboard{}, 0, domain.GradedAnswer{}, domain.ErrSessionNotFound
	}

	set, err := s.questions.GetQuestionSet(ctx, setID)
	if err != nil {
		return domain.Scoreboard{}, 0, domain.GradedAnswer{}, err
	}

	question, err := findQuestion(set, submission.QuestionID)
	if err != nil {
		return domain.Scoreboard{}, 0, domain.GradedAnswer{}, err
	}

	result, err := grading.Grade(question, submission.Text)
	if err != nil {
		return domain.Scoreboard{}, 0, domain.GradedAnswer{}, err
	}

	graded := grading.Apply(question, result)
	board, total, err := session.applyAnswer(userID, graded)
	if err != nil {
		return domain.Scoreboard{}, 0, domain.GradedAnswer{}, err
	}
	return board, total, graded, nil
}

// CompleteGame finalizes a participant's run: folds the session's graded
// answers into mastery counters per the configured scope, persists the game
// result and the updated counters, and removes the participant. The session
// state is snapshotted and left in place until both store writes succeed, so
// a transient store failure can be retried with another complete. RecordGame
// is keyed by game id and ignores replays, which keeps the retry from double
// counting a game whose result landed before the mastery write failed.
func (s *GameService) CompleteGame(ctx context.Context, setID, userID string) (MasteryReport, error) {
	session, ok := s.sessions.Get(setID)
	if !ok {
		return MasteryReport{}, domain.ErrSessionNotFound
	}

	participant, err := session.snapshot(userID)
	if err != nil {
		return MasteryReport{}, err
	}

	correct := 0
	for _, answer := range participant.Graded {
		if answer.Correct {
			correct++
		}
	}
	result := domain.GameResult{
		GameID:         participant.GameID,
		UserID:         participant.UserID,
		DisplayName:    participant.DisplayName,
		Score:          participant.Score,
		CorrectAnswers: correct,
		TotalQuestions: len(participant.Graded),
		PlayedAt:       participant.LastUpdated,
	}
	if err := s.stats.RecordGame(ctx, result); err != nil {
		return MasteryReport{}, err
	}

	start := map[domain.Category]mastery.Counts{}
	if s.scope == mastery.ScopeLifetime {
		start, err = s.stats.MasteryCounts(ctx, userID)
		if err != nil {
			return MasteryReport{}, err
		}
	}
	state := mastery.Fold(start, participant.Graded)
	if err := s.stats.SaveMastery(ctx, userID, state); err != nil {
		return MasteryReport{}, err
	}

	session.leave(userID)
	if session.isEmpty() {
		s.sessions.DeleteIfEmpty(setID)
	}

	return MasteryReport{
		GameID:         participant.GameID,
		Score:          participant.Score,
		CorrectAnswers: correct,
		TotalQuestions: len(participant.Graded),
		Mastery:        mastery.Percentages(state),
	}, nil
}

// Subscribe returns a channel that receives scoreboard updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, setID string) (<-chan domain.Scoreboard, func(), error) {
	session, ok := s.sessions.Get(setID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave removes a participant without completing their game and drops the
// session if empty.
func (s *GameService) Leave(_ context.Context, setID, userID string) {
	session, ok := s.sessions.Get(setID)
	if !ok {
		return
	}
	session.leave(userID)
	if session.isEmpty() {
		s.sessions.DeleteIfEmpty(setID)
	}
}

// Leaderboard ranks the pre-aggregated stats for one time window.
func (s *GameService) Leaderboard(ctx context.Context, window domain.Window, limit int) ([]leaderboard.Entry, error) {
	rows, err := s.stats.TopPlayers(ctx, window)
	if err != nil {
		return nil, err
	}
	return leaderboard.Rank(rows, limit)
}

// MasteryProfile returns a user's current per-category mastery percentages.
func (s *GameService) MasteryProfile(ctx context.Context, userID string) (map[domain.Category]int, error) {
	state, err := s.stats.MasteryCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mastery.Percentages(state), nil
}

func findQuestion(set domain.QuestionSet, questionID string) (domain.Question, error) {
	for i := range set.Questions {
		if set.Questions[i].ID == questionID {
			return set.Questions[i], nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}
