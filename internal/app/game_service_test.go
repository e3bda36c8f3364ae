package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-mastery-service/internal/app"
	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/infra/memory"
	"quiz-mastery-service/internal/mastery"
)

func TestJoinAndScoring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(mastery.ScopeLifetime)

	if _, err := service.Join(ctx, "set-1", "u1", "Alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := service.Join(ctx, "set-1", "u2", "Bob"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	board, total, graded, err := service.SubmitAnswer(ctx, "set-1", "u2", domain.SubmittedAnswer{
		QuestionID: "q1",
		Text:       " Vitamin C! ", // free text, normalizes to a correct answer
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !graded.Correct || graded.Awarded != 10 || total != 10 {
		t.Fatalf("expected 10 points for difficulty-1 correct answer, got %+v total=%d", graded, total)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.Entries))
	}
	if board.Entries[0].UserID != "u2" || board.Entries[0].Score != 10 {
		t.Fatalf("expected Bob to lead with 10 points, got %+v", board.Entries[0])
	}
}

func TestSubmitGradesAllInputTypes(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(mastery.ScopeLifetime)
	_, _ = service.Join(ctx, "set-1", "u1", "Alice")

	_, _, graded, err := service.SubmitAnswer(ctx, "set-1", "u1", domain.SubmittedAnswer{QuestionID: "q2", Text: "4"})
	if err != nil {
		t.Fatalf("mc submit: %v", err)
	}
	if !graded.Correct {
		t.Fatalf("expected exact multiple-choice match to be correct")
	}

	_, _, graded, err = service.SubmitAnswer(ctx, "set-1", "u1", domain.SubmittedAnswer{QuestionID: "q3", Text: "ignore me; 2*(3+2)"})
	if err != nil {
		t.Fatalf("calc submit: %v", err)
	}
	if !graded.Correct || graded.Awarded != 20 {
		t.Fatalf("expected sanitized expression to earn 20 points, got %+v", graded)
	}

	_, _, graded, err = service.SubmitAnswer(ctx, "set-1", "u1", domain.SubmittedAnswer{QuestionID: "q3", Text: "not a number"})
	if err != nil {
		t.Fatalf("ungradable submit should not error: %v", err)
	}
	if graded.Correct || graded.Awarded != 0 {
		t.Fatalf("expected ungradable submission to be incorrect with 0 points, got %+v", graded)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(mastery.ScopeLifetime)

	if _, err := service.Join(ctx, "set-1", "u1", "Alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, "set-1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	<-ch // initial snapshot

	_, _, _, err = service.SubmitAnswer(ctx, "set-1", "u1", domain.SubmittedAnswer{QuestionID: "q1", Text: "vitamin c"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	update := <-ch
	if len(update.Entries) != 1 || update.Entries[0].Score != 10 {
		t.Fatalf("expected updated score 10, got %+v", update.Entries)
	}
}

func TestSubmitRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(mastery.ScopeLifetime)

	_, _, _, err := service.SubmitAnswer(ctx, "set-unknown", "u1", domain.SubmittedAnswer{QuestionID: "q1", Text: "x"})
	if err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	_, _, _, err = service.SubmitAnswer(ctx, "set-1", "u2", domain.SubmittedAnswer{QuestionID: "q1", Text: "x"})
	if err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant error, got %v", err)
	}

	_, _, _, err = service.SubmitAnswer(ctx, "set-1", "u1", domain.SubmittedAnswer{QuestionID: "q-unknown", Text: "x"})
	if err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question error, got %v", err)
	}
}

func TestCompleteGamePersistsMastery(t *testing.T) {
	ctx := context.Background()
	service, stats := newTestService(mastery.ScopeLifetime)

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	mustSubmit(t, service, "u1", "q1", "vitamin c") // nutrition, correct
	mustSubmit(t, service, "u1", "q2", "5")         // math, incorrect
	mustSubmit(t, service, "u1", "q3", "2*(3+2)")   // math, correct

	report, err := service.CompleteGame(ctx, "set-1", "u1")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if report.Score != 30 || report.CorrectAnswers != 2 || report.TotalQuestions != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Mastery["nutrition"] != 100 || report.Mastery["math"] != 50 {
		t.Fatalf("unexpected mastery: %+v", report.Mastery)
	}

	counts, err := stats.MasteryCounts(ctx, "u1")
	if err != nil {
		t.Fatalf("mastery counts: %v", err)
	}
	if counts["math"].Correct != 1 || counts["math"].Total != 2 {
		t.Fatalf("expected persisted math counts 1/2, got %+v", counts["math"])
	}

	// Lifetime scope folds the next game into the persisted counters.
	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	mustSubmit(t, service, "u1", "q3", "10") // math, correct
	report, err = service.CompleteGame(ctx, "set-1", "u1")
	if err != nil {
		t.Fatalf("second complete failed: %v", err)
	}
	if report.Mastery["math"] != 67 { // 2 of 3
		t.Fatalf("expected lifetime math mastery 67, got %d", report.Mastery["math"])
	}

	entries, err := service.Leaderboard(ctx, domain.WindowAllTime, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].TotalScore != 50 || entries[0].GamesPlayed != 2 {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}
}

func TestCompleteGameSessionScopeOverwrites(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(mastery.ScopeSession)

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	mustSubmit(t, service, "u1", "q3", "wrong") // math, incorrect
	if _, err := service.CompleteGame(ctx, "set-1", "u1"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	mustSubmit(t, service, "u1", "q3", "10") // math, correct
	report, err := service.CompleteGame(ctx, "set-1", "u1")
	if err != nil {
		t.Fatalf("second complete failed: %v", err)
	}
	if report.Mastery["math"] != 100 {
		t.Fatalf("session scope should forget the earlier miss, got %d", report.Mastery["math"])
	}

	profile, err := service.MasteryProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("mastery profile: %v", err)
	}
	if profile["math"] != 100 {
		t.Fatalf("expected overwritten profile, got %+v", profile)
	}
}

func TestCompleteGameRetriesAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	stats := &flakyStatsStore{StatsStore: memory.NewStatsStore(), failRecords: 1}
	service := newServiceWithStats(stats, mastery.ScopeLifetime)

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	mustSubmit(t, service, "u1", "q1", "vitamin c")

	if _, err := service.CompleteGame(ctx, "set-1", "u1"); err == nil {
		t.Fatalf("expected store failure")
	}

	// The session must survive the failed write so the client can retry.
	report, err := service.CompleteGame(ctx, "set-1", "u1")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if report.Score != 10 || report.Mastery["nutrition"] != 100 {
		t.Fatalf("unexpected report after retry: %+v", report)
	}

	entries, err := service.Leaderboard(ctx, domain.WindowAllTime, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].TotalScore != 10 || entries[0].GamesPlayed != 1 {
		t.Fatalf("unexpected leaderboard after retry: %+v", entries)
	}
}

func TestCompleteGameRetryDoesNotDoubleCountGame(t *testing.T) {
	ctx := context.Background()
	stats := &flakyStatsStore{StatsStore: memory.NewStatsStore(), failSaves: 1}
	service := newServiceWithStats(stats, mastery.ScopeLifetime)

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	mustSubmit(t, service, "u1", "q1", "vitamin c")

	// The game result lands, the mastery write fails.
	if _, err := service.CompleteGame(ctx, "set-1", "u1"); err == nil {
		t.Fatalf("expected store failure")
	}

	report, err := service.CompleteGame(ctx, "set-1", "u1")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if report.Mastery["nutrition"] != 100 {
		t.Fatalf("unexpected mastery after retry: %+v", report.Mastery)
	}

	counts, err := stats.MasteryCounts(ctx, "u1")
	if err != nil {
		t.Fatalf("mastery counts: %v", err)
	}
	if counts["nutrition"].Correct != 1 || counts["nutrition"].Total != 1 {
		t.Fatalf("retry double counted mastery: %+v", counts["nutrition"])
	}

	entries, err := service.Leaderboard(ctx, domain.WindowAllTime, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].GamesPlayed != 1 || entries[0].TotalScore != 10 {
		t.Fatalf("retry double counted the game: %+v", entries)
	}
}

func TestCompleteGameRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(mastery.ScopeLifetime)

	_, err := service.CompleteGame(ctx, "set-1", "u1")
	if err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}

	_, _ = service.Join(ctx, "set-1", "u1", "Alice")
	_, err = service.CompleteGame(ctx, "set-1", "u2")
	if err != domain.ErrParticipantNotFound {
		t.Fatalf("expected participant error, got %v", err)
	}
}

func mustSubmit(t *testing.T, service *app.GameService, userID, questionID, text string) {
	t.Helper()
	if _, _, _, err := service.SubmitAnswer(context.Background(), "set-1", userID, domain.SubmittedAnswer{
		QuestionID: questionID,
		Text:       text,
	}); err != nil {
		t.Fatalf("submit %s: %v", questionID, err)
	}
}

func newTestService(scope mastery.Scope) (*app.GameService, *memory.StatsStore) {
	stats := memory.NewStatsStore()
	return newServiceWithStats(stats, scope), stats
}

func newServiceWithStats(stats app.StatsStore, scope mastery.Scope) *app.GameService {
	sessionStore := memory.NewSessionStore()
	questionRepo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(testQuestionSets()), 5*time.Minute)
	return app.NewGameService(sessionStore, questionRepo, stats, scope)
}

// flakyStatsStore fails a configurable number of writes, then delegates.
type flakyStatsStore struct {
	*memory.StatsStore
	failSaves   int
	failRecords int
}

func (f *flakyStatsStore) SaveMastery(ctx context.Context, userID string, state map[domain.Category]mastery.Counts) error {
	if f.failSaves > 0 {
		f.failSaves--
		return errors.New("stats store unavailable")
	}
	return f.StatsStore.SaveMastery(ctx, userID, state)
}

func (f *flakyStatsStore) RecordGame(ctx context.Context, result domain.GameResult) error {
	if f.failRecords > 0 {
		f.failRecords--
		return errors.New("stats store unavailable")
	}
	return f.StatsStore.RecordGame(ctx, result)
}

func testQuestionSets() map[string]domain.QuestionSet {
	ten := 10.0
	return map[string]domain.QuestionSet{
		"set-1": {
			ID: "set-1",
			Questions: []domain.Question{
				{
					ID:         "q1",
					Prompt:     "Which vitamin is abundant in oranges?",
					Category:   "nutrition",
					Difficulty: 1,
					InputType:  domain.InputFreeText,
					Expected:   []string{"vitamin c", "ascorbic acid"},
				},
				{
					ID:         "q2",
					Prompt:     "What is 2 + 2?",
					Category:   "math",
					Difficulty: 1,
					InputType:  domain.InputMultipleChoice,
					Expected:   []string{"4"},
				},
				{
					ID:         "q3",
					Prompt:     "Write an expression that equals 10.",
					Category:   "math",
					Difficulty: 2,
					InputType:  domain.InputCalculation,
					Target:     &ten,
				},
			},
		},
	}
}
