package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-mastery-service/internal/app"
	"quiz-mastery-service/internal/config"
	"quiz-mastery-service/internal/domain"
	"quiz-mastery-service/internal/infra/memory"
	pginfra "quiz-mastery-service/internal/infra/postgres"
	redisinfra "quiz-mastery-service/internal/infra/redis"
	"quiz-mastery-service/internal/mastery"
	transport "quiz-mastery-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	scope, err := mastery.ParseScope(cfg.Grading.MasteryScope)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, questionTTL)
	}

	var sessionStore app.SessionRepository
	if redisClient != nil {
		sessionStore = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessionStore = memory.NewSessionStore()
	}

	var statsStore app.StatsStore
	switch {
	case pool != nil:
		statsStore = pginfra.NewStatsStore(pool)
	case redisClient != nil:
		statsStore = redisinfra.NewStatsStore(redisClient)
	default:
		statsStore = memory.NewStatsStore()
	}

	service := app.NewGameService(sessionStore, questionRepo, statsStore, scope)
	wsHandler := transport.NewWSHandler(service)
	apiHandler := transport.NewAPIHandler(service, cfg.Leaderboard.DefaultLimit)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/leaderboard", apiHandler.ServeLeaderboard)
	mux.HandleFunc("/mastery", apiHandler.ServeMastery)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz mastery service on :%s (scope=%s)", finalPort, scope)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionSets provides minimal demo data covering the three grading
// modes; swap the loader with a Postgres-backed one in production.
func sampleQuestionSets() map[string]domain.QuestionSet {
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
