package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"adaptive-quiz-engine/internal/app"
	"adaptive-quiz-engine/internal/config"
	"adaptive-quiz-engine/internal/domain"
	"adaptive-quiz-engine/internal/infra/memory"
	pginfra "adaptive-quiz-engine/internal/infra/postgres"
	redisinfra "adaptive-quiz-engine/internal/infra/redis"
	transport "adaptive-quiz-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the engine.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// engineStore is the full persistence surface the app layer needs; both the
// memory and postgres stores satisfy it.
type engineStore interface {
	app.UserRepository
	app.AttemptRepository
	app.HistoryRepository
	app.SessionRepository
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

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	policy := policyFromConfig(cfg)
	catalogTTL := config.TTLDuration(cfg.Cache.CatalogTTL, 10*time.Minute)
	leaderboardTTL := config.TTLDuration(cfg.Cache.LeaderboardTTL, 30*time.Second)
	freshness := config.TTLDuration(cfg.Quiz.HistoryFreshness, 0)

	var store engineStore
	var catalog app.CatalogRepository
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB := bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()

		store = pginfra.NewStore(bunDB, policy.Ladder)
		loader := pginfra.NewCatalogLoader(pool)
		if redisClient != nil {
			catalog = redisinfra.NewCatalogCache(redisClient, loader, catalogTTL)
		} else {
			catalog = memory.NewCatalogCache(loader, catalogTTL)
		}
	} else {
		log.Printf("no postgres url configured, running with in-memory sample catalog")
		memStore := memory.NewStore(policy.Ladder)
		static := sampleCatalog()
		memStore.SetChapterNames(static.ChapterNames())
		store = memStore
		catalog = static
	}

	selector := app.NewSelector(catalog, store, freshness)
	recorder := app.NewRecorder(store)
	sessions := app.NewSessionManager(store, store, catalog, selector, recorder, policy)
	stats := app.NewStatsService(store, store, policy.Ladder)

	var leaderboard app.LeaderboardProvider = app.NewLeaderboardAggregator(store, store)
	if redisClient != nil {
		leaderboard = redisinfra.NewLeaderboardCache(redisClient, leaderboard, leaderboardTTL)
	}

	wsHandler := transport.NewWSHandler(sessions, leaderboard, stats, catalog)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz engine on :%s", finalPort)
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

func policyFromConfig(cfg config.Config) app.Policy {
	policy := app.DefaultPolicy()
	if cfg.Quiz.DefaultQuestions > 0 {
		policy.DefaultQuestions = cfg.Quiz.DefaultQuestions
	}
	if cfg.Quiz.RaiseStreak > 0 {
		policy.RaiseStreak = cfg.Quiz.RaiseStreak
	}
	if cfg.Quiz.PointsEasy > 0 {
		policy.PointsByDifficulty[1] = cfg.Quiz.PointsEasy
	}
	if cfg.Quiz.PointsMedium > 0 {
		policy.PointsByDifficulty[2] = cfg.Quiz.PointsMedium
	}
	if cfg.Quiz.PointsHard > 0 {
		policy.PointsByDifficulty[3] = cfg.Quiz.PointsHard
	}
	if cfg.Quiz.TimeBonusCeiling > 0 {
		policy.TimeBonusCeiling = cfg.Quiz.TimeBonusCeiling
	}
	if cfg.Quiz.TimeBonusFastAvg > 0 {
		policy.TimeBonusFastAvg = cfg.Quiz.TimeBonusFastAvg
	}
	if age := config.TTLDuration(cfg.Quiz.SessionMaxAge, 0); age > 0 {
		policy.SessionMaxAge = age
	}
	return policy
}

// sampleCatalog provides a minimal chapter for running without a database.
func sampleCatalog() *memory.StaticCatalog {
	chapters := []domain.Chapter{
		{ChapterID: 1, Name: "General Knowledge", Description: "Warm-up questions"},
	}
	questions := []domain.Question{
		{QuestionID: 1, ChapterID: 1, Text: "What is 2 + 2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "22", CorrectOption: "B", Difficulty: 1},
		{QuestionID: 2, ChapterID: 1, Text: "Which planet is known as the Red Planet?", OptionA: "Venus", OptionB: "Jupiter", OptionC: "Mars", OptionD: "Saturn", CorrectOption: "C", Difficulty: 1},
		{QuestionID: 3, ChapterID: 1, Text: "What is the square root of 144?", OptionA: "10", OptionB: "11", OptionC: "12", OptionD: "14", CorrectOption: "C", Difficulty: 2},
		{QuestionID: 4, ChapterID: 1, Text: "Which gas makes up most of Earth's atmosphere?", OptionA: "Oxygen", OptionB: "Nitrogen", OptionC: "Carbon dioxide", OptionD: "Argon", CorrectOption: "B", Difficulty: 2},
		{QuestionID: 5, ChapterID: 1, Text: "In which year did the Berlin Wall fall?", OptionA: "1987", OptionB: "1989", OptionC: "1991", OptionD: "1993", CorrectOption: "B", Difficulty: 3},
	}
	return memory.NewStaticCatalog(chapters, questions)
}
