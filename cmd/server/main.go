package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"studyhub-backend/internal/config"
	"studyhub-backend/internal/database"
	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/quiz"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/router"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/store"
	"studyhub-backend/internal/websocket"
	"studyhub-backend/internal/worker"
)

// authRequestsPerMinute caps device registration and refresh per client.
const authRequestsPerMinute = 10

func main() {
	// ──── Step 1: Load Configuration ────
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting StudyHub backend", "env", cfg.Env, "storage", cfg.StorageType)

	// ──── Step 2: Open Storage ────
	kv, pubsub, closeStorage, err := openStorage(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("storage initialization failed", "error", err)
	}
	defer closeStorage()
	log.Info("storage ready", "backend", cfg.StorageType)

	registry := store.NewRegistry(kv, store.Options{Debounce: cfg.PersistDebounce, Log: log.With("component", "store")})

	// ──── Step 3: Initialize Generator ────
	var gen services.Generator = services.DisabledGenerator{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, log.With("component", "gemini"))
		if err != nil {
			log.Fatal("gemini client initialization failed", "error", err)
		}
		defer gemini.Close()
		gen = gemini
		log.Info("gemini client initialized", "model", cfg.GeminiModel)
	} else {
		log.Warn("GEMINI_API_KEY is not set; generation endpoints will answer 503")
	}

	// ──── Step 4: Start Generation Workers ────
	workerPool := worker.NewPool(log.With("component", "worker"), cfg.GenerationWorkers, cfg.GenerationQueueSize, cfg.GenerationTimeout)
	workerPool.Start()

	// ──── Step 5: Wire Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	wsHub := websocket.NewHub(pubsub, jwtAuth, log.With("component", "websocket"))

	sessions := quiz.NewManager(quiz.ManagerOptions{
		Runner:  workerPool,
		Log:     log.With("component", "quiz"),
		OnEvent: handlers.SessionEvents(wsHub),
	})
	authService := services.NewAuthService(kv, jwtAuth, cfg.AccessTokenTTL, log.With("component", "auth"))
	flashcards := services.NewFlashcardService(registry, log.With("component", "flashcards"))
	tracker := services.NewStudyTracker(registry, services.StudyTrackerOptions{Log: log.With("component", "study")})
	reminders := services.NewReminderScheduler(registry, wsHub, cfg.ReminderPollInterval, log.With("component", "reminders"))
	reminders.Start()

	// ──── Step 6: Initialize Handlers ────
	h := router.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		State:        handlers.NewStateHandler(registry),
		Flashcards:   handlers.NewFlashcardHandler(flashcards, registry, gen),
		Sessions:     handlers.NewSessionHandler(sessions, registry, gen),
		Exams:        handlers.NewExamHandler(sessions, registry, gen, cfg.GapAnalysisWindow),
		Lessons:      handlers.NewLessonHandler(registry, gen),
		Chat:         handlers.NewChatHandler(registry, gen),
		Mindmaps:     handlers.NewMindmapHandler(gen),
		Grades:       handlers.NewGradeHandler(registry, gen),
		Planner:      handlers.NewPlannerHandler(registry),
		StudySession: handlers.NewStudySessionHandler(tracker, registry),
	}
	authLimiter := middleware.NewRateLimiter(authRequestsPerMinute, time.Minute)
	generateLimiter := middleware.NewRateLimiter(cfg.GenerateRatePerMin, time.Minute)

	// ──── Step 7: Start HTTP Server ────
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(jwtAuth, h, wsHub, authLimiter, generateLimiter, cfg.FrontendURL, log.With("component", "http")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("StudyHub backend ready", "addr", server.Addr, "api", "/api/v1", "ws", "/api/v1/ws")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		reminders.Stop()
		tracker.Close()
		sessions.Close()
		workerPool.Stop()
		wsHub.Close()
		authLimiter.Stop()
		generateLimiter.Stop()
		if cerr := registry.Close(shutdownCtx); cerr != nil {
			log.Error("failed to flush workspaces", "error", cerr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// openStorage connects the configured key-value backend. The returned Redis
// client is non-nil only for the redis backend and carries live-update pub/sub.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.KVStore, *redis.Client, func(), error) {
	switch cfg.StorageType {
	case "redis":
		clients, err := database.NewRedisClients(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewRedisKV(clients.Store, cfg.StorageMaxValueBytes), clients.PubSub, func() { clients.Close() }, nil

	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir, log.With("component", "migrations")); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return repository.NewPostgresKV(pool, cfg.StorageMaxValueBytes), nil, pool.Close, nil

	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewSQLiteKV(db, cfg.StorageMaxValueBytes), nil, func() { db.Close() }, nil

	default:
		return repository.NewMemoryKV(cfg.StorageMaxValueBytes), nil, func() {}, nil
	}
}
