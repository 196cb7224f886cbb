package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/rosaine-academy/backend/internal/api"
	"github.com/rosaine-academy/backend/internal/assistant"
	"github.com/rosaine-academy/backend/internal/auth"
	"github.com/rosaine-academy/backend/internal/config"
	"github.com/rosaine-academy/backend/internal/database"
	"github.com/rosaine-academy/backend/internal/events"
	"github.com/rosaine-academy/backend/internal/llm"
	"github.com/rosaine-academy/backend/internal/middleware"
	"github.com/rosaine-academy/backend/internal/quota"
	iredis "github.com/rosaine-academy/backend/internal/redis"
	"github.com/rosaine-academy/backend/internal/server"
	"github.com/rosaine-academy/backend/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional: without it events are dropped.
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())
	} else {
		slog.Warn("NATS not configured, events disabled")
	}

	// Gemini
	gemini, err := llm.NewClient(ctx, cfg.Gemini)
	if err != nil {
		slog.Error("creating gemini client", "error", err)
		os.Exit(1)
	}
	defer gemini.Close()

	// Quota
	quotaRepo := quota.NewRepository(pool)
	planRepo := quota.NewPlanRepository(pool)
	quotaSvc := quota.NewService(quotaRepo, quota.NewResolver(planRepo))
	quotaHandler := quota.NewHandler(quotaSvc, publisher)

	// Assistants
	assistantHandler := assistant.NewHandler(quotaSvc, gemini, publisher)

	// Transcripts
	transcriptSvc := transcript.NewService(
		transcript.NewFetcher(),
		transcript.NewMathFormatter(gemini),
		transcript.NewCache(redisClient, cfg.Transcript.CacheTTL),
	)
	transcriptHandler := transcript.NewHandler(transcriptSvc)

	// Auth
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec)

	// Router
	router := api.NewRouter(pool, redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:        rateLimiter.Middleware,
	}, api.HandlerSet{
		GetQuota:   quotaHandler.GetStatus,
		UpdatePlan: quotaHandler.UpdatePlan,

		VideoAssistant: assistantHandler.Video,
		ExoAssistant:   assistantHandler.Exo,
		ImageAssistant: assistantHandler.Image,

		GetTranscript: transcriptHandler.Get,

		AuthMiddleware: auth.Middleware(verifier),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
