package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bluedeem/clinic-ai-platform/internal/api/router"
	"github.com/bluedeem/clinic-ai-platform/internal/booking"
	appconfig "github.com/bluedeem/clinic-ai-platform/internal/config"
	"github.com/bluedeem/clinic-ai-platform/internal/conversation"
	"github.com/bluedeem/clinic-ai-platform/internal/http/handlers"
	"github.com/bluedeem/clinic-ai-platform/internal/llm"
	"github.com/bluedeem/clinic-ai-platform/internal/observability/metrics"
	"github.com/bluedeem/clinic-ai-platform/internal/platform"
	"github.com/bluedeem/clinic-ai-platform/internal/refdata"
	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Warn("invalid clinic timezone, using UTC", "timezone", cfg.ClinicTimezone)
		loc = time.UTC
	}

	// Reference data: warm once, then refresh on a ticker.
	provider := refdata.NewProvider(refdata.NewCSVSource(cfg.DataDir), logger)
	if err := provider.Refresh(ctx); err != nil {
		logger.Error("initial reference data load failed", "error", err)
	}
	go provider.Run(ctx, cfg.RefreshInterval)

	var llmClient llm.Client
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gemini.Close() }()
		llmClient = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, LLM fallback disabled")
	}

	routerMetrics := metrics.NewRouterMetrics(prometheus.DefaultRegisterer)

	engine := conversation.NewEngine(conversation.EngineConfig{
		Logger:          logger,
		Redis:           redisClient,
		LLM:             llmClient,
		Provider:        provider,
		Reservations:    booking.NewRepository(pool),
		Metrics:         routerMetrics,
		RateLimit:       cfg.RateLimitPerMinute,
		DedupTTL:        cfg.DedupTTL,
		SessionIdle:     cfg.SessionIdleTimeout,
		HistoryTurns:    cfg.HistoryTurns,
		ClassifyTimeout: cfg.ClassifyTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
		Timezone:        loc,
	})

	adapters := []platform.Adapter{
		platform.NewWhatsApp(cfg.WhatsAppAccessToken, cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, cfg.WhatsAppPhoneNumberID),
		platform.NewInstagram(cfg.InstagramAccessToken, cfg.InstagramVerifyToken, cfg.InstagramAppSecret),
		platform.NewTikTok(cfg.TikTokAccessToken, cfg.TikTokVerifyToken, cfg.TikTokClientSecret),
	}

	webhooks := handlers.NewWebhookHandler(engine, adapters, logger, routerMetrics)
	r := router.New(&router.Config{
		Logger:         logger,
		Webhooks:       webhooks,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
