package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/advisorhq/lead-intake-platform/internal/api/router"
	appconfig "github.com/advisorhq/lead-intake-platform/internal/config"
	"github.com/advisorhq/lead-intake-platform/internal/intake"
	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/internal/notify"
	"github.com/advisorhq/lead-intake-platform/internal/observability/metrics"
	"github.com/advisorhq/lead-intake-platform/internal/qualify"
	"github.com/advisorhq/lead-intake-platform/internal/statscache"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appconfig.Load()
	if err != nil {
		logging.Default().Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	repo := leads.NewPostgresRepository(pool)

	reg := prometheus.NewRegistry()
	leadMetrics := metrics.NewLeadMetrics(reg)

	qualifier := qualify.New(buildTextClient(ctx, cfg, logger), cfg.QualifierTimeout, logger, leadMetrics)
	notifier := notify.NewHotLeadNotifier(buildEmailSender(ctx, cfg, logger), cfg.NotificationEmail, logger)

	statsCache := statscache.New(repo, buildRedisClient(ctx, cfg, logger), cfg.StatsCacheTTL, logger)
	pipeline := intake.New(repo, qualifier, notifier, statsCache, logger, leadMetrics)

	leadsHandler := leads.NewHandler(pipeline, repo, statsCache, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LeadRateLimitRPS:   cfg.LeadRateLimitRPS,
		LeadRateLimitBurst: cfg.LeadRateLimitBurst,
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildTextClient returns the Gemini client, or the disabled client when
// no API key is configured so intake keeps working on the fallback
// qualification.
func buildTextClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) qualify.TextClient {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; all leads will receive the fallback qualification")
		return qualify.DisabledClient{}
	}
	client, err := qualify.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("failed to create gemini client, qualification disabled", "error", err)
		return qualify.DisabledClient{}
	}
	return client
}

func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, falling back to stub sender", "error", err)
			return notify.NewStubEmailSender(logger)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("SENDGRID_API_KEY not set; hot-lead notifications disabled")
		return notify.NewStubEmailSender(logger)
	}
}

// buildRedisClient returns a verified Redis client or nil when the cache
// is disabled or unreachable.
func buildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, stats cache disabled", "error", err)
		return nil
	}
	return client
}
