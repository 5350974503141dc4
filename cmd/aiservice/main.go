package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toolfinder/ai-service/internal/alert"
	"github.com/toolfinder/ai-service/internal/api"
	"github.com/toolfinder/ai-service/internal/cache"
	"github.com/toolfinder/ai-service/internal/circuitbreaker"
	"github.com/toolfinder/ai-service/internal/config"
	"github.com/toolfinder/ai-service/internal/executor"
	"github.com/toolfinder/ai-service/internal/metrics"
	"github.com/toolfinder/ai-service/internal/provider/bedrock"
	"github.com/toolfinder/ai-service/internal/provider/openrouter"
	"github.com/toolfinder/ai-service/internal/ratelimit"
	"github.com/toolfinder/ai-service/internal/secrets"
	"github.com/toolfinder/ai-service/internal/service"
	"github.com/toolfinder/ai-service/internal/telemetry"
	"github.com/toolfinder/ai-service/internal/usage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg.LogLevel)

	slog.Info("starting toolfinder AI service", "addr", cfg.Addr, "version", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, "toolfinder-ai", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(ctx)

	if cfg.APIKey == "" && cfg.APIKeySecretName != "" {
		store, err := secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to create secrets manager client", "error", err)
			os.Exit(1)
		}
		cfg.APIKey, err = store.GetSecret(ctx, cfg.APIKeySecretName)
		if err != nil {
			slog.Error("failed to load API key from secrets manager", "error", err)
			os.Exit(1)
		}
		slog.Info("loaded API key from secrets manager", "secret", cfg.APIKeySecretName)
	}

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitMax, cfg.RateLimitWindow)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.Info("using redis rate limiter")
	} else {
		limiter = ratelimit.NewSlidingWindow(cfg.RateLimitMax, cfg.RateLimitWindow)
		slog.Info("using in-memory rate limiter")
	}

	var responseCache cache.Cache
	if cfg.RedisURL != "" {
		responseCache, err = cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to connect to redis for cache, using in-memory", "error", err)
			responseCache = cache.NewInMemoryCache()
		} else {
			slog.Info("using redis cache")
		}
	} else {
		responseCache = cache.NewInMemoryCache()
		slog.Info("using in-memory cache")
	}

	primary := openrouter.New(openrouter.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Referer: cfg.RefererURL,
		Title:   cfg.AppTitle,
	}, nil)

	var fallback executor.Provider
	if cfg.BedrockEnabled {
		fallback, err = bedrock.New(ctx, cfg.AWSRegion, cfg.BedrockModel)
		if err != nil {
			slog.Warn("failed to configure bedrock fallback", "error", err)
			fallback = nil
		} else {
			slog.Info("registered fallback provider", "provider", "bedrock", "model", cfg.BedrockModel)
		}
	}

	var notifier alert.Notifier
	if cfg.SNSTopicArn != "" {
		notifier, err = alert.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicArn)
		if err != nil {
			slog.Warn("failed to configure SNS alerts", "error", err)
			notifier = nil
		}
	}

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(
		func() {
			metrics.SetCircuitBreakerState(primary.ID(), 2)
			slog.Warn("primary provider circuit opened")
			if notifier != nil {
				notifier.Send(ctx, alert.Event{
					Type:     alert.EventProviderDown,
					Provider: primary.ID(),
					Message:  "circuit breaker opened for the primary provider",
				})
			}
		},
		func() {
			metrics.SetCircuitBreakerState(primary.ID(), 0)
			slog.Info("primary provider circuit closed")
			if notifier != nil {
				notifier.Send(ctx, alert.Event{
					Type:     alert.EventProviderUp,
					Provider: primary.ID(),
					Message:  "circuit breaker closed, primary provider recovered",
				})
			}
		},
	)

	tracker, checkers := setupUsage(ctx, cfg)

	if cfg.RedisURL != "" {
		redisChecker, err := api.NewRedisHealthChecker(cfg.RedisURL)
		if err != nil {
			slog.Warn("failed to configure redis health check", "error", err)
		} else {
			checkers = append(checkers, redisChecker)
		}
	}

	svc, err := service.New(service.Deps{
		Config:   cfg,
		Limiter:  limiter,
		Primary:  primary,
		Fallback: fallback,
		Breaker:  breaker,
		Cache:    responseCache,
		Tracker:  tracker,
		Alerts:   notifier,
	})
	if err != nil {
		slog.Error("failed to create AI service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(api.HandlerConfig{
		Service:  svc,
		Breaker:  breaker,
		Checkers: checkers,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// setupUsage picks the usage sink: SQS when a queue is configured, then
// Postgres, then in-memory. Health checkers cover whichever backend is live.
func setupUsage(ctx context.Context, cfg *config.Config) (usage.Tracker, []api.HealthChecker) {
	var checkers []api.HealthChecker

	if cfg.UsageQueueURL != "" {
		tracker, err := usage.NewSQSTracker(ctx, cfg.AWSRegion, cfg.UsageQueueURL)
		if err != nil {
			slog.Warn("failed to configure SQS usage tracker", "error", err)
		} else {
			slog.Info("using SQS usage tracker", "queue", cfg.UsageQueueURL)
			return tracker, checkers
		}
	}

	if cfg.DatabaseURL != "" {
		tracker, err := usage.NewPostgresTracker(cfg.DatabaseURL)
		if err != nil {
			slog.Warn("failed to connect to postgres for usage tracking", "error", err)
		} else {
			slog.Info("using postgres usage tracker")
			checkers = append(checkers, api.NewPostgresHealthChecker(tracker.DB()))
			return tracker, checkers
		}
	}

	slog.Info("using in-memory usage tracker")
	return usage.NewInMemoryTracker(), checkers
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
