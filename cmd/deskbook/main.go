package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"deskbook/internal/booking"
	"deskbook/internal/calendar"
	"deskbook/internal/config"
	"deskbook/internal/deskapi"
	"deskbook/internal/directory"
	"deskbook/internal/metrics"
	"deskbook/internal/web"
)

const cleanupInterval = 5 * time.Minute

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("DESKBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = logger.Level(cfg.LogLevel())

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid timezone")
	}

	client := deskapi.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.APITimeout())
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	dir := directory.New(client, &logger)
	sessions := booking.NewSessionStore(cfg.SessionTimeout())
	workflow := booking.NewWorkflow(client, dir, &logger)

	perMinute, burst := cfg.RateLimitPerMinute()
	server := web.NewServer(web.Options{
		Addr:              cfg.Server.Address,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		CookieName:        cfg.Session.CookieName,
		SecureCookie:      cfg.Session.SecureCookie,
		RequestsPerMinute: perMinute,
		Burst:             burst,
		TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
	}, workflow, dir, sessions, calendar.SystemClock{Location: loc}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the directory; the first page load retries on failure.
	if err := dir.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Str("base_url", cfg.API.BaseURL).Msg("booking service not reachable at startup")
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, client, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go startCleanupLoop(ctx, sessions, server, cfg.SessionTimeout(), &logger)

	logger.Info().Str("booking_service", cfg.API.BaseURL).Msg("deskbook started")
	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("web server error")
	}
}

func startCleanupLoop(ctx context.Context, sessions *booking.SessionStore, server *web.Server, idle time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := sessions.Cleanup()
			limiters := server.CleanupLimiters(idle)
			if removed > 0 || limiters > 0 {
				logger.Debug().Int("sessions", removed).Int("limiters", limiters).Msg("expired entries removed")
			}
		case <-ctx.Done():
			return
		}
	}
}

func startHealthServer(ctx context.Context, port int, client *deskapi.Client, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "booking service not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
