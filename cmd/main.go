package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canalyzer/internal/auth"
	"canalyzer/internal/config"
	httpserver "canalyzer/internal/http_server"
	"canalyzer/internal/lib/jwt"
	sl "canalyzer/internal/lib/logger"
	"canalyzer/internal/lib/password"
	"canalyzer/internal/mailer"
	"canalyzer/internal/rabbitmq"
	"canalyzer/internal/storage"
	"canalyzer/internal/storage/postgres"
	"canalyzer/internal/storage/redis"
	"canalyzer/internal/storage/sqlite"
	"canalyzer/internal/vision"
)

type store interface {
	auth.UserStore
	auth.TicketStore
	Close()
}

func main() {
	cfg := config.MustLoad()

	log := sl.Setup(cfg.Env)

	log.Info("starting canalyzer backend", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	err := run(ctx, cfg, log)
	cancel()

	if err != nil {
		log.Error("Main service failed", sl.Err(err))
		os.Exit(1)
	}

	log.Info("Main service stopped")
}

// run wires the service and serves until ctx is cancelled. Everything it
// opens is closed before it returns.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tokens, err := jwt.New(cfg.Tokens.Secret, cfg.Tokens.SessionTTL, cfg.Tokens.RememberMeTTL)
	if err != nil {
		return fmt.Errorf("JWT_SECRET must be set: %w", err)
	}

	db, err := setupStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var tickets auth.TicketStore = db

	if cfg.TicketStore == "redis" {
		redisRepo, err := redis.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		defer redisRepo.Close()

		tickets = redisRepo
	}

	notifier, closeNotifier, err := setupNotifier(cfg.Mail)
	if err != nil {
		return fmt.Errorf("failed to set up mail provider: %w", err)
	}
	defer closeNotifier()

	if cfg.AppBaseURL == "" {
		log.Warn("APP_BASE_URL is not set, registration will fail with APP_BASE_URL_MISSING")
	}

	authService := auth.New(
		log,
		db,
		tickets,
		password.NewBcryptHasher(cfg.Tokens.BcryptCost),
		tokens,
		notifier,
		cfg.AppBaseURL,
		cfg.Tokens.VerificationTTL,
	)

	var analyzer httpserver.Vision

	visionClient, err := vision.New(vision.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	})
	switch {
	case errors.Is(err, vision.ErrNotConfigured):
		log.Warn("OPENAI_API_KEY is not set, image analysis is disabled")
	case err != nil:
		return fmt.Errorf("failed to set up vision client: %w", err)
	default:
		analyzer = visionClient
	}

	router := httpserver.NewRouter(log, authService, analyzer, httpserver.Options{
		AllowedOrigins: cfg.HTTPServer.AllowedOrigins,
		RateLimit:      cfg.HTTPServer.RateLimitEnabled,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
		return nil
	}
}

func setupStore(ctx context.Context, databaseURL string) (store, error) {
	driver, dsn, err := storage.ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	if driver == storage.DriverPostgres {
		repo, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	repo, err := sqlite.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func setupNotifier(cfg config.Mail) (auth.Notifier, func(), error) {
	switch cfg.Provider {
	case "resend":
		m, err := mailer.NewResend(cfg.APIKey, cfg.From, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	case "smtp":
		return mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From, cfg.Timeout), func() {}, nil
	case "amqp":
		p, err := rabbitmq.New(cfg.AMQPURL, cfg.AMQPQueue, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.Provider)
	}
}
