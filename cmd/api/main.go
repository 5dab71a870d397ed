package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/background"
	"github.com/colemurrin/pricewatch/internal/config"
	"github.com/colemurrin/pricewatch/internal/database"
	"github.com/colemurrin/pricewatch/internal/handlers"
	appmiddleware "github.com/colemurrin/pricewatch/internal/middleware"
	"github.com/colemurrin/pricewatch/internal/repositories"
	"github.com/colemurrin/pricewatch/internal/routes"
	"github.com/colemurrin/pricewatch/internal/scrape"
	"github.com/colemurrin/pricewatch/internal/services"
	pkghttp "github.com/colemurrin/pricewatch/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := database.Migrate(cfg.Database.DSN()); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	codeRepo := repositories.NewAuthCodeRepository(db)
	sessionRepo := repositories.NewAuthSessionRepository(db)
	attemptRepo := repositories.NewOtpAttemptRepository(db)
	itemRepo := repositories.NewWatchlistRepository(db)
	runRepo := repositories.NewPriceCheckRepository(db)

	// Delivery
	email, err := newEmailSender(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email delivery", slog.Any("error", err))
		os.Exit(1)
	}
	sms := services.NewTwilioSMSService(cfg.SMS, logger)

	// Services
	attempts := services.NewAttemptService(attemptRepo, services.AttemptConfig{
		MaxAttempts:   cfg.Auth.OTPMaxAttempts,
		Window:        cfg.Auth.OTPWindow,
		BlockDuration: cfg.Auth.OTPBlockDuration,
	}, logger)
	codes := services.NewCodeService(codeRepo, logger, cfg.Auth.CodeTTL)
	sessions := services.NewSessionService(sessionRepo, userRepo, logger, cfg.Auth.SessionTTL)
	authFlow := services.NewAuthService(userRepo, attempts, codes, sessions, email, sms, logger, cfg.Auth.DevMode)
	watchlist := services.NewWatchlistService(itemRepo, runRepo, logger)
	checks := services.NewCheckService(itemRepo, runRepo, userRepo, scrape.NewPageScraper(), email, logger)

	// Handlers
	cookies := auth.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	h := routes.Handlers{
		Auth:      handlers.NewAuthHandler(authFlow, cookies, cfg.Auth.SessionTTL, ipConfig, logger),
		Users:     handlers.NewUserHandler(),
		Watchlist: handlers.NewWatchlistHandler(watchlist, checks, logger),
		Health:    handlers.NewHealthHandler(db),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	corsConfig := appmiddleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	r.Use(appmiddleware.CORS(corsConfig))
	r.Use(appmiddleware.SecureLogger(logger))

	routes.Register(r, h, sessions, cfg.Auth.CookieName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session and attempt-counter garbage collection runs inside the
	// API process; item re-checking lives in cmd/worker.
	cleanup := background.NewCleanupManager(sessionRepo, attemptRepo, cfg.Auth.CleanupInterval, logger)
	go cleanup.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newEmailSender(cfg *config.Config, logger *slog.Logger) (services.EmailSender, error) {
	if cfg.Email.FromAddress == "" && cfg.Auth.DevMode {
		return services.NewLogEmailSender(logger), nil
	}
	return services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
