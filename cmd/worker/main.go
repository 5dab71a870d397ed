package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/colemurrin/pricewatch/internal/background"
	"github.com/colemurrin/pricewatch/internal/config"
	"github.com/colemurrin/pricewatch/internal/database"
	"github.com/colemurrin/pricewatch/internal/repositories"
	"github.com/colemurrin/pricewatch/internal/scrape"
	"github.com/colemurrin/pricewatch/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db)
	itemRepo := repositories.NewWatchlistRepository(db)
	runRepo := repositories.NewPriceCheckRepository(db)

	var email services.EmailSender
	if cfg.Email.FromAddress == "" && cfg.Auth.DevMode {
		email = services.NewLogEmailSender(logger)
	} else {
		email, err = services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email delivery", slog.Any("error", err))
			os.Exit(1)
		}
	}

	checks := services.NewCheckService(itemRepo, runRepo, userRepo, scrape.NewPageScraper(), email, logger)
	checker := background.NewChecker(itemRepo, checks, cfg.Worker.CheckInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker.Run(ctx)
}
