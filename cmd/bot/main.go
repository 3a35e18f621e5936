package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sixcontrol/moviebot/internal/config"
	"github.com/sixcontrol/moviebot/internal/database"
	"github.com/sixcontrol/moviebot/internal/jellyseerr"
	"github.com/sixcontrol/moviebot/internal/panel"
	"github.com/sixcontrol/moviebot/internal/repository"
	"github.com/sixcontrol/moviebot/internal/server"
	"github.com/sixcontrol/moviebot/internal/service"
	"github.com/sixcontrol/moviebot/internal/session"
	"github.com/sixcontrol/moviebot/internal/telegram"
	"github.com/sixcontrol/moviebot/internal/tmdb"
	"github.com/sixcontrol/moviebot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	panelClient := panel.NewClient(cfg, logr)
	jellyClient := jellyseerr.NewClient(cfg, logr)
	tmdbClient := tmdb.NewClient(cfg.TMDBAPIKey)

	userRepo := repository.NewUserRepository(db)
	requestLogRepo := repository.NewRequestLogRepository(db)
	loginAttemptRepo := repository.NewLoginAttemptRepository(db)

	sessionStore := session.NewMySQLStore(db, cfg.SessionTTL)
	cookieCodec, err := session.NewCookieCodec(cfg.SessionHashKey, cfg.SessionBlockKey, cfg.SecureCookies, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("session cookies: %v", err)
	}

	authService := service.NewAuthService(logr, panelClient, userRepo, loginAttemptRepo)
	requestService := service.NewRequestService(logr, jellyClient, userRepo, requestLogRepo)
	resetJob := service.NewCreditResetJob(logr, userRepo, sessionStore, cfg.CreditResetInterval)

	apiServer := server.New(cfg, logr, authService, requestService, requestLogRepo, jellyClient, tmdbClient, sessionStore, cookieCodec)

	go func() {
		if err := resetJob.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("credit reset job stopped", "err", err)
		}
	}()

	go func() {
		if err := apiServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("api server stopped", "err", err)
		}
	}()

	bot := telegram.NewBot(cfg, botAPI, logr)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
