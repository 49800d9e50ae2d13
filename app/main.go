package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"BunOfTheDayBot/internal/config"
	"BunOfTheDayBot/internal/game"
	"BunOfTheDayBot/internal/graceful"
	"BunOfTheDayBot/internal/humor"
	"BunOfTheDayBot/internal/repositories"
	"BunOfTheDayBot/internal/scheduler"
	"BunOfTheDayBot/internal/telegram"
	"BunOfTheDayBot/internal/utils/logger/handlers/slogpretty"
	"BunOfTheDayBot/internal/utils/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info(
		"starting bun of the day bot",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
	)

	repositoryService := repositories.New(log, cfg)
	gameService := game.New(log, repositoryService)
	humorGenerator := humor.New(log, cfg.OpenRouter.ApiToken, cfg.OpenRouter.Model)
	auth := telegram.NewSingleAdmin(cfg.BotConfig.AdminID)

	tgBot := telegram.New(log, cfg, repositoryService, gameService, humorGenerator, auth)
	if tgBot == nil {
		os.Exit(1)
	}

	schedulerService, err := scheduler.New(log, cfg.Schedule, tgBot)
	if err != nil {
		log.Error("error creating scheduler", sl.Err(err))
		os.Exit(1)
	}
	tgBot.SetScheduler(schedulerService)

	if err := schedulerService.Start(); err != nil {
		log.Error("error starting scheduler", sl.Err(err))
		os.Exit(1)
	}

	maxSecond := 15 * time.Second
	waitShutdown := graceful.GracefulShutdown(
		context.Background(),
		maxSecond,
		map[string]graceful.Operation{
			"Repository service": func(ctx context.Context) error {
				return repositoryService.Shutdown(ctx)
			},
			"Telegram bot": func(ctx context.Context) error {
				return tgBot.Shutdown(ctx)
			},
			"Scheduler": func(ctx context.Context) error {
				return schedulerService.Shutdown(ctx)
			},
		},
		log,
	)

	go tgBot.Start(30)

	<-waitShutdown
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(slog.LevelDebug)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}
	handler := opts.NewPrettyHandler(os.Stdout)
	return slog.New(handler)
}
