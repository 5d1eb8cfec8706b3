package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/Josperdo/mjolnir/internal/app"
	"github.com/Josperdo/mjolnir/internal/app/cmdHandlers"
	"github.com/Josperdo/mjolnir/internal/config"
	"github.com/Josperdo/mjolnir/internal/logger"
	"github.com/Josperdo/mjolnir/internal/repository"
	"github.com/Josperdo/mjolnir/internal/service"
	"github.com/Josperdo/mjolnir/pkg/discord"
)

func main() {
	// Missing .env is fine; deployments can use real env vars instead.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))

	store, err := repository.NewPostgres(cfg.DBConnString)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := discord.NewClient(cfg.DiscordToken, cfg.GuildID, cfg.BridgeURL)

	playtime := service.NewPlaytimeService(store, store)
	watcher := service.NewWatcherService(store, store, store, store, store, playtime, client, client, log)
	tracker := service.NewTrackerService(store, store, store, store, watcher, log)
	stats := service.NewStatsService(store, store, store, store, store)
	recap := service.NewRecapService(store, store, store, client, log)
	users := service.NewUserService(store, store, client)
	admin := service.NewAdminService(store, store, store, store, store, store, users, stats, log)
	cmds := cmdHandlers.NewCmdHandler(users, stats, admin, client, log)

	application := app.New(client, tracker, recap, cmds, log)
	log.Info("mjolnir starting", "guild_id", cfg.GuildID)
	if err := application.Run(context.Background()); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}
