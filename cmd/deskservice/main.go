package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"deskbook/internal/config"
	"deskbook/internal/deskservice"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.LoadService(os.Getenv("DESKSERVICE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := deskservice.Open(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial load + hot reload of desks configuration
	if err := config.WatchDesks(ctx, &logger, cfg.Desks.File, cfg.ReloadInterval(), func(updated *config.DesksConfig) {
		if updated == nil {
			return
		}
		if err := store.SyncDesks(ctx, updated.Desks); err != nil {
			logger.Error().Err(err).Msg("failed to apply desks config")
			return
		}
		logger.Info().Int("desks", len(updated.Desks)).Msg("desks config applied")
	}); err != nil {
		logger.Error().Err(err).Msg("desks watch failed")
	}

	backups := deskservice.NewBackupService(store, deskservice.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.BackupInterval(),
		StoragePath:   cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backups.Start(ctx)

	server := deskservice.NewHTTPServer(cfg.Server.Address, cfg.Server.APIKey, store, &logger)
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("http server error")
	}
}
