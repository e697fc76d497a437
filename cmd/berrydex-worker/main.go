// The worker appends a periodic price-history sample for every character so
// last-change stats stay meaningful between trades.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"berrydex/internal/config"
	"berrydex/internal/db"
	"berrydex/internal/market"
	"berrydex/internal/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}
	svc := market.NewService(store, logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("BERRYDEX_WORKER_RUN_ONCE")), "true")
	if runOnce {
		n, err := svc.SnapshotPrices(ctx)
		if err != nil {
			logger.Error("snapshot failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "characters", n)
		return
	}

	ticker := time.NewTicker(cfg.SnapshotEvery)
	defer ticker.Stop()

	logger.Info("worker started", "snapshot_every", cfg.SnapshotEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			n, err := svc.SnapshotPrices(ctx)
			if err != nil {
				logger.Error("snapshot failed", "err", err)
				continue
			}
			logger.Info("price snapshot complete", "characters", n)
		}
	}
}
