package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/umdining/mealex/params"
	"github.com/umdining/mealex/pkg/api"
	"github.com/umdining/mealex/pkg/exchange"
	"github.com/umdining/mealex/pkg/storage"
	"github.com/umdining/mealex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	ex := exchange.New(cfg, sugar, util.RealClock{})

	// ---- Persistence (optional) ----
	// With SNAPSHOT_PATH set, state is restored at startup and written back
	// periodically and on shutdown. Without it the exchange is memory-only.
	var store *storage.Store
	if cfg.Node.SnapshotPath != "" {
		store, err = storage.NewStore(cfg.Node.SnapshotPath)
		if err != nil {
			sugar.Fatalw("store_open_failed", "path", cfg.Node.SnapshotPath, "err", err)
		}
		defer store.Close()

		snap, err := store.LoadSnapshot()
		if err != nil {
			sugar.Fatalw("snapshot_load_failed", "err", err)
		}
		if snap != nil {
			ex.RestoreSnapshot(snap)
			sugar.Infow("state_restored", "path", cfg.Node.SnapshotPath)
		} else {
			sugar.Infow("no_snapshot_found", "path", cfg.Node.SnapshotPath)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(ex, sugar)
	go func() {
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("exchange_started",
		"api_addr", cfg.Node.APIAddr,
		"roster", len(cfg.Roster),
		"meals", len(cfg.Meals()),
		"persistence", store != nil)

	if store == nil {
		<-ctx.Done()
		sugar.Info("shutting down")
		return
	}

	ticker := time.NewTicker(cfg.Node.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := store.SaveSnapshot(ex.Snapshot()); err != nil {
				sugar.Errorw("final_snapshot_failed", "err", err)
			} else {
				sugar.Info("final snapshot saved")
			}
			sugar.Info("shutting down")
			return
		case <-ticker.C:
			if err := store.SaveSnapshot(ex.Snapshot()); err != nil {
				sugar.Errorw("snapshot_failed", "err", err)
			}
		}
	}
}
