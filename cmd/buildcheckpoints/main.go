package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"checkpoint-builder/builder"
	"checkpoint-builder/chain"
	"checkpoint-builder/config"
	"checkpoint-builder/db"
	"checkpoint-builder/logger"
	"checkpoint-builder/models"
	"checkpoint-builder/repository"
)

func main() {
	if err := run(); err != nil {
		logger.Logger.Error("Checkpoint build failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Checkpoint build failed:", err)
		logger.Logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := logger.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Building checkpoints", zap.String("network", cfg.Network))

	// Header store filled by the sync service
	ldb, err := db.NewLevelDB(cfg.LevelDBPath)
	if err != nil {
		return fmt.Errorf("open leveldb: %w", err)
	}
	defer ldb.Close()

	replayer := chain.NewReplayer(repository.NewHeaderRepository(ldb), cfg.StartHeight)
	replayer.OnCaughtUp(func(tip models.Header) {
		logger.Logger.Info("Synchronised to tip",
			zap.Uint32("height", tip.Height), zap.String("hash", tip.Hash.Hex()))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := builder.Run(ctx, replayer, builder.Options{
		Policy:     cfg.Policy(time.Now()),
		OutputPath: cfg.OutputPath,
		Known:      cfg.Known,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Checkpoints written to '%s'.\n", res.Path)
	return nil
}
