package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"checkpoint-builder/checkpoint"
	"checkpoint-builder/config"
	"checkpoint-builder/db"
	"checkpoint-builder/handlers"
	"checkpoint-builder/logger"
	"checkpoint-builder/repository"
	"checkpoint-builder/routers"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting checkpoint server...", zap.String("network", cfg.Network))

	// Connect to LevelDB
	ldb, err := db.NewLevelDB(cfg.LevelDBPath)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	headerRepo := repository.NewHeaderRepository(ldb)

	// A missing file is fine until the first build; a corrupt one is not.
	manager, err := checkpoint.LoadFile(cfg.CheckpointsPath)
	switch {
	case err == nil:
		logger.Logger.Info("Loaded checkpoints",
			zap.String("path", cfg.CheckpointsPath),
			zap.Int("count", manager.NumCheckpoints()),
			zap.String("digest", manager.Digest().Hex()))
	case errors.Is(err, os.ErrNotExist):
		logger.Logger.Warn("No checkpoints file, lookups disabled", zap.String("path", cfg.CheckpointsPath))
		manager = nil
	default:
		logger.Logger.Fatal("Failed to load checkpoints", zap.Error(err))
	}

	h := handlers.NewHandler(headerRepo, manager)

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)

	// HTTP Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Logger.Info("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.ServerPort))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")
	srv.Close()
}
