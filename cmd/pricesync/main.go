package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pricesync/config"
	"pricesync/internal/tracker"
	"pricesync/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := tracker.New(cfg, log)
	if err != nil {
		log.Fatal("failed to build tracker", zap.Error(err))
	}

	if err := t.Run(ctx); err != nil {
		log.Fatal("tracker failed", zap.Error(err))
	}
	log.Info("tracker stopped")
}
