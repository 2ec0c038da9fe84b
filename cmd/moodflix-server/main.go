package main

import (
	"os"

	"moodflix-capture/internal/config"
	"moodflix-capture/internal/infrastructure/logger"
	"moodflix-capture/internal/server"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Debug, cfg.LogFile)

	r, err := server.NewRouter(cfg, log)
	if err != nil {
		log.Error("server setup failed: %v", err)
		os.Exit(1)
	}

	log.Info("inference dev server listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Error("server stopped: %v", err)
		os.Exit(1)
	}
}
