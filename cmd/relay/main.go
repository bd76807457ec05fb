package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/raine/telegram-annonce-bot/internal/config"
	"github.com/raine/telegram-annonce-bot/internal/logging"
	"github.com/raine/telegram-annonce-bot/internal/relay"
	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnvFile()
	cfg := config.Load()

	closeLog, _ := logging.Setup(cfg.LogLevel, "")
	defer closeLog()

	if err := cfg.ValidateRelay(); err != nil {
		log.Error().Err(err).Msg("invalid relay configuration")
		os.Exit(1)
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := relay.NewServer(relay.Opts{
		APIKey:  cfg.Relay.APIKey,
		BaseURL: cfg.Relay.GeminiBaseURL,
		Timeout: cfg.Generation.RequestTimeout,
	})
	if err := server.Run(ctx, cfg.Relay.Port); err != nil {
		log.Error().Err(err).Msg("relay failed")
		os.Exit(1)
	}
}
