package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-annonce-bot/internal/bot"
	"github.com/raine/telegram-annonce-bot/internal/config"
	"github.com/raine/telegram-annonce-bot/internal/llm"
	"github.com/raine/telegram-annonce-bot/internal/logging"
	"github.com/raine/telegram-annonce-bot/internal/relay"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "telegram-annonce-bot.log"

func main() {
	config.LoadEnvFile()
	cfg := config.Load()

	if err := cfg.ValidateBot(); err != nil {
		if !isInteractiveTerminal() {
			// Non-interactive (systemd, k8s, etc.) - fail with clear error
			fatalWithWait("%v", err)
		}
		if !runSetupWizard() {
			waitOnWindows()
			os.Exit(1)
		}
		cfg = config.Load()
		if err := cfg.ValidateBot(); err != nil {
			fatalWithWait("%v", err)
		}
	}

	closeLog, err := logging.Setup(cfg.LogLevel, logFileName)
	if err != nil {
		fatalWithWait("failed to open log file: %v", err)
	}
	defer closeLog()

	tg, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		fatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	relayClient := llm.NewRelayClient(llm.RelayOpts{
		BaseURL: cfg.Generation.RelayURL,
		Timeout: cfg.Generation.RequestTimeout,
	})
	gemini := llm.NewGemini(llm.NewCaller(relayClient), llm.GeminiOpts{
		TextModel:  cfg.Generation.TextModel,
		ImageModel: cfg.Generation.ImageModel,
	})
	log.Info().
		Str("relayURL", cfg.Generation.RelayURL).
		Str("textModel", cfg.Generation.TextModel).
		Str("imageModel", cfg.Generation.ImageModel).
		Msg("generation client initialized")

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Bot.RelayEmbedded {
		server := relay.NewServer(relay.Opts{
			APIKey:  cfg.Relay.APIKey,
			BaseURL: cfg.Relay.GeminiBaseURL,
			Timeout: cfg.Generation.RequestTimeout,
		})
		g.Go(func() error {
			return server.Run(ctx, cfg.Relay.Port)
		})
	}

	g.Go(func() error {
		gens := bot.Generators{Synthesizer: gemini, Images: gemini, Refiner: gemini}
		return runBot(ctx, tg, bot.NewBot(tg, cfg.Bot.AdminID, gens, cfg.Generation.DefaultImageCount))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
