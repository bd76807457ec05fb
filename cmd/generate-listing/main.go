package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/raine/telegram-annonce-bot/internal/config"
	"github.com/raine/telegram-annonce-bot/internal/listing"
	"github.com/raine/telegram-annonce-bot/internal/llm"
	"github.com/raine/telegram-annonce-bot/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnvFile()
	cfg := config.Load()

	imagePath := flag.String("image", "", "photo of the item to sell (required)")
	count := flag.Int("count", cfg.Generation.DefaultImageCount, fmt.Sprintf("number of lifestyle images (%d-%d)", listing.MinImageCount, listing.MaxImageCount))
	relayURL := flag.String("relay", cfg.Generation.RelayURL, "relay base URL")
	outDir := flag.String("out", ".", "directory the images are written to")
	flag.Parse()

	closeLog, _ := logging.Setup(cfg.LogLevel, "")
	defer closeLog()

	if *imagePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -image <path> [-count n] [-relay url] [-out dir]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg.Generation.RelayURL = *relayURL
	if err := cfg.ValidateGeneration(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	img, err := listing.LoadSourceImage(*imagePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *imagePath).Msg("failed to load photo")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gemini := llm.NewGemini(
		llm.NewCaller(llm.NewRelayClient(llm.RelayOpts{
			BaseURL: cfg.Generation.RelayURL,
			Timeout: cfg.Generation.RequestTimeout,
		})),
		llm.GeminiOpts{TextModel: cfg.Generation.TextModel, ImageModel: cfg.Generation.ImageModel},
	)
	studio := listing.NewStudio(gemini, gemini, gemini)

	session := listing.NewSession().WithSource(img)
	session, err = studio.Generate(ctx, session, *count, func(p listing.Progress) {
		if !p.Done() {
			log.Info().Str("step", p.String()).Msg("progress")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("kind", llm.KindOf(err).String()).Msg("generation failed")
	}

	if err := writeImages(session.Images, *outDir, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("failed to write images")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(session.Draft); err != nil {
		log.Fatal().Err(err).Msg("failed to print listing")
	}
}

func writeImages(images []listing.GeneratedImage, dir string, at time.Time) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, img := range images {
		name, data, err := img.Export(at)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Info().Str("slot", img.ID).Str("path", path).Msg("image saved")
	}
	return nil
}
