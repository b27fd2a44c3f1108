package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/vendazap/vendazap/common/version"
	"github.com/vendazap/vendazap/internal/vendazap/app"
	"github.com/vendazap/vendazap/internal/vendazap/config"
)

func main() {
	// Configure structured logging before anything else logs.
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	var logHandler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(logHandler))

	fmt.Printf("VendaZap WhatsApp Sales Bot\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Println()

	// A local .env is a convenience for development; absence is not an error.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg := config.Load()

	ctx := context.Background()
	bot, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "err", err)
		os.Exit(1)
	}
	defer bot.Stop()

	if err := bot.Run(ctx); err != nil {
		slog.Error("runtime error", "err", err)
		os.Exit(1)
	}
}
