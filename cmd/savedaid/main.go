// Command savedaid is the saveDAI ledger daemon. It loads configuration,
// validates it, wires dependencies, sets up signal handling, and starts the
// application in the configured mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/save-dai/savedai-contract-v1/internal/app"
	"github.com/save-dai/savedai-contract-v1/internal/config"
	"github.com/save-dai/savedai-contract-v1/internal/crypto"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	encryptKey := flag.String("encrypt-key", "", "hex private key to encrypt to the operator key file, then exit")
	keyOut := flag.String("key-out", "operator-key.json", "output path for -encrypt-key")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// One-shot key encryption: produce the file LoadKey consumes at boot.
	if *encryptKey != "" {
		password := os.Getenv("SAVEDAI_OPERATOR_KEY_PASSWORD")
		if password == "" {
			logger.Error("SAVEDAI_OPERATOR_KEY_PASSWORD must be set for -encrypt-key")
			os.Exit(1)
		}
		blob, err := crypto.EncryptKey(*encryptKey, password)
		if err != nil {
			logger.Error("failed to encrypt key", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := os.WriteFile(*keyOut, blob, 0o600); err != nil {
			logger.Error("failed to write key file",
				slog.String("path", *keyOut),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("encrypted operator key written", slog.String("path", *keyOut))
		return
	}

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("savedai daemon starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	// Create the application.
	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run the application.
	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if err == context.Canceled {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("savedai daemon stopped")
}
