package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tunno/tunno/internal/server"
	"github.com/tunno/tunno/internal/server/auth"
	"github.com/tunno/tunno/internal/server/config"
	"github.com/tunno/tunno/internal/server/pairing"
	"github.com/tunno/tunno/internal/server/session"
	"github.com/tunno/tunno/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open library database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close library database", "error", err)
		}
	}()

	// Библиотеки старого формата могут не иметь отпечатков
	updated, err := store.BackfillFingerprints(ctx)
	if err != nil {
		return fmt.Errorf("failed to backfill fingerprints: %w", err)
	}
	if updated > 0 {
		logger.Info("backfilled entity fingerprints", "count", updated)
	}

	tokens, err := auth.NewService(cfg.Sync.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	token, err := tokens.IssueToken()
	if err != nil {
		return fmt.Errorf("failed to issue pairing token: %w", err)
	}

	payload := pairing.NewPayload(pairing.LocalIP(), cfg.Server.Port, token)
	payloadJSON, err := payload.Encode()
	if err != nil {
		return err
	}

	fmt.Println("Scan this pairing code with the mobile app:")
	fmt.Println(string(payloadJSON))

	if cfg.Sync.QRFile != "" {
		png, err := payload.QRCodePNG(512)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Sync.QRFile, png, 0o600); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
		logger.Info("pairing QR code written", "path", cfg.Sync.QRFile)
	}

	tracker := session.NewTracker(cfg.Sync.SessionTimeout)
	srv := server.New(cfg, store, tokens, tracker, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("Tunno Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
