package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunno/tunno/internal/client/cli"
	"github.com/tunno/tunno/internal/client/files"
	"github.com/tunno/tunno/internal/client/history"
	"github.com/tunno/tunno/internal/client/iocli"
	"github.com/tunno/tunno/internal/client/storage/sqlite"
	"github.com/tunno/tunno/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	dbPath := flag.String("db", "tunno-library.db", "Path to local library database")
	dataDir := flag.String("data", "tunno-data", "Directory for downloaded audio and thumbnails")
	historyPath := flag.String("history", "tunno-history.db", "Path to sync history database")
	historyLimit := flag.Int("limit", 20, "Number of history entries to show")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	// Ctrl+C переводится в кооперативную отмену синхронизации
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open library database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close library database", "error", err)
		}
	}()

	stdio := iocli.NewStdio()

	switch command {
	case "sync":
		fileStorage, err := files.New(*dataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to prepare data directory: %v\n", err)
			os.Exit(1)
		}

		historyStore, err := history.New(ctx, *historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open history database: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = historyStore.Close()
		}()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))

		engine := sync.NewEngine(store, fileStorage, historyStore, logger)

		payload := ""
		if len(args) > 1 {
			payload = args[1]
		}

		if err := cli.RunSync(ctx, stdio, engine, payload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := cli.RunStatus(ctx, stdio, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "history":
		historyStore, err := history.New(ctx, *historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open history database: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = historyStore.Close()
		}()

		if err := cli.RunHistory(ctx, stdio, historyStore, *historyLimit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Tunno Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
