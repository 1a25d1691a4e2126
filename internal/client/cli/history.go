package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tunno/tunno/internal/client/history"
	"github.com/tunno/tunno/internal/client/iocli"
)

// RunHistory prints the most recent sync runs, newest first.
func RunHistory(ctx context.Context, io iocli.IO, store *history.Store, limit int) error {
	io.Println("=== Sync History ===")
	io.Println()

	records, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read sync history: %w", err)
	}

	if len(records) == 0 {
		io.Println("No sync runs recorded yet.")
		return nil
	}

	for _, r := range records {
		duration := r.FinishedAt.Sub(r.StartedAt).Round(time.Second)
		io.Printf("%s  %-10s %d/%d items  (%s)\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Phase, r.SyncedItems, r.TotalItems, duration)
		if len(r.Errors) > 0 {
			io.Printf("    error: %s\n", strings.Join(r.Errors, "; "))
		}
	}

	return nil
}
