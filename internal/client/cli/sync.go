package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/tunno/tunno/internal/client/iocli"
	"github.com/tunno/tunno/internal/client/pairing"
	"github.com/tunno/tunno/internal/client/sync"
)

// RunSync decodes the pairing payload and drives a full sync run, printing
// progress as it goes. The payload is the JSON содержимое QR-кода, shown by
// the desktop application; when empty, the user is prompted for it.
func RunSync(ctx context.Context, io iocli.IO, engine *sync.Engine, payload string) error {
	if payload == "" {
		input, err := io.ReadInput("Paste pairing code: ")
		if err != nil {
			return fmt.Errorf("failed to read pairing code: %w", err)
		}
		payload = input
	}

	conn, ok := pairing.Decode([]byte(payload))
	if !ok {
		return errors.New("invalid pairing code: scan the QR code shown by the desktop app and paste its contents")
	}

	io.Println("=== Library Sync ===")
	io.Printf("Server: %s\n", conn.URL)
	io.Println()

	var lastLine string
	engine.Status().Subscribe(func(snap sync.Snapshot) {
		line := progressLine(snap)
		if line != "" && line != lastLine {
			io.Println(line)
			lastLine = line
		}
	})

	if err := engine.Start(ctx, conn); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	snap := engine.Status().Snapshot()
	io.Println()
	if snap.State == sync.StateCompleted {
		io.Println("✓ Sync completed")
		io.Printf("Synced %d item(s)\n", snap.Progress.SyncedItems)
	} else {
		// Состояние idle после Start без ошибки означает отмену пользователем
		io.Println("Sync cancelled")
	}

	return nil
}

func progressLine(snap sync.Snapshot) string {
	switch snap.State {
	case sync.StateConnecting:
		return "Connecting to server..."
	case sync.StateComparing:
		return "Comparing libraries..."
	case sync.StateSyncing:
		if snap.Progress.TotalItems > 0 {
			return fmt.Sprintf("[%d/%d] %s",
				snap.Progress.SyncedItems, snap.Progress.TotalItems, snap.Progress.CurrentOperation)
		}
		return snap.Progress.CurrentOperation
	case sync.StateFinalizing:
		return "Finalizing..."
	default:
		return ""
	}
}
