package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunno/tunno/internal/client/files"
	"github.com/tunno/tunno/internal/client/history"
	"github.com/tunno/tunno/internal/client/storage/sqlite"
	"github.com/tunno/tunno/internal/client/sync"
	"github.com/tunno/tunno/pkg/api"
)

// fakeIO собирает вывод команд для проверок.
type fakeIO struct {
	output strings.Builder
	input  string
}

func (f *fakeIO) Println(a ...any) {
	fmt.Fprintln(&f.output, a...)
}

func (f *fakeIO) Printf(format string, a ...any) {
	fmt.Fprintf(&f.output, format, a...)
}

func (f *fakeIO) ReadInput(_ string) (string, error) {
	return f.input, nil
}

func TestRunStatus(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.InsertArtist(ctx, api.ArtistData{Fingerprint: "fp", Name: "Artist"}, "")
	require.NoError(t, err)

	io := &fakeIO{}
	require.NoError(t, RunStatus(ctx, io, store))

	out := io.output.String()
	assert.Contains(t, out, "Artists:   1")
	assert.Contains(t, out, "Songs:     0")
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()

	store, err := history.New(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	t.Run("empty history", func(t *testing.T) {
		io := &fakeIO{}
		require.NoError(t, RunHistory(ctx, io, store, 10))
		assert.Contains(t, io.output.String(), "No sync runs recorded yet")
	})

	t.Run("records with errors", func(t *testing.T) {
		started := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		require.NoError(t, store.Append(ctx, history.Record{
			StartedAt:   started,
			FinishedAt:  started.Add(30 * time.Second),
			Phase:       "failed",
			SyncedItems: 3,
			TotalItems:  10,
			Errors:      []string{"network: connection reset"},
		}))

		io := &fakeIO{}
		require.NoError(t, RunHistory(ctx, io, store, 10))

		out := io.output.String()
		assert.Contains(t, out, "failed")
		assert.Contains(t, out, "3/10 items")
		assert.Contains(t, out, "network: connection reset")
	})
}

func TestRunSync_InvalidPayload(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fileStorage, err := files.New(t.TempDir())
	require.NoError(t, err)

	engine := sync.NewEngine(store, fileStorage, nil, testLogger())

	io := &fakeIO{}
	err = RunSync(ctx, io, engine, "not a pairing code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pairing code")
}

func TestRunSync_PromptsWhenPayloadMissing(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fileStorage, err := files.New(t.TempDir())
	require.NoError(t, err)

	engine := sync.NewEngine(store, fileStorage, nil, testLogger())

	// подсунем через prompt некорректный payload и убедимся, что он был прочитан
	io := &fakeIO{input: "{}"}
	err = RunSync(ctx, io, engine, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pairing code")
}
