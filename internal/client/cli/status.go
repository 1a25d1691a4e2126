package cli

import (
	"context"
	"fmt"

	"github.com/tunno/tunno/internal/client/iocli"
	"github.com/tunno/tunno/internal/client/storage/sqlite"
	"github.com/tunno/tunno/internal/models"
)

// RunStatus prints the current contents of the local library.
func RunStatus(ctx context.Context, io iocli.IO, store *sqlite.Storage) error {
	io.Println("=== Library Status ===")
	io.Println()

	counts, err := store.LibraryCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read library: %w", err)
	}

	io.Printf("Songs:     %d\n", counts[models.KindSong])
	io.Printf("Albums:    %d\n", counts[models.KindAlbum])
	io.Printf("Artists:   %d\n", counts[models.KindArtist])
	io.Printf("Playlists: %d\n", counts[models.KindPlaylist])

	return nil
}
