package storage

import (
	"context"

	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

// Fingerprints groups every fingerprint in the library by entity kind.
type Fingerprints struct {
	Songs     []string
	Albums    []string
	Artists   []string
	Playlists []string
}

// Library is the read side the sync endpoints need: fingerprint sets for
// compare, hydration by fingerprint for batches, and file lookups for
// downloads.
type Library interface {
	AllFingerprints(ctx context.Context) (*Fingerprints, error)

	SongsByFingerprints(ctx context.Context, fps []string) ([]api.SongData, error)
	AlbumsByFingerprints(ctx context.Context, fps []string) ([]api.AlbumData, error)
	ArtistsByFingerprints(ctx context.Context, fps []string) ([]api.ArtistData, error)
	PlaylistsByFingerprints(ctx context.Context, fps []string) ([]api.PlaylistData, error)

	// AudioPath returns the on-disk audio file path for a song fingerprint.
	// ErrNotFound when the song does not exist, ErrNoFile when it has no
	// audio attached.
	AudioPath(ctx context.Context, fp string) (string, error)

	// ThumbnailPath returns the on-disk thumbnail path for an entity.
	ThumbnailPath(ctx context.Context, fp string, kind models.EntityKind) (string, error)
}
