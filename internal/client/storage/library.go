package storage

import (
	"context"

	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

// FingerprintRow is a minimal (id, fingerprint) projection used to seed the
// entity resolution cache.
type FingerprintRow struct {
	ID          int64
	Fingerprint string
}

// Fingerprints groups every non-null fingerprint in the local library by
// entity kind, in the shape the compare endpoint expects.
type Fingerprints struct {
	Songs     []string
	Albums    []string
	Artists   []string
	Playlists []string
}

// ArtistLink pairs a resolved local artist id with its position within a
// song or album relationship.
type ArtistLink struct {
	ArtistID int64
	Order    int
}

// LibraryReader is the read side the sync engine needs: bulk fingerprint
// reads for the compare request and cache seeding.
type LibraryReader interface {
	// AllFingerprints returns every non-null fingerprint per entity kind.
	AllFingerprints(ctx context.Context) (*Fingerprints, error)

	// FingerprintIndex returns (id, fingerprint) for every fingerprint-bearing
	// row of the given kind. Only id and fingerprint columns are read.
	FingerprintIndex(ctx context.Context, kind models.EntityKind) ([]FingerprintRow, error)
}

// LibraryWriter is the mutation side: one insert per entity kind, idempotent
// relationship linking, and aggregate recomputation.
type LibraryWriter interface {
	InsertArtist(ctx context.Context, data api.ArtistData, thumbnail string) (int64, error)
	InsertAlbum(ctx context.Context, data api.AlbumData, thumbnail string) (int64, error)
	InsertPlaylist(ctx context.Context, data api.PlaylistData) (int64, error)
	InsertSong(ctx context.Context, data api.SongData, audioFile, thumbnail string, albumID *int64) (int64, error)

	// Linking is idempotent: re-linking an existing pair is a no-op, never an
	// error, because the same relation may be attempted from different batches.
	LinkSongToArtists(ctx context.Context, songID int64, links []ArtistLink) error
	LinkAlbumToArtists(ctx context.Context, albumID int64, links []ArtistLink) error
	LinkSongToPlaylists(ctx context.Context, songID int64, playlistIDs []int64) error

	// RecomputeAggregates deduplicates each id list and recomputes track count
	// and total duration for every affected entity from its current relations.
	RecomputeAggregates(ctx context.Context, artistIDs, albumIDs, playlistIDs []int64) error
}

// LibraryStorage объединяет обе стороны локального хранилища.
type LibraryStorage interface {
	LibraryReader
	LibraryWriter
}
