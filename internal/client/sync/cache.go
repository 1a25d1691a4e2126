package sync

import (
	"context"
	"fmt"

	"github.com/tunno/tunno/internal/client/storage"
	"github.com/tunno/tunno/internal/models"
)

// EntityCache maps fingerprints of already-stored artists, albums and
// playlists to their local row ids. Songs are intentionally absent: a song
// reported missing by the server is always inserted.
//
// The cache lets batch processing resolve references without per-row
// database lookups, and lets the compare step drop fingerprints the client
// already holds.
type EntityCache struct {
	artists   map[string]int64
	albums    map[string]int64
	playlists map[string]int64
}

// NewEntityCache returns an empty cache.
func NewEntityCache() *EntityCache {
	return &EntityCache{
		artists:   make(map[string]int64),
		albums:    make(map[string]int64),
		playlists: make(map[string]int64),
	}
}

// Initialize bulk-loads the fingerprint indexes of all three cached kinds
// from local storage, replacing any previous contents.
func (c *EntityCache) Initialize(ctx context.Context, reader storage.LibraryReader) error {
	artists := make(map[string]int64)
	albums := make(map[string]int64)
	playlists := make(map[string]int64)

	for kind, dst := range map[models.EntityKind]map[string]int64{
		models.KindArtist:   artists,
		models.KindAlbum:    albums,
		models.KindPlaylist: playlists,
	} {
		rows, err := reader.FingerprintIndex(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to load %s fingerprint index: %w", kind, err)
		}
		for _, row := range rows {
			dst[row.Fingerprint] = row.ID
		}
	}

	c.artists = artists
	c.albums = albums
	c.playlists = playlists
	return nil
}

// Get returns the local id for a fingerprint of the given kind.
func (c *EntityCache) Get(kind models.EntityKind, fp string) (int64, bool) {
	m := c.mapFor(kind)
	if m == nil {
		return 0, false
	}
	id, ok := m[fp]
	return id, ok
}

// Add records a newly inserted entity so later batches can resolve it.
func (c *EntityCache) Add(kind models.EntityKind, fp string, id int64) {
	if m := c.mapFor(kind); m != nil {
		m[fp] = id
	}
}

// Missing filters fps down to the ones the cache does not hold, preserving
// order.
func (c *EntityCache) Missing(kind models.EntityKind, fps []string) []string {
	m := c.mapFor(kind)
	missing := make([]string, 0, len(fps))
	for _, fp := range fps {
		if _, ok := m[fp]; !ok {
			missing = append(missing, fp)
		}
	}
	return missing
}

func (c *EntityCache) mapFor(kind models.EntityKind) map[string]int64 {
	switch kind {
	case models.KindArtist:
		return c.artists
	case models.KindAlbum:
		return c.albums
	case models.KindPlaylist:
		return c.playlists
	default:
		// песни не кэшируются
		return nil
	}
}
