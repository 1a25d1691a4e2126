package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tunno/tunno/internal/client/storage"
	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

// boolToInt конвертирует bool в int для SQLite
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// tableForKind maps an entity kind to its table name.
func tableForKind(kind models.EntityKind) (string, error) {
	switch kind {
	case models.KindSong:
		return "songs", nil
	case models.KindAlbum:
		return "albums", nil
	case models.KindArtist:
		return "artists", nil
	case models.KindPlaylist:
		return "playlists", nil
	default:
		return "", fmt.Errorf("unknown entity kind: %d", kind)
	}
}

// AllFingerprints returns every non-null fingerprint per entity kind.
func (s *Storage) AllFingerprints(ctx context.Context) (*storage.Fingerprints, error) {
	result := &storage.Fingerprints{}

	kinds := []struct {
		dest *[]string
		kind models.EntityKind
	}{
		{&result.Songs, models.KindSong},
		{&result.Albums, models.KindAlbum},
		{&result.Artists, models.KindArtist},
		{&result.Playlists, models.KindPlaylist},
	}

	for _, k := range kinds {
		table, err := tableForKind(k.kind)
		if err != nil {
			return nil, err
		}

		query := fmt.Sprintf("SELECT fingerprint FROM %s WHERE fingerprint IS NOT NULL", table)

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s fingerprints: %w", table, err)
		}

		fps := []string{}
		for rows.Next() {
			var fp string
			if err := rows.Scan(&fp); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
			}
			fps = append(fps, fp)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate fingerprints: %w", err)
		}
		rows.Close()

		*k.dest = fps
	}

	return result, nil
}

// FingerprintIndex returns (id, fingerprint) for every fingerprint-bearing
// row of the given kind. Выбираются только две колонки — полные записи
// для кэша не нужны.
func (s *Storage) FingerprintIndex(ctx context.Context, kind models.EntityKind) ([]storage.FingerprintRow, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id, fingerprint FROM %s WHERE fingerprint IS NOT NULL", table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s index: %w", table, err)
	}
	defer rows.Close()

	var index []storage.FingerprintRow
	for rows.Next() {
		var row storage.FingerprintRow
		if err := rows.Scan(&row.ID, &row.Fingerprint); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		index = append(index, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate index rows: %w", err)
	}

	return index, nil
}

// InsertArtist inserts a synced artist and returns its new local id.
func (s *Storage) InsertArtist(ctx context.Context, data api.ArtistData, thumbnail string) (int64, error) {
	query := `
		INSERT INTO artists (name, is_favorite, thumbnail, fingerprint)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		data.Name,
		boolToInt(data.IsFavorite),
		nullString(thumbnail),
		data.Fingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert artist: %w", err)
	}

	return result.LastInsertId()
}

// InsertAlbum inserts a synced album and returns its new local id.
func (s *Storage) InsertAlbum(ctx context.Context, data api.AlbumData, thumbnail string) (int64, error) {
	query := `
		INSERT INTO albums (name, album_type, release_year, is_favorite, thumbnail, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		data.Name,
		data.AlbumType,
		nullInt(data.ReleaseYear),
		boolToInt(data.IsFavorite),
		nullString(thumbnail),
		data.Fingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert album: %w", err)
	}

	return result.LastInsertId()
}

// InsertPlaylist inserts a synced playlist and returns its new local id.
func (s *Storage) InsertPlaylist(ctx context.Context, data api.PlaylistData) (int64, error) {
	query := `
		INSERT INTO playlists (name, is_favorite, fingerprint)
		VALUES (?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		data.Name,
		boolToInt(data.IsFavorite),
		data.Fingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert playlist: %w", err)
	}

	return result.LastInsertId()
}

// InsertSong inserts a synced song and returns its new local id. Lyric cues
// are re-serialized through models.ParseLyrics, so a missing or malformed
// payload is stored as an empty list.
func (s *Storage) InsertSong(ctx context.Context, data api.SongData, audioFile, thumbnail string, albumID *int64) (int64, error) {
	cues := models.ParseLyrics(data.Lyrics)

	lyricsJSON, err := json.Marshal(cues)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal lyrics: %w", err)
	}

	query := `
		INSERT INTO songs (name, duration, release_year, is_favorite, lyrics, file, thumbnail, album_id, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		data.Name,
		data.Duration,
		nullInt(data.ReleaseYear),
		boolToInt(data.IsFavorite),
		string(lyricsJSON),
		audioFile,
		nullString(thumbnail),
		albumID,
		data.Fingerprint,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert song: %w", err)
	}

	return result.LastInsertId()
}

// LinkSongToArtists links a song to its artists. INSERT OR IGNORE makes the
// operation idempotent across batches.
func (s *Storage) LinkSongToArtists(ctx context.Context, songID int64, links []storage.ArtistLink) error {
	if len(links) == 0 {
		return nil
	}

	query := `
		INSERT OR IGNORE INTO song_artists (song_id, artist_id, artist_order)
		VALUES (?, ?, ?)
	`

	for _, link := range links {
		if _, err := s.db.ExecContext(ctx, query, songID, link.ArtistID, link.Order); err != nil {
			return fmt.Errorf("failed to link song %d to artist %d: %w", songID, link.ArtistID, err)
		}
	}

	return nil
}

// LinkAlbumToArtists links an album to its artists, idempotently.
func (s *Storage) LinkAlbumToArtists(ctx context.Context, albumID int64, links []storage.ArtistLink) error {
	if len(links) == 0 {
		return nil
	}

	query := `
		INSERT OR IGNORE INTO album_artists (album_id, artist_id, artist_order)
		VALUES (?, ?, ?)
	`

	for _, link := range links {
		if _, err := s.db.ExecContext(ctx, query, albumID, link.ArtistID, link.Order); err != nil {
			return fmt.Errorf("failed to link album %d to artist %d: %w", albumID, link.ArtistID, err)
		}
	}

	return nil
}

// LinkSongToPlaylists links a song to its playlists, idempotently.
func (s *Storage) LinkSongToPlaylists(ctx context.Context, songID int64, playlistIDs []int64) error {
	if len(playlistIDs) == 0 {
		return nil
	}

	query := `
		INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id)
		VALUES (?, ?)
	`

	for _, playlistID := range playlistIDs {
		if _, err := s.db.ExecContext(ctx, query, playlistID, songID); err != nil {
			return fmt.Errorf("failed to link song %d to playlist %d: %w", songID, playlistID, err)
		}
	}

	return nil
}

// LibraryCounts returns the number of rows per entity kind, for status
// output.
func (s *Storage) LibraryCounts(ctx context.Context) (map[models.EntityKind]int, error) {
	counts := make(map[models.EntityKind]int, 4)
	for _, kind := range []models.EntityKind{
		models.KindSong, models.KindAlbum, models.KindArtist, models.KindPlaylist,
	} {
		table, err := tableForKind(kind)
		if err != nil {
			return nil, err
		}
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s rows: %w", kind, err)
		}
		counts[kind] = n
	}
	return counts, nil
}

// RecomputeAggregates recomputes track counts and total durations for the
// given entities. Id lists are deduplicated first; stale aggregates are
// overwritten from the current relations.
func (s *Storage) RecomputeAggregates(ctx context.Context, artistIDs, albumIDs, playlistIDs []int64) error {
	for _, id := range dedupe(artistIDs) {
		if err := s.recomputeArtist(ctx, id); err != nil {
			return err
		}
	}

	for _, id := range dedupe(albumIDs) {
		if err := s.recomputeAlbum(ctx, id); err != nil {
			return err
		}
	}

	for _, id := range dedupe(playlistIDs) {
		if err := s.recomputePlaylist(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (s *Storage) recomputeArtist(ctx context.Context, artistID int64) error {
	query := `
		UPDATE artists SET
			total_tracks = (
				SELECT COUNT(DISTINCT sa.song_id)
				FROM song_artists sa
				WHERE sa.artist_id = ?
			),
			total_duration = (
				SELECT COALESCE(SUM(s.duration), 0)
				FROM song_artists sa
				JOIN songs s ON s.id = sa.song_id
				WHERE sa.artist_id = ?
			)
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, artistID, artistID, artistID); err != nil {
		return fmt.Errorf("failed to recompute artist %d stats: %w", artistID, err)
	}
	return nil
}

func (s *Storage) recomputeAlbum(ctx context.Context, albumID int64) error {
	query := `
		UPDATE albums SET
			total_tracks = (
				SELECT COUNT(*) FROM songs WHERE album_id = ?
			),
			total_duration = (
				SELECT COALESCE(SUM(duration), 0) FROM songs WHERE album_id = ?
			)
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, albumID, albumID, albumID); err != nil {
		return fmt.Errorf("failed to recompute album %d stats: %w", albumID, err)
	}
	return nil
}

func (s *Storage) recomputePlaylist(ctx context.Context, playlistID int64) error {
	query := `
		UPDATE playlists SET
			total_tracks = (
				SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = ?
			),
			total_duration = (
				SELECT COALESCE(SUM(s.duration), 0)
				FROM playlist_songs ps
				JOIN songs s ON s.id = ps.song_id
				WHERE ps.playlist_id = ?
			)
		WHERE id = ?
	`

	if _, err := s.db.ExecContext(ctx, query, playlistID, playlistID, playlistID); err != nil {
		return fmt.Errorf("failed to recompute playlist %d stats: %w", playlistID, err)
	}
	return nil
}

// dedupe сохраняет порядок первых вхождений
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return unique
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
