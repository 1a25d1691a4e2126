package sqlite

import (
	"context"
	"fmt"

	"github.com/tunno/tunno/internal/fingerprint"
)

// BackfillFingerprints computes and stores fingerprints for rows that are
// missing one. Runs at startup so libraries created before fingerprint
// support became available stay syncable. Returns the number of rows
// updated.
func (s *Storage) BackfillFingerprints(ctx context.Context) (int, error) {
	total := 0

	n, err := s.backfillArtists(ctx)
	if err != nil {
		return total, err
	}
	total += n

	// Альбомы после исполнителей: их отпечатки зависят от имён исполнителей
	n, err = s.backfillAlbums(ctx)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.backfillPlaylists(ctx)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.backfillSongs(ctx)
	if err != nil {
		return total, err
	}
	total += n

	return total, nil
}

func (s *Storage) backfillArtists(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM artists WHERE fingerprint IS NULL")
	if err != nil {
		return 0, fmt.Errorf("failed to query artists without fingerprint: %w", err)
	}

	type row struct {
		id   int64
		name string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan artist: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()

	for _, r := range pending {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE artists SET fingerprint = ? WHERE id = ?",
			fingerprint.Artist(r.name), r.id); err != nil {
			return 0, fmt.Errorf("failed to backfill artist %d: %w", r.id, err)
		}
	}
	return len(pending), nil
}

func (s *Storage) backfillAlbums(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, album_type FROM albums WHERE fingerprint IS NULL")
	if err != nil {
		return 0, fmt.Errorf("failed to query albums without fingerprint: %w", err)
	}

	type row struct {
		id        int64
		name      string
		albumType string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.albumType); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan album: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()

	for _, r := range pending {
		names, err := s.linkedArtistNames(ctx,
			"SELECT a.name FROM album_artists aa JOIN artists a ON a.id = aa.artist_id WHERE aa.album_id = ? ORDER BY aa.artist_order", r.id)
		if err != nil {
			return 0, err
		}
		if _, err := s.db.ExecContext(ctx,
			"UPDATE albums SET fingerprint = ? WHERE id = ?",
			fingerprint.Album(r.name, r.albumType, names), r.id); err != nil {
			return 0, fmt.Errorf("failed to backfill album %d: %w", r.id, err)
		}
	}
	return len(pending), nil
}

func (s *Storage) backfillPlaylists(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM playlists WHERE fingerprint IS NULL")
	if err != nil {
		return 0, fmt.Errorf("failed to query playlists without fingerprint: %w", err)
	}

	type row struct {
		id   int64
		name string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan playlist: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()

	for _, r := range pending {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE playlists SET fingerprint = ? WHERE id = ?",
			fingerprint.Playlist(r.name), r.id); err != nil {
			return 0, fmt.Errorf("failed to backfill playlist %d: %w", r.id, err)
		}
	}
	return len(pending), nil
}

func (s *Storage) backfillSongs(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.duration, COALESCE(a.name, '')
		FROM songs s
		LEFT JOIN albums a ON a.id = s.album_id
		WHERE s.fingerprint IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to query songs without fingerprint: %w", err)
	}

	type row struct {
		id        int64
		name      string
		duration  int64
		albumName string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.duration, &r.albumName); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan song: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()

	for _, r := range pending {
		names, err := s.linkedArtistNames(ctx,
			"SELECT a.name FROM song_artists sa JOIN artists a ON a.id = sa.artist_id WHERE sa.song_id = ? ORDER BY sa.artist_order", r.id)
		if err != nil {
			return 0, err
		}
		if _, err := s.db.ExecContext(ctx,
			"UPDATE songs SET fingerprint = ? WHERE id = ?",
			fingerprint.Song(r.name, r.duration, names, r.albumName), r.id); err != nil {
			return 0, fmt.Errorf("failed to backfill song %d: %w", r.id, err)
		}
	}
	return len(pending), nil
}

func (s *Storage) linkedArtistNames(ctx context.Context, query string, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked artists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artist name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
