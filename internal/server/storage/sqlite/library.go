package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/internal/server/storage"
	"github.com/tunno/tunno/pkg/api"
)

var _ storage.Library = (*Storage)(nil)

// AllFingerprints returns every non-null fingerprint per entity kind.
func (s *Storage) AllFingerprints(ctx context.Context) (*storage.Fingerprints, error) {
	result := &storage.Fingerprints{}

	for table, dst := range map[string]*[]string{
		"songs":     &result.Songs,
		"albums":    &result.Albums,
		"artists":   &result.Artists,
		"playlists": &result.Playlists,
	} {
		rows, err := s.db.QueryContext(ctx,
			"SELECT fingerprint FROM "+table+" WHERE fingerprint IS NOT NULL")
		if err != nil {
			return nil, fmt.Errorf("failed to query %s fingerprints: %w", table, err)
		}

		for rows.Next() {
			var fp string
			if err := rows.Scan(&fp); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
			}
			*dst = append(*dst, fp)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate %s fingerprints: %w", table, err)
		}
		rows.Close()
	}

	return result, nil
}

// ArtistsByFingerprints hydrates artists for a batch response.
func (s *Storage) ArtistsByFingerprints(ctx context.Context, fps []string) ([]api.ArtistData, error) {
	if len(fps) == 0 {
		return nil, nil
	}

	query := `
		SELECT fingerprint, name, is_favorite, thumbnail_path
		FROM artists
		WHERE fingerprint IN (` + placeholders(len(fps)) + `)`

	rows, err := s.db.QueryContext(ctx, query, toArgs(fps)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []api.ArtistData
	for rows.Next() {
		var a api.ArtistData
		var favorite int
		var thumbnail string
		if err := rows.Scan(&a.Fingerprint, &a.Name, &favorite, &thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		a.IsFavorite = favorite != 0
		a.HasThumbnail = thumbnail != ""
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// AlbumsByFingerprints hydrates albums, including the ordered artist
// fingerprint references.
func (s *Storage) AlbumsByFingerprints(ctx context.Context, fps []string) ([]api.AlbumData, error) {
	if len(fps) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, fingerprint, name, album_type, release_year, is_favorite, thumbnail_path
		FROM albums
		WHERE fingerprint IN (` + placeholders(len(fps)) + `)`

	rows, err := s.db.QueryContext(ctx, query, toArgs(fps)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []api.AlbumData
	var ids []int64
	for rows.Next() {
		var a api.AlbumData
		var id int64
		var favorite int
		var thumbnail string
		var releaseYear sql.NullInt64
		if err := rows.Scan(&id, &a.Fingerprint, &a.Name, &a.AlbumType, &releaseYear, &favorite, &thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		if releaseYear.Valid {
			year := int(releaseYear.Int64)
			a.ReleaseYear = &year
		}
		a.IsFavorite = favorite != 0
		a.HasThumbnail = thumbnail != ""
		albums = append(albums, a)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		refs, err := s.albumArtistRefs(ctx, id)
		if err != nil {
			return nil, err
		}
		albums[i].ArtistFingerprints = refs
	}

	return albums, nil
}

// PlaylistsByFingerprints hydrates playlists with their song fingerprints.
func (s *Storage) PlaylistsByFingerprints(ctx context.Context, fps []string) ([]api.PlaylistData, error) {
	if len(fps) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, fingerprint, name, is_favorite
		FROM playlists
		WHERE fingerprint IN (` + placeholders(len(fps)) + `)`

	rows, err := s.db.QueryContext(ctx, query, toArgs(fps)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []api.PlaylistData
	var ids []int64
	for rows.Next() {
		var p api.PlaylistData
		var id int64
		var favorite int
		if err := rows.Scan(&id, &p.Fingerprint, &p.Name, &favorite); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		p.IsFavorite = favorite != 0
		playlists = append(playlists, p)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		songRows, err := s.db.QueryContext(ctx, `
			SELECT s.fingerprint
			FROM playlist_songs ps
			JOIN songs s ON s.id = ps.song_id
			WHERE ps.playlist_id = ? AND s.fingerprint IS NOT NULL`, id)
		if err != nil {
			return nil, fmt.Errorf("failed to query playlist songs: %w", err)
		}
		for songRows.Next() {
			var fp string
			if err := songRows.Scan(&fp); err != nil {
				songRows.Close()
				return nil, fmt.Errorf("failed to scan playlist song: %w", err)
			}
			playlists[i].SongFingerprints = append(playlists[i].SongFingerprints, fp)
		}
		if err := songRows.Err(); err != nil {
			songRows.Close()
			return nil, err
		}
		songRows.Close()
	}

	return playlists, nil
}

// SongsByFingerprints hydrates songs, including album, artist and playlist
// fingerprint references.
func (s *Storage) SongsByFingerprints(ctx context.Context, fps []string) ([]api.SongData, error) {
	if len(fps) == 0 {
		return nil, nil
	}

	query := `
		SELECT s.id, s.fingerprint, s.name, s.duration, s.release_year, s.is_favorite,
		       s.lyrics, s.thumbnail_path, a.fingerprint
		FROM songs s
		LEFT JOIN albums a ON a.id = s.album_id
		WHERE s.fingerprint IN (` + placeholders(len(fps)) + `)`

	rows, err := s.db.QueryContext(ctx, query, toArgs(fps)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []api.SongData
	var ids []int64
	for rows.Next() {
		var song api.SongData
		var id int64
		var favorite int
		var thumbnail string
		var releaseYear sql.NullInt64
		var albumFP sql.NullString
		if err := rows.Scan(&id, &song.Fingerprint, &song.Name, &song.Duration,
			&releaseYear, &favorite, &song.Lyrics, &thumbnail, &albumFP); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		if releaseYear.Valid {
			year := int(releaseYear.Int64)
			song.ReleaseYear = &year
		}
		song.IsFavorite = favorite != 0
		song.HasThumbnail = thumbnail != ""
		song.AlbumFingerprint = albumFP.String
		songs = append(songs, song)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		refs, err := s.songArtistRefs(ctx, id)
		if err != nil {
			return nil, err
		}
		songs[i].ArtistFingerprints = refs

		playlistFPs, err := s.songPlaylistRefs(ctx, id)
		if err != nil {
			return nil, err
		}
		songs[i].PlaylistFingerprints = playlistFPs
	}

	return songs, nil
}

// AudioPath returns the audio file path for a song fingerprint.
func (s *Storage) AudioPath(ctx context.Context, fp string) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		"SELECT file_path FROM songs WHERE fingerprint = ?", fp).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query audio path: %w", err)
	}
	if path == "" {
		return "", storage.ErrNoFile
	}
	return path, nil
}

// ThumbnailPath returns the thumbnail path for an entity of the given kind.
func (s *Storage) ThumbnailPath(ctx context.Context, fp string, kind models.EntityKind) (string, error) {
	var table string
	switch kind {
	case models.KindSong:
		table = "songs"
	case models.KindAlbum:
		table = "albums"
	case models.KindArtist:
		table = "artists"
	default:
		return "", fmt.Errorf("no thumbnails for kind %s", kind)
	}

	var path string
	err := s.db.QueryRowContext(ctx,
		"SELECT thumbnail_path FROM "+table+" WHERE fingerprint = ?", fp).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query thumbnail path: %w", err)
	}
	if path == "" {
		return "", storage.ErrNoFile
	}
	return path, nil
}

func (s *Storage) songArtistRefs(ctx context.Context, songID int64) ([]api.ArtistOrder, error) {
	return s.artistRefs(ctx, `
		SELECT a.fingerprint, sa.artist_order
		FROM song_artists sa
		JOIN artists a ON a.id = sa.artist_id
		WHERE sa.song_id = ? AND a.fingerprint IS NOT NULL
		ORDER BY sa.artist_order`, songID)
}

func (s *Storage) albumArtistRefs(ctx context.Context, albumID int64) ([]api.ArtistOrder, error) {
	return s.artistRefs(ctx, `
		SELECT a.fingerprint, aa.artist_order
		FROM album_artists aa
		JOIN artists a ON a.id = aa.artist_id
		WHERE aa.album_id = ? AND a.fingerprint IS NOT NULL
		ORDER BY aa.artist_order`, albumID)
}

func (s *Storage) artistRefs(ctx context.Context, query string, id int64) ([]api.ArtistOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist refs: %w", err)
	}
	defer rows.Close()

	var refs []api.ArtistOrder
	for rows.Next() {
		var ref api.ArtistOrder
		if err := rows.Scan(&ref.Fingerprint, &ref.ArtistOrder); err != nil {
			return nil, fmt.Errorf("failed to scan artist ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Storage) songPlaylistRefs(ctx context.Context, songID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.fingerprint
		FROM playlist_songs ps
		JOIN playlists p ON p.id = ps.playlist_id
		WHERE ps.song_id = ? AND p.fingerprint IS NOT NULL`, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist refs: %w", err)
	}
	defer rows.Close()

	var fps []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan playlist ref: %w", err)
		}
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

// placeholders builds "?, ?, ?" for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(fps []string) []any {
	args := make([]any, len(fps))
	for i, fp := range fps {
		args[i] = fp
	}
	return args
}
