package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tunno/tunno/internal/fingerprint"
)

// SongParams describes a song being added to the library.
type SongParams struct {
	Name          string
	Duration      int64
	ReleaseYear   *int
	Lyrics        string // JSON-кодированный массив строк с таймингами
	FilePath      string
	ThumbnailPath string
	IsFavorite    bool
	AlbumID       *int64
	ArtistIDs     []int64
	PlaylistIDs   []int64
}

// AddArtist inserts an artist, computing its fingerprint from the name.
func (s *Storage) AddArtist(ctx context.Context, name, thumbnailPath string, favorite bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO artists (name, thumbnail_path, is_favorite, fingerprint)
		VALUES (?, ?, ?, ?)`,
		name, thumbnailPath, boolToInt(favorite), fingerprint.Artist(name))
	if err != nil {
		return 0, fmt.Errorf("failed to insert artist: %w", err)
	}
	return res.LastInsertId()
}

// AddAlbum inserts an album and links it to its artists in order. The
// fingerprint is derived from the name, type and artist names.
func (s *Storage) AddAlbum(ctx context.Context, name, albumType string, releaseYear *int, thumbnailPath string, favorite bool, artistIDs []int64) (int64, error) {
	artistNames, err := s.artistNames(ctx, artistIDs)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (name, album_type, release_year, thumbnail_path, is_favorite, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)`,
		name, albumType, nullInt(releaseYear), thumbnailPath, boolToInt(favorite),
		fingerprint.Album(name, albumType, artistNames))
	if err != nil {
		return 0, fmt.Errorf("failed to insert album: %w", err)
	}

	albumID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for order, artistID := range artistIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO album_artists (album_id, artist_id, artist_order)
			VALUES (?, ?, ?)`, albumID, artistID, order); err != nil {
			return 0, fmt.Errorf("failed to link album artist: %w", err)
		}
	}

	return albumID, nil
}

// AddPlaylist inserts a playlist.
func (s *Storage) AddPlaylist(ctx context.Context, name string, favorite bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO playlists (name, is_favorite, fingerprint)
		VALUES (?, ?, ?)`,
		name, boolToInt(favorite), fingerprint.Playlist(name))
	if err != nil {
		return 0, fmt.Errorf("failed to insert playlist: %w", err)
	}
	return res.LastInsertId()
}

// AddSong inserts a song with its relations. The fingerprint is derived
// from name, duration, artist names and album name.
func (s *Storage) AddSong(ctx context.Context, params SongParams) (int64, error) {
	artistNames, err := s.artistNames(ctx, params.ArtistIDs)
	if err != nil {
		return 0, err
	}

	albumName := ""
	if params.AlbumID != nil {
		if err := s.db.QueryRowContext(ctx,
			"SELECT name FROM albums WHERE id = ?", *params.AlbumID).Scan(&albumName); err != nil {
			return 0, fmt.Errorf("failed to resolve album name: %w", err)
		}
	}

	lyrics := params.Lyrics
	if lyrics == "" {
		lyrics = "[]"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (name, duration, release_year, lyrics, file_path, thumbnail_path, is_favorite, album_id, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Name, params.Duration, nullInt(params.ReleaseYear), lyrics,
		params.FilePath, params.ThumbnailPath, boolToInt(params.IsFavorite),
		nullInt64(params.AlbumID),
		fingerprint.Song(params.Name, params.Duration, artistNames, albumName))
	if err != nil {
		return 0, fmt.Errorf("failed to insert song: %w", err)
	}

	songID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for order, artistID := range params.ArtistIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO song_artists (song_id, artist_id, artist_order)
			VALUES (?, ?, ?)`, songID, artistID, order); err != nil {
			return 0, fmt.Errorf("failed to link song artist: %w", err)
		}
	}

	for _, playlistID := range params.PlaylistIDs {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO playlist_songs (playlist_id, song_id)
			VALUES (?, ?)`, playlistID, songID); err != nil {
			return 0, fmt.Errorf("failed to link song playlist: %w", err)
		}
	}

	return songID, nil
}

// artistNames resolves display names for the given ids, preserving order.
func (s *Storage) artistNames(ctx context.Context, ids []int64) ([]string, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		var name string
		if err := s.db.QueryRowContext(ctx,
			"SELECT name FROM artists WHERE id = ?", id).Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to resolve artist %d: %w", id, err)
		}
		names = append(names, name)
	}
	return names, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
