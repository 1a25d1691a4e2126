// Package models contains the local library row models shared by the
// server and client stores.
package models

import (
	"encoding/json"
	"time"
)

// EntityKind identifies one of the four synced entity kinds. It is a closed
// enumeration: thumbnail routes, the resolution cache and aggregate updates
// all switch over it exhaustively.
type EntityKind int

const (
	KindSong EntityKind = iota
	KindAlbum
	KindArtist
	KindPlaylist
)

// String returns the wire name of the kind, used in thumbnail URLs.
func (k EntityKind) String() string {
	switch k {
	case KindSong:
		return "song"
	case KindAlbum:
		return "album"
	case KindArtist:
		return "artist"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ParseEntityKind maps a wire name back to its kind.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch s {
	case "song":
		return KindSong, true
	case "album":
		return KindAlbum, true
	case "artist":
		return KindArtist, true
	case "playlist":
		return KindPlaylist, true
	default:
		return 0, false
	}
}

// Album types as stored in the albums table.
const (
	AlbumTypeSingle      = "single"
	AlbumTypeAlbum       = "album"
	AlbumTypeCompilation = "compilation"
)

// LyricCue is one timed lyric line.
type LyricCue struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
}

// ParseLyrics декодирует сериализованные lyric cues. Пустая или битая
// строка превращается в пустой список — отсутствие текста песни никогда
// не должно ронять вставку.
func ParseLyrics(raw string) []LyricCue {
	if raw == "" {
		return []LyricCue{}
	}

	var cues []LyricCue
	if err := json.Unmarshal([]byte(raw), &cues); err != nil {
		return []LyricCue{}
	}
	if cues == nil {
		return []LyricCue{}
	}

	return cues
}

// Artist is a local artist row.
type Artist struct {
	ID            int64
	Name          string
	IsFavorite    bool
	Thumbnail     string // local filename, empty if none
	Fingerprint   string
	TotalTracks   int64
	TotalDuration int64
	CreatedAt     time.Time
}

// Album is a local album row.
type Album struct {
	ID            int64
	Name          string
	AlbumType     string
	ReleaseYear   *int
	IsFavorite    bool
	Thumbnail     string
	Fingerprint   string
	TotalTracks   int64
	TotalDuration int64
	CreatedAt     time.Time
}

// Playlist is a local playlist row.
type Playlist struct {
	ID            int64
	Name          string
	IsFavorite    bool
	Thumbnail     string
	Fingerprint   string
	TotalTracks   int64
	TotalDuration int64
	CreatedAt     time.Time
}

// Song is a local song row. File is the audio filename inside the songs
// bucket; AlbumID is nil for songs without an album.
type Song struct {
	ID          int64
	Name        string
	Duration    int64
	ReleaseYear *int
	IsFavorite  bool
	Lyrics      []LyricCue
	File        string
	Thumbnail   string
	AlbumID     *int64
	Fingerprint string
	CreatedAt   time.Time
}
