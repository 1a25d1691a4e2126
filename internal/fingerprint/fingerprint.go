// Package fingerprint derives stable content-addressed identifiers for
// library entities. Two independently-operated stores compute identical
// fingerprints for the same logical song/album/artist/playlist, so the
// fingerprint is the unit of comparison during sync.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// normalize приводит строку к каноничному виду: trim, lowercase,
// схлопывание внутренних пробелов. Иначе "The  Beatles" и "the beatles"
// дали бы разные fingerprints на разных устройствах.
func normalize(s string) string {
	trimmed := strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(trimmed))

	prevSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}

	return b.String()
}

// normalizeArtists normalizes each name, then sorts, so that artist order
// does not affect the fingerprint.
func normalizeArtists(names []string) string {
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		normalized = append(normalized, normalize(name))
	}
	sort.Strings(normalized)
	return strings.Join(normalized, ",")
}

func hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Song computes the fingerprint of a song from its identifying fields.
// Duration is part of the identity; play counts, favorites and file names
// are not.
func Song(name string, duration int64, artistNames []string, albumName string) string {
	input := "song:" + normalize(name) +
		":" + strconv.FormatInt(duration, 10) +
		":" + normalizeArtists(artistNames) +
		":" + normalize(albumName)
	return hash(input)
}

// Album computes the fingerprint of an album.
func Album(name, albumType string, artistNames []string) string {
	input := "album:" + normalize(name) +
		":" + normalize(albumType) +
		":" + normalizeArtists(artistNames)
	return hash(input)
}

// Artist computes the fingerprint of an artist.
func Artist(name string) string {
	return hash("artist:" + normalize(name))
}

// Playlist computes the fingerprint of a playlist.
func Playlist(name string) string {
	return hash("playlist:" + normalize(name))
}
