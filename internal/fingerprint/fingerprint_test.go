package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSong_Deterministic(t *testing.T) {
	a := Song("Paranoid Android", 387, []string{"Radiohead"}, "OK Computer")
	b := Song("Paranoid Android", 387, []string{"Radiohead"}, "OK Computer")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // sha256 hex
}

func TestSong_NormalizesIdentifyingFields(t *testing.T) {
	base := Song("Paranoid Android", 387, []string{"Radiohead"}, "OK Computer")

	tests := []struct {
		name     string
		song     string
		artists  []string
		album    string
		wantSame bool
	}{
		{
			name:     "case insensitive",
			song:     "PARANOID ANDROID",
			artists:  []string{"radiohead"},
			album:    "ok computer",
			wantSame: true,
		},
		{
			name:     "whitespace collapsed",
			song:     "  Paranoid   Android ",
			artists:  []string{" Radiohead "},
			album:    "OK  Computer",
			wantSame: true,
		},
		{
			name:     "different name changes fingerprint",
			song:     "Karma Police",
			artists:  []string{"Radiohead"},
			album:    "OK Computer",
			wantSame: false,
		},
		{
			name:     "different album changes fingerprint",
			song:     "Paranoid Android",
			artists:  []string{"Radiohead"},
			album:    "The Bends",
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Song(tt.song, 387, tt.artists, tt.album)
			if tt.wantSame {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}

func TestSong_ArtistOrderDoesNotMatter(t *testing.T) {
	a := Song("Under Pressure", 248, []string{"Queen", "David Bowie"}, "")
	b := Song("Under Pressure", 248, []string{"David Bowie", "Queen"}, "")

	assert.Equal(t, a, b)
}

func TestSong_DurationIsIdentifying(t *testing.T) {
	a := Song("Intro", 30, nil, "")
	b := Song("Intro", 31, nil, "")

	assert.NotEqual(t, a, b)
}

func TestAlbum(t *testing.T) {
	a := Album("Greatest Hits", "compilation", []string{"Queen"})
	b := Album("greatest hits", "Compilation", []string{"queen"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Album("Greatest Hits", "album", []string{"Queen"}))
}

func TestArtistAndPlaylist(t *testing.T) {
	assert.Equal(t, Artist("Nina Simone"), Artist("  nina  simone "))
	assert.NotEqual(t, Artist("Nina Simone"), Playlist("Nina Simone"))
	assert.Equal(t, Playlist("Morning Run"), Playlist("morning run"))
}
