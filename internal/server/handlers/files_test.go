package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunno/tunno/internal/fingerprint"
	"github.com/tunno/tunno/internal/server/session"
	"github.com/tunno/tunno/internal/server/storage/sqlite"
)

func newFilesRouter(t *testing.T) (*chi.Mux, *sqlite.Storage, *session.Tracker) {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tracker := session.NewTracker(time.Minute)
	handler := NewFilesHandler(store, tracker, testLogger())

	r := chi.NewRouter()
	r.Get("/api/files/audio/{fingerprint}", handler.Audio)
	r.Get("/api/files/thumbnail/{fingerprint}/{kind}", handler.Thumbnail)
	return r, store, tracker
}

func TestAudio_ServesFileWithContentType(t *testing.T) {
	router, store, _ := newFilesRouter(t)
	ctx := context.Background()

	audioPath := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("mp3 bytes"), 0o600))

	_, err := store.AddSong(ctx, sqlite.SongParams{
		Name: "Track", Duration: 10, FilePath: audioPath,
	})
	require.NoError(t, err)

	songFP := fingerprint.Song("Track", 10, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/api/files/audio/"+songFP, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3 bytes", rec.Body.String())
}

func TestAudio_UnknownFingerprint(t *testing.T) {
	router, _, _ := newFilesRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/files/audio/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAudio_SongWithoutFile(t *testing.T) {
	router, store, _ := newFilesRouter(t)

	_, err := store.AddSong(context.Background(), sqlite.SongParams{Name: "Empty", Duration: 5})
	require.NoError(t, err)

	songFP := fingerprint.Song("Empty", 5, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/api/files/audio/"+songFP, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThumbnail_ServesImage(t *testing.T) {
	router, store, _ := newFilesRouter(t)

	thumbPath := filepath.Join(t.TempDir(), "artist.jpg")
	require.NoError(t, os.WriteFile(thumbPath, []byte("jpeg bytes"), 0o600))

	_, err := store.AddArtist(context.Background(), "Artist", thumbPath, false)
	require.NoError(t, err)

	artistFP := fingerprint.Artist("Artist")
	req := httptest.NewRequest(http.MethodGet, "/api/files/thumbnail/"+artistFP+"/artist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
}

func TestAudio_ServeRefreshesSession(t *testing.T) {
	router, store, tracker := newFilesRouter(t)
	ctx := context.Background()

	audioPath := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("mp3 bytes"), 0o600))

	_, err := store.AddSong(ctx, sqlite.SongParams{
		Name: "Track", Duration: 10, FilePath: audioPath,
	})
	require.NoError(t, err)

	require.Equal(t, session.StateWaiting, tracker.State())

	songFP := fingerprint.Song("Track", 10, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/api/files/audio/"+songFP, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// долгая серия загрузок без других вызовов API тоже продлевает сессию
	assert.Equal(t, session.StateConnected, tracker.State())
}

func TestThumbnail_BadKind(t *testing.T) {
	router, _, _ := newFilesRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/files/thumbnail/fp/banana", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
