package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunno/tunno/internal/client/files"
	"github.com/tunno/tunno/internal/client/pairing"
	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *files.Storage) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	fileStorage, err := files.New(t.TempDir())
	require.NoError(t, err)

	client := NewClient(pairing.ConnectionData{
		Host:  "127.0.0.1",
		Port:  3030,
		Token: "test-token",
		URL:   server.URL,
	}, fileStorage)

	return client, fileStorage
}

func TestPing(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ping", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))

		result := client.Ping(context.Background())
		assert.True(t, result.OK)
	})

	t.Run("server error captured into result", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		result := client.Ping(context.Background())
		assert.False(t, result.OK)
		assert.Contains(t, result.Message, "500")
	})

	t.Run("unreachable host captured into result", func(t *testing.T) {
		fileStorage, err := files.New(t.TempDir())
		require.NoError(t, err)

		client := NewClient(pairing.ConnectionData{
			Token: "t",
			URL:   "http://127.0.0.1:1", // nothing listens here
		}, fileStorage)

		result := client.Ping(context.Background())
		assert.False(t, result.OK)
		assert.NotEmpty(t, result.Message)
	})
}

func TestCompare(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync/compare", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.CompareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"fp-1"}, req.SongFingerprints)

		json.NewEncoder(w).Encode(api.CompareResponse{
			MissingSongs: []string{"fp-2"},
			Totals:       api.CompareTotals{Songs: 1},
		})
	}))

	resp, err := client.Compare(context.Background(), api.CompareRequest{
		SongFingerprints: []string{"fp-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fp-2"}, resp.MissingSongs)
	assert.Equal(t, 1, resp.Totals.Songs)
}

func TestCompare_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "invalid token"})
	}))

	_, err := client.Compare(context.Background(), api.CompareRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestFetchBatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync/batch", r.URL.Path)

		var req api.BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.BatchIndex)

		json.NewEncoder(w).Encode(api.BatchResponse{
			Songs: []api.SongData{{Fingerprint: "fp-s", Name: "Song"}},
		})
	}))

	resp, err := client.FetchBatch(context.Background(), api.BatchRequest{
		SongFingerprints: []string{"fp-s"},
		BatchIndex:       2,
	})
	require.NoError(t, err)
	require.Len(t, resp.Songs, 1)
	assert.Equal(t, "Song", resp.Songs[0].Name)
}

func TestDownloadAudio(t *testing.T) {
	content := []byte("mp3 bytes")

	client, fileStorage := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/audio/fp-song", r.URL.Path)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(content)
	}))

	name, err := client.DownloadAudio(context.Background(), "fp-song")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".mp3"), "got %q", name)

	saved, err := fileStorage.Read(files.BucketSongs, name)
	require.NoError(t, err)
	assert.Equal(t, content, saved)
}

func TestDownloadAudio_UnknownContentTypeFallsBackToBin(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-mystery")
		w.Write([]byte("data"))
	}))

	name, err := client.DownloadAudio(context.Background(), "fp")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".bin"), "got %q", name)
}

func TestDownloadAudio_FailureIsError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.DownloadAudio(context.Background(), "fp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadThumbnail(t *testing.T) {
	t.Run("success returns filename", func(t *testing.T) {
		client, fileStorage := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/files/thumbnail/fp-art/artist", r.URL.Path)
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg"))
		}))

		name := client.DownloadThumbnail(context.Background(), "fp-art", models.KindArtist)
		require.NotEmpty(t, name)
		assert.True(t, strings.HasSuffix(name, ".jpg"))

		_, err := fileStorage.Read(files.BucketThumbnails, name)
		assert.NoError(t, err)
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		name := client.DownloadThumbnail(context.Background(), "fp", models.KindSong)
		assert.Empty(t, name)
	})

	t.Run("unreachable host is swallowed", func(t *testing.T) {
		fileStorage, err := files.New(t.TempDir())
		require.NoError(t, err)

		client := NewClient(pairing.ConnectionData{Token: "t", URL: "http://127.0.0.1:1"}, fileStorage)

		name := client.DownloadThumbnail(context.Background(), "fp", models.KindAlbum)
		assert.Empty(t, name)
	})
}

func TestCompleteAndAbort_IgnoreErrors(t *testing.T) {
	var gotPaths []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	// ни одна из этих операций не должна паниковать или возвращать ошибку
	client.Complete(context.Background())
	client.Abort(context.Background())

	assert.Equal(t, []string{"/api/sync/complete", "/api/sync/abort"}, gotPaths)
}
