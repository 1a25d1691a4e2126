package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpClient "github.com/tunno/tunno/internal/client/api"
	"github.com/tunno/tunno/internal/client/files"
	"github.com/tunno/tunno/internal/client/history"
	"github.com/tunno/tunno/internal/client/pairing"
	"github.com/tunno/tunno/internal/client/storage/sqlite"
	"github.com/tunno/tunno/internal/fingerprint"
	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

// fakeServer эмулирует десктопный сервер: хранит библиотеку в памяти и
// реализует httpClient.ClientAPI поверх неё.
type fakeServer struct {
	songs     map[string]api.SongData
	albums    map[string]api.AlbumData
	artists   map[string]api.ArtistData
	playlists map[string]api.PlaylistData

	songOrder []string // порядок выдачи в compare

	pingFailures int // сколько первых ping завершить неудачей
	pingCalls    int

	batchRequests []api.BatchRequest
	fetchBatchErr error

	audioDownloads int
	onAudio        func(fp string) // вызывается перед каждой загрузкой аудио

	completed bool
	aborted   bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		songs:     make(map[string]api.SongData),
		albums:    make(map[string]api.AlbumData),
		artists:   make(map[string]api.ArtistData),
		playlists: make(map[string]api.PlaylistData),
	}
}

func (f *fakeServer) addSong(s api.SongData) {
	f.songs[s.Fingerprint] = s
	f.songOrder = append(f.songOrder, s.Fingerprint)
}

func (f *fakeServer) Ping(_ context.Context) httpClient.PingResult {
	f.pingCalls++
	if f.pingCalls <= f.pingFailures {
		return httpClient.PingResult{OK: false, Message: "connection refused"}
	}
	return httpClient.PingResult{OK: true}
}

func (f *fakeServer) Compare(_ context.Context, req api.CompareRequest) (*api.CompareResponse, error) {
	resp := &api.CompareResponse{
		MissingSongs:     missingFrom(f.songOrder, req.SongFingerprints),
		MissingAlbums:    missingFrom(keys(f.albums), req.AlbumFingerprints),
		MissingArtists:   missingFrom(keys(f.artists), req.ArtistFingerprints),
		MissingPlaylists: missingFrom(keys(f.playlists), req.PlaylistFingerprints),
	}
	resp.Totals = api.CompareTotals{
		Songs:     len(resp.MissingSongs),
		Albums:    len(resp.MissingAlbums),
		Artists:   len(resp.MissingArtists),
		Playlists: len(resp.MissingPlaylists),
	}
	return resp, nil
}

func (f *fakeServer) FetchBatch(_ context.Context, req api.BatchRequest) (*api.BatchResponse, error) {
	if f.fetchBatchErr != nil {
		return nil, f.fetchBatchErr
	}
	f.batchRequests = append(f.batchRequests, req)

	resp := &api.BatchResponse{}
	for _, fp := range req.SongFingerprints {
		if s, ok := f.songs[fp]; ok {
			resp.Songs = append(resp.Songs, s)
		}
	}
	for _, fp := range req.AlbumFingerprints {
		if a, ok := f.albums[fp]; ok {
			resp.Albums = append(resp.Albums, a)
		}
	}
	for _, fp := range req.ArtistFingerprints {
		if a, ok := f.artists[fp]; ok {
			resp.Artists = append(resp.Artists, a)
		}
	}
	for _, fp := range req.PlaylistFingerprints {
		if p, ok := f.playlists[fp]; ok {
			resp.Playlists = append(resp.Playlists, p)
		}
	}
	return resp, nil
}

func (f *fakeServer) DownloadAudio(_ context.Context, fp string) (string, error) {
	if f.onAudio != nil {
		f.onAudio(fp)
	}
	f.audioDownloads++
	return fp + ".mp3", nil
}

func (f *fakeServer) DownloadThumbnail(_ context.Context, fp string, _ models.EntityKind) string {
	return fp + ".jpg"
}

func (f *fakeServer) Complete(_ context.Context) { f.completed = true }
func (f *fakeServer) Abort(_ context.Context)    { f.aborted = true }

func missingFrom(server, client []string) []string {
	have := make(map[string]bool, len(client))
	for _, fp := range client {
		have[fp] = true
	}
	var missing []string
	for _, fp := range server {
		if !have[fp] {
			missing = append(missing, fp)
		}
	}
	return missing
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func newTestEngine(t *testing.T, server *fakeServer) (*Engine, *sqlite.Storage) {
	t.Helper()

	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fileStorage, err := files.New(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewEngine(store, fileStorage, nil, logger)
	engine.SetClientFactory(func(_ pairing.ConnectionData) httpClient.ClientAPI {
		return server
	})
	engine.freeSpace = func() (uint64, error) { return 1 << 40, nil }
	engine.pingBackoff = func() retry.Backoff {
		return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond))
	}

	return engine, store
}

func testConn() pairing.ConnectionData {
	return pairing.ConnectionData{Host: "127.0.0.1", Port: 3030, Token: "t", URL: "http://127.0.0.1:3030"}
}

func TestEngine_ShortCircuitWhenLibrariesMatch(t *testing.T) {
	server := newFakeServer()
	engine, _ := newTestEngine(t, server)

	require.NoError(t, engine.Start(context.Background(), testConn()))

	assert.Equal(t, StateCompleted, engine.Status().State())
	assert.True(t, server.completed)
	assert.Empty(t, server.batchRequests, "no batches expected when nothing is missing")
}

func TestEngine_FullRunStoresEntitiesWithRelations(t *testing.T) {
	server := newFakeServer()

	artistFP := fingerprint.Artist("Boards of Canada")
	albumFP := fingerprint.Album("Geogaddi", models.AlbumTypeAlbum, []string{"Boards of Canada"})
	playlistFP := fingerprint.Playlist("Late Night")
	songFP := fingerprint.Song("Music Is Math", 315, []string{"Boards of Canada"}, "Geogaddi")
	looseFP := fingerprint.Song("Loose Track", 120, nil, "")

	server.artists[artistFP] = api.ArtistData{Fingerprint: artistFP, Name: "Boards of Canada", HasThumbnail: true}
	server.albums[albumFP] = api.AlbumData{
		Fingerprint:        albumFP,
		Name:               "Geogaddi",
		AlbumType:          models.AlbumTypeAlbum,
		ArtistFingerprints: []api.ArtistOrder{{Fingerprint: artistFP, ArtistOrder: 0}},
	}
	server.playlists[playlistFP] = api.PlaylistData{Fingerprint: playlistFP, Name: "Late Night"}
	server.addSong(api.SongData{
		Fingerprint:          songFP,
		Name:                 "Music Is Math",
		Duration:             315,
		AlbumFingerprint:     albumFP,
		ArtistFingerprints:   []api.ArtistOrder{{Fingerprint: artistFP, ArtistOrder: 0}},
		PlaylistFingerprints: []string{playlistFP},
	})
	server.addSong(api.SongData{Fingerprint: looseFP, Name: "Loose Track", Duration: 120})

	engine, store := newTestEngine(t, server)
	require.NoError(t, engine.Start(context.Background(), testConn()))

	assert.Equal(t, StateCompleted, engine.Status().State())
	assert.True(t, server.completed)
	assert.Equal(t, 2, server.audioDownloads)

	ctx := context.Background()
	db := store.DB()

	var songCount int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&songCount))
	assert.Equal(t, 2, songCount)

	// ссылка на альбом разрешена в локальный id
	var albumID int64
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT album_id FROM songs WHERE fingerprint = ?", songFP).Scan(&albumID))
	var albumName string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT name FROM albums WHERE id = ?", albumID).Scan(&albumName))
	assert.Equal(t, "Geogaddi", albumName)

	// связь песня-исполнитель с порядком
	var artistOrder int
	require.NoError(t, db.QueryRowContext(ctx, `
		SELECT sa.artist_order FROM song_artists sa
		JOIN songs s ON s.id = sa.song_id
		WHERE s.fingerprint = ?`, songFP).Scan(&artistOrder))
	assert.Equal(t, 0, artistOrder)

	// песня попала в плейлист
	var playlistLinks int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM playlist_songs").Scan(&playlistLinks))
	assert.Equal(t, 1, playlistLinks)

	// агрегаты пересчитаны после всех батчей
	var totalTracks int
	var totalDuration int64
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT total_tracks, total_duration FROM albums WHERE id = ?", albumID).
		Scan(&totalTracks, &totalDuration))
	assert.Equal(t, 1, totalTracks)
	assert.Equal(t, int64(315), totalDuration)
}

func TestEngine_BatchPartitioning(t *testing.T) {
	server := newFakeServer()
	for i := 0; i < 45; i++ {
		fp := fmt.Sprintf("fp-song-%02d", i)
		server.addSong(api.SongData{Fingerprint: fp, Name: fmt.Sprintf("Song %d", i), Duration: 100})
	}
	artistFP := "fp-artist"
	server.artists[artistFP] = api.ArtistData{Fingerprint: artistFP, Name: "Solo"}

	engine, _ := newTestEngine(t, server)
	require.NoError(t, engine.Start(context.Background(), testConn()))

	require.Len(t, server.batchRequests, 3)
	assert.Len(t, server.batchRequests[0].SongFingerprints, 20)
	assert.Len(t, server.batchRequests[1].SongFingerprints, 20)
	assert.Len(t, server.batchRequests[2].SongFingerprints, 5)

	// только первый батч несёт списки прочих сущностей
	assert.Equal(t, []string{artistFP}, server.batchRequests[0].ArtistFingerprints)
	assert.Empty(t, server.batchRequests[1].ArtistFingerprints)
	assert.Empty(t, server.batchRequests[2].ArtistFingerprints)

	for i, req := range server.batchRequests {
		assert.Equal(t, i, req.BatchIndex)
	}
}

func TestEngine_PreflightRejectsBeforeAnyDownload(t *testing.T) {
	server := newFakeServer()
	server.addSong(api.SongData{Fingerprint: "fp-big", Name: "Big", Duration: 100})

	engine, _ := newTestEngine(t, server)
	engine.freeSpace = func() (uint64, error) { return 1024, nil }

	err := engine.Start(context.Background(), testConn())
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, ErrorStorage, syncErr.Kind)
	assert.Contains(t, syncErr.Message, "not enough free space")

	assert.Equal(t, StateFailed, engine.Status().State())
	assert.Empty(t, server.batchRequests)
	assert.Zero(t, server.audioDownloads)
}

func TestEngine_CancelReturnsCleanlyToIdle(t *testing.T) {
	server := newFakeServer()
	for i := 0; i < 10; i++ {
		server.addSong(api.SongData{Fingerprint: fmt.Sprintf("fp-%d", i), Name: "S", Duration: 1})
	}

	engine, store := newTestEngine(t, server)

	downloads := 0
	server.onAudio = func(string) {
		downloads++
		if downloads == 3 {
			engine.Cancel()
		}
	}

	err := engine.Start(context.Background(), testConn())
	require.NoError(t, err, "user cancellation is not an error")

	assert.Equal(t, StateIdle, engine.Status().State())
	assert.True(t, server.aborted)
	assert.False(t, server.completed)

	// уже записанные песни остаются: частичный прогресс не откатывается
	var count int
	require.NoError(t, store.DB().QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM songs").Scan(&count))
	assert.Less(t, count, 10)
}

func TestEngine_ResumesAfterCancel(t *testing.T) {
	server := newFakeServer()
	for i := 0; i < 10; i++ {
		server.addSong(api.SongData{
			Fingerprint: fmt.Sprintf("fp-%d", i),
			Name:        fmt.Sprintf("S%d", i),
			Duration:    1,
		})
	}

	engine, store := newTestEngine(t, server)

	perSong := make(map[string]int)
	calls := 0
	server.onAudio = func(fp string) {
		perSong[fp]++
		calls++
		if calls == 3 {
			engine.Cancel()
		}
	}

	require.NoError(t, engine.Start(context.Background(), testConn()))
	require.Equal(t, StateIdle, engine.Status().State())

	db := store.DB()
	var count int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM songs").Scan(&count))
	require.Equal(t, 2, count, "songs stored before the cancelled download remain")

	// повторный запуск без отмены досинхронизирует остаток
	engine.Status().Reset()
	require.NoError(t, engine.Start(context.Background(), testConn()))

	assert.Equal(t, StateCompleted, engine.Status().State())
	assert.True(t, server.completed)

	var distinct int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM songs").Scan(&count))
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(DISTINCT fingerprint) FROM songs").Scan(&distinct))
	assert.Equal(t, 10, count)
	assert.Equal(t, 10, distinct, "no duplicate rows after resuming")

	// песни из первого запуска не скачиваются повторно
	assert.Equal(t, 1, perSong["fp-0"])
	assert.Equal(t, 1, perSong["fp-1"])
}

func TestEngine_InterruptFailsWithNetworkError(t *testing.T) {
	server := newFakeServer()
	server.addSong(api.SongData{Fingerprint: "fp-1", Name: "S", Duration: 1})
	server.addSong(api.SongData{Fingerprint: "fp-2", Name: "S2", Duration: 1})

	engine, _ := newTestEngine(t, server)
	server.onAudio = func(string) {
		engine.Interrupt()
	}

	err := engine.Start(context.Background(), testConn())
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, ErrorNetwork, syncErr.Kind)
	assert.Equal(t, StateFailed, engine.Status().State())
}

func TestEngine_ResyncIsIdempotent(t *testing.T) {
	server := newFakeServer()
	artistFP := fingerprint.Artist("Artist")
	server.artists[artistFP] = api.ArtistData{Fingerprint: artistFP, Name: "Artist"}
	server.addSong(api.SongData{
		Fingerprint:        fingerprint.Song("Track", 200, []string{"Artist"}, ""),
		Name:               "Track",
		Duration:           200,
		ArtistFingerprints: []api.ArtistOrder{{Fingerprint: artistFP, ArtistOrder: 0}},
	})

	engine, store := newTestEngine(t, server)
	require.NoError(t, engine.Start(context.Background(), testConn()))
	assert.Equal(t, 1, server.audioDownloads)

	// повторный запуск после сброса состояния ничего не тянет заново
	engine.Status().Reset()
	require.NoError(t, engine.Start(context.Background(), testConn()))

	assert.Equal(t, 1, server.audioDownloads, "no re-download on second run")

	var songs, artists int
	db := store.DB()
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM songs").Scan(&songs))
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM artists").Scan(&artists))
	assert.Equal(t, 1, songs)
	assert.Equal(t, 1, artists)
}

func TestEngine_PingRetriesThenSucceeds(t *testing.T) {
	server := newFakeServer()
	server.pingFailures = 2

	engine, _ := newTestEngine(t, server)
	require.NoError(t, engine.Start(context.Background(), testConn()))

	assert.Equal(t, 3, server.pingCalls)
	assert.Equal(t, StateCompleted, engine.Status().State())
}

func TestEngine_UnreachableServerFailsWithNetworkError(t *testing.T) {
	server := newFakeServer()
	server.pingFailures = 100

	engine, _ := newTestEngine(t, server)

	err := engine.Start(context.Background(), testConn())
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, ErrorNetwork, syncErr.Kind)
	assert.Contains(t, syncErr.Message, "server unreachable")
}

func TestEngine_BatchFetchErrorIsNetworkFailure(t *testing.T) {
	server := newFakeServer()
	server.addSong(api.SongData{Fingerprint: "fp", Name: "S", Duration: 1})
	server.fetchBatchErr = errors.New("connection reset")

	engine, _ := newTestEngine(t, server)

	err := engine.Start(context.Background(), testConn())
	require.Error(t, err)

	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, ErrorNetwork, syncErr.Kind)
}

func TestEngine_RejectsConcurrentStart(t *testing.T) {
	server := newFakeServer()
	engine, _ := newTestEngine(t, server)

	engine.mu.Lock()
	engine.running = true
	engine.mu.Unlock()

	err := engine.Start(context.Background(), testConn())
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestEngine_RecordsRunHistory(t *testing.T) {
	server := newFakeServer()
	server.addSong(api.SongData{Fingerprint: "fp", Name: "S", Duration: 1})

	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fileStorage, err := files.New(t.TempDir())
	require.NoError(t, err)

	historyStore, err := history.New(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = historyStore.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(store, fileStorage, historyStore, logger)
	engine.SetClientFactory(func(_ pairing.ConnectionData) httpClient.ClientAPI { return server })
	engine.freeSpace = func() (uint64, error) { return 1 << 40, nil }
	engine.pingBackoff = func() retry.Backoff {
		return retry.WithMaxRetries(3, retry.NewConstant(time.Millisecond))
	}

	require.NoError(t, engine.Start(ctx, testConn()))

	records, err := historyStore.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, string(StateCompleted), records[0].Phase)
	assert.Equal(t, 1, records[0].SyncedItems)
}
