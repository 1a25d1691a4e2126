package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sethvargo/go-retry"

	httpClient "github.com/tunno/tunno/internal/client/api"
	"github.com/tunno/tunno/internal/client/files"
	"github.com/tunno/tunno/internal/client/history"
	"github.com/tunno/tunno/internal/client/pairing"
	"github.com/tunno/tunno/internal/client/storage"
	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

const (
	// batchSize is the number of songs pulled per metadata batch.
	batchSize = 20

	// songSizeEstimate is the assumed on-disk size of one audio file used by
	// the storage preflight check.
	songSizeEstimate = 4 * 1024 * 1024

	// metadataSizeEstimate covers metadata plus thumbnail per entity.
	metadataSizeEstimate = 50 * 1024

	pingRetries  = 3
	pingInterval = 2 * time.Second
)

// ErrSyncInProgress is returned by Start while another run is active.
var ErrSyncInProgress = errors.New("sync already in progress")

// errCancelled маркирует кооперативную отмену внутри цикла синхронизации.
var errCancelled = errors.New("sync cancelled")

// WakeLock keeps the device awake for the duration of a sync run. The
// default implementation does nothing.
type WakeLock interface {
	Acquire()
	Release()
}

type noopWakeLock struct{}

func (noopWakeLock) Acquire() {}
func (noopWakeLock) Release() {}

// ClientFactory builds a transport client for one pairing. Swappable in
// tests.
type ClientFactory func(conn pairing.ConnectionData) httpClient.ClientAPI

// Engine drives a full sync run against a paired desktop server: compare
// fingerprints, pull missing entities in batches, rebuild aggregates.
//
// One Engine supports at most one run at a time. Cancel and Interrupt may
// be called from other goroutines while Start is blocked.
type Engine struct {
	store     storage.LibraryStorage
	files     *files.Storage
	history   *history.Store
	status    *Status
	wakeLock  WakeLock
	newClient ClientFactory
	logger    *slog.Logger

	// freeSpace измеряет свободное место; подменяется в тестах
	freeSpace func() (uint64, error)

	// pingBackoff задаёт политику повторов при подключении
	pingBackoff func() retry.Backoff

	mu          gosync.Mutex
	running     bool
	cancel      context.CancelFunc
	interrupted bool
}

// NewEngine creates a sync engine. historyStore may be nil, in which case
// finished runs are not recorded.
func NewEngine(
	store storage.LibraryStorage,
	fileStorage *files.Storage,
	historyStore *history.Store,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:    store,
		files:    fileStorage,
		history:  historyStore,
		status:   NewStatus(),
		wakeLock: noopWakeLock{},
		newClient: func(conn pairing.ConnectionData) httpClient.ClientAPI {
			return httpClient.NewClient(conn, fileStorage)
		},
		logger:    logger,
		freeSpace: fileStorage.FreeSpace,
		pingBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(pingRetries, retry.NewConstant(pingInterval))
		},
	}
}

// Status exposes the observable sync state.
func (e *Engine) Status() *Status {
	return e.status
}

// SetWakeLock replaces the wake lock implementation.
func (e *Engine) SetWakeLock(w WakeLock) {
	e.wakeLock = w
}

// SetClientFactory replaces the transport client constructor.
func (e *Engine) SetClientFactory(f ClientFactory) {
	e.newClient = f
}

// Start runs a full sync against the server described by conn. It blocks
// until the run finishes, fails or is cancelled. Only one run may be active
// at a time.
func (e *Engine) Start(ctx context.Context, conn pairing.ConnectionData) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrSyncInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	e.interrupted = false
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	e.wakeLock.Acquire()
	defer e.wakeLock.Release()

	startedAt := time.Now()
	client := e.newClient(conn)

	runErr := e.safeRun(runCtx, client)

	if runErr == nil {
		e.recordRun(startedAt, string(StateCompleted), nil)
		return nil
	}

	if errors.Is(runErr, errCancelled) {
		e.mu.Lock()
		interrupted := e.interrupted
		e.mu.Unlock()

		if interrupted {
			// Прерывание извне (уход приложения в фон) считается сетевым сбоем
			e.status.fail(ErrorNetwork, "sync interrupted: connection to server lost")
			e.recordRun(startedAt, string(StateFailed), e.status.Snapshot().Err)
			return e.status.Snapshot().Err
		}

		// Явная отмена пользователем: уведомляем сервер и чисто возвращаемся
		// в idle без ошибки.
		client.Abort(context.Background())
		e.status.Reset()
		e.recordRun(startedAt, string(StateIdle), nil)
		return nil
	}

	syncErr := classify(runErr)
	e.status.fail(syncErr.Kind, syncErr.Message)
	e.recordRun(startedAt, string(StateFailed), syncErr)
	return syncErr
}

// Cancel requests cooperative cancellation of the active run. No-op when
// nothing is running.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Interrupt aborts the active run and records it as a network failure. Used
// when the surrounding application loses the ability to keep the connection
// alive.
func (e *Engine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.interrupted = true
		e.cancel()
	}
}

// safeRun wraps run with panic recovery so an unexpected bug inside batch
// processing degrades into a failed state instead of crashing the client.
func (e *Engine) safeRun(ctx context.Context, client httpClient.ClientAPI) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during sync", "panic", r)
			err = &SyncError{
				Kind:      ErrorNetwork,
				Message:   fmt.Sprintf("sync aborted unexpectedly: %v", r),
				Timestamp: time.Now(),
			}
		}
	}()
	return e.run(ctx, client)
}

func (e *Engine) run(ctx context.Context, client httpClient.ClientAPI) error {
	e.status.setProgress(Progress{CurrentOperation: "Connecting to server"})
	e.status.setState(StateConnecting)

	if err := e.connect(ctx, client); err != nil {
		return err
	}

	e.status.setState(StateComparing)
	e.status.setProgress(Progress{CurrentOperation: "Comparing libraries"})

	local, err := e.store.AllFingerprints(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return errCancelled
		}
		return &SyncError{Kind: ErrorDatabase, Message: fmt.Sprintf("failed to read local library: %v", err), Timestamp: time.Now()}
	}

	compareResp, err := client.Compare(ctx, api.CompareRequest{
		SongFingerprints:     local.Songs,
		AlbumFingerprints:    local.Albums,
		ArtistFingerprints:   local.Artists,
		PlaylistFingerprints: local.Playlists,
	})
	if err != nil {
		return &SyncError{Kind: ErrorNetwork, Message: err.Error(), Timestamp: time.Now()}
	}

	cache := NewEntityCache()
	if err := cache.Initialize(ctx, e.store); err != nil {
		if ctx.Err() != nil {
			return errCancelled
		}
		return &SyncError{Kind: ErrorDatabase, Message: err.Error(), Timestamp: time.Now()}
	}

	// Отбрасываем отпечатки, которые уже есть локально: сервер про них не
	// знает из-за частично совпавших библиотек.
	missingArtists := cache.Missing(models.KindArtist, compareResp.MissingArtists)
	missingAlbums := cache.Missing(models.KindAlbum, compareResp.MissingAlbums)
	missingPlaylists := cache.Missing(models.KindPlaylist, compareResp.MissingPlaylists)
	missingSongs := compareResp.MissingSongs

	totalItems := len(missingSongs) + len(missingArtists) + len(missingAlbums) + len(missingPlaylists)
	if totalItems == 0 {
		// Библиотеки уже совпадают: сразу в completed, минуя syncing.
		client.Complete(ctx)
		e.status.setProgress(Progress{CurrentOperation: "Library up to date"})
		e.status.setState(StateCompleted)
		return nil
	}

	if err := e.preflight(missingSongs, missingAlbums, missingArtists); err != nil {
		return err
	}

	songBatches := chunk(missingSongs, batchSize)
	totalBatches := len(songBatches)
	if totalBatches == 0 {
		// Нет песен, но есть другие сущности: один проход с пустым списком.
		songBatches = [][]string{nil}
		totalBatches = 1
	}

	e.status.setState(StateSyncing)

	progress := Progress{
		TotalItems:   totalItems,
		TotalBatches: totalBatches,
	}

	var touched touchedIDs

	for i, songs := range songBatches {
		if ctx.Err() != nil {
			return errCancelled
		}

		req := api.BatchRequest{
			SongFingerprints: songs,
			BatchIndex:       i,
		}
		if i == 0 {
			// Несериализуемые по батчам сущности едут целиком в первом запросе.
			req.ArtistFingerprints = missingArtists
			req.AlbumFingerprints = missingAlbums
			req.PlaylistFingerprints = missingPlaylists
		}

		progress.CurrentBatch = i + 1
		progress.CurrentOperation = fmt.Sprintf("Fetching batch %d of %d", i+1, totalBatches)
		e.status.setProgress(progress)

		batch, err := client.FetchBatch(ctx, req)
		if err != nil {
			return &SyncError{Kind: ErrorNetwork, Message: err.Error(), Timestamp: time.Now()}
		}

		if err := e.processBatch(ctx, client, cache, batch, &progress, &touched); err != nil {
			return err
		}
	}

	e.status.setState(StateFinalizing)
	progress.CurrentOperation = "Rebuilding library statistics"
	e.status.setProgress(progress)

	if err := e.store.RecomputeAggregates(ctx, touched.artists, touched.albums, touched.playlists); err != nil {
		if ctx.Err() != nil {
			return errCancelled
		}
		return &SyncError{Kind: ErrorDatabase, Message: fmt.Sprintf("failed to recompute aggregates: %v", err), Timestamp: time.Now()}
	}

	client.Complete(ctx)
	e.status.setState(StateCompleted)

	e.logger.Info("sync completed",
		"songs", len(missingSongs),
		"albums", len(missingAlbums),
		"artists", len(missingArtists),
		"playlists", len(missingPlaylists))

	return nil
}

// connect pings the server with a few retries before giving up.
func (e *Engine) connect(ctx context.Context, client httpClient.ClientAPI) error {
	var lastMessage string

	err := retry.Do(ctx, e.pingBackoff(), func(ctx context.Context) error {
		result := client.Ping(ctx)
		if !result.OK {
			lastMessage = result.Message
			return retry.RetryableError(errors.New(result.Message))
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return errCancelled
		}
		return &SyncError{
			Kind:      ErrorNetwork,
			Message:   fmt.Sprintf("server unreachable: %s", lastMessage),
			Timestamp: time.Now(),
		}
	}
	return nil
}

// preflight estimates the required disk space and rejects the run before
// any download starts when it does not fit.
func (e *Engine) preflight(songs, albums, artists []string) error {
	free, err := e.freeSpace()
	if err != nil {
		// Не смогли измерить: продолжаем и полагаемся на ошибки записи.
		e.logger.Warn("failed to check free space", "error", err)
		return nil
	}

	required := uint64(len(songs))*songSizeEstimate +
		uint64(len(songs)+len(albums)+len(artists))*metadataSizeEstimate

	if required > free {
		return &SyncError{
			Kind: ErrorStorage,
			Message: fmt.Sprintf("not enough free space: need %s, have %s",
				humanize.IBytes(required), humanize.IBytes(free)),
			Timestamp: time.Now(),
		}
	}
	return nil
}

// touchedIDs accumulates ids whose aggregates must be recomputed after all
// batches are applied.
type touchedIDs struct {
	artists   []int64
	albums    []int64
	playlists []int64
}

// processBatch applies one batch in dependency order so every reference a
// later entity makes can already be resolved: artists, then albums, then
// playlists, then songs.
func (e *Engine) processBatch(
	ctx context.Context,
	client httpClient.ClientAPI,
	cache *EntityCache,
	batch *api.BatchResponse,
	progress *Progress,
	touched *touchedIDs,
) error {
	for _, artist := range batch.Artists {
		if ctx.Err() != nil {
			return errCancelled
		}
		if _, ok := cache.Get(models.KindArtist, artist.Fingerprint); ok {
			continue
		}

		thumbnail := ""
		if artist.HasThumbnail {
			thumbnail = client.DownloadThumbnail(ctx, artist.Fingerprint, models.KindArtist)
		}

		id, err := e.store.InsertArtist(ctx, artist, thumbnail)
		if err != nil {
			return dbError(ctx, "artist", artist.Name, err)
		}
		cache.Add(models.KindArtist, artist.Fingerprint, id)
		touched.artists = append(touched.artists, id)

		progress.SyncedItems++
		progress.CurrentOperation = "Adding artist: " + artist.Name
		e.status.setProgress(*progress)
	}

	for _, album := range batch.Albums {
		if ctx.Err() != nil {
			return errCancelled
		}
		if _, ok := cache.Get(models.KindAlbum, album.Fingerprint); ok {
			continue
		}

		thumbnail := ""
		if album.HasThumbnail {
			thumbnail = client.DownloadThumbnail(ctx, album.Fingerprint, models.KindAlbum)
		}

		id, err := e.store.InsertAlbum(ctx, album, thumbnail)
		if err != nil {
			return dbError(ctx, "album", album.Name, err)
		}
		cache.Add(models.KindAlbum, album.Fingerprint, id)
		touched.albums = append(touched.albums, id)

		if links := resolveArtists(cache, album.ArtistFingerprints); len(links) > 0 {
			if err := e.store.LinkAlbumToArtists(ctx, id, links); err != nil {
				return dbError(ctx, "album", album.Name, err)
			}
			for _, l := range links {
				touched.artists = append(touched.artists, l.ArtistID)
			}
		}

		progress.SyncedItems++
		progress.CurrentOperation = "Adding album: " + album.Name
		e.status.setProgress(*progress)
	}

	for _, playlist := range batch.Playlists {
		if ctx.Err() != nil {
			return errCancelled
		}
		if _, ok := cache.Get(models.KindPlaylist, playlist.Fingerprint); ok {
			continue
		}

		id, err := e.store.InsertPlaylist(ctx, playlist)
		if err != nil {
			return dbError(ctx, "playlist", playlist.Name, err)
		}
		cache.Add(models.KindPlaylist, playlist.Fingerprint, id)
		touched.playlists = append(touched.playlists, id)

		progress.SyncedItems++
		progress.CurrentOperation = "Adding playlist: " + playlist.Name
		e.status.setProgress(*progress)
	}

	for _, song := range batch.Songs {
		if ctx.Err() != nil {
			return errCancelled
		}

		progress.CurrentOperation = "Downloading: " + song.Name
		e.status.setProgress(*progress)

		// Аудиофайл обязателен: песня без аудио бесполезна.
		audioFile, err := client.DownloadAudio(ctx, song.Fingerprint)
		if err != nil {
			if ctx.Err() != nil {
				return errCancelled
			}
			return &SyncError{Kind: ErrorNetwork, Message: err.Error(), Timestamp: time.Now()}
		}

		thumbnail := ""
		if song.HasThumbnail {
			thumbnail = client.DownloadThumbnail(ctx, song.Fingerprint, models.KindSong)
		}

		var albumID *int64
		if song.AlbumFingerprint != "" {
			if id, ok := cache.Get(models.KindAlbum, song.AlbumFingerprint); ok {
				albumID = &id
				touched.albums = append(touched.albums, id)
			}
		}

		songID, err := e.store.InsertSong(ctx, song, audioFile, thumbnail, albumID)
		if err != nil {
			return dbError(ctx, "song", song.Name, err)
		}

		if links := resolveArtists(cache, song.ArtistFingerprints); len(links) > 0 {
			if err := e.store.LinkSongToArtists(ctx, songID, links); err != nil {
				return dbError(ctx, "song", song.Name, err)
			}
			for _, l := range links {
				touched.artists = append(touched.artists, l.ArtistID)
			}
		}

		playlistIDs := make([]int64, 0, len(song.PlaylistFingerprints))
		for _, fp := range song.PlaylistFingerprints {
			if id, ok := cache.Get(models.KindPlaylist, fp); ok {
				playlistIDs = append(playlistIDs, id)
			}
		}
		if len(playlistIDs) > 0 {
			if err := e.store.LinkSongToPlaylists(ctx, songID, playlistIDs); err != nil {
				return dbError(ctx, "song", song.Name, err)
			}
			touched.playlists = append(touched.playlists, playlistIDs...)
		}

		progress.SyncedItems++
		e.status.setProgress(*progress)
	}

	return nil
}

// resolveArtists translates fingerprint references into local id links,
// silently dropping unresolved ones.
func resolveArtists(cache *EntityCache, refs []api.ArtistOrder) []storage.ArtistLink {
	links := make([]storage.ArtistLink, 0, len(refs))
	for _, ref := range refs {
		if id, ok := cache.Get(models.KindArtist, ref.Fingerprint); ok {
			links = append(links, storage.ArtistLink{ArtistID: id, Order: ref.ArtistOrder})
		}
	}
	return links
}

func (e *Engine) recordRun(startedAt time.Time, phase string, syncErr *SyncError) {
	if e.history == nil {
		return
	}

	snap := e.status.Snapshot()
	record := history.Record{
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		Phase:       phase,
		SyncedItems: snap.Progress.SyncedItems,
		TotalItems:  snap.Progress.TotalItems,
	}
	for _, se := range snap.Errors {
		record.Errors = append(record.Errors, se.Error())
	}
	if len(record.Errors) == 0 && syncErr != nil {
		record.Errors = []string{syncErr.Error()}
	}

	if err := e.history.Append(context.Background(), record); err != nil {
		e.logger.Warn("failed to record sync run", "error", err)
	}
}

// classify maps an arbitrary run error onto a typed sync error. Anything
// not already classified is treated as a network failure.
func classify(err error) *SyncError {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return &SyncError{Kind: ErrorNetwork, Message: err.Error(), Timestamp: time.Now()}
}

// dbError classifies a storage failure. A write that failed only because the
// run context was cancelled is not a database problem: it is reported as
// cancellation so Cancel exits to idle and Interrupt stays a network error.
func dbError(ctx context.Context, kind, name string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return errCancelled
	}
	return &SyncError{
		Kind:      ErrorDatabase,
		Message:   fmt.Sprintf("failed to store %s %q: %v", kind, name, err),
		Timestamp: time.Now(),
	}
}

// chunk splits fps into consecutive slices of at most size elements.
func chunk(fps []string, size int) [][]string {
	if len(fps) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(fps)+size-1)/size)
	for start := 0; start < len(fps); start += size {
		end := start + size
		if end > len(fps) {
			end = len(fps)
		}
		batches = append(batches, fps[start:end])
	}
	return batches
}
