package api

import (
	"context"

	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

// ClientAPI определяет интерфейс транспортного клиента для sync engine
type ClientAPI interface {
	// Ping checks server reachability; failures are captured into the result
	Ping(ctx context.Context) PingResult

	// Compare exchanges fingerprint lists for the missing-entity sets
	Compare(ctx context.Context, req api.CompareRequest) (*api.CompareResponse, error)

	// FetchBatch retrieves hydrated metadata for one batch
	FetchBatch(ctx context.Context, req api.BatchRequest) (*api.BatchResponse, error)

	// DownloadAudio saves a song's audio file locally, returning the filename
	DownloadAudio(ctx context.Context, fingerprint string) (string, error)

	// DownloadThumbnail saves an entity thumbnail locally, returning the
	// filename or "" on any failure
	DownloadThumbnail(ctx context.Context, fingerprint string, kind models.EntityKind) string

	// Complete notifies the server of a successful sync (best-effort)
	Complete(ctx context.Context)

	// Abort notifies the server of an abandoned sync (fire-and-forget)
	Abort(ctx context.Context)
}

var _ ClientAPI = (*Client)(nil)
