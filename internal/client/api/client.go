// Package api implements the HTTP client for the desktop sync server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tunno/tunno/internal/client/files"
	"github.com/tunno/tunno/internal/client/pairing"
	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/pkg/api"
)

const (
	// apiTimeout bounds metadata requests (ping, compare, batch).
	apiTimeout = 10 * time.Second

	// downloadTimeout bounds binary file downloads.
	downloadTimeout = 60 * time.Second
)

// PingResult is the outcome of a reachability check. Ping never returns an
// error: all failures are captured into the result value.
type PingResult struct {
	OK      bool
	Message string
}

// Client is the HTTP client for the desktop sync API. Metadata requests use
// a 10-second timeout, file downloads a 60-second one; both are enforced
// through context deadlines so an in-flight call is aborted when exceeded.
type Client struct {
	httpClient *http.Client
	files      *files.Storage
	baseURL    string
	token      string
}

// NewClient creates a sync client from scanned connection data. Downloaded
// files are written through the given file storage.
func NewClient(conn pairing.ConnectionData, fileStorage *files.Storage) *Client {
	return &Client{
		baseURL: strings.TrimRight(conn.URL, "/"),
		token:   conn.Token,
		files:   fileStorage,
		// Таймауты задаются per-request через context, не через http.Client
		httpClient: &http.Client{},
	}
}

// Ping checks whether the desktop server is reachable.
func (c *Client) Ping(ctx context.Context) PingResult {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return PingResult{OK: false, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PingResult{OK: false, Message: timeoutMessage(err, apiTimeout)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PingResult{OK: false, Message: fmt.Sprintf("server responded with status %d", resp.StatusCode)}
	}

	return PingResult{OK: true}
}

// Compare sends the local fingerprints and returns the fingerprints missing
// locally, with per-kind totals.
func (c *Client) Compare(ctx context.Context, req api.CompareRequest) (*api.CompareResponse, error) {
	var resp api.CompareResponse
	if err := c.postJSON(ctx, "/api/sync/compare", req, &resp); err != nil {
		return nil, fmt.Errorf("compare failed: %w", err)
	}
	return &resp, nil
}

// FetchBatch retrieves full metadata for one batch of fingerprints.
func (c *Client) FetchBatch(ctx context.Context, req api.BatchRequest) (*api.BatchResponse, error) {
	var resp api.BatchResponse
	if err := c.postJSON(ctx, "/api/sync/batch", req, &resp); err != nil {
		return nil, fmt.Errorf("batch %d fetch failed: %w", req.BatchIndex, err)
	}
	return &resp, nil
}

// DownloadAudio downloads a song's audio file into the songs bucket under a
// generated unique name and returns that filename. The extension is derived
// from the response content type.
func (c *Client) DownloadAudio(ctx context.Context, fp string) (string, error) {
	name, err := c.downloadFile(ctx, "/api/files/audio/"+fp, files.BucketSongs)
	if err != nil {
		return "", fmt.Errorf("audio download failed: %w", err)
	}
	return name, nil
}

// DownloadThumbnail downloads an entity's thumbnail into the thumbnails
// bucket. Thumbnails are optional: every failure is swallowed and reported
// as an empty filename, so a missing image can never abort a sync.
func (c *Client) DownloadThumbnail(ctx context.Context, fp string, kind models.EntityKind) string {
	name, err := c.downloadFile(ctx, "/api/files/thumbnail/"+fp+"/"+kind.String(), files.BucketThumbnails)
	if err != nil {
		return ""
	}
	return name
}

// Complete notifies the server that the sync finished. Best-effort: the
// desktop will just show a stale status if this fails.
func (c *Client) Complete(ctx context.Context) {
	_ = c.postJSON(ctx, "/api/sync/complete", nil, nil)
}

// Abort notifies the server that the client abandoned the sync.
// Fire-and-forget — сервер к этому моменту может быть уже недоступен.
func (c *Client) Abort(ctx context.Context) {
	_ = c.postJSON(ctx, "/api/sync/abort", nil, nil)
}

// postJSON выполняет POST запрос с metadata-таймаутом
func (c *Client) postJSON(ctx context.Context, path string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.New(timeoutMessage(err, apiTimeout))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// downloadFile скачивает бинарный файл и сохраняет его в bucket под
// случайным уникальным именем. Возвращает имя файла.
func (c *Client) downloadFile(ctx context.Context, path string, bucket files.Bucket) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.New(timeoutMessage(err, downloadTimeout))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	fileName := uuid.New().String() + "." + extensionForContentType(resp.Header.Get("Content-Type"))

	if err := c.files.Save(bucket, fileName, content); err != nil {
		return "", err
	}

	return fileName, nil
}

// timeoutMessage makes deadline failures distinguishable by message from
// other network failures.
func timeoutMessage(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("request timed out after %s", timeout)
	}
	return err.Error()
}

// extensionForContentType maps a MIME content type to a file extension,
// falling back to "bin" for anything unknown.
func extensionForContentType(contentType string) string {
	base := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))

	switch base {
	case "audio/mpeg":
		return "mp3"
	case "audio/mp4":
		return "m4a"
	case "audio/aac":
		return "aac"
	case "audio/ogg":
		return "ogg"
	case "audio/wav":
		return "wav"
	case "audio/flac", "audio/x-flac":
		return "flac"
	case "audio/webm":
		return "webm"
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}
