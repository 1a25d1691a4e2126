package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tunno/tunno/internal/server/session"
	"github.com/tunno/tunno/internal/server/storage"
	"github.com/tunno/tunno/pkg/api"
)

// SyncHandler serves the compare and batch endpoints the mobile client
// drives its sync with.
type SyncHandler struct {
	library storage.Library
	session *session.Tracker
	logger  *slog.Logger
}

func NewSyncHandler(library storage.Library, tracker *session.Tracker, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{library: library, session: tracker, logger: logger}
}

// Compare handles POST /api/sync/compare: returns the fingerprints present
// here but absent from the client, per entity kind.
func (h *SyncHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req api.CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.session.Touch()

	local, err := h.library.AllFingerprints(r.Context())
	if err != nil {
		h.logger.Error("failed to read library fingerprints", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read library")
		return
	}

	resp := api.CompareResponse{
		MissingSongs:     difference(local.Songs, req.SongFingerprints),
		MissingAlbums:    difference(local.Albums, req.AlbumFingerprints),
		MissingArtists:   difference(local.Artists, req.ArtistFingerprints),
		MissingPlaylists: difference(local.Playlists, req.PlaylistFingerprints),
	}
	resp.Totals = api.CompareTotals{
		Songs:     len(resp.MissingSongs),
		Albums:    len(resp.MissingAlbums),
		Artists:   len(resp.MissingArtists),
		Playlists: len(resp.MissingPlaylists),
	}

	h.logger.Info("compare request served",
		"missing_songs", resp.Totals.Songs,
		"missing_albums", resp.Totals.Albums,
		"missing_artists", resp.Totals.Artists,
		"missing_playlists", resp.Totals.Playlists)

	h.writeJSON(w, resp)
}

// Batch handles POST /api/sync/batch: hydrates the requested fingerprints
// into full metadata. Unknown fingerprints are silently omitted.
func (h *SyncHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.session.Touch()
	h.session.Syncing()

	ctx := r.Context()
	resp := api.BatchResponse{}

	var err error
	if resp.Songs, err = h.library.SongsByFingerprints(ctx, req.SongFingerprints); err != nil {
		h.logger.Error("failed to hydrate songs", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read library")
		return
	}
	if resp.Albums, err = h.library.AlbumsByFingerprints(ctx, req.AlbumFingerprints); err != nil {
		h.logger.Error("failed to hydrate albums", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read library")
		return
	}
	if resp.Artists, err = h.library.ArtistsByFingerprints(ctx, req.ArtistFingerprints); err != nil {
		h.logger.Error("failed to hydrate artists", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read library")
		return
	}
	if resp.Playlists, err = h.library.PlaylistsByFingerprints(ctx, req.PlaylistFingerprints); err != nil {
		h.logger.Error("failed to hydrate playlists", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read library")
		return
	}

	h.logger.Info("batch request served",
		"batch_index", req.BatchIndex,
		"songs", len(resp.Songs),
		"albums", len(resp.Albums),
		"artists", len(resp.Artists),
		"playlists", len(resp.Playlists))

	h.writeJSON(w, resp)
}

// Complete handles POST /api/sync/complete.
func (h *SyncHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.session.Completed()
	h.logger.Info("sync completed by client")
	w.WriteHeader(http.StatusNoContent)
}

// Abort handles POST /api/sync/abort.
func (h *SyncHandler) Abort(w http.ResponseWriter, r *http.Request) {
	h.session.Cancelled()
	h.logger.Info("sync aborted by client")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SyncHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *SyncHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}

// difference returns the elements of all that are absent from known,
// preserving order.
func difference(all, known []string) []string {
	have := make(map[string]struct{}, len(known))
	for _, fp := range known {
		have[fp] = struct{}{}
	}

	missing := make([]string, 0)
	for _, fp := range all {
		if _, ok := have[fp]; !ok {
			missing = append(missing, fp)
		}
	}
	return missing
}
