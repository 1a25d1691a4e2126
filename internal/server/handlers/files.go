package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tunno/tunno/internal/models"
	"github.com/tunno/tunno/internal/server/session"
	"github.com/tunno/tunno/internal/server/storage"
	"github.com/tunno/tunno/pkg/api"
)

// FilesHandler streams audio files and thumbnails by fingerprint.
type FilesHandler struct {
	library storage.Library
	session *session.Tracker
	logger  *slog.Logger
}

func NewFilesHandler(library storage.Library, tracker *session.Tracker, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{library: library, session: tracker, logger: logger}
}

// Audio handles GET /api/files/audio/{fingerprint}.
func (h *FilesHandler) Audio(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")

	path, err := h.library.AudioPath(r.Context(), fp)
	if err != nil {
		h.fileError(w, fp, err)
		return
	}

	h.serveFile(w, r, path)
}

// Thumbnail handles GET /api/files/thumbnail/{fingerprint}/{kind}.
func (h *FilesHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")
	kind, ok := models.ParseEntityKind(chi.URLParam(r, "kind"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown entity kind")
		return
	}

	path, err := h.library.ThumbnailPath(r.Context(), fp, kind)
	if err != nil {
		h.fileError(w, fp, err)
		return
	}

	h.serveFile(w, r, path)
}

func (h *FilesHandler) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	// Долгая серия загрузок без других вызовов API не должна ронять
	// сессию в timedOut.
	h.session.Touch()

	if ct := contentTypeForFile(path); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, path)
}

func (h *FilesHandler) fileError(w http.ResponseWriter, fp string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "entity not found")
	case errors.Is(err, storage.ErrNoFile):
		h.writeError(w, http.StatusNotFound, "no file for entity")
	default:
		h.logger.Error("failed to resolve file", "fingerprint", fp, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to resolve file")
	}
}

func (h *FilesHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}

// contentTypeForFile maps a file extension to its MIME type. The client
// derives the stored file extension from this header.
func contentTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
