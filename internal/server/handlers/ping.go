package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tunno/tunno/pkg/api"
)

// PingHandler answers reachability probes. The endpoint is open: clients
// ping before they present a token.
type PingHandler struct {
	logger *slog.Logger
}

func NewPingHandler(logger *slog.Logger) *PingHandler {
	return &PingHandler{logger: logger}
}

// Ping handles GET /ping.
func (h *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	resp := api.PingResponse{
		Status:    "ok",
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode ping response", slog.Any("error", err))
	}
}
