package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tunno/tunno/internal/server/pairing"
	"github.com/tunno/tunno/internal/server/session"
	"github.com/tunno/tunno/pkg/api"
)

// ConnectionHandler reports server connectivity details and the current
// session status. The desktop UI polls this to show pairing progress.
type ConnectionHandler struct {
	port    int
	session *session.Tracker
	logger  *slog.Logger
}

func NewConnectionHandler(port int, tracker *session.Tracker, logger *slog.Logger) *ConnectionHandler {
	return &ConnectionHandler{port: port, session: tracker, logger: logger}
}

// Connection handles GET /connection.
func (h *ConnectionHandler) Connection(w http.ResponseWriter, r *http.Request) {
	ip := pairing.LocalIP()

	resp := api.ConnectionInfo{
		IP:     ip,
		Port:   h.port,
		URL:    fmt.Sprintf("http://%s:%d", ip, h.port),
		Status: string(h.session.State()),
		Endpoints: []string{
			"/ping",
			"/connection",
			"/api/sync/compare",
			"/api/sync/batch",
			"/api/sync/complete",
			"/api/sync/abort",
			"/api/files/audio/{fingerprint}",
			"/api/files/thumbnail/{fingerprint}/{kind}",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode connection response", slog.Any("error", err))
	}
}
