package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"duoquiz/internal/app"
)

// Handler upgrades connections and binds them to a room
type Handler struct {
	registry *app.Registry
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler. A non-positive messagesPerSecond disables rate limiting.
func NewHandler(registry *app.Registry, messagesPerSecond float64, burst int, logger *slog.Logger) *Handler {
	limit := rate.Inf
	if messagesPerSecond > 0 {
		limit = rate.Limit(messagesPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development
				// In production, you should validate the origin
				return true
			},
		},
		limit:  limit,
		burst:  burst,
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomCode := NormalizeRoomCode(r.URL.Query().Get("roomCode"))
	if roomCode == "" {
		http.Error(w, "roomCode is required", http.StatusBadRequest)
		return
	}

	session, err := h.registry.GetSession(roomCode)
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// Identity is bound later by join/join_host; the connection only gets a fresh ID
	connectionID := uuid.New().String()
	client := NewClient(conn, session, connectionID, rate.NewLimiter(h.limit, h.burst), h.logger.With("roomCode", roomCode))
	session.RegisterClient(client)

	h.logger.Info("websocket connected",
		"roomCode", roomCode,
		"connectionID", connectionID,
	)

	client.Run()
}

// NormalizeRoomCode trims and lowercases a user-supplied room code
func NormalizeRoomCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
