package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"duoquiz/internal/app"
	"duoquiz/internal/domain"
	"duoquiz/internal/transport/ws"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// Response is a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateRoomResponse is the response for room creation
type CreateRoomResponse struct {
	RoomCode   string `json:"roomCode"`
	InviteLink string `json:"inviteLink"`
}

// RoomSummary describes one room without its round contents
type RoomSummary struct {
	RoomCode       string            `json:"roomCode"`
	Status         domain.RoomStatus `json:"status"`
	PlayerCount    int               `json:"playerCount"`
	TeamCount      int               `json:"teamCount"`
	HostConnected  bool              `json:"hostConnected"`
	CanJoin        bool              `json:"canJoin"`
	CurrentRound   int               `json:"currentRound,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	PersistedRound *int              `json:"persistedRounds,omitempty"`
}

// RoomExistsResponse is the response for checking if room exists
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveGames  int `json:"activeGames"`
	TotalPlayers int `json:"totalPlayers"`
}

// handleCreateRoom handles POST /api/rooms
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.CreateRoom(r.Context())
	if err != nil {
		if session == nil || !errors.Is(err, app.ErrPersistence) {
			s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create room")
			return
		}
		// The room is playable without its database record
		s.logger.Warn("room created without persistence", "roomCode", session.RoomCode(), "error", err)
	}

	s.sendJSON(w, http.StatusCreated, &CreateRoomResponse{
		RoomCode:   session.RoomCode(),
		InviteLink: inviteLink(r, session.RoomCode()),
	})
}

// handleListRooms handles GET /api/rooms
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	games := s.registry.GetAllGames()
	rooms := make([]RoomSummary, 0, len(games))
	for _, game := range games {
		rooms = append(rooms, summarize(game))
	}
	s.sendSuccess(w, rooms)
}

// handleGetRoom handles GET /api/rooms/{roomCode}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomCode := ws.NormalizeRoomCode(mux.Vars(r)["roomCode"])

	state, err := s.registry.GetGameState(roomCode)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		} else {
			s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	summary := summarize(state)
	if count, err := s.registry.RoundCount(r.Context(), roomCode); err != nil {
		s.logger.Warn("failed to read round count", "roomCode", roomCode, "error", err)
	} else {
		summary.PersistedRound = &count
	}

	s.sendSuccess(w, summary)
}

// handleRoomExists handles GET /api/rooms/{roomCode}/exists
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	roomCode := ws.NormalizeRoomCode(mux.Vars(r)["roomCode"])

	s.sendSuccess(w, &RoomExistsResponse{
		Exists: s.registry.HasRoom(roomCode),
	})
}

// handleRoomQR handles GET /api/rooms/{roomCode}/qr and returns a PNG of the invite link
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	roomCode := ws.NormalizeRoomCode(mux.Vars(r)["roomCode"])
	if !s.registry.HasRoom(roomCode) {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxQRSize {
			s.sendError(w, http.StatusBadRequest, "INVALID_SIZE", "Size must be between 1 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(inviteLink(r, roomCode), qrcode.Medium, size)
	if err != nil {
		s.logger.Error("failed to encode qr code", "roomCode", roomCode, "error", err)
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := &HealthResponse{Status: "ok", Database: "ok"}
	if !s.config.HasDatabase() {
		resp.Database = "disabled"
	} else if err := s.registry.StoreHealth(ctx); err != nil {
		// Rooms keep working without the database
		s.logger.Warn("database health check failed", "error", err)
		resp.Status = "degraded"
		resp.Database = "unavailable"
	}
	s.sendSuccess(w, resp)
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveGames:  s.registry.SessionCount(),
		TotalPlayers: s.registry.TotalPlayerCount(),
	})
}

func summarize(state *domain.RoomSnapshot) RoomSummary {
	summary := RoomSummary{
		RoomCode:      state.Code,
		Status:        state.Status,
		PlayerCount:   len(state.Players),
		TeamCount:     len(state.Teams),
		HostConnected: state.HostConnected,
		CanJoin:       state.Status == domain.StatusLobby,
		CreatedAt:     state.CreatedAt,
	}
	if state.CurrentRound != nil {
		summary.CurrentRound = state.CurrentRound.Number
	}
	return summary
}

// inviteLink builds the join URL for a room from the incoming request
func inviteLink(r *http.Request, roomCode string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/join/" + roomCode
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data any) {
	s.sendJSON(w, http.StatusOK, data)
}

// sendJSON sends a successful JSON response with the given status
func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
