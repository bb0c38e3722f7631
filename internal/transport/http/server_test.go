package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duoquiz/internal/app"
	"duoquiz/internal/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		RateLimit: config.RateLimitConfig{MessagesPerSecond: 100, Burst: 100},
	}
	registry := app.NewRegistry(app.RegistryConfig{}, app.NewWordCodeGenerator(app.RoomCodeWords), nil, logger)
	t.Cleanup(registry.Close)

	s := NewServer(cfg, registry, logger)
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func decode(t *testing.T, resp *http.Response, v any) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if v != nil && env.Data != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env
}

func createRoom(t *testing.T, ts *httptest.Server) CreateRoomResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var room CreateRoomResponse
	env := decode(t, resp, &room)
	require.True(t, env.Success)
	return room
}

func TestRoomEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	room := createRoom(t, ts)
	assert.Len(t, room.RoomCode, 4)
	assert.True(t, strings.HasSuffix(room.InviteLink, "/join/"+room.RoomCode))

	resp, err := http.Get(ts.URL + "/api/rooms/" + strings.ToUpper(room.RoomCode))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary RoomSummary
	decode(t, resp, &summary)
	assert.Equal(t, room.RoomCode, summary.RoomCode)
	assert.Equal(t, "lobby", string(summary.Status))
	assert.True(t, summary.CanJoin)
	require.NotNil(t, summary.PersistedRound)
	assert.Zero(t, *summary.PersistedRound)

	resp, err = http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	var rooms []RoomSummary
	decode(t, resp, &rooms)
	require.Len(t, rooms, 1)

	resp, err = http.Get(ts.URL + "/api/rooms/" + room.RoomCode + "/exists")
	require.NoError(t, err)
	var exists RoomExistsResponse
	decode(t, resp, &exists)
	assert.True(t, exists.Exists)

	resp, err = http.Get(ts.URL + "/api/rooms/zzzz/exists")
	require.NoError(t, err)
	decode(t, resp, &exists)
	assert.False(t, exists.Exists)

	resp, err = http.Get(ts.URL + "/api/rooms/zzzz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env := decode(t, resp, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "ROOM_NOT_FOUND", env.Error.Code)
}

func TestRoomQR(t *testing.T) {
	_, ts := newTestServer(t)
	room := createRoom(t, ts)

	resp, err := http.Get(ts.URL + "/api/rooms/" + room.RoomCode + "/qr?size=128")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp, err = http.Get(ts.URL + "/api/rooms/" + room.RoomCode + "/qr?size=huge")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/rooms/zzzz/qr")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthAndStats(t *testing.T) {
	_, ts := newTestServer(t)
	createRoom(t, ts)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	var health HealthResponse
	decode(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "disabled", health.Database)

	resp, err = http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	var stats StatsResponse
	decode(t, resp, &stats)
	assert.Equal(t, 1, stats.ActiveGames)
	assert.Zero(t, stats.TotalPlayers)
}

func TestPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/rooms", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestWebSocketJoin(t *testing.T) {
	_, ts := newTestServer(t)
	room := createRoom(t, ts)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?roomCode=" + room.RoomCode

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?roomCode=zzzz", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":      "join_host",
		"requestId": "join-1",
		"payload":   map[string]string{"name": "Host"},
	}))

	// Room events may arrive before the ack
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var msg struct {
			Type      string          `json:"type"`
			RequestID string          `json:"requestId"`
			Payload   json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.RequestID != "join-1" {
			continue
		}
		require.Equal(t, "ack", msg.Type)
		assert.Contains(t, string(msg.Payload), `"isHost":true`)
		break
	}
}
