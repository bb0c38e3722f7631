package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"duoquiz/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore records calls made to the persistence collaborator
type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateGame(ctx context.Context, roomCode string) error {
	args := m.Called(ctx, roomCode)
	return args.Error(0)
}

func (m *mockStore) SaveRound(ctx context.Context, roomCode string, roundNumber int, question string, variant domain.Variant, options []string) (string, error) {
	args := m.Called(ctx, roomCode, roundNumber, question, variant, options)
	return args.String(0), args.Error(1)
}

func (m *mockStore) SaveAnswer(ctx context.Context, roundID, playerName, teamID, text string, responseTimeMs int64) error {
	args := m.Called(ctx, roundID, playerName, teamID, text, responseTimeMs)
	return args.Error(0)
}

func (m *mockStore) GetRoundCount(ctx context.Context, roomCode string) (int, error) {
	args := m.Called(ctx, roomCode)
	return args.Int(0), args.Error(1)
}

// fakeClient collects the events delivered to one connection
type fakeClient struct {
	id string

	mu     sync.Mutex
	events []*domain.GameEvent
	closed bool
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id}
}

func (c *fakeClient) Send(message any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if event, ok := message.(*domain.GameEvent); ok {
		c.events = append(c.events, event)
	}
	return nil
}

func (c *fakeClient) ConnectionID() string {
	return c.id
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received(eventType domain.EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

// event returns the first delivered event of the given type, or nil
func (c *fakeClient) event(eventType domain.EventType) *domain.GameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Type == eventType {
			return e
		}
	}
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fixedCodes hands out codes in order
type fixedCodes struct {
	mu       sync.Mutex
	codes    []string
	next     int
	released []string
}

func (g *fixedCodes) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.codes) {
		return "", ErrNoRoomCode
	}
	code := g.codes[g.next]
	g.next++
	return code, nil
}

func (g *fixedCodes) Release(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = append(g.released, code)
}

func (g *fixedCodes) wasReleased(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.released {
		if c == code {
			return true
		}
	}
	return false
}

func conn(name string) string {
	return "conn-" + name
}

func newTestSession(t *testing.T, store Store, bots *Coordinator) *GameSession {
	t.Helper()
	s := NewGameSession(domain.NewRoom("test"), SessionConfig{HostGracePeriod: time.Hour}, store, bots, testLogger())
	s.now = func() time.Time { return t0 }
	t.Cleanup(func() {
		s.Close("test finished")
	})
	return s
}

// startGame seats a host and players A-D as team-1 (A, B) and team-2 (C, D), then starts
func startGame(t *testing.T, s *GameSession) {
	t.Helper()
	_, err := s.JoinAsHost("host", "Host")
	require.NoError(t, err)
	for _, name := range []string{"A", "B", "C", "D"} {
		_, err := s.Join(conn(name), name)
		require.NoError(t, err)
	}
	_, err = s.Pair("host", conn("A"), conn("B"))
	require.NoError(t, err)
	_, err = s.Pair("host", conn("C"), conn("D"))
	require.NoError(t, err)
	require.NoError(t, s.StartGame("host"))
}
