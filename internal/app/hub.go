package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"duoquiz/internal/domain"
)

const (
	// DefaultStaleRoomTimeout is how long an empty room is kept around
	DefaultStaleRoomTimeout = 2 * time.Hour

	defaultCleanupInterval = 10 * time.Minute
)

// RegistryConfig holds registry-wide settings
type RegistryConfig struct {
	Session          SessionConfig
	Bots             BotConfig
	StaleRoomTimeout time.Duration
	CleanupInterval  time.Duration
}

// Registry owns every active room. It is created by the composition root and injected
// into the transports.
type Registry struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex
	cfg      RegistryConfig
	codes    CodeGenerator
	store    Store
	bots     *Coordinator
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
}

// NewRegistry creates a registry and starts its stale-room cleanup loop
func NewRegistry(cfg RegistryConfig, codes CodeGenerator, store Store, logger *slog.Logger) *Registry {
	if cfg.StaleRoomTimeout <= 0 {
		cfg.StaleRoomTimeout = DefaultStaleRoomTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if store == nil {
		store = NopStore{}
	}

	r := &Registry{
		sessions: make(map[string]*GameSession),
		cfg:      cfg,
		codes:    codes,
		store:    store,
		bots:     NewCoordinator(cfg.Bots, logger),
		logger:   logger,
		done:     make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// CreateRoom registers a new room. If the store fails, the room is kept and the
// session is returned together with an ErrPersistence error.
func (r *Registry) CreateRoom(ctx context.Context) (*GameSession, error) {
	code, err := r.codes.Generate()
	if err != nil {
		return nil, err
	}

	room := domain.NewRoom(code)
	session := NewGameSession(room, r.cfg.Session, r.store, r.bots, r.logger)
	session.onHostExpired = func(roomCode string) {
		r.DeleteRoom(roomCode, "host left")
	}

	r.mu.Lock()
	r.sessions[code] = session
	r.mu.Unlock()

	r.logger.Info("room created", "roomCode", code)

	if err := r.store.CreateGame(ctx, code); err != nil {
		r.logger.Error("failed to persist room", "roomCode", code, "error", err)
		return session, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return session, nil
}

// GetSession returns a room's session
func (r *Registry) GetSession(roomCode string) (*GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[roomCode]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// HasRoom reports whether the room exists
func (r *Registry) HasRoom(roomCode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[roomCode]
	return ok
}

// DeleteRoom closes a room, cancels its timers and frees its code
func (r *Registry) DeleteRoom(roomCode, reason string) bool {
	r.mu.Lock()
	session, ok := r.sessions[roomCode]
	if ok {
		delete(r.sessions, roomCode)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	session.Close(reason)
	r.bots.CancelRoom(roomCode)
	r.codes.Release(roomCode)
	r.logger.Info("room deleted", "roomCode", roomCode, "reason", reason)

	return true
}

// GetGameState returns a snapshot of one room
func (r *Registry) GetGameState(roomCode string) (*domain.RoomSnapshot, error) {
	session, err := r.GetSession(roomCode)
	if err != nil {
		return nil, err
	}
	return session.GetGameState(), nil
}

// GetAllGames returns a snapshot of every room, ordered by code
func (r *Registry) GetAllGames() []*domain.RoomSnapshot {
	sessions := r.sortedSessions()
	games := make([]*domain.RoomSnapshot, 0, len(sessions))
	for _, session := range sessions {
		games = append(games, session.GetGameState())
	}
	return games
}

// GetRoomCodes returns every active room code, sorted
func (r *Registry) GetRoomCodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.sessions))
	for code := range r.sessions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RoundCount returns the number of rounds the store has recorded for a room
func (r *Registry) RoundCount(ctx context.Context, roomCode string) (int, error) {
	count, err := r.store.GetRoundCount(ctx, roomCode)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return count, nil
}

// StoreHealth pings the store when it supports it. Stores without a health check are always healthy.
func (r *Registry) StoreHealth(ctx context.Context) error {
	pinger, ok := r.store.(Pinger)
	if !ok {
		return nil
	}
	if err := pinger.Health(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// SessionCount returns the number of active rooms
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// TotalPlayerCount returns the number of players across all rooms
func (r *Registry) TotalPlayerCount() int {
	total := 0
	for _, session := range r.sortedSessions() {
		total += session.PlayerCount()
	}
	return total
}

// Close shuts down the registry and all rooms
func (r *Registry) Close() {
	r.once.Do(func() {
		close(r.done)
	})

	for _, code := range r.GetRoomCodes() {
		r.DeleteRoom(code, "server shutting down")
	}
}

func (r *Registry) sortedSessions() []*GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*GameSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].RoomCode() < sessions[j].RoomCode()
	})
	return sessions
}

// cleanupLoop periodically cleans up stale rooms
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.cleanupStaleRooms(time.Now())
		}
	}
}

// cleanupStaleRooms removes rooms nobody is connected to that are older than the timeout
func (r *Registry) cleanupStaleRooms(now time.Time) int {
	stale := make([]string, 0)
	for _, session := range r.sortedSessions() {
		if session.ConnectedCount() == 0 && now.Sub(session.CreatedAt()) > r.cfg.StaleRoomTimeout {
			stale = append(stale, session.RoomCode())
		}
	}

	for _, code := range stale {
		r.DeleteRoom(code, "inactive")
	}
	return len(stale)
}
