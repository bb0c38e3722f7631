package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"duoquiz/internal/domain"
	"duoquiz/internal/questions"
)

const (
	// DefaultHostGracePeriod is how long a room survives its host's disconnect
	DefaultHostGracePeriod = 5 * time.Second

	botStoreTimeout = 5 * time.Second
	eventBufferSize = 100
)

// ClientConnection represents a connected client
type ClientConnection interface {
	Send(message any) error
	ConnectionID() string
	Close() error
}

// SessionConfig holds per-room settings
type SessionConfig struct {
	HostGracePeriod time.Duration
}

// GameSession wraps a room with concurrency control, broadcasting and persistence.
// Every public method runs its domain operation to completion under the session lock.
type GameSession struct {
	room      *domain.Room
	mu        sync.RWMutex
	clients   map[string]ClientConnection // connectionID -> client
	clientsMu sync.RWMutex
	store     Store
	bots      *Coordinator
	cfg       SessionConfig
	logger    *slog.Logger
	now       func() time.Time

	// Incremented on every round phase change; bot tasks carry the value they were scheduled under
	phase int

	hostTimer     *time.Timer
	hostSeq       int
	onHostExpired func(roomCode string)

	// Event channel for broadcasting
	events chan *domain.GameEvent
	done   chan struct{}
}

// NewGameSession creates a new game session
func NewGameSession(room *domain.Room, cfg SessionConfig, store Store, bots *Coordinator, logger *slog.Logger) *GameSession {
	if cfg.HostGracePeriod <= 0 {
		cfg.HostGracePeriod = DefaultHostGracePeriod
	}
	if store == nil {
		store = NopStore{}
	}

	session := &GameSession{
		room:    room,
		clients: make(map[string]ClientConnection),
		store:   store,
		bots:    bots,
		cfg:     cfg,
		logger:  logger.With("roomCode", room.Code),
		now:     time.Now,
		events:  make(chan *domain.GameEvent, eventBufferSize),
		done:    make(chan struct{}),
	}

	// Start event broadcaster
	go session.eventLoop()

	return session
}

// RoomCode returns the room code
func (s *GameSession) RoomCode() string {
	return s.room.Code
}

// CreatedAt returns when the room was created
func (s *GameSession) CreatedAt() time.Time {
	return s.room.CreatedAt
}

// PlayerCount returns the number of tracked players, host included
func (s *GameSession) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.room.Players)
}

// ConnectedCount returns the number of connected players, host included
func (s *GameSession) ConnectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room.ConnectedCount()
}

// GetGameState returns a deep copy of the room
func (s *GameSession) GetGameState() *domain.RoomSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room.Snapshot()
}

// RegisterClient registers a client connection
func (s *GameSession) RegisterClient(client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ConnectionID()] = client
}

// UnregisterClient removes a client connection
func (s *GameSession) UnregisterClient(connectionID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, connectionID)
}

// JoinAsHost creates the host, or rebinds a disconnected host with the same name
func (s *GameSession) JoinAsHost(connectionID, name string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if host := s.room.Host(); host != nil {
		if host.Name != strings.TrimSpace(name) {
			return nil, domain.ErrHostExists
		}
		player, err := s.room.ReconnectHost(name, connectionID)
		if err != nil {
			return nil, err
		}
		s.stopHostTimer()
		s.logger.Info("host reconnected", "name", player.Name)
		s.queueEvent(domain.NewEvent(domain.EventHostReconnected, s.room.Code, s.playerPayload(player)))
		return copyPlayer(player), nil
	}

	player, err := s.room.AddPlayer(connectionID, name, true, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("host joined", "name", player.Name)
	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.Code, s.playerPayload(player)))

	return copyPlayer(player), nil
}

// Join adds a new player in the lobby, or rebinds a disconnected player by name during play
func (s *GameSession) Join(connectionID, name string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.room.PlayerByName(strings.TrimSpace(name)); existing != nil && !existing.IsHost && !existing.Connected {
		player, err := s.room.ReconnectPlayer(name, connectionID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("player reconnected", "name", player.Name)
		s.queueEvent(domain.NewEvent(domain.EventPlayerReconnected, s.room.Code, s.playerPayload(player)))
		return copyPlayer(player), nil
	}

	player, err := s.room.AddPlayer(connectionID, name, false, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined", "name", player.Name)
	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.Code, s.playerPayload(player)))

	return copyPlayer(player), nil
}

// AddBot adds a simulated player (host only). An empty name picks "Bot N".
func (s *GameSession) AddBot(connectionID, name string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(name) == "" {
		for i := 1; ; i++ {
			name = fmt.Sprintf("Bot %d", i)
			if s.room.PlayerByName(name) == nil {
				break
			}
		}
	}

	player, err := s.room.AddPlayer(uuid.NewString(), name, false, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bot added", "name", player.Name)
	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.Code, s.playerPayload(player)))

	return copyPlayer(player), nil
}

// Disconnect handles a closed connection. In the lobby a player is removed; during play
// they are only marked disconnected. A disconnected host starts the grace timer.
func (s *GameSession) Disconnect(connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.room.PlayerByConnection(connectionID)
	if player == nil {
		return
	}

	switch {
	case player.IsHost:
		if _, err := s.room.DisconnectHost(connectionID); err != nil {
			return
		}
		s.startHostTimer()
		s.logger.Info("host disconnected", "gracePeriod", s.cfg.HostGracePeriod)
		s.queueEvent(domain.NewEvent(domain.EventHostDisconnected, s.room.Code, &domain.HostDisconnectedPayload{
			GracePeriodMs: s.cfg.HostGracePeriod.Milliseconds(),
		}))

	case s.room.Status == domain.StatusLobby:
		if _, err := s.room.RemovePlayer(connectionID); err != nil {
			return
		}
		s.logger.Info("player left lobby", "name", player.Name)
		s.queueEvent(domain.NewEvent(domain.EventPlayerLeft, s.room.Code, s.playerPayload(player)))

	default:
		if _, err := s.room.DisconnectPlayer(connectionID); err != nil {
			return
		}
		s.logger.Info("player disconnected", "name", player.Name)
		s.queueEvent(domain.NewEvent(domain.EventPlayerDisconnected, s.room.Code, s.playerPayload(player)))

		// One less connected participant may complete the phase
		s.announceCompletion()
	}
}

// Pair creates a team. The host may pair anyone; a player may pair themselves with someone.
func (s *GameSession) Pair(connectionID, idA, idB string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connectionID != idA && connectionID != idB {
		if err := s.requireHost(connectionID); err != nil {
			return nil, err
		}
	}

	team, err := s.room.PairPlayers(idA, idB)
	if err != nil {
		return nil, err
	}

	s.logger.Info("players paired", "teamID", team.ID)
	s.broadcastState(domain.EventTeamsUpdated)

	t := *team
	return &t, nil
}

// Unpair dissolves a team. The host may unpair anyone; a player may leave their own team.
func (s *GameSession) Unpair(connectionID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connectionID != playerID {
		if err := s.requireHost(connectionID); err != nil {
			return err
		}
	}

	if err := s.room.UnpairPlayers(playerID); err != nil {
		return err
	}

	s.broadcastState(domain.EventTeamsUpdated)
	return nil
}

// RemovePlayer kicks a player from the lobby (host only)
func (s *GameSession) RemovePlayer(connectionID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}
	if playerID == connectionID {
		return domain.ErrHostCannotPlay
	}

	player, err := s.room.RemovePlayer(playerID)
	if err != nil {
		return err
	}

	s.logger.Info("player removed", "name", player.Name)
	s.queueEvent(domain.NewEvent(domain.EventPlayerLeft, s.room.Code, s.playerPayload(player)))
	return nil
}

// StartGame leaves the lobby (host only)
func (s *GameSession) StartGame(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}
	if err := s.room.StartGame(); err != nil {
		return err
	}

	s.logger.Info("game started", "teams", len(s.room.Teams))
	s.broadcastState(domain.EventGameStarted)
	return nil
}

// StartRound opens a host-authored round (host only). A roundNumber of 0 takes the next number.
func (s *GameSession) StartRound(ctx context.Context, connectionID string, spec domain.RoundSpec, roundNumber int) (*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, err
	}
	return s.startRoundLocked(ctx, spec, roundNumber, nil)
}

// StartNextImportedRound advances the question cursor and opens a round for it (host only)
func (s *GameSession) StartNextImportedRound(ctx context.Context, connectionID string) (*domain.Round, *domain.CursorPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, nil, err
	}
	if s.room.ImportedQuestions == nil {
		return nil, nil, domain.ErrNoImportedQuestions
	}
	if err := s.room.CanStartRound(); err != nil {
		return nil, nil, err
	}

	previous := s.room.QuestionCursor
	position, err := s.room.AdvanceCursor()
	if err != nil {
		return nil, nil, err
	}
	if position == nil {
		return nil, nil, domain.ErrQuestionsExhausted
	}

	round, err := s.startRoundLocked(ctx, position.Question.Spec(), 0, position)
	if round == nil && err != nil {
		s.room.QuestionCursor = previous
		return nil, nil, err
	}

	return round, position, err
}

func (s *GameSession) startRoundLocked(ctx context.Context, spec domain.RoundSpec, roundNumber int, position *domain.CursorPosition) (*domain.Round, error) {
	round, err := s.room.StartRound(spec, roundNumber, s.now())
	if err != nil {
		return nil, err
	}
	s.advancePhase()

	s.logger.Info("round started", "roundNumber", round.Number, "variant", round.Variant)

	roundID, storeErr := s.store.SaveRound(ctx, s.room.Code, round.Number, round.Question, round.Variant, round.Options)
	if storeErr != nil {
		s.logger.Error("failed to save round", "roundNumber", round.Number, "error", storeErr)
	} else {
		round.ID = roundID
	}

	s.queueEvent(domain.NewEvent(domain.EventRoundStarted, s.room.Code, &domain.RoundStartedPayload{
		Round:    round.Clone(),
		Position: position,
	}))
	s.scheduleBotAnswers()

	return round.Clone(), persistenceError(storeErr)
}

// SubmitAnswer stores the caller's answer. Response time is measured from round start.
func (s *GameSession) SubmitAnswer(ctx context.Context, connectionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitAnswerLocked(ctx, connectionID, text)
}

func (s *GameSession) submitAnswerLocked(ctx context.Context, connectionID, text string) error {
	round := s.room.CurrentRound
	if round == nil {
		return domain.ErrNoActiveRound
	}

	player, err := s.room.SubmitAnswer(connectionID, text, round.ResponseTimeSince(s.now()))
	if err != nil {
		return err
	}
	answer := round.Answers[player.Name]

	s.queueEvent(domain.NewEvent(domain.EventAnswerSubmitted, s.room.Code, &domain.ProgressPayload{
		RoundNumber: round.Number,
		PlayerName:  player.Name,
		Submitted:   len(round.SubmittedInCurrentPhase),
		Expected:    len(s.room.ConnectedParticipants()),
	}))
	s.announceCompletion()

	if round.ID == "" {
		s.logger.Debug("round not persisted, skipping answer", "roundNumber", round.Number)
		return nil
	}
	if err := s.store.SaveAnswer(ctx, round.ID, player.Name, player.TeamID, answer.Text, answer.ResponseTimeMs); err != nil {
		s.logger.Error("failed to save answer", "roundNumber", round.Number, "name", player.Name, "error", err)
		return persistenceError(err)
	}
	return nil
}

// CompleteRound closes the round for reveal and scoring (host only)
func (s *GameSession) CompleteRound(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}
	if err := s.room.CompleteRound(); err != nil {
		return err
	}
	s.advancePhase()

	s.queueEvent(domain.NewEvent(domain.EventRoundCompleted, s.room.Code, &domain.RoundCompletedPayload{
		Round: s.room.CurrentRound.Clone(),
		Teams: s.room.Scoreboard(),
	}))
	return nil
}

// StartSelecting moves a pool-selection round to the selecting phase and returns the pool (host only)
func (s *GameSession) StartSelecting(connectionID string) ([]domain.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, err
	}
	if err := s.room.StartSelecting(); err != nil {
		return nil, err
	}
	s.advancePhase()

	pool, err := s.room.AnswerPool()
	if err != nil {
		return nil, err
	}

	s.queueEvent(domain.NewEvent(domain.EventSelectingStarted, s.room.Code, &domain.SelectingStartedPayload{
		RoundNumber: s.room.CurrentRound.Number,
		Pool:        domain.Anonymize(pool),
	}))
	s.scheduleBotPicks()

	return pool, nil
}

// AnswerPool returns the current pool
func (s *GameSession) AnswerPool() ([]domain.PoolEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.AnswerPool()
}

// SubmitPick records the caller's guess during the selecting phase
func (s *GameSession) SubmitPick(connectionID, pickedText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitPickLocked(connectionID, pickedText)
}

func (s *GameSession) submitPickLocked(connectionID, pickedText string) error {
	player, err := s.room.SubmitPick(connectionID, pickedText)
	if err != nil {
		return err
	}

	round := s.room.CurrentRound
	s.queueEvent(domain.NewEvent(domain.EventPickSubmitted, s.room.Code, &domain.ProgressPayload{
		RoundNumber: round.Number,
		PlayerName:  player.Name,
		Submitted:   len(round.PicksSubmitted),
		Expected:    len(s.room.ConnectedParticipants()),
	}))
	s.announceCompletion()

	return nil
}

// RevealPoolAnswer scores one pooled answer (host only) once the round is complete. The first
// reveal of a normalized answer awards points; later reveals replay the stored outcome.
func (s *GameSession) RevealPoolAnswer(connectionID, answerText string) (*domain.RevealPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, err
	}

	round := s.room.CurrentRound
	if round == nil {
		return nil, domain.ErrNoActiveRound
	}
	if round.Variant != domain.VariantPoolSelection {
		return nil, domain.ErrNotPoolSelection
	}
	if round.Status != domain.RoundComplete {
		return nil, domain.ErrRevealNotAllowed
	}

	authors := s.room.AuthorsOfAnswer(answerText)
	if len(authors) == 0 {
		return nil, domain.ErrAnswerNotInPool
	}

	payload := &domain.RevealPayload{
		AnswerText: answerText,
		Authors:    authors,
	}

	if s.room.IsPoolAnswerRevealed(answerText) {
		payload.Result, _ = s.room.RevealedPoolResult(answerText)
		payload.Pickers, _ = s.room.RevealedPoolPickers(answerText)
		payload.Teams = s.room.Scoreboard()
		payload.Repeated = true
		return payload, nil
	}

	payload.Result = s.room.CheckCorrectPick(answerText)

	for _, teamID := range payload.Result.TeamIDs {
		if _, err := s.room.AwardTeamPoints(teamID, payload.Result.TeamPoints[teamID]); err != nil {
			return nil, err
		}
	}

	payload.Pickers = s.room.PickersForAnswer(answerText)
	s.room.MarkPoolAnswerRevealed(answerText)
	s.room.MarkPoolPickersRevealed(answerText, payload.Pickers)
	s.room.MarkPoolResultRevealed(answerText, payload.Result)
	payload.Teams = s.room.Scoreboard()

	s.logger.Info("pool answer revealed",
		"roundNumber", round.Number,
		"correctPickers", len(payload.Result.CorrectPickers),
	)
	s.queueEvent(domain.NewEvent(domain.EventPoolAnswerRevealed, s.room.Code, payload))

	return payload, nil
}

// AwardPoints adjusts a team's score by hand (host only)
func (s *GameSession) AwardPoints(connectionID, teamID string, delta int) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, err
	}

	team, err := s.room.AwardTeamPoints(teamID, delta)
	if err != nil {
		return nil, err
	}

	s.broadcastScores(domain.EventScoresUpdated)

	t := *team
	return &t, nil
}

// ReturnToAnswering reopens the round so answers can be changed (host only)
func (s *GameSession) ReturnToAnswering(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}
	if err := s.room.ReturnToAnswering(); err != nil {
		return err
	}
	s.advancePhase()

	s.logger.Info("round reopened", "roundNumber", s.room.CurrentRound.Number)
	s.broadcastState(domain.EventRoundReopened)
	s.scheduleBotAnswers()

	return nil
}

// NextRound discards the active round and waits for the next one (host only)
func (s *GameSession) NextRound(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}
	if err := s.room.NextRound(); err != nil {
		return err
	}
	s.advancePhase()

	s.broadcastScores(domain.EventReturnedToPlaying)
	return nil
}

// EndGame shows the final scoreboard (host only)
func (s *GameSession) EndGame(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}
	if err := s.room.EndGame(); err != nil {
		return err
	}
	s.advancePhase()

	s.logger.Info("game ended")
	s.broadcastScores(domain.EventGameEnded)
	return nil
}

// ResetGame returns the room to the lobby with players and teams intact (host only)
func (s *GameSession) ResetGame(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}

	s.room.ResetGame()
	s.advancePhase()

	s.logger.Info("game reset")
	s.broadcastState(domain.EventGameReset)
	return nil
}

// ImportQuestions parses and installs a question outline (host only)
func (s *GameSession) ImportQuestions(connectionID string, content []byte) (*domain.QuestionsPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return nil, err
	}

	outline, err := questions.Parse(content)
	if err != nil {
		return nil, err
	}
	if err := questions.Validate(outline); err != nil {
		return nil, err
	}

	s.room.SetImportedQuestions(outline)

	payload := &domain.QuestionsPayload{
		Title:          outline.Title,
		ChapterCount:   len(outline.Chapters),
		TotalQuestions: outline.TotalQuestions(),
	}
	s.logger.Info("questions imported", "chapters", payload.ChapterCount, "questions", payload.TotalQuestions)
	s.queueEvent(domain.NewEvent(domain.EventQuestionsImported, s.room.Code, payload))

	return payload, nil
}

// ClearQuestions removes the imported outline (host only)
func (s *GameSession) ClearQuestions(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireHost(connectionID); err != nil {
		return err
	}

	s.room.ClearImportedQuestions()
	s.broadcastState(domain.EventQuestionsCleared)
	return nil
}

// SendState sends the current snapshot to one connection, for joins and reconnects
func (s *GameSession) SendState(connectionID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.queueEvent(domain.NewDirectEvent(domain.EventRoomState, s.room.Code, connectionID, &domain.StatePayload{
		State: s.room.Snapshot(),
	}))
}

// botAnswer runs when an answer task fires. It is a no-op unless the round is still
// in the phase the task was scheduled for and the bot has not answered yet.
func (s *GameSession) botAnswer(name string, roundNumber, phase int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.room.CurrentRound
	if round == nil || round.Number != roundNumber || round.Status != domain.RoundAnswering || s.phase != phase {
		return
	}
	bot := s.room.PlayerByName(name)
	if bot == nil || !bot.IsSimulated || !bot.Connected || round.HasSubmitted(name) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), botStoreTimeout)
	defer cancel()

	if err := s.submitAnswerLocked(ctx, bot.ConnectionID, botAnswerText(round)); err != nil {
		s.logger.Warn("bot answer failed", "name", name, "error", err)
	}
}

// botPick runs when a pick task fires, with the same liveness checks as botAnswer
func (s *GameSession) botPick(name string, roundNumber, phase int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round := s.room.CurrentRound
	if round == nil || round.Number != roundNumber || round.Status != domain.RoundSelecting || s.phase != phase {
		return
	}
	bot := s.room.PlayerByName(name)
	if bot == nil || !bot.IsSimulated || !bot.Connected || round.HasPicked(name) {
		return
	}

	pool, err := s.room.AnswerPool()
	if err != nil {
		return
	}
	candidates := make([]string, 0, len(pool))
	for _, entry := range pool {
		if entry.AuthorName != name {
			candidates = append(candidates, entry.AnswerText)
		}
	}
	if len(candidates) == 0 {
		return
	}

	if err := s.submitPickLocked(bot.ConnectionID, GetRandomOption(candidates)); err != nil {
		s.logger.Warn("bot pick failed", "name", name, "error", err)
	}
}

func botAnswerText(round *domain.Round) string {
	choose := func() string {
		if round.Variant == domain.VariantMultipleChoice || round.Variant == domain.VariantBinary {
			return GetRandomOption(round.Options)
		}
		return GetRandomBotAnswer()
	}

	if round.AnswerForBoth {
		data, err := json.Marshal(map[string]string{"self": choose(), "partner": choose()})
		if err == nil {
			return string(data)
		}
	}
	return choose()
}

func (s *GameSession) simulatedNames() []string {
	names := make([]string, 0)
	for _, p := range s.room.ConnectedParticipants() {
		if p.IsSimulated {
			names = append(names, p.Name)
		}
	}
	return names
}

func (s *GameSession) scheduleBotAnswers() {
	names := s.simulatedNames()
	if s.bots == nil || len(names) == 0 || s.room.CurrentRound == nil {
		return
	}
	s.bots.ScheduleAnswers(s, s.room.CurrentRound.Number, s.phase, names)
}

func (s *GameSession) scheduleBotPicks() {
	names := s.simulatedNames()
	if s.bots == nil || len(names) == 0 || s.room.CurrentRound == nil {
		return
	}
	s.bots.SchedulePicks(s, s.room.CurrentRound.Number, s.phase, names)
}

// advancePhase invalidates every pending bot task of the room (caller must hold lock)
func (s *GameSession) advancePhase() {
	s.phase++
	if s.bots != nil {
		s.bots.CancelRoom(s.room.Code)
	}
}

// announceCompletion emits ALL_ANSWERS_IN / ALL_PICKS_IN. The transition itself is left to the host.
func (s *GameSession) announceCompletion() {
	round := s.room.CurrentRound
	if round == nil || len(s.room.ConnectedParticipants()) == 0 {
		return
	}

	switch round.Status {
	case domain.RoundAnswering:
		if s.room.IsRoundComplete() {
			s.queueEvent(domain.NewEvent(domain.EventAllAnswersIn, s.room.Code, &domain.ProgressPayload{
				RoundNumber: round.Number,
				Submitted:   len(round.SubmittedInCurrentPhase),
				Expected:    len(s.room.ConnectedParticipants()),
			}))
		}
	case domain.RoundSelecting:
		if s.room.AreAllPicksIn() {
			s.queueEvent(domain.NewEvent(domain.EventAllPicksIn, s.room.Code, &domain.ProgressPayload{
				RoundNumber: round.Number,
				Submitted:   len(round.PicksSubmitted),
				Expected:    len(s.room.ConnectedParticipants()),
			}))
		}
	}
}

func (s *GameSession) requireHost(connectionID string) error {
	host := s.room.Host()
	if host == nil || !host.Connected || host.ConnectionID != connectionID {
		return domain.ErrNotHost
	}
	return nil
}

// startHostTimer schedules room deletion unless the host comes back (caller must hold lock)
func (s *GameSession) startHostTimer() {
	s.stopHostTimer()
	seq := s.hostSeq
	s.hostTimer = time.AfterFunc(s.cfg.HostGracePeriod, func() {
		s.expireHost(seq)
	})
}

// stopHostTimer cancels the grace timer (caller must hold lock)
func (s *GameSession) stopHostTimer() {
	s.hostSeq++
	if s.hostTimer != nil {
		s.hostTimer.Stop()
		s.hostTimer = nil
	}
}

func (s *GameSession) expireHost(seq int) {
	s.mu.Lock()
	if seq != s.hostSeq {
		s.mu.Unlock()
		return
	}
	s.hostTimer = nil
	host := s.room.Host()
	expired := host != nil && !host.Connected
	s.mu.Unlock()

	if !expired {
		return
	}

	s.logger.Info("host grace period expired")
	if s.onHostExpired != nil {
		s.onHostExpired(s.room.Code)
	}
}

func (s *GameSession) playerPayload(player *domain.Player) *domain.PlayerPayload {
	return &domain.PlayerPayload{Player: *player, State: s.room.Snapshot()}
}

func (s *GameSession) broadcastState(eventType domain.EventType) {
	s.queueEvent(domain.NewEvent(eventType, s.room.Code, &domain.StatePayload{State: s.room.Snapshot()}))
}

func (s *GameSession) broadcastScores(eventType domain.EventType) {
	totals := make(map[string]int64, len(s.room.TeamTotalResponseTimes))
	for k, v := range s.room.TeamTotalResponseTimes {
		totals[k] = v
	}
	s.queueEvent(domain.NewEvent(eventType, s.room.Code, &domain.ScoresPayload{
		Teams:                  s.room.Scoreboard(),
		TeamTotalResponseTimes: totals,
	}))
}

func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func copyPlayer(p *domain.Player) *domain.Player {
	c := *p
	return &c
}

// queueEvent adds an event to the broadcast queue
func (s *GameSession) queueEvent(event *domain.GameEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients
func (s *GameSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to appropriate clients
func (s *GameSession) broadcastEvent(event *domain.GameEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	// If connection-specific, send only to that connection
	if event.ConnectionID != "" {
		if client, ok := s.clients[event.ConnectionID]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("failed to send to client", "connectionID", event.ConnectionID, "error", err)
			}
		}
		return
	}

	for connectionID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "connectionID", connectionID, "error", err)
		}
	}
}

// Close shuts down the session, telling connected clients why
func (s *GameSession) Close(reason string) {
	select {
	case <-s.done:
		return // Already closed
	default:
		close(s.done)
	}

	s.mu.Lock()
	s.stopHostTimer()
	if s.bots != nil {
		s.bots.CancelRoom(s.room.Code)
	}
	s.mu.Unlock()

	s.broadcastEvent(domain.NewEvent(domain.EventRoomClosed, s.room.Code, &domain.RoomClosedPayload{Reason: reason}))

	// Close all client connections
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}
