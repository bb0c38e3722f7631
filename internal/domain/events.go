package domain

import "time"

// EventType represents the type of room event
type EventType string

const (
	EventRoomState          EventType = "ROOM_STATE"
	EventPlayerJoined       EventType = "PLAYER_JOINED"
	EventPlayerLeft         EventType = "PLAYER_LEFT"
	EventPlayerReconnected  EventType = "PLAYER_RECONNECTED"
	EventPlayerDisconnected EventType = "PLAYER_DISCONNECTED"
	EventHostDisconnected   EventType = "HOST_DISCONNECTED"
	EventHostReconnected    EventType = "HOST_RECONNECTED"
	EventTeamsUpdated       EventType = "TEAMS_UPDATED"
	EventGameStarted        EventType = "GAME_STARTED"
	EventRoundStarted       EventType = "ROUND_STARTED"
	EventAnswerSubmitted    EventType = "ANSWER_SUBMITTED"
	EventAllAnswersIn       EventType = "ALL_ANSWERS_IN"
	EventSelectingStarted   EventType = "SELECTING_STARTED"
	EventPickSubmitted      EventType = "PICK_SUBMITTED"
	EventAllPicksIn         EventType = "ALL_PICKS_IN"
	EventRoundCompleted     EventType = "ROUND_COMPLETED"
	EventPoolAnswerRevealed EventType = "POOL_ANSWER_REVEALED"
	EventScoresUpdated      EventType = "SCORES_UPDATED"
	EventRoundReopened      EventType = "ROUND_REOPENED"
	EventReturnedToPlaying  EventType = "RETURNED_TO_PLAYING"
	EventQuestionsImported  EventType = "QUESTIONS_IMPORTED"
	EventQuestionsCleared   EventType = "QUESTIONS_CLEARED"
	EventGameEnded          EventType = "GAME_ENDED"
	EventGameReset          EventType = "GAME_RESET"
	EventRoomClosed         EventType = "ROOM_CLOSED"
)

// GameEvent represents an event that occurred in a room
type GameEvent struct {
	Type         EventType `json:"type"`
	RoomCode     string    `json:"roomCode"`
	ConnectionID string    `json:"-"` // If set, delivered to this connection only
	Payload      any       `json:"payload,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewEvent creates a new room-wide event
func NewEvent(eventType EventType, roomCode string, payload any) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		RoomCode:  roomCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewDirectEvent creates an event for a single connection
func NewDirectEvent(eventType EventType, roomCode, connectionID string, payload any) *GameEvent {
	return &GameEvent{
		Type:         eventType,
		RoomCode:     roomCode,
		ConnectionID: connectionID,
		Payload:      payload,
		Timestamp:    time.Now(),
	}
}

// Payload types for different events

// StatePayload carries the full room snapshot
type StatePayload struct {
	State *RoomSnapshot `json:"state"`
}

// PlayerPayload names the player an event is about
type PlayerPayload struct {
	Player Player        `json:"player"`
	State  *RoomSnapshot `json:"state"`
}

// HostDisconnectedPayload tells players how long the host has to come back
type HostDisconnectedPayload struct {
	GracePeriodMs int64 `json:"gracePeriodMs"`
}

// RoundStartedPayload is sent when a round opens for answers
type RoundStartedPayload struct {
	Round    *Round          `json:"round"`
	Position *CursorPosition `json:"position,omitempty"` // set for imported questions
}

// ProgressPayload reports how many of the expected submissions are in
type ProgressPayload struct {
	RoundNumber int    `json:"roundNumber"`
	PlayerName  string `json:"playerName,omitempty"`
	Submitted   int    `json:"submitted"`
	Expected    int    `json:"expected"`
}

// SelectingStartedPayload carries the anonymized pool
type SelectingStartedPayload struct {
	RoundNumber int          `json:"roundNumber"`
	Pool        []PoolOption `json:"pool"`
}

// RoundCompletedPayload is sent when the host closes a round
type RoundCompletedPayload struct {
	Round *Round `json:"round"`
	Teams []Team `json:"teams"`
}

// RevealPayload is the outcome of revealing one pool answer
type RevealPayload struct {
	AnswerText string     `json:"answerText"`
	Authors    []string   `json:"authors"`
	Pickers    []string   `json:"pickers"`
	Result     PickResult `json:"result"`
	Teams      []Team     `json:"teams"`
	Repeated   bool       `json:"repeated"` // already revealed, nothing awarded
}

// ScoresPayload carries the ordered scoreboard
type ScoresPayload struct {
	Teams                  []Team           `json:"teams"`
	TeamTotalResponseTimes map[string]int64 `json:"teamTotalResponseTimes"`
}

// QuestionsPayload summarizes an installed outline
type QuestionsPayload struct {
	Title          string `json:"title"`
	ChapterCount   int    `json:"chapterCount"`
	TotalQuestions int    `json:"totalQuestions"`
}

// RoomClosedPayload explains why a room went away
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}
