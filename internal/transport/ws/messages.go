package ws

import (
	"encoding/json"
	"time"

	"duoquiz/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgJoinHost          MessageType = "join_host"
	MsgJoin              MessageType = "join"
	MsgAddBot            MessageType = "add_bot"
	MsgPair              MessageType = "pair"
	MsgUnpair            MessageType = "unpair"
	MsgRemovePlayer      MessageType = "remove_player"
	MsgStartGame         MessageType = "start_game"
	MsgStartRound        MessageType = "start_round"
	MsgStartNextQuestion MessageType = "start_next_question"
	MsgSubmitAnswer      MessageType = "submit_answer"
	MsgCompleteRound     MessageType = "complete_round"
	MsgStartSelecting    MessageType = "start_selecting"
	MsgSubmitPick        MessageType = "submit_pick"
	MsgRevealAnswer      MessageType = "reveal_answer"
	MsgAwardPoints       MessageType = "award_points"
	MsgReopenRound       MessageType = "reopen_round"
	MsgNextRound         MessageType = "next_round"
	MsgEndGame           MessageType = "end_game"
	MsgResetGame         MessageType = "reset_game"
	MsgImportQuestions   MessageType = "import_questions"
	MsgClearQuestions    MessageType = "clear_questions"
	MsgGetState          MessageType = "get_state"
	MsgPing              MessageType = "ping"
)

// Server → Client message types. Room events are sent as domain.GameEvent.
const (
	MsgAck   MessageType = "ack"
	MsgError MessageType = "error"
	MsgPong  MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a reply from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, requestID string, payload any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		RequestID: requestID,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// NamePayload is the payload for join_host, join and add_bot
type NamePayload struct {
	Name string `json:"name"`
}

// PairPayload is the payload for pair
type PairPayload struct {
	PlayerID1 string `json:"playerId1"`
	PlayerID2 string `json:"playerId2"`
}

// PlayerPayload is the payload for unpair and remove_player
type PlayerPayload struct {
	PlayerID string `json:"playerId"`
}

// StartRoundPayload is the payload for start_round
type StartRoundPayload struct {
	domain.RoundSpec
	RoundNumber int `json:"roundNumber,omitempty"`
}

// AnswerPayload is the payload for submit_answer, submit_pick and reveal_answer
type AnswerPayload struct {
	Answer string `json:"answer"`
}

// AwardPointsPayload is the payload for award_points
type AwardPointsPayload struct {
	TeamID string `json:"teamId"`
	Points int    `json:"points"`
}

// ImportQuestionsPayload is the payload for import_questions
type ImportQuestionsPayload struct {
	Content string `json:"content"`
}

// Server message payloads

// JoinedPayload is the ack data for join_host and join
type JoinedPayload struct {
	Player *domain.Player       `json:"player"`
	State  *domain.RoomSnapshot `json:"state"`
}

// StartedRoundPayload is the ack data for start_next_question
type StartedRoundPayload struct {
	Round    *domain.Round          `json:"round"`
	Position *domain.CursorPosition `json:"position,omitempty"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage    = "INVALID_MESSAGE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeStateConflict     = "STATE_CONFLICT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodePersistenceFailed = "PERSISTENCE_FAILED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)
