package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"duoquiz/internal/app"
	"duoquiz/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; question imports are the largest
	maxMessageSize = 256 * 1024

	// Size of the send channel buffer
	sendBufferSize = 256

	// Time allowed for one inbound message, persistence included
	messageTimeout = 10 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	conn         *websocket.Conn
	session      *app.GameSession
	connectionID string
	limiter      *rate.Limiter
	send         chan []byte
	done         chan struct{}
	logger       *slog.Logger
	mu           sync.Mutex
	closed       bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, session *app.GameSession, connectionID string, limiter *rate.Limiter, logger *slog.Logger) *Client {
	return &Client{
		conn:         conn,
		session:      session,
		connectionID: connectionID,
		limiter:      limiter,
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
		logger:       logger.With("connectionID", connectionID),
	}
}

// ConnectionID implements app.ClientConnection
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Send implements app.ClientConnection
func (c *Client) Send(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped")
		return nil
	}
}

// Close implements app.ClientConnection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.UnregisterClient(c.connectionID)
		c.session.Disconnect(c.connectionID)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	if c.limiter != nil && !c.limiter.Allow() {
		c.sendError(msg.RequestID, ErrCodeRateLimited, "Too many messages")
		return
	}

	if msg.Type == MsgPing {
		c.Send(NewServerMessage(MsgPong, msg.RequestID, nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()

	result, err := c.dispatch(ctx, msg)
	if err != nil {
		c.replyError(msg, err)
		return
	}

	c.Send(NewServerMessage(MsgAck, msg.RequestID, result))
}

// errInvalidPayload marks payloads that do not decode
var errInvalidPayload = errors.New("invalid payload")

// errUnknownType marks message types nobody handles
var errUnknownType = errors.New("unknown message type")

// dispatch routes one message to the session and returns the ack data
func (c *Client) dispatch(ctx context.Context, msg ClientMessage) (any, error) {
	s := c.session
	id := c.connectionID

	switch msg.Type {
	case MsgJoinHost, MsgJoin:
		var p NamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		join := s.Join
		if msg.Type == MsgJoinHost {
			join = s.JoinAsHost
		}
		player, err := join(id, p.Name)
		if err != nil {
			return nil, err
		}
		s.SendState(id)
		return &JoinedPayload{Player: player, State: s.GetGameState()}, nil

	case MsgAddBot:
		var p NamePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return s.AddBot(id, p.Name)

	case MsgPair:
		var p PairPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return s.Pair(id, p.PlayerID1, p.PlayerID2)

	case MsgUnpair:
		var p PlayerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.Unpair(id, p.PlayerID)

	case MsgRemovePlayer:
		var p PlayerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.RemovePlayer(id, p.PlayerID)

	case MsgStartGame:
		return nil, s.StartGame(id)

	case MsgStartRound:
		var p StartRoundPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return s.StartRound(ctx, id, p.RoundSpec, p.RoundNumber)

	case MsgStartNextQuestion:
		round, position, err := s.StartNextImportedRound(ctx, id)
		if round == nil {
			return nil, err
		}
		return &StartedRoundPayload{Round: round, Position: position}, err

	case MsgSubmitAnswer:
		var p AnswerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.SubmitAnswer(ctx, id, p.Answer)

	case MsgCompleteRound:
		return nil, s.CompleteRound(id)

	case MsgStartSelecting:
		return s.StartSelecting(id)

	case MsgSubmitPick:
		var p AnswerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.SubmitPick(id, p.Answer)

	case MsgRevealAnswer:
		var p AnswerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return s.RevealPoolAnswer(id, p.Answer)

	case MsgAwardPoints:
		var p AwardPointsPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return s.AwardPoints(id, p.TeamID, p.Points)

	case MsgReopenRound:
		return nil, s.ReturnToAnswering(id)

	case MsgNextRound:
		return nil, s.NextRound(id)

	case MsgEndGame:
		return nil, s.EndGame(id)

	case MsgResetGame:
		return nil, s.ResetGame(id)

	case MsgImportQuestions:
		var p ImportQuestionsPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return s.ImportQuestions(id, []byte(p.Content))

	case MsgClearQuestions:
		return nil, s.ClearQuestions(id)

	case MsgGetState:
		return s.GetGameState(), nil

	default:
		return nil, errUnknownType
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidPayload
	}
	return nil
}

// replyError maps an error to a wire code and sends it to this client only
func (c *Client) replyError(msg ClientMessage, err error) {
	switch {
	case errors.Is(err, errInvalidPayload):
		c.sendError(msg.RequestID, ErrCodeInvalidMessage, "Invalid payload")
		return
	case errors.Is(err, errUnknownType):
		c.sendError(msg.RequestID, ErrCodeInvalidMessage, "Unknown message type")
		return
	case errors.Is(err, app.ErrPersistence):
		c.logger.Error("persistence failed", "type", msg.Type, "error", err)
		c.sendError(msg.RequestID, ErrCodePersistenceFailed, "Failed to save game data")
		return
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		c.sendError(msg.RequestID, ErrCodeValidation, err.Error())
	case domain.KindConflict:
		c.sendError(msg.RequestID, ErrCodeStateConflict, err.Error())
	case domain.KindNotFound:
		c.sendError(msg.RequestID, ErrCodeNotFound, err.Error())
	default:
		c.logger.Error("message failed", "type", msg.Type, "error", err)
		c.sendError(msg.RequestID, ErrCodeInternalError, "Internal server error")
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(requestID, code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	c.Send(NewServerMessage(MsgError, requestID, payload))
}
