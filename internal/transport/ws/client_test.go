package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"duoquiz/internal/app"
	"duoquiz/internal/domain"
)

type reply struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

type failingStore struct {
	app.NopStore
}

func (failingStore) SaveRound(context.Context, string, int, string, domain.Variant, []string) (string, error) {
	return "", errors.New("db down")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, store app.Store) *app.GameSession {
	t.Helper()
	s := app.NewGameSession(domain.NewRoom("test"), app.SessionConfig{}, store, nil, testLogger())
	t.Cleanup(func() { s.Close("test finished") })
	return s
}

// newTestClient builds a client without a socket; replies land on its send channel
func newTestClient(s *app.GameSession, id string, limiter *rate.Limiter) *Client {
	return NewClient(nil, s, id, limiter, testLogger())
}

func send(t *testing.T, c *Client, msgType MessageType, requestID string, payload any) reply {
	t.Helper()
	msg := ClientMessage{Type: msgType, RequestID: requestID}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = data
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	c.handleMessage(raw)
	return nextReply(t, c)
}

func nextReply(t *testing.T, c *Client) reply {
	t.Helper()
	select {
	case data := <-c.send:
		var r reply
		require.NoError(t, json.Unmarshal(data, &r))
		return r
	case <-time.After(time.Second):
		t.Fatal("no reply")
		return reply{}
	}
}

func errorOf(t *testing.T, r reply) ErrorPayload {
	t.Helper()
	require.Equal(t, MsgError, r.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(r.Payload, &p))
	return p
}

func TestHandleMessageErrors(t *testing.T) {
	s := newTestSession(t, nil)
	c := newTestClient(s, "c1", nil)

	c.handleMessage([]byte("{not json"))
	p := errorOf(t, nextReply(t, c))
	assert.Equal(t, ErrCodeInvalidMessage, p.Code)

	r := send(t, c, "dance", "r1", nil)
	assert.Equal(t, "r1", r.RequestID)
	p = errorOf(t, r)
	assert.Equal(t, ErrCodeInvalidMessage, p.Code)
	assert.Equal(t, "Unknown message type", p.Message)

	p = errorOf(t, send(t, c, MsgJoinHost, "r2", nil))
	assert.Equal(t, "Invalid payload", p.Message)

	p = errorOf(t, send(t, c, MsgJoin, "r3", NamePayload{Name: "  "}))
	assert.Equal(t, ErrCodeValidation, p.Code)
	assert.Equal(t, "Name is required", p.Message)
}

func TestDispatchFlow(t *testing.T) {
	s := newTestSession(t, nil)
	host := newTestClient(s, "host", nil)
	alice := newTestClient(s, "alice", nil)
	bob := newTestClient(s, "bob", nil)

	r := send(t, host, MsgJoinHost, "1", NamePayload{Name: "Host"})
	require.Equal(t, MsgAck, r.Type)
	var joined JoinedPayload
	require.NoError(t, json.Unmarshal(r.Payload, &joined))
	assert.True(t, joined.Player.IsHost)
	assert.Equal(t, "test", joined.State.Code)

	require.Equal(t, MsgAck, send(t, alice, MsgJoin, "2", NamePayload{Name: "Alice"}).Type)
	require.Equal(t, MsgAck, send(t, bob, MsgJoin, "3", NamePayload{Name: "Bob"}).Type)

	p := errorOf(t, send(t, alice, MsgStartGame, "4", nil))
	assert.Equal(t, ErrCodeStateConflict, p.Code)
	assert.Equal(t, "Only the host can perform this action", p.Message)

	require.Equal(t, MsgAck, send(t, alice, MsgPair, "5", PairPayload{PlayerID1: "alice", PlayerID2: "bob"}).Type)
	require.Equal(t, MsgAck, send(t, host, MsgStartGame, "6", nil).Type)

	p = errorOf(t, send(t, host, MsgStartRound, "7", StartRoundPayload{
		RoundSpec: domain.RoundSpec{Question: "q", Variant: domain.VariantBinary, Options: []string{"only one"}},
	}))
	assert.Equal(t, ErrCodeValidation, p.Code)
	assert.Equal(t, "Binary requires exactly 2 options", p.Message)

	r = send(t, host, MsgStartRound, "8", StartRoundPayload{
		RoundSpec: domain.RoundSpec{Question: "Best pet?", Variant: domain.VariantPoolSelection},
	})
	require.Equal(t, MsgAck, r.Type)
	var round domain.Round
	require.NoError(t, json.Unmarshal(r.Payload, &round))
	assert.Equal(t, 1, round.Number)

	require.Equal(t, MsgAck, send(t, alice, MsgSubmitAnswer, "9", AnswerPayload{Answer: "dog"}).Type)
	require.Equal(t, MsgAck, send(t, bob, MsgSubmitAnswer, "10", AnswerPayload{Answer: "cat"}).Type)
	require.Equal(t, MsgAck, send(t, host, MsgStartSelecting, "11", nil).Type)

	p = errorOf(t, send(t, alice, MsgSubmitPick, "12", AnswerPayload{Answer: "dog"}))
	assert.Equal(t, "Cannot pick your own answer", p.Message)

	require.Equal(t, MsgAck, send(t, alice, MsgSubmitPick, "13", AnswerPayload{Answer: "cat"}).Type)
	require.Equal(t, MsgAck, send(t, bob, MsgSubmitPick, "14", AnswerPayload{Answer: "dog"}).Type)

	p = errorOf(t, send(t, host, MsgRevealAnswer, "15", AnswerPayload{Answer: "dog"}))
	assert.Equal(t, ErrCodeStateConflict, p.Code)
	require.Equal(t, MsgAck, send(t, host, MsgCompleteRound, "16", nil).Type)

	r = send(t, host, MsgRevealAnswer, "17", AnswerPayload{Answer: "dog"})
	require.Equal(t, MsgAck, r.Type)
	var reveal domain.RevealPayload
	require.NoError(t, json.Unmarshal(r.Payload, &reveal))
	assert.Equal(t, []string{"Bob"}, reveal.Result.CorrectPickers)

	r = send(t, host, MsgGetState, "18", nil)
	require.Equal(t, MsgAck, r.Type)
	var state domain.RoomSnapshot
	require.NoError(t, json.Unmarshal(r.Payload, &state))
	require.Len(t, state.Teams, 1)
	assert.Equal(t, 1, state.Teams[0].Score)
}

func TestPersistenceFailureCode(t *testing.T) {
	s := newTestSession(t, failingStore{})
	host := newTestClient(s, "host", nil)
	a := newTestClient(s, "a", nil)
	b := newTestClient(s, "b", nil)

	send(t, host, MsgJoinHost, "", NamePayload{Name: "Host"})
	send(t, a, MsgJoin, "", NamePayload{Name: "A"})
	send(t, b, MsgJoin, "", NamePayload{Name: "B"})
	send(t, host, MsgPair, "", PairPayload{PlayerID1: "a", PlayerID2: "b"})
	send(t, host, MsgStartGame, "", nil)

	p := errorOf(t, send(t, host, MsgStartRound, "r", StartRoundPayload{
		RoundSpec: domain.RoundSpec{Question: "q", Variant: domain.VariantOpenEnded},
	}))
	assert.Equal(t, ErrCodePersistenceFailed, p.Code)
	assert.NotNil(t, s.GetGameState().CurrentRound, "the round starts anyway")
}

func TestRateLimitAndPing(t *testing.T) {
	s := newTestSession(t, nil)
	c := newTestClient(s, "c1", rate.NewLimiter(0, 2))

	assert.Equal(t, MsgPong, send(t, c, MsgPing, "p1", nil).Type)
	assert.Equal(t, MsgPong, send(t, c, MsgPing, "p2", nil).Type)

	p := errorOf(t, send(t, c, MsgPing, "p3", nil))
	assert.Equal(t, ErrCodeRateLimited, p.Code)
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "wolf", NormalizeRoomCode("  WoLf "))
}
