package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"duoquiz/internal/domain"
)

// ErrPersistence wraps store failures. The in-memory transition has already happened when it is returned.
var ErrPersistence = errors.New("persistence failed")

// Store records games, rounds and answers
type Store interface {
	CreateGame(ctx context.Context, roomCode string) error
	SaveRound(ctx context.Context, roomCode string, roundNumber int, question string, variant domain.Variant, options []string) (string, error)
	SaveAnswer(ctx context.Context, roundID, playerName, teamID, text string, responseTimeMs int64) error
	GetRoundCount(ctx context.Context, roomCode string) (int, error)
}

// Pinger is implemented by stores that can report their connection health
type Pinger interface {
	Health(ctx context.Context) error
}

// NopStore is used when no database is configured
type NopStore struct{}

var _ Store = NopStore{}

func (NopStore) CreateGame(context.Context, string) error {
	return nil
}

func (NopStore) SaveRound(context.Context, string, int, string, domain.Variant, []string) (string, error) {
	return uuid.NewString(), nil
}

func (NopStore) SaveAnswer(context.Context, string, string, string, string, int64) error {
	return nil
}

func (NopStore) GetRoundCount(context.Context, string) (int, error) {
	return 0, nil
}
