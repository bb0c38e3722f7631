package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"duoquiz/internal/domain"
)

var (
	// ErrGameNotFound is returned when no game was recorded for a room code
	ErrGameNotFound = errors.New("game not found")

	// ErrRoundNotFound is returned when an answer references an unknown round
	ErrRoundNotFound = errors.New("round not found")

	// ErrDuplicateRound is returned when a round number is saved twice for one game
	ErrDuplicateRound = errors.New("round already saved")
)

// PostgresStore records games, rounds and answers in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresStore connects to databaseURL and verifies the connection
func NewPostgresStore(ctx context.Context, databaseURL string, log *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool, log: log}, nil
}

// Health pings the database
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// CreateGame records a new game for the room code
func (s *PostgresStore) CreateGame(ctx context.Context, roomCode string) error {
	const q = `
		INSERT INTO games (id, room_code)
		VALUES ($1, $2)
	`
	if _, err := s.pool.Exec(ctx, q, uuid.New(), roomCode); err != nil {
		return err
	}
	return nil
}

// SaveRound records a round against the newest game of the room and returns its ID
func (s *PostgresStore) SaveRound(ctx context.Context, roomCode string, roundNumber int, question string, variant domain.Variant, options []string) (string, error) {
	const q = `
		INSERT INTO rounds (id, game_id, round_number, question, variant, options)
		SELECT $1::uuid, g.id, $3::integer, $4::text, $5::text, $6::text[]
		FROM games g
		WHERE g.room_code = $2
		ORDER BY g.created_at DESC
		LIMIT 1
		RETURNING id
	`
	if options == nil {
		options = []string{}
	}

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, q, uuid.New(), roomCode, roundNumber, question, string(variant), options).Scan(&id)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return "", fmt.Errorf("%w: %s", ErrGameNotFound, roomCode)
		case isUniqueViolation(err):
			return "", fmt.Errorf("%w: round %d", ErrDuplicateRound, roundNumber)
		default:
			return "", err
		}
	}

	s.log.Debug("round saved", "roomCode", roomCode, "roundNumber", roundNumber, "roundID", id)
	return id.String(), nil
}

// SaveAnswer records an answer. Resubmissions overwrite the stored answer.
func (s *PostgresStore) SaveAnswer(ctx context.Context, roundID, playerName, teamID, text string, responseTimeMs int64) error {
	const q = `
		INSERT INTO answers (round_id, player_name, team_id, answer_text, response_time_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (round_id, player_name) DO UPDATE
		SET team_id = EXCLUDED.team_id,
		    answer_text = EXCLUDED.answer_text,
		    response_time_ms = EXCLUDED.response_time_ms,
		    submitted_at = now()
	`
	id, err := uuid.Parse(roundID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRoundNotFound, roundID)
	}

	if _, err := s.pool.Exec(ctx, q, id, playerName, teamID, text, responseTimeMs); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", ErrRoundNotFound, roundID)
		}
		return err
	}
	return nil
}

// GetRoundCount returns how many rounds the newest game of the room has recorded
func (s *PostgresStore) GetRoundCount(ctx context.Context, roomCode string) (int, error) {
	const q = `
		SELECT count(r.id)
		FROM rounds r
		WHERE r.game_id = (
			SELECT g.id FROM games g
			WHERE g.room_code = $1
			ORDER BY g.created_at DESC
			LIMIT 1
		)
	`
	var count int
	if err := s.pool.QueryRow(ctx, q, roomCode).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
