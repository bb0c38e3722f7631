package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure for the caller
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // caller-correctable input problem
	KindConflict   ErrorKind = "conflict"   // operation incompatible with current phase or identity
	KindNotFound   ErrorKind = "not_found"  // unknown room or game
	KindInternal   ErrorKind = "internal"
)

// Error is a caller-attributable domain failure. Its message is shown verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newConflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func newValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf returns the kind of err, or KindInternal for errors not raised by this package
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Validation errors
var (
	ErrEmptyName            = newValidation("Name is required")
	ErrEmptyQuestion        = newValidation("Question is required")
	ErrInvalidVariant       = newValidation("Invalid round variant")
	ErrBinaryOptions        = newValidation("Binary requires exactly 2 options")
	ErrMultipleChoiceRange  = newValidation("Multiple choice requires 2-6 options")
	ErrEmptyOption          = newValidation("Options cannot be empty")
	ErrPoolSelectionOptions = newValidation("Pool selection rounds do not take options")
	ErrOpenEndedOptions     = newValidation("Open ended rounds do not take options")
	ErrPoolAnswerForBoth    = newValidation("Pool selection rounds cannot answer for both")
	ErrEmptyAnswer          = newValidation("Answer cannot be empty")
	ErrAnswerNotAnOption    = newValidation("Answer must be one of the options")
	ErrNegativeScore        = newValidation("Score cannot be negative")
	ErrRoundNumber          = newValidation("Round number must increase")
)

// State-conflict errors
var (
	ErrPlayerNotFound      = newConflict("Player not found")
	ErrPlayerNameExists    = newConflict("Player name already exists")
	ErrPlayerConnected     = newConflict("Player is already connected")
	ErrHostNotFound        = newConflict("Host not found")
	ErrHostExists          = newConflict("Room already has a host")
	ErrHostCannotPlay      = newConflict("Host cannot take part in play")
	ErrGameAlreadyStarted  = newConflict("Game already started")
	ErrGameNotInProgress   = newConflict("Game is not in progress")
	ErrAlreadyOnTeam       = newConflict("Player already on a team")
	ErrNotOnTeam           = newConflict("Player not on a team")
	ErrCannotPairSelf      = newConflict("Cannot pair a player with themselves")
	ErrTeamNotFound        = newConflict("Team not found")
	ErrUnpairedPlayers     = newConflict("All players must be paired to start")
	ErrNoTeams             = newConflict("At least one team is required to start")
	ErrNoActiveRound       = newConflict("No active round")
	ErrRoundInProgress     = newConflict("Round already in progress")
	ErrNotAnswering        = newConflict("Round not in answering phase")
	ErrNotPoolSelection    = newConflict("Not a pool selection round")
	ErrNotSelecting        = newConflict("Round not in selecting phase")
	ErrCannotPickOwnAnswer = newConflict("Cannot pick your own answer")
	ErrPickNotInPool       = newConflict("Invalid pick: answer not in pool")
	ErrNoImportedQuestions = newConflict("No imported questions")
	ErrInvalidTransition   = newConflict("Invalid round transition")
	ErrNotHost             = newConflict("Only the host can perform this action")
	ErrAnswerNotInPool     = newConflict("Answer not in pool")
	ErrRevealNotAllowed    = newConflict("Answers cannot be revealed yet")
	ErrQuestionsExhausted  = newConflict("No more imported questions")
)

// Not-found errors
var (
	ErrRoomNotFound = &Error{Kind: KindNotFound, Message: "Room not found"}
)
