package domain

import (
	"slices"
	"strings"
	"time"
)

// Variant is the kind of prompt a round asks
type Variant string

const (
	VariantOpenEnded      Variant = "open_ended"
	VariantMultipleChoice Variant = "multiple_choice"
	VariantBinary         Variant = "binary"         // two placeholder labels, one per teammate
	VariantPoolSelection  Variant = "pool_selection" // guess which pooled answer your partner wrote
)

const (
	MinMultipleChoiceOptions = 2
	MaxMultipleChoiceOptions = 6
	BinaryOptionCount        = 2
)

// IsValid returns true for known variants
func (v Variant) IsValid() bool {
	switch v {
	case VariantOpenEnded, VariantMultipleChoice, VariantBinary, VariantPoolSelection:
		return true
	}
	return false
}

// RoundSpec describes a round before it starts
type RoundSpec struct {
	Question      string   `json:"question"`
	Variant       Variant  `json:"variant"`
	Options       []string `json:"options,omitempty"`
	AnswerForBoth bool     `json:"answerForBoth"`
}

// ValidateRoundSpec checks the option-count rules for the spec's variant
func ValidateRoundSpec(spec RoundSpec) error {
	if strings.TrimSpace(spec.Question) == "" {
		return ErrEmptyQuestion
	}

	switch spec.Variant {
	case VariantOpenEnded:
		if len(spec.Options) > 0 {
			return ErrOpenEndedOptions
		}
	case VariantMultipleChoice:
		if len(spec.Options) < MinMultipleChoiceOptions || len(spec.Options) > MaxMultipleChoiceOptions {
			return ErrMultipleChoiceRange
		}
	case VariantBinary:
		if len(spec.Options) != BinaryOptionCount {
			return ErrBinaryOptions
		}
	case VariantPoolSelection:
		if len(spec.Options) > 0 {
			return ErrPoolSelectionOptions
		}
		if spec.AnswerForBoth {
			return ErrPoolAnswerForBoth
		}
	default:
		return ErrInvalidVariant
	}

	for _, opt := range spec.Options {
		if strings.TrimSpace(opt) == "" {
			return ErrEmptyOption
		}
	}
	return nil
}

// Answer is a player's stored answer for the round
type Answer struct {
	Text           string `json:"text"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
}

// PoolEntry is one anonymized answer in a pool-selection round
type PoolEntry struct {
	AuthorName string `json:"authorName"`
	AnswerText string `json:"answerText"`
}

// PoolOption is a pool entry as players see it, without its author
type PoolOption struct {
	AnswerText string `json:"answerText"`
}

// Anonymize strips authors from pool entries, keeping the order
func Anonymize(pool []PoolEntry) []PoolOption {
	options := make([]PoolOption, 0, len(pool))
	for _, entry := range pool {
		options = append(options, PoolOption{AnswerText: entry.AnswerText})
	}
	return options
}

// Round represents the single active round of a room
type Round struct {
	Number        int         `json:"roundNumber"`
	ID            string      `json:"roundId,omitempty"` // storage correlation handle
	Question      string      `json:"question"`
	Variant       Variant     `json:"variant"`
	Options       []string    `json:"options,omitempty"`
	AnswerForBoth bool        `json:"answerForBoth"`
	Status        RoundStatus `json:"status"`

	// Keyed by player name so they survive reconnects
	Answers                 map[string]Answer `json:"answers"`
	SubmittedInCurrentPhase []string          `json:"submittedInCurrentPhase"`
	Picks                   map[string]string `json:"picks"`
	PicksSubmitted          []string          `json:"picksSubmitted"`

	AnswerPool          []PoolEntry           `json:"answerPool,omitempty"`
	RevealedPoolAnswers map[string]bool       `json:"revealedPoolAnswers"`
	RevealedPoolPickers map[string][]string   `json:"revealedPoolPickers"`
	RevealedPoolResults map[string]PickResult `json:"revealedPoolResults"`

	CreatedAt time.Time `json:"createdAt"`
}

// NewRound creates a round in the answering phase
func NewRound(number int, spec RoundSpec, now time.Time) *Round {
	var options []string
	for _, opt := range spec.Options {
		options = append(options, strings.TrimSpace(opt))
	}

	return &Round{
		Number:                  number,
		Question:                strings.TrimSpace(spec.Question),
		Variant:                 spec.Variant,
		Options:                 options,
		AnswerForBoth:           spec.AnswerForBoth,
		Status:                  RoundAnswering,
		Answers:                 make(map[string]Answer),
		SubmittedInCurrentPhase: make([]string, 0),
		Picks:                   make(map[string]string),
		PicksSubmitted:          make([]string, 0),
		RevealedPoolAnswers:     make(map[string]bool),
		RevealedPoolPickers:     make(map[string][]string),
		RevealedPoolResults:     make(map[string]PickResult),
		CreatedAt:               now,
	}
}

// HasSubmitted checks if the named player submitted in the current phase
func (rd *Round) HasSubmitted(name string) bool {
	return slices.Contains(rd.SubmittedInCurrentPhase, name)
}

// HasPicked checks if the named player submitted a pick in the current selecting phase
func (rd *Round) HasPicked(name string) bool {
	return slices.Contains(rd.PicksSubmitted, name)
}

// ResponseTimeSince returns milliseconds elapsed since the round was created
func (rd *Round) ResponseTimeSince(now time.Time) int64 {
	ms := now.Sub(rd.CreatedAt).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// answerText returns the stored answer, or "" for no response
func (rd *Round) answerText(name string) string {
	return rd.Answers[name].Text
}

// sanitizeAnswer applies the submission rules for the round's variant
func (rd *Round) sanitizeAnswer(text string) (string, error) {
	// Composite payloads are passed through untouched
	if rd.AnswerForBoth {
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyAnswer
		}
		return text, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyAnswer
	}

	if rd.Variant == VariantMultipleChoice || rd.Variant == VariantBinary {
		if !slices.Contains(rd.Options, text) {
			return "", ErrAnswerNotAnOption
		}
	}
	return text, nil
}

// Clone returns a deep copy of the round
func (rd *Round) Clone() *Round {
	c := *rd
	c.Options = slices.Clone(rd.Options)
	c.Answers = make(map[string]Answer, len(rd.Answers))
	for k, v := range rd.Answers {
		c.Answers[k] = v
	}
	c.SubmittedInCurrentPhase = slices.Clone(rd.SubmittedInCurrentPhase)
	c.Picks = make(map[string]string, len(rd.Picks))
	for k, v := range rd.Picks {
		c.Picks[k] = v
	}
	c.PicksSubmitted = slices.Clone(rd.PicksSubmitted)
	c.AnswerPool = slices.Clone(rd.AnswerPool)
	c.RevealedPoolAnswers = make(map[string]bool, len(rd.RevealedPoolAnswers))
	for k, v := range rd.RevealedPoolAnswers {
		c.RevealedPoolAnswers[k] = v
	}
	c.RevealedPoolPickers = make(map[string][]string, len(rd.RevealedPoolPickers))
	for k, v := range rd.RevealedPoolPickers {
		c.RevealedPoolPickers[k] = slices.Clone(v)
	}
	c.RevealedPoolResults = make(map[string]PickResult, len(rd.RevealedPoolResults))
	for k, v := range rd.RevealedPoolResults {
		c.RevealedPoolResults[k] = v.clone()
	}
	return &c
}

// StartRound validates the spec and opens a new round in the answering phase.
// A roundNumber of 0 takes the next number after the last round.
func (r *Room) StartRound(spec RoundSpec, roundNumber int, now time.Time) (*Round, error) {
	if err := ValidateRoundSpec(spec); err != nil {
		return nil, err
	}
	if err := r.CanStartRound(); err != nil {
		return nil, err
	}

	next := r.NextRoundNumber()
	if roundNumber == 0 {
		roundNumber = next
	}
	if roundNumber < next {
		return nil, ErrRoundNumber
	}

	if r.CurrentRound != nil {
		r.retireRound()
	}

	r.CurrentRound = NewRound(roundNumber, spec, now)
	r.Status = StatusPlaying

	return r.CurrentRound, nil
}

// CanStartRound reports whether the room is between rounds or showing a completed one
func (r *Room) CanStartRound() error {
	if r.Status != StatusPlaying && r.Status != StatusScoring {
		return ErrGameNotInProgress
	}
	if r.CurrentRound != nil && r.CurrentRound.Status != RoundComplete {
		return ErrRoundInProgress
	}
	return nil
}

// NextRoundNumber returns the number the next started round will get by default
func (r *Room) NextRoundNumber() int {
	last := r.LastRoundNumber
	if r.CurrentRound != nil && r.CurrentRound.Number > last {
		last = r.CurrentRound.Number
	}
	return last + 1
}

// SubmitAnswer stores the answer of the player on connectionID, keyed by the player's name.
// Resubmitting during the same phase overwrites the previous value.
func (r *Room) SubmitAnswer(connectionID, text string, responseTimeMs int64) (*Player, error) {
	round := r.CurrentRound
	if round == nil {
		return nil, ErrNoActiveRound
	}
	if round.Status != RoundAnswering {
		return nil, ErrNotAnswering
	}

	player := r.PlayerByConnection(connectionID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	if player.IsHost {
		return nil, ErrHostCannotPlay
	}

	value, err := round.sanitizeAnswer(text)
	if err != nil {
		return nil, err
	}

	if responseTimeMs < 0 {
		responseTimeMs = 0
	}

	round.Answers[player.Name] = Answer{Text: value, ResponseTimeMs: responseTimeMs}
	if !round.HasSubmitted(player.Name) {
		round.SubmittedInCurrentPhase = append(round.SubmittedInCurrentPhase, player.Name)
	}

	return player, nil
}

// IsRoundComplete reports whether as many submissions are in as there are connected participants
func (r *Room) IsRoundComplete() bool {
	if r.CurrentRound == nil {
		return false
	}
	return len(r.CurrentRound.SubmittedInCurrentPhase) >= len(r.ConnectedParticipants())
}

// CompleteRound closes the round for reveal and scoring
func (r *Room) CompleteRound() error {
	round := r.CurrentRound
	if round == nil {
		return ErrNoActiveRound
	}
	if !round.Status.CanTransitionTo(RoundComplete, round.Variant) {
		return ErrInvalidTransition
	}

	round.Status = RoundComplete
	r.Status = StatusScoring
	return nil
}

// StartSelecting moves a pool-selection round into the selecting phase
func (r *Room) StartSelecting() error {
	round := r.CurrentRound
	if round == nil {
		return ErrNoActiveRound
	}
	if round.Variant != VariantPoolSelection {
		return ErrNotPoolSelection
	}
	if round.Status != RoundAnswering {
		return ErrNotAnswering
	}

	// Picks from an earlier selecting phase do not carry over
	round.Status = RoundSelecting
	round.Picks = make(map[string]string)
	round.PicksSubmitted = make([]string, 0)
	r.refreshPool()
	return nil
}

// ReturnToAnswering reopens the round. Answers are kept so they can pre-fill on re-entry.
func (r *Room) ReturnToAnswering() error {
	round := r.CurrentRound
	if round == nil {
		return ErrNoActiveRound
	}
	if !round.Status.CanTransitionTo(RoundAnswering, round.Variant) {
		return ErrInvalidTransition
	}

	round.Status = RoundAnswering
	round.SubmittedInCurrentPhase = make([]string, 0)
	r.Status = StatusPlaying
	return nil
}

// ReturnToPlaying discards the active round and waits for the next StartRound
func (r *Room) ReturnToPlaying() error {
	if r.CurrentRound == nil {
		return ErrNoActiveRound
	}
	if r.Status != StatusPlaying && r.Status != StatusScoring {
		return ErrGameNotInProgress
	}

	r.retireRound()
	r.Status = StatusPlaying
	return nil
}

// NextRound is ReturnToPlaying under the name the host flow uses
func (r *Room) NextRound() error {
	return r.ReturnToPlaying()
}

// retireRound folds the round's response times into the team totals and drops it
func (r *Room) retireRound() {
	round := r.CurrentRound
	if round == nil {
		return
	}

	for name, answer := range round.Answers {
		player := r.PlayerByName(name)
		if player == nil || !player.HasTeam() {
			continue
		}
		r.TeamTotalResponseTimes[player.TeamID] += answer.ResponseTimeMs
	}

	if round.Number > r.LastRoundNumber {
		r.LastRoundNumber = round.Number
	}
	r.CurrentRound = nil
}
