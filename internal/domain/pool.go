package domain

import (
	"math/rand"
	"slices"
	"strings"
)

// Normalize reduces an answer to its matching key: lowercased and trimmed.
// The empty string is a valid key ("no response").
func Normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

// PickResult is the outcome of scoring one revealed pool answer
type PickResult struct {
	CorrectPickers []string       `json:"correctPickers"` // player names
	TeamIDs        []string       `json:"teamIds"`
	TeamPoints     map[string]int `json:"teamPoints"`
}

func (pr PickResult) clone() PickResult {
	c := PickResult{
		CorrectPickers: slices.Clone(pr.CorrectPickers),
		TeamIDs:        slices.Clone(pr.TeamIDs),
		TeamPoints:     make(map[string]int, len(pr.TeamPoints)),
	}
	for k, v := range pr.TeamPoints {
		c.TeamPoints[k] = v
	}
	return c
}

// AnswerPool returns the round's anonymized answers, one per participant.
// The order is shuffled once and stays fixed for the life of the round.
func (r *Room) AnswerPool() ([]PoolEntry, error) {
	round := r.CurrentRound
	if round == nil {
		return nil, ErrNoActiveRound
	}
	if round.Variant != VariantPoolSelection {
		return nil, ErrNotPoolSelection
	}

	if round.AnswerPool == nil {
		pool := make([]PoolEntry, 0, len(r.Players))
		for _, p := range r.Participants() {
			pool = append(pool, PoolEntry{AuthorName: p.Name, AnswerText: round.answerText(p.Name)})
		}
		rand.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		round.AnswerPool = pool
	}

	return slices.Clone(round.AnswerPool), nil
}

// refreshPool brings cached pool texts up to date after a reopen, keeping the order
func (r *Room) refreshPool() {
	round := r.CurrentRound
	if round == nil || round.AnswerPool == nil {
		return
	}
	for i := range round.AnswerPool {
		round.AnswerPool[i].AnswerText = round.answerText(round.AnswerPool[i].AuthorName)
	}
}

// SubmitPick records a guess during the selecting phase.
// A player may pick their own text only if some other player wrote the same answer.
func (r *Room) SubmitPick(connectionID, pickedText string) (*Player, error) {
	round := r.CurrentRound
	if round == nil {
		return nil, ErrNoActiveRound
	}
	if round.Variant != VariantPoolSelection {
		return nil, ErrNotPoolSelection
	}
	if round.Status != RoundSelecting {
		return nil, ErrNotSelecting
	}

	player := r.PlayerByConnection(connectionID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	if player.IsHost {
		return nil, ErrHostCannotPlay
	}

	authors := r.AuthorsOfAnswer(pickedText)
	if len(authors) == 0 {
		return nil, ErrPickNotInPool
	}
	if len(authors) == 1 && authors[0] == player.Name {
		return nil, ErrCannotPickOwnAnswer
	}

	round.Picks[player.Name] = pickedText
	if !round.HasPicked(player.Name) {
		round.PicksSubmitted = append(round.PicksSubmitted, player.Name)
	}

	return player, nil
}

// AreAllPicksIn reports whether every connected participant has picked
func (r *Room) AreAllPicksIn() bool {
	round := r.CurrentRound
	if round == nil || round.Variant != VariantPoolSelection {
		return false
	}
	for _, p := range r.ConnectedParticipants() {
		if !round.HasPicked(p.Name) {
			return false
		}
	}
	return true
}

// AuthorOfAnswer returns the first participant, in join order, whose answer is exactly text
func (r *Room) AuthorOfAnswer(text string) (string, bool) {
	round := r.CurrentRound
	if round == nil {
		return "", false
	}
	for _, p := range r.Participants() {
		if round.answerText(p.Name) == text {
			return p.Name, true
		}
	}
	return "", false
}

// AuthorsOfAnswer returns every participant whose answer normalizes to the same key as text
func (r *Room) AuthorsOfAnswer(text string) []string {
	round := r.CurrentRound
	if round == nil {
		return nil
	}
	key := Normalize(text)
	authors := make([]string, 0)
	for _, p := range r.Participants() {
		if Normalize(round.answerText(p.Name)) == key {
			authors = append(authors, p.Name)
		}
	}
	return authors
}

// PickersForAnswer returns every participant whose pick normalizes to the same key as text
func (r *Room) PickersForAnswer(text string) []string {
	round := r.CurrentRound
	if round == nil {
		return nil
	}
	key := Normalize(text)
	pickers := make([]string, 0)
	for _, p := range r.Participants() {
		pick, ok := round.Picks[p.Name]
		if ok && Normalize(pick) == key {
			pickers = append(pickers, p.Name)
		}
	}
	return pickers
}

// CheckCorrectPick scores a revealed answer. For every author of the answer, the author's
// partner is a correct picker if they picked that same answer. Each correct picker earns
// one point for their own team.
func (r *Room) CheckCorrectPick(answerText string) PickResult {
	result := PickResult{
		CorrectPickers: make([]string, 0),
		TeamIDs:        make([]string, 0),
		TeamPoints:     make(map[string]int),
	}

	round := r.CurrentRound
	if round == nil {
		return result
	}

	key := Normalize(answerText)
	for _, authorName := range r.AuthorsOfAnswer(answerText) {
		author := r.PlayerByName(authorName)
		if author == nil || author.PartnerID == "" {
			continue
		}
		partner := r.PlayerByConnection(author.PartnerID)
		if partner == nil || !partner.HasTeam() {
			continue
		}
		pick, ok := round.Picks[partner.Name]
		if !ok || Normalize(pick) != key {
			continue
		}
		if slices.Contains(result.CorrectPickers, partner.Name) {
			continue
		}

		result.CorrectPickers = append(result.CorrectPickers, partner.Name)
		if _, seen := result.TeamPoints[partner.TeamID]; !seen {
			result.TeamIDs = append(result.TeamIDs, partner.TeamID)
		}
		result.TeamPoints[partner.TeamID]++
	}

	return result
}

// MarkPoolAnswerRevealed records that the normalized answer has been revealed and scored
func (r *Room) MarkPoolAnswerRevealed(text string) {
	if r.CurrentRound == nil {
		return
	}
	r.CurrentRound.RevealedPoolAnswers[Normalize(text)] = true
}

// IsPoolAnswerRevealed checks if the normalized answer has already been revealed
func (r *Room) IsPoolAnswerRevealed(text string) bool {
	if r.CurrentRound == nil {
		return false
	}
	return r.CurrentRound.RevealedPoolAnswers[Normalize(text)]
}

// MarkPoolPickersRevealed stores who picked the normalized answer, for replay after reconnects
func (r *Room) MarkPoolPickersRevealed(text string, pickers []string) {
	if r.CurrentRound == nil {
		return
	}
	r.CurrentRound.RevealedPoolPickers[Normalize(text)] = slices.Clone(pickers)
}

// RevealedPoolPickers returns the pickers stored for a revealed answer
func (r *Room) RevealedPoolPickers(text string) ([]string, bool) {
	if r.CurrentRound == nil {
		return nil, false
	}
	pickers, ok := r.CurrentRound.RevealedPoolPickers[Normalize(text)]
	return slices.Clone(pickers), ok
}

// MarkPoolResultRevealed stores the scoring outcome of the normalized answer so repeats replay it
func (r *Room) MarkPoolResultRevealed(text string, result PickResult) {
	if r.CurrentRound == nil {
		return
	}
	r.CurrentRound.RevealedPoolResults[Normalize(text)] = result.clone()
}

// RevealedPoolResult returns the outcome stored for a revealed answer
func (r *Room) RevealedPoolResult(text string) (PickResult, bool) {
	if r.CurrentRound == nil {
		return PickResult{}, false
	}
	result, ok := r.CurrentRound.RevealedPoolResults[Normalize(text)]
	if !ok {
		return PickResult{}, false
	}
	return result.clone(), true
}
