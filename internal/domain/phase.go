package domain

// RoomStatus represents the room-level game status
type RoomStatus string

const (
	StatusLobby   RoomStatus = "lobby"   // Players joining and pairing up
	StatusPlaying RoomStatus = "playing" // Between rounds or answering/selecting
	StatusScoring RoomStatus = "scoring" // Round complete, answers being revealed
	StatusEnded   RoomStatus = "ended"   // Final scoreboard
)

// String returns the string representation of the status
func (s RoomStatus) String() string {
	return string(s)
}

// RoundStatus represents the phase of the active round
type RoundStatus string

const (
	RoundAnswering RoundStatus = "answering" // Players submitting answers
	RoundSelecting RoundStatus = "selecting" // Pool selection: matching answers to authors
	RoundComplete  RoundStatus = "complete"  // Reveal and scoring
)

// String returns the string representation of the round status
func (s RoundStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if a transition from the current round status to target is valid
// for the given variant. Returning to answering is allowed from any later phase.
func (s RoundStatus) CanTransitionTo(target RoundStatus, variant Variant) bool {
	validTransitions := map[RoundStatus][]RoundStatus{
		RoundAnswering: {RoundComplete},
		RoundSelecting: {RoundComplete, RoundAnswering},
		RoundComplete:  {RoundAnswering},
	}
	if variant == VariantPoolSelection {
		validTransitions[RoundAnswering] = []RoundStatus{RoundSelecting, RoundComplete}
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}
