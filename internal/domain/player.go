package domain

import "time"

// Avatars are handed out in order to joining players; a removed player's avatar is reused
var Avatars = []string{"🐱", "🚀", "🎨", "🌟", "🔥", "⚡", "🎮", "🦄", "🎯", "🌈", "🐙", "🍕", "🎸", "🌵", "🐝", "🍩"}

// Player represents a participant in a room.
// Name is the stable identity key; ConnectionID is replaced on every reconnect.
type Player struct {
	ConnectionID string    `json:"id"`
	Name         string    `json:"name"`
	Connected    bool      `json:"connected"`
	TeamID       string    `json:"teamId,omitempty"`
	PartnerID    string    `json:"partnerId,omitempty"`
	Avatar       string    `json:"avatar"`
	IsHost       bool      `json:"isHost"`
	IsSimulated  bool      `json:"isSimulated"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// NewPlayer creates a new connected player
func NewPlayer(connectionID, name string, isHost, isSimulated bool) *Player {
	return &Player{
		ConnectionID: connectionID,
		Name:         name,
		Connected:    true,
		IsHost:       isHost,
		IsSimulated:  isSimulated,
		JoinedAt:     time.Now(),
	}
}

// HasTeam returns true if the player is paired
func (p *Player) HasTeam() bool {
	return p.TeamID != ""
}

// IsParticipant returns true if the player answers and picks (everyone but the host)
func (p *Player) IsParticipant() bool {
	return !p.IsHost
}

// Team is a pair of players sharing a score
type Team struct {
	ID        string `json:"teamId"`
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
	Score     int    `json:"score"`
}

// HasMember checks if the given connection ID belongs to this team
func (t *Team) HasMember(connectionID string) bool {
	return t.Player1ID == connectionID || t.Player2ID == connectionID
}

// replaceMember rewrites a member's connection ID after a reconnect
func (t *Team) replaceMember(oldID, newID string) {
	switch oldID {
	case t.Player1ID:
		t.Player1ID = newID
	case t.Player2ID:
		t.Player2ID = newID
	}
}
