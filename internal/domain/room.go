package domain

import (
	"cmp"
	"slices"
	"sort"
	"strings"
	"time"
)

// Room is one isolated game session and the single owner of its players, teams and round
type Room struct {
	Code                   string           `json:"roomCode"`
	Status                 RoomStatus       `json:"status"`
	Players                []*Player        `json:"players"` // join order
	Teams                  map[string]*Team `json:"teams"`
	CurrentRound           *Round           `json:"currentRound,omitempty"`
	ImportedQuestions      *QuestionOutline `json:"importedQuestions,omitempty"`
	QuestionCursor         *QuestionCursor  `json:"questionCursor,omitempty"`
	LastRoundNumber        int              `json:"lastRoundNumber"`
	TeamTotalResponseTimes map[string]int64 `json:"teamTotalResponseTimes"`
	CreatedAt              time.Time        `json:"createdAt"`

	teamSeq int
}

// NewRoom creates an empty room in the lobby
func NewRoom(code string) *Room {
	return &Room{
		Code:                   code,
		Status:                 StatusLobby,
		Players:                make([]*Player, 0),
		Teams:                  make(map[string]*Team),
		TeamTotalResponseTimes: make(map[string]int64),
		CreatedAt:              time.Now(),
	}
}

// StartGame leaves the lobby. Every connected participant must be on a team.
func (r *Room) StartGame() error {
	if r.Status != StatusLobby {
		return ErrGameAlreadyStarted
	}
	if len(r.Teams) == 0 {
		return ErrNoTeams
	}
	for _, p := range r.ConnectedParticipants() {
		if !p.HasTeam() {
			return ErrUnpairedPlayers
		}
	}

	r.Status = StatusPlaying
	return nil
}

// EndGame moves the room to the final scoreboard
func (r *Room) EndGame() error {
	if r.Status == StatusLobby || r.Status == StatusEnded {
		return ErrGameNotInProgress
	}

	r.retireRound()
	r.Status = StatusEnded
	return nil
}

// ResetGame returns the room to the lobby with players and teams intact.
// Round numbers keep increasing across resets.
func (r *Room) ResetGame() {
	if r.CurrentRound != nil && r.CurrentRound.Number > r.LastRoundNumber {
		r.LastRoundNumber = r.CurrentRound.Number
	}
	r.CurrentRound = nil
	r.ImportedQuestions = nil
	r.QuestionCursor = nil
	r.TeamTotalResponseTimes = make(map[string]int64)
	for _, t := range r.Teams {
		t.Score = 0
	}
	r.Status = StatusLobby
}

// AwardTeamPoints adjusts a team's score by delta during play
func (r *Room) AwardTeamPoints(teamID string, delta int) (*Team, error) {
	if r.Status != StatusPlaying && r.Status != StatusScoring {
		return nil, ErrGameNotInProgress
	}

	team, ok := r.Teams[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if team.Score+delta < 0 {
		return nil, ErrNegativeScore
	}

	team.Score += delta
	return team, nil
}

// RoomSnapshot is a deep copy of the room, safe to hand to broadcasters
type RoomSnapshot struct {
	Code                   string           `json:"roomCode"`
	Status                 RoomStatus       `json:"status"`
	HostName               string           `json:"hostName,omitempty"`
	HostConnected          bool             `json:"hostConnected"`
	Players                []Player         `json:"players"`
	Teams                  []Team           `json:"teams"`
	CurrentRound           *Round           `json:"currentRound,omitempty"`
	ImportedQuestions      *QuestionOutline `json:"importedQuestions,omitempty"`
	QuestionCursor         *QuestionCursor  `json:"questionCursor,omitempty"`
	LastRoundNumber        int              `json:"lastRoundNumber"`
	TeamTotalResponseTimes map[string]int64 `json:"teamTotalResponseTimes"`
	CreatedAt              time.Time        `json:"createdAt"`
}

// Snapshot returns a deep copy of the room state
func (r *Room) Snapshot() *RoomSnapshot {
	snap := &RoomSnapshot{
		Code:                   r.Code,
		Status:                 r.Status,
		Players:                make([]Player, 0, len(r.Players)),
		Teams:                  make([]Team, 0, len(r.Teams)),
		ImportedQuestions:      r.ImportedQuestions.clone(),
		LastRoundNumber:        r.LastRoundNumber,
		TeamTotalResponseTimes: make(map[string]int64, len(r.TeamTotalResponseTimes)),
		CreatedAt:              r.CreatedAt,
	}

	if host := r.Host(); host != nil {
		snap.HostName = host.Name
		snap.HostConnected = host.Connected
	}
	for _, p := range r.Players {
		snap.Players = append(snap.Players, *p)
	}
	for _, t := range r.Teams {
		snap.Teams = append(snap.Teams, *t)
	}
	sort.Slice(snap.Teams, func(i, j int) bool {
		return snap.Teams[i].ID < snap.Teams[j].ID
	})
	if r.CurrentRound != nil {
		snap.CurrentRound = r.CurrentRound.Clone()
	}
	if r.QuestionCursor != nil {
		cursor := *r.QuestionCursor
		snap.QuestionCursor = &cursor
	}
	for k, v := range r.TeamTotalResponseTimes {
		snap.TeamTotalResponseTimes[k] = v
	}

	return snap
}

// Scoreboard returns teams ordered by score, then by lower total response time
func (r *Room) Scoreboard() []Team {
	teams := make([]Team, 0, len(r.Teams))
	for _, t := range r.Teams {
		teams = append(teams, *t)
	}
	slices.SortFunc(teams, func(a, b Team) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		if c := cmp.Compare(r.TeamTotalResponseTimes[a.ID], r.TeamTotalResponseTimes[b.ID]); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return teams
}
