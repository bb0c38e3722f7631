package domain

import (
	"fmt"
	"slices"
	"strings"
)

// ErrConnectionInUse is returned when a connection ID is already bound to another player
var ErrConnectionInUse = newConflict("Connection already in use")

// AddPlayer registers a new player. Names are unique among tracked players;
// a returning player must go through ReconnectPlayer instead.
func (r *Room) AddPlayer(connectionID, name string, isHost, isSimulated bool) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	if !r.CanJoinAsNew() {
		return nil, ErrGameAlreadyStarted
	}

	if r.PlayerByName(name) != nil {
		return nil, ErrPlayerNameExists
	}

	if r.PlayerByConnection(connectionID) != nil {
		return nil, ErrConnectionInUse
	}

	if isHost && r.Host() != nil {
		return nil, ErrHostExists
	}

	player := NewPlayer(connectionID, name, isHost, isSimulated)
	player.Avatar = r.nextAvatar()
	r.Players = append(r.Players, player)

	return player, nil
}

// ReconnectPlayer binds a disconnected participant to a new connection.
// Only the connection identity changes; team, partner and answers are untouched.
func (r *Room) ReconnectPlayer(name, newConnectionID string) (*Player, error) {
	player := r.PlayerByName(strings.TrimSpace(name))
	if player == nil || player.IsHost {
		return nil, ErrPlayerNotFound
	}
	return player, r.reconnect(player, newConnectionID)
}

// ReconnectHost binds the disconnected host to a new connection
func (r *Room) ReconnectHost(name, newConnectionID string) (*Player, error) {
	host := r.Host()
	if host == nil || host.Name != strings.TrimSpace(name) {
		return nil, ErrHostNotFound
	}
	return host, r.reconnect(host, newConnectionID)
}

func (r *Room) reconnect(player *Player, newConnectionID string) error {
	if player.Connected {
		return ErrPlayerConnected
	}
	if other := r.PlayerByConnection(newConnectionID); other != nil && other != player {
		return ErrConnectionInUse
	}

	oldID := player.ConnectionID
	player.ConnectionID = newConnectionID
	player.Connected = true

	// Keep the team and the partner pointing at the live connection
	if team := r.Teams[player.TeamID]; team != nil {
		team.replaceMember(oldID, newConnectionID)
	}
	if partner := r.PlayerByConnection(player.PartnerID); partner != nil && partner.PartnerID == oldID {
		partner.PartnerID = newConnectionID
	}

	return nil
}

// DisconnectPlayer marks a participant as disconnected. Team membership is kept.
func (r *Room) DisconnectPlayer(connectionID string) (*Player, error) {
	player := r.PlayerByConnection(connectionID)
	if player == nil || player.IsHost {
		return nil, ErrPlayerNotFound
	}
	player.Connected = false
	return player, nil
}

// DisconnectHost marks the host as disconnected
func (r *Room) DisconnectHost(connectionID string) (*Player, error) {
	host := r.Host()
	if host == nil || host.ConnectionID != connectionID {
		return nil, ErrHostNotFound
	}
	host.Connected = false
	return host, nil
}

// RemovePlayer deletes a player and any team they were on. Lobby only.
func (r *Room) RemovePlayer(connectionID string) (*Player, error) {
	idx := slices.IndexFunc(r.Players, func(p *Player) bool {
		return p.ConnectionID == connectionID
	})
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	if r.Status != StatusLobby {
		return nil, ErrGameAlreadyStarted
	}

	player := r.Players[idx]
	if player.HasTeam() {
		r.dissolveTeam(player.TeamID)
	}
	r.Players = slices.Delete(r.Players, idx, idx+1)

	return player, nil
}

// PairPlayers creates a team from two unpaired participants
func (r *Room) PairPlayers(idA, idB string) (*Team, error) {
	a := r.PlayerByConnection(idA)
	b := r.PlayerByConnection(idB)
	if a == nil || b == nil {
		return nil, ErrPlayerNotFound
	}
	if a == b {
		return nil, ErrCannotPairSelf
	}
	if a.IsHost || b.IsHost {
		return nil, ErrHostCannotPlay
	}
	if a.HasTeam() || b.HasTeam() {
		return nil, ErrAlreadyOnTeam
	}

	r.teamSeq++
	team := &Team{
		ID:        fmt.Sprintf("team-%d", r.teamSeq),
		Player1ID: a.ConnectionID,
		Player2ID: b.ConnectionID,
	}
	r.Teams[team.ID] = team

	a.TeamID, a.PartnerID = team.ID, b.ConnectionID
	b.TeamID, b.PartnerID = team.ID, a.ConnectionID

	return team, nil
}

// UnpairPlayers dissolves the team of the given player, clearing both members
func (r *Room) UnpairPlayers(connectionID string) error {
	player := r.PlayerByConnection(connectionID)
	if player == nil {
		return ErrPlayerNotFound
	}
	if !player.HasTeam() {
		return ErrNotOnTeam
	}

	r.dissolveTeam(player.TeamID)
	return nil
}

func (r *Room) dissolveTeam(teamID string) {
	team, ok := r.Teams[teamID]
	if !ok {
		return
	}
	for _, p := range r.Players {
		if p.TeamID == teamID {
			p.TeamID = ""
			p.PartnerID = ""
		}
	}
	delete(r.Teams, team.ID)
	delete(r.TeamTotalResponseTimes, team.ID)
}

// CanJoinAsNew returns true while new names may still join
func (r *Room) CanJoinAsNew() bool {
	return r.Status == StatusLobby
}

// Host returns the host player, or nil
func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// PlayerByConnection resolves a player by their current connection ID
func (r *Room) PlayerByConnection(connectionID string) *Player {
	if connectionID == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

// PlayerByName resolves a player by their stable name
func (r *Room) PlayerByName(name string) *Player {
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Participants returns every non-host player in join order
func (r *Room) Participants() []*Player {
	players := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.IsParticipant() {
			players = append(players, p)
		}
	}
	return players
}

// ConnectedParticipants returns connected non-host players in join order
func (r *Room) ConnectedParticipants() []*Player {
	players := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.IsParticipant() && p.Connected {
			players = append(players, p)
		}
	}
	return players
}

// ConnectedCount returns the number of connected players, host included
func (r *Room) ConnectedCount() int {
	count := 0
	for _, p := range r.Players {
		if p.Connected {
			count++
		}
	}
	return count
}

func (r *Room) nextAvatar() string {
	for _, avatar := range Avatars {
		taken := slices.ContainsFunc(r.Players, func(p *Player) bool {
			return p.Avatar == avatar
		})
		if !taken {
			return avatar
		}
	}
	return Avatars[len(r.Players)%len(Avatars)]
}
