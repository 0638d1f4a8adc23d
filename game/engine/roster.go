package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wricardo/hazardrun/game/cards"
)

// NormalizeName trims a display name and checks its length
func NormalizeName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidName, maxLen)
	}
	return name, nil
}

// Player returns the roster entry with the given name
func (s *Session) Player(name string) *Player {
	for _, p := range s.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PlayerByConnection returns the roster entry owned by a connection
func (s *Session) PlayerByConnection(connID string) *Player {
	for _, p := range s.Players {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

// HasConnection reports whether any seated player is owned by connID
func (s *Session) HasConnection(connID string) bool {
	return s.PlayerByConnection(connID) != nil
}

// Host returns the current host, if any
func (s *Session) Host() *Player {
	for _, p := range s.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// AddPlayer seats a new player or reattaches an existing one.
//
// A name already on the roster is reattached to connID when the connection
// already owns it, or when the creator moves the host seat to a new
// connection while still in the lobby; otherwise the name is taken. New players are only accepted in the lobby and while there is
// room. The first player seated becomes host.
func (s *Session) AddPlayer(name, connID string, isCreator bool) (*Player, bool, error) {
	name, err := NormalizeName(name, s.rules.MaxNameLength)
	if err != nil {
		return nil, false, err
	}

	if existing := s.Player(name); existing != nil {
		if existing.ConnectionID != connID && !(isCreator && existing.IsHost && !s.Started()) {
			return nil, false, fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		existing.ConnectionID = connID
		if existing.IsHost {
			s.HostConnectionID = connID
		}
		s.Touch()
		return existing, true, nil
	}

	if s.Started() {
		return nil, false, ErrAlreadyStarted
	}
	if len(s.Players) >= s.rules.MaxPlayers {
		return nil, false, fmt.Errorf("%w: %d/%d players", ErrSessionFull, len(s.Players), s.rules.MaxPlayers)
	}

	p := &Player{
		ConnectionID: connID,
		Name:         name,
	}
	if len(s.Players) == 0 {
		p.IsHost = true
		s.HostConnectionID = connID
	}
	s.Players = append(s.Players, p)
	if _, ok := s.RoundScores[name]; !ok {
		s.RoundScores[name] = [TotalRounds]int{}
	}
	s.Touch()
	return p, false, nil
}

// RemoveConnection drops every player owned by connID and restores the
// single-host invariant on the remaining roster.
func (s *Session) RemoveConnection(connID string) Departure {
	var dep Departure

	kept := s.Players[:0:0]
	for _, p := range s.Players {
		if p.ConnectionID == connID {
			dep.Removed = append(dep.Removed, p)
			if p.IsHost {
				dep.WasHost = true
			}
			continue
		}
		kept = append(kept, p)
	}
	if len(dep.Removed) == 0 {
		return dep
	}
	s.Players = kept
	s.Touch()

	if len(s.Players) == 0 {
		s.HostConnectionID = ""
		return dep
	}

	if dep.WasHost && !s.Started() {
		s.promote(s.Players[0])
		dep.PromotedHost = s.Players[0]
	}
	dep.Repaired = s.EnsureHost()

	// Nobody left can respond
	if s.Phase == PhaseRoundActive && s.allHandsEmpty() {
		dep.Transition = s.endRound()
	}
	return dep
}

func (s *Session) promote(p *Player) {
	for _, other := range s.Players {
		other.IsHost = false
	}
	p.IsHost = true
	s.HostConnectionID = p.ConnectionID
}

// EnsureHost forces exactly one host on a non-empty roster.
// It returns true when a repair was needed.
func (s *Session) EnsureHost() bool {
	if len(s.Players) == 0 {
		return false
	}

	hosts := 0
	var host *Player
	for _, p := range s.Players {
		if p.IsHost {
			hosts++
			if host == nil {
				host = p
			}
		}
	}

	switch {
	case hosts == 0:
		s.promote(s.Players[0])
		return true
	case hosts > 1:
		s.promote(host)
		return true
	case s.HostConnectionID != host.ConnectionID:
		s.HostConnectionID = host.ConnectionID
		return true
	}
	return false
}

// Roster returns the public player list in join order
func (s *Session) Roster() []RosterEntry {
	roster := make([]RosterEntry, 0, len(s.Players))
	for _, p := range s.Players {
		roster = append(roster, RosterEntry{
			Name:     p.Name,
			IsHost:   p.IsHost,
			HandSize: len(p.Hand),
			Score:    s.Score(p.Name),
		})
	}
	return roster
}

// Snapshot returns the private view of a player
func (s *Session) Snapshot(p *Player) PlayerSnapshot {
	hand := make([]cards.ToolCard, len(p.Hand))
	copy(hand, p.Hand)
	return PlayerSnapshot{
		Name:         p.Name,
		ConnectionID: p.ConnectionID,
		IsHost:       p.IsHost,
		Hand:         hand,
	}
}
