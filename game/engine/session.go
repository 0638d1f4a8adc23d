package engine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/wricardo/hazardrun/game/cards"
)

// Session owns one game's full state
type Session struct {
	ID               string
	Players          []*Player
	HazardDeck       []cards.HazardCard
	CurrentHazard    *cards.HazardCard
	Discard          cards.Pile
	RoundScores      map[string][TotalRounds]int
	Round            int
	Phase            Phase
	HostConnectionID string
	CreatedAt        time.Time
	LastActivityAt   time.Time

	rules Rules
	rng   *rand.Rand
}

// NewSession creates an empty session in the lobby.
// A nil rng falls back to a randomly seeded generator.
func NewSession(id string, rules Rules, rng *rand.Rand) *Session {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	now := time.Now()
	return &Session{
		ID:             id,
		RoundScores:    make(map[string][TotalRounds]int),
		Round:          1,
		Phase:          PhaseLobby,
		CreatedAt:      now,
		LastActivityAt: now,
		rules:          rules,
		rng:            rng,
	}
}

// Rules returns the rules the session was created with
func (s *Session) Rules() Rules {
	return s.rules
}

// Touch records activity on the session
func (s *Session) Touch() {
	s.LastActivityAt = time.Now()
}

// Started reports whether the game has left the lobby
func (s *Session) Started() bool {
	return s.Phase != PhaseLobby
}

// WaitingForNextCard reports whether a round is active with no exposed hazard
func (s *Session) WaitingForNextCard() bool {
	return s.Phase == PhaseRoundActive && s.CurrentHazard == nil
}

// WaitingForNextRound reports whether the session sits at a round boundary
func (s *Session) WaitingForNextRound() bool {
	return s.Phase == PhaseRoundBoundary
}

// GameOver reports whether the terminal phase was reached
func (s *Session) GameOver() bool {
	return s.Phase == PhaseGameOver
}

// Start advances the lobby to round 1 or a round boundary to the next round.
// Only the host connection may start.
func (s *Session) Start(connID string) error {
	if connID == "" || connID != s.HostConnectionID {
		return ErrNotHost
	}

	switch s.Phase {
	case PhaseLobby:
		if err := s.checkRosterSize(); err != nil {
			return err
		}
		return s.beginRound(1)
	case PhaseRoundBoundary:
		if err := s.checkRosterSize(); err != nil {
			return err
		}
		return s.beginRound(s.Round + 1)
	case PhaseRoundActive, PhaseGameOver:
		return fmt.Errorf("%w: %s", ErrWrongPhase, s.Phase)
	}
	return fmt.Errorf("%w: unknown phase %q", ErrWrongPhase, s.Phase)
}

func (s *Session) checkRosterSize() error {
	n := len(s.Players)
	if n < s.rules.MinPlayers {
		return fmt.Errorf("%w: need at least %d, have %d", ErrNotEnoughPlayers, s.rules.MinPlayers, n)
	}
	if n > s.rules.MaxPlayers {
		return fmt.Errorf("%w: at most %d players", ErrSessionFull, s.rules.MaxPlayers)
	}
	return nil
}

// beginRound deals fresh hands, rebuilds the hazard deck and clears the table
func (s *Session) beginRound(round int) error {
	deck, err := cards.BuildHazardDeck(len(s.Players), s.rng)
	if err != nil {
		return fmt.Errorf("failed to build hazard deck: %w", err)
	}

	for _, p := range s.Players {
		p.Hand = cards.NewToolHand()
	}
	s.HazardDeck = deck
	s.CurrentHazard = nil
	s.Discard = cards.Pile{}
	s.Round = round
	s.Phase = PhaseRoundActive
	s.Touch()
	return nil
}

// endRound moves to the boundary, or to game over after the last round
func (s *Session) endRound() Transition {
	s.CurrentHazard = nil
	if s.Round >= TotalRounds {
		s.Phase = PhaseGameOver
		return GameEnded
	}
	s.Phase = PhaseRoundBoundary
	return RoundEnded
}

func (s *Session) allHandsEmpty() bool {
	for _, p := range s.Players {
		if len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

// Score returns a player's cumulative score, the sum of its round slots
func (s *Session) Score(name string) int {
	total := 0
	for _, v := range s.RoundScores[name] {
		total += v
	}
	return total
}

// Scores returns the cumulative score of every player ever seated
func (s *Session) Scores() map[string]int {
	scores := make(map[string]int, len(s.RoundScores))
	for name := range s.RoundScores {
		scores[name] = s.Score(name)
	}
	return scores
}

func (s *Session) award(name string, points int) {
	slots := s.RoundScores[name]
	slots[s.Round-1] += points
	s.RoundScores[name] = slots
}

// State builds the complete view model
func (s *Session) State() StateView {
	var hazard *cards.HazardCard
	if s.CurrentHazard != nil {
		h := *s.CurrentHazard
		hazard = &h
	}

	roundScores := make(map[string][TotalRounds]int, len(s.RoundScores))
	for name, slots := range s.RoundScores {
		roundScores[name] = slots
	}

	return StateView{
		ID:                  s.ID,
		Phase:               s.Phase,
		Round:               s.Round,
		Started:             s.Started(),
		WaitingForNextCard:  s.WaitingForNextCard(),
		WaitingForNextRound: s.WaitingForNextRound(),
		GameOver:            s.GameOver(),
		DeckCount:           len(s.HazardDeck),
		DiscardCount:        s.Discard.Len(),
		CurrentHazard:       hazard,
		Scores:              s.Scores(),
		RoundScores:         roundScores,
		HostConnectionID:    s.HostConnectionID,
	}
}
