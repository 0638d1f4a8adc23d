package engine

import (
	"strings"

	"github.com/wricardo/hazardrun/game/cards"
)

// Resolves reports whether a tool value beats a hazard value in a round.
// Round 1 wants tool >= hazard, round 2 wants tool <= hazard, and round 3
// depends on the side the tool was played on.
func Resolves(round int, side cards.Color, tool, hazard int) bool {
	switch round {
	case 1:
		return tool >= hazard
	case 2:
		return tool <= hazard
	default:
		return (side == cards.ColorA && tool >= hazard) ||
			(side == cards.ColorB && tool <= hazard)
	}
}

func noPlay(reason string) PlayResult {
	return PlayResult{Reason: reason}
}

// Play resolves a tool card from the named player's hand against the
// exposed hazard. Every failed precondition is a no-op with no state change.
func (s *Session) Play(connID, playerName string, index int, side string) PlayResult {
	if s.Phase != PhaseRoundActive {
		return noPlay("round not active")
	}

	p := s.Player(strings.TrimSpace(playerName))
	if p == nil {
		return noPlay("unknown player")
	}
	if p.ConnectionID != connID {
		return noPlay("connection does not own player")
	}
	if index < 0 || index >= len(p.Hand) {
		return noPlay("card index out of range")
	}
	if s.CurrentHazard == nil {
		return noPlay("no hazard exposed")
	}
	color, ok := cards.ParseSide(side)
	if !ok {
		return noPlay("invalid side")
	}

	hazard := *s.CurrentHazard
	tool := p.Hand[index]
	result := PlayResult{
		Applied: true,
		Player:  p,
		Tool:    tool,
		Hazard:  hazard,
	}

	if hazard.IsDecoy() {
		result.Trap = true
	} else {
		if color != hazard.Color {
			return noPlay("side does not match hazard color")
		}
		if Resolves(s.Round, color, tool.Value, hazard.Value) {
			result.Success = true
			result.Points = hazard.Value
			s.award(p.Name, hazard.Value)
		}
	}

	p.Hand = append(p.Hand[:index:index], p.Hand[index+1:]...)
	s.Discard.AddTool(tool)
	s.Discard.AddHazard(hazard)
	s.CurrentHazard = nil
	s.Touch()

	if s.allHandsEmpty() || len(s.HazardDeck) == 0 {
		result.Transition = s.endRound()
	}
	return result
}

// Draw exposes the top hazard card. It only acts while a round is waiting
// for a card, so concurrent draw requests pop at most one card.
// An exhausted deck ends the round instead.
func (s *Session) Draw() DrawResult {
	if !s.WaitingForNextCard() {
		return DrawResult{Reason: "not waiting for a card"}
	}

	s.Touch()
	if len(s.HazardDeck) == 0 {
		return DrawResult{Applied: true, Transition: s.endRound()}
	}

	top := len(s.HazardDeck) - 1
	card := s.HazardDeck[top]
	s.HazardDeck = s.HazardDeck[:top]
	s.CurrentHazard = &card

	exposed := card
	return DrawResult{Applied: true, Card: &exposed}
}
