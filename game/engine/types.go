package engine

import (
	"errors"

	"github.com/wricardo/hazardrun/game/cards"
)

// Phase is the session lifecycle state
type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhaseRoundActive   Phase = "round_active"
	PhaseRoundBoundary Phase = "round_boundary"
	PhaseGameOver      Phase = "game_over"

	TotalRounds     = 3
	DefaultNameSize = 20
)

// Transition reports a lifecycle change caused by a play or draw
type Transition string

const (
	NoTransition Transition = ""
	RoundEnded   Transition = "round_ended"
	GameEnded    Transition = "game_over"
)

var (
	ErrNotHost          = errors.New("only the host can do that")
	ErrWrongPhase       = errors.New("not allowed in the current phase")
	ErrSessionFull      = errors.New("session is full")
	ErrNameTaken        = errors.New("player name already taken")
	ErrInvalidName      = errors.New("invalid player name")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrAlreadyStarted   = errors.New("game already started")
)

// Rules bounds roster size and player names
type Rules struct {
	MinPlayers    int
	MaxPlayers    int
	MaxNameLength int
}

// DefaultRules returns the standard 2-8 player rules
func DefaultRules() Rules {
	return Rules{
		MinPlayers:    cards.MinPlayers,
		MaxPlayers:    cards.MaxPlayers,
		MaxNameLength: DefaultNameSize,
	}
}

// Player is one roster entry. Name is the identity key across reconnects.
type Player struct {
	ConnectionID string
	Name         string
	Hand         []cards.ToolCard
	IsHost       bool
}

// PlayResult describes the outcome of a play request.
// Applied is false for silent no-ops; Reason says why.
type PlayResult struct {
	Applied    bool
	Reason     string
	Player     *Player
	Tool       cards.ToolCard
	Hazard     cards.HazardCard
	Trap       bool
	Success    bool
	Points     int
	Transition Transition
}

// DrawResult describes the outcome of a draw request
type DrawResult struct {
	Applied    bool
	Reason     string
	Card       *cards.HazardCard
	Transition Transition
}

// Departure describes the roster change caused by a closing connection
type Departure struct {
	Removed      []*Player
	WasHost      bool
	PromotedHost *Player // set only for lobby promotion, which is announced
	Repaired     bool
	Transition   Transition
}

// StateView is the complete, authoritative view model of a session
type StateView struct {
	ID                  string                      `json:"id"`
	Phase               Phase                       `json:"phase"`
	Round               int                         `json:"round"`
	Started             bool                        `json:"started"`
	WaitingForNextCard  bool                        `json:"waitingForNextCard"`
	WaitingForNextRound bool                        `json:"waitingForNextRound"`
	GameOver            bool                        `json:"gameOver"`
	DeckCount           int                         `json:"deckCount"`
	DiscardCount        int                         `json:"discardCount"`
	CurrentHazard       *cards.HazardCard           `json:"currentHazard"`
	Scores              map[string]int              `json:"scores"`
	RoundScores         map[string][TotalRounds]int `json:"roundScores"`
	HostConnectionID    string                      `json:"hostConnectionId"`
}

// RosterEntry is the public view of one player
type RosterEntry struct {
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	HandSize int    `json:"handSize"`
	Score    int    `json:"score"`
}

// PlayerSnapshot is the private view sent to a single player
type PlayerSnapshot struct {
	Name         string           `json:"name"`
	ConnectionID string           `json:"connectionId"`
	IsHost       bool             `json:"isHost"`
	Hand         []cards.ToolCard `json:"hand"`
}
