package cards

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var ErrUnsupportedRoster = errors.New("unsupported roster size")

// deckSizes maps roster size to hazard deck size
var deckSizes = map[int]int{
	2: 18,
	3: 24,
	4: 30,
	5: 35,
	6: 40,
	7: 45,
	8: 50,
}

const (
	MinPlayers = 2
	MaxPlayers = 8

	// one decoy per decoyRatio cards
	decoyRatio = 6
)

// DeckComposition describes how a deck for a roster size is made up
type DeckComposition struct {
	Players int `json:"players"`
	Size    int `json:"size"`
	Decoys  int `json:"decoys"`
	Scoring int `json:"scoring"`
}

// DeckSize returns the hazard deck size for a roster
func DeckSize(players int) (int, error) {
	size, ok := deckSizes[players]
	if !ok {
		return 0, fmt.Errorf("%w: %d players (want %d-%d)", ErrUnsupportedRoster, players, MinPlayers, MaxPlayers)
	}
	return size, nil
}

// Composition returns the deck layout for a roster size
func Composition(players int) (DeckComposition, error) {
	size, err := DeckSize(players)
	if err != nil {
		return DeckComposition{}, err
	}
	decoys := size / decoyRatio
	return DeckComposition{
		Players: players,
		Size:    size,
		Decoys:  decoys,
		Scoring: size - decoys,
	}, nil
}

// BuildHazardDeck builds a shuffled hazard deck sized by roster.
// The last element is the top of the deck.
func BuildHazardDeck(players int, rng *rand.Rand) ([]HazardCard, error) {
	comp, err := Composition(players)
	if err != nil {
		return nil, err
	}

	// Pool holds enough copies of A1..A9, B1..B9 to cover the scoring share
	perCopy := 2 * (MaxHazardValue - MinHazardValue + 1)
	copies := (comp.Scoring + perCopy - 1) / perCopy
	pool := make([]HazardCard, 0, copies*perCopy)
	for i := 0; i < copies; i++ {
		for _, color := range []Color{ColorA, ColorB} {
			for v := MinHazardValue; v <= MaxHazardValue; v++ {
				pool = append(pool, NewScoringHazard(color, v))
			}
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	deck := make([]HazardCard, 0, comp.Size)
	deck = append(deck, pool[:comp.Scoring]...)
	for i := 0; i < comp.Decoys; i++ {
		deck = append(deck, NewDecoyHazard(DecoySubtypes[i%len(DecoySubtypes)]))
	}
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	return deck, nil
}

// Pile accumulates resolved cards. It only grows.
type Pile struct {
	Hazards []HazardCard `json:"hazards"`
	Tools   []ToolCard   `json:"tools"`
}

// AddHazard discards a hazard card
func (p *Pile) AddHazard(h HazardCard) {
	p.Hazards = append(p.Hazards, h)
}

// AddTool discards a tool card
func (p *Pile) AddTool(t ToolCard) {
	p.Tools = append(p.Tools, t)
}

// Len returns the number of discarded cards of both kinds
func (p *Pile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Hazards) + len(p.Tools)
}
