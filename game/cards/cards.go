package cards

import (
	"fmt"
	"strings"
)

// Kind distinguishes scoring hazards from decoys
type Kind string

const (
	Scoring Kind = "scoring"
	Decoy   Kind = "decoy"
)

// Color is the side of a scoring hazard. Tool cards are played on a side too.
type Color string

const (
	ColorA Color = "A"
	ColorB Color = "B"
)

// DecoySubtype is the flavor of a decoy hazard
type DecoySubtype string

const (
	Mirage DecoySubtype = "mirage"
	Smoke  DecoySubtype = "smoke"
	Echo   DecoySubtype = "echo"
	Shadow DecoySubtype = "shadow"
	Lure   DecoySubtype = "lure"
)

// DecoySubtypes lists every decoy flavor in deck-building order
var DecoySubtypes = []DecoySubtype{Mirage, Smoke, Echo, Shadow, Lure}

const (
	MinHazardValue = 1
	MaxHazardValue = 9
	MinToolValue   = 2
	MaxToolValue   = 8
)

// HazardCard is the shared card exposed each turn
type HazardCard struct {
	Kind    Kind         `json:"kind"`
	Color   Color        `json:"color,omitempty"`
	Value   int          `json:"value,omitempty"`
	Subtype DecoySubtype `json:"subtype,omitempty"`
}

// NewScoringHazard builds a colored, numbered hazard
func NewScoringHazard(color Color, value int) HazardCard {
	return HazardCard{Kind: Scoring, Color: color, Value: value}
}

// NewDecoyHazard builds a non-scoring hazard of the given flavor
func NewDecoyHazard(subtype DecoySubtype) HazardCard {
	return HazardCard{Kind: Decoy, Subtype: subtype}
}

// IsDecoy reports whether the card can never score
func (h HazardCard) IsDecoy() bool {
	return h.Kind == Decoy
}

func (h HazardCard) String() string {
	if h.IsDecoy() {
		return fmt.Sprintf("decoy(%s)", h.Subtype)
	}
	return fmt.Sprintf("%s%d", h.Color, h.Value)
}

// ToolCard is a numbered card held privately by a player
type ToolCard struct {
	Value int `json:"value"`
}

// NewToolHand returns one tool card of each value, ascending
func NewToolHand() []ToolCard {
	hand := make([]ToolCard, 0, MaxToolValue-MinToolValue+1)
	for v := MinToolValue; v <= MaxToolValue; v++ {
		hand = append(hand, ToolCard{Value: v})
	}
	return hand
}

// ParseSide maps a requested orientation onto a color.
// Accepts A/high/higher and B/low/lower, case-insensitive.
func ParseSide(side string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "a", "high", "higher":
		return ColorA, true
	case "b", "low", "lower":
		return ColorB, true
	}
	return "", false
}
